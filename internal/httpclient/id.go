package httpclient

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// RemoteID is a vendor identifier that may arrive as a JSON string or number.
type RemoteID string

func (id *RemoteID) UnmarshalJSON(b []byte) error {
	var v interface{}
	d := json.NewDecoder(bytes.NewReader(b))
	d.UseNumber()
	if err := d.Decode(&v); err != nil {
		return err
	}

	switch x := v.(type) {
	case string:
		*id = RemoteID(x)
	case json.Number:
		*id = RemoteID(x.String())
	case nil:
		*id = ""
	default:
		return fmt.Errorf("id must be a string or number, got %s", b)
	}
	return nil
}

func (id RemoteID) String() string {
	return string(id)
}
