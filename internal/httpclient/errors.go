package httpclient

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
)

// ErrRemoteUnavailable matches every failed remote call: transport errors,
// timeouts and non-2xx responses.
var ErrRemoteUnavailable = errors.New("remote service unavailable")

// StatusReason is an enumeration of possible failure causes.
type StatusReason string

const (
	StatusReasonUnknown            StatusReason = ""
	StatusReasonBadRequest         StatusReason = "BadRequest"
	StatusReasonUnauthorized       StatusReason = "Unauthorized"
	StatusReasonForbidden          StatusReason = "Forbidden"
	StatusReasonNotFound           StatusReason = "NotFound"
	StatusReasonConflict           StatusReason = "Conflict"
	StatusReasonInvalid            StatusReason = "Invalid"
	StatusReasonTooManyRequests    StatusReason = "TooManyRequests"
	StatusReasonInternalError      StatusReason = "InternalError"
	StatusReasonServiceUnavailable StatusReason = "ServiceUnavailable"
)

type Error struct {
	Code      int
	ErrStatus StatusReason
	Message   string
	Detail    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("[%d %s] %s", e.Code, e.ErrStatus, e.Message)
}

func (e *Error) Status() StatusReason {
	return e.ErrStatus
}

func (e *Error) Is(target error) bool {
	return target == ErrRemoteUnavailable
}

// Temporary reports whether repeating the request may succeed.
func (e *Error) Temporary() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

var _ error = &Error{}

func IsNotFound(err error) bool {
	return ReasonForError(err) == StatusReasonNotFound
}

func ReasonForError(err error) StatusReason {
	var e *Error
	if errors.As(err, &e) {
		return e.Status()
	}
	return StatusReasonUnknown
}

func NewErrorFromRestyResponse(res *resty.Response) *Error {
	return NewGenericServerResponse(res.StatusCode(), res.String())
}

// NewGenericServerResponse returns a new error for server responses.
func NewGenericServerResponse(code int, detail string) *Error {
	reason := StatusReasonUnknown
	message := fmt.Sprintf("the server responded with the status code %d but did not return more information", code)
	switch code {
	case http.StatusConflict:
		reason = StatusReasonConflict
		message = "the server reported a conflict"
	case http.StatusNotFound:
		reason = StatusReasonNotFound
		message = "the server could not find the requested resource"
	case http.StatusBadRequest:
		reason = StatusReasonBadRequest
		message = "the server rejected our request"
	case http.StatusUnauthorized:
		reason = StatusReasonUnauthorized
		message = "the server rejected the configured credentials"
	case http.StatusForbidden:
		reason = StatusReasonForbidden
		message = "the server refused the request"
	case http.StatusUnprocessableEntity:
		reason = StatusReasonInvalid
		message = "the server rejected our request due to an error in our request"
	case http.StatusServiceUnavailable:
		reason = StatusReasonServiceUnavailable
		message = "the server is currently unable to handle the request"
	case http.StatusTooManyRequests:
		reason = StatusReasonTooManyRequests
		message = "the server has received too many requests and has asked us to try again later"
	default:
		if code >= 500 {
			reason = StatusReasonInternalError
			message = "an error on the server has prevented the request from succeeding"
		}
	}

	return &Error{
		Code:      code,
		ErrStatus: reason,
		Message:   message,
		Detail:    detail,
	}
}

// MalformedResponseError means a vendor payload did not match its schema.
type MalformedResponseError struct {
	Endpoint string
	Err      error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed response from %s: %v", e.Endpoint, e.Err)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}
