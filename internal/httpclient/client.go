// Package httpclient is the shared resty-based plumbing behind the Jira and
// Rise clients: auth headers, timeouts, typed errors and retry.
package httpclient

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const UserAgent = "TimeMachine REST Client"

type Client struct {
	*resty.Client

	maxRetries    uint64
	retryInterval time.Duration
	logger        *zap.Logger
}

type ClientFunc func(*Client)

type RequestFunc func(*resty.Request)

func New(cfs ...ClientFunc) *Client {
	r := resty.New()
	r.SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", UserAgent)

	c := &Client{
		Client:        r,
		retryInterval: 500 * time.Millisecond,
		logger:        zap.NewNop(),
	}

	for _, cf := range cfs {
		cf(c)
	}

	return c
}

func SetBaseURL(url string) ClientFunc {
	return func(c *Client) {
		c.Client.SetBaseURL(url)
	}
}

func SetTimeout(d time.Duration) ClientFunc {
	return func(c *Client) {
		if d > 0 {
			c.Client.SetTimeout(d)
		}
	}
}

func SetBasicAuth(username, password string) ClientFunc {
	return func(c *Client) {
		c.Client.SetBasicAuth(username, password)
	}
}

// SetTokenAuth sends "Authorization: Token <key>".
func SetTokenAuth(key string) ClientFunc {
	return func(c *Client) {
		c.SetHeader("Authorization", "Token "+key)
	}
}

// SetMaxRetries bounds how many times a transient failure is retried.
// Zero disables retry.
func SetMaxRetries(n uint64) ClientFunc {
	return func(c *Client) {
		c.maxRetries = n
	}
}

func SetRetryInterval(d time.Duration) ClientFunc {
	return func(c *Client) {
		c.retryInterval = d
	}
}

func SetLogger(l *zap.Logger) ClientFunc {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

func WithBody(body interface{}) RequestFunc {
	return func(r *resty.Request) {
		r.SetBody(body)
	}
}

func WithQuery(params map[string]string) RequestFunc {
	return func(r *resty.Request) {
		r.SetQueryParams(params)
	}
}

func (c *Client) Get(ctx context.Context, url string, rfs ...RequestFunc) (*resty.Response, error) {
	return c.Do(ctx, resty.MethodGet, url, rfs...)
}

func (c *Client) Post(ctx context.Context, url string, rfs ...RequestFunc) (*resty.Response, error) {
	return c.Do(ctx, resty.MethodPost, url, rfs...)
}

func (c *Client) Put(ctx context.Context, url string, rfs ...RequestFunc) (*resty.Response, error) {
	return c.Do(ctx, resty.MethodPut, url, rfs...)
}

func (c *Client) Delete(ctx context.Context, url string, rfs ...RequestFunc) (*resty.Response, error) {
	return c.Do(ctx, resty.MethodDelete, url, rfs...)
}

// Do executes the request, retrying network failures, 429 and 5xx with
// exponential backoff. Delivery is at-least-once: a retried POST whose first
// attempt reached the vendor creates a duplicate remote record.
//
// Every returned error matches ErrRemoteUnavailable.
func (c *Client) Do(ctx context.Context, method, url string, rfs ...RequestFunc) (*resty.Response, error) {
	var res *resty.Response
	attempt := 0

	op := func() error {
		attempt++
		r := c.R().SetContext(ctx)
		for _, rf := range rfs {
			rf(r)
		}

		resp, err := r.Execute(method, url)
		if err != nil {
			c.logger.Debug("remote call failed",
				zap.String("method", method), zap.String("url", url), zap.Int("attempt", attempt), zap.Error(err))
			return err
		}
		if !resp.IsSuccess() {
			e := NewErrorFromRestyResponse(resp)
			c.logger.Debug("remote call rejected",
				zap.String("method", method), zap.String("url", url), zap.Int("attempt", attempt), zap.Int("status", e.Code))
			if e.Temporary() {
				return e
			}
			return backoff.Permanent(e)
		}

		res = resp
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.retryInterval
	bo.MaxInterval = 10 * c.retryInterval

	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, c.maxRetries), ctx))
	if err != nil {
		return nil, wrapError(err)
	}
	return res, nil
}

func wrapError(err error) error {
	if _, ok := err.(*Error); ok {
		return err
	}
	return fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
}
