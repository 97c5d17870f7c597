// Package upstream holds the HTTP plumbing shared by the RaiderIO and
// Blizzard clients: one fasthttp client profile, per-attempt dispatch, and
// the categorized error type both clients surface.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"time"

	"daebot/internal/domain"

	"github.com/valyala/fasthttp"
)

type ErrorKind string

const (
	KindTimeout     ErrorKind = "timeout"
	KindNetwork     ErrorKind = "network"
	KindHTTP        ErrorKind = "http"
	KindParse       ErrorKind = "parse"
	KindNotFound    ErrorKind = "not_found"
	KindRateLimited ErrorKind = "rate_limited"
)

// Error is a categorized upstream failure bound to one descriptor.
type Error struct {
	Kind       ErrorKind
	Status     int
	Descriptor domain.Descriptor
	Err        error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (status %d)", e.Descriptor, e.Kind, e.Status)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Descriptor, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Descriptor, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether another attempt may succeed.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindTimeout, KindNetwork, KindRateLimited:
		return true
	case KindHTTP:
		return e.Status >= 500
	default:
		return false
	}
}

// NewHTTPClient returns the fasthttp client profile used for both upstreams.
func NewHTTPClient() *fasthttp.Client {
	return &fasthttp.Client{
		MaxConnsPerHost:     100,
		ReadTimeout:         10 * time.Second,
		WriteTimeout:        10 * time.Second,
		MaxIdleConnDuration: 1 * time.Minute,
	}
}

// Get issues a single GET attempt, honoring the context deadline.
func Get(ctx context.Context, client *fasthttp.Client, url string, headers map[string]string) (int, []byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodGet)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	if err := do(ctx, client, req, resp); err != nil {
		return 0, nil, err
	}

	body := make([]byte, len(resp.Body()))
	copy(body, resp.Body())
	return resp.StatusCode(), body, nil
}

// PostForm issues a single form POST attempt, honoring the context deadline.
func PostForm(ctx context.Context, client *fasthttp.Client, url, body string, headers map[string]string) (int, []byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/x-www-form-urlencoded")
	req.SetBodyString(body)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	if err := do(ctx, client, req, resp); err != nil {
		return 0, nil, err
	}

	respBody := make([]byte, len(resp.Body()))
	copy(respBody, resp.Body())
	return resp.StatusCode(), respBody, nil
}

func do(ctx context.Context, client *fasthttp.Client, req *fasthttp.Request, resp *fasthttp.Response) error {
	if deadline, ok := ctx.Deadline(); ok {
		return client.DoDeadline(req, resp, deadline)
	}
	return client.Do(req, resp)
}

// Classify maps a transport-level failure to a kind.
func Classify(err error) ErrorKind {
	if errors.Is(err, fasthttp.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindNetwork
}

// ClassifyStatus maps a non-2xx status to a kind.
func ClassifyStatus(status int) ErrorKind {
	switch {
	case status == fasthttp.StatusNotFound:
		return KindNotFound
	case status == fasthttp.StatusTooManyRequests:
		return KindRateLimited
	default:
		return KindHTTP
	}
}
