package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Kind classifies the outcome of a request. Callers only branch on the kind
// and never inspect transport internals.
type Kind string

const (
	KindOK            Kind = "ok"
	KindTimeout       Kind = "timeout"
	KindCannotConnect Kind = "cannot-connect"
	KindServer        Kind = "server"
	KindUnauthorized  Kind = "unauthorized"
	KindForbidden     Kind = "forbidden"
	KindNotFound      Kind = "not-found"
	KindRejected      Kind = "rejected"
	KindBadData       Kind = "bad-data"
	KindUnknown       Kind = "unknown"
)

// Result is the tagged outcome of a request: Data is only meaningful when
// Kind is KindOK.
type Result[T any] struct {
	Kind Kind
	Data T
	Err  error
}

func (r Result[T]) OK() bool {
	return r.Kind == KindOK
}

// Decode converts a raw response (or transport error) into a Result.
func Decode[T any](resp *Response, err error) Result[T] {
	if err != nil {
		return Result[T]{Kind: kindForError(err), Err: err}
	}
	if resp == nil {
		return Result[T]{Kind: KindCannotConnect, Err: errors.New("no response")}
	}

	if kind := kindForStatus(resp.StatusCode); kind != KindOK {
		return Result[T]{Kind: kind, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	var data T
	if len(resp.Body) > 0 {
		if err := json.Unmarshal(resp.Body, &data); err != nil {
			return Result[T]{Kind: KindBadData, Err: fmt.Errorf("decoding response: %w", err)}
		}
	}
	return Result[T]{Kind: KindOK, Data: data}
}

func kindForStatus(status int) Kind {
	switch {
	case status >= 200 && status < 300:
		return KindOK
	case status == http.StatusUnauthorized:
		return KindUnauthorized
	case status == http.StatusForbidden:
		return KindForbidden
	case status == http.StatusNotFound:
		return KindNotFound
	case status >= 400 && status < 500:
		return KindRejected
	case status >= 500:
		return KindServer
	default:
		return KindUnknown
	}
}

func kindForError(err error) Kind {
	if isTimeout(err) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindCannotConnect
	}
	return KindUnknown
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
