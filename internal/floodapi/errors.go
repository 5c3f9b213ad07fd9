package floodapi

import (
	"fmt"

	"github.com/bbernstein/floodwatch/backend-go/pkg/http/client"
)

// FetchError is a failed request, tagged with the transport's problem kind.
type FetchError struct {
	Op   string
	Kind client.Kind
	Err  error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s failed (%s): %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s failed (%s)", e.Op, e.Kind)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewFetchError creates a FetchError from a failed result.
func NewFetchError[T any](op string, result client.Result[T]) *FetchError {
	return &FetchError{
		Op:   op,
		Kind: result.Kind,
		Err:  result.Err,
	}
}

// ErrorState is the store-level error flag surfaced to callers.
type ErrorState struct {
	IsError bool   `json:"isError"`
	Message string `json:"errorMessage,omitempty"`
}

// StateFor converts err into an ErrorState; nil clears it.
func StateFor(err error) ErrorState {
	if err == nil {
		return ErrorState{}
	}
	return ErrorState{IsError: true, Message: err.Error()}
}
