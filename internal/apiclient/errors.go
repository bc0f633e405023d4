package apiclient

import (
	"github.com/edumarket/storefront/internal/domain"
)

const (
	msgUnauthorized    = "Unauthorized"
	msgConnection      = "Connection error, please check your network and try again"
	msgSystem          = "System error, please try again later"
	msgOperationFailed = "Operation failed"
)

type Kind int

const (
	// KindHTTP is a non-2xx, non-401 response.
	KindHTTP Kind = iota
	// KindEnvelope is a 2xx response whose envelope says success=false.
	KindEnvelope
	KindUnauthorized
	// KindConnection is a transport failure; no HTTP status exists.
	KindConnection
)

// Error is returned for every failed request. Message is safe to show to
// the user; Detail keeps whatever the server sent for 5xx responses.
type Error struct {
	Kind    Kind
	Status  int
	Code    int
	Message string
	Detail  string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	switch target {
	case domain.ErrUnauthorized:
		return e.Kind == KindUnauthorized
	case domain.ErrConnection:
		return e.Kind == KindConnection
	}
	return false
}

func (e *Error) ServerError() bool {
	return e.Kind == KindHTTP && e.Status >= 500
}
