package rest

import (
	"fmt"

	"github.com/variant64/client/internal/routes"
)

// Kind classifies a request failure.
type Kind int

const (
	// KindTransport means the request never reached the server.
	KindTransport Kind = iota
	// KindServer means the server answered with a non-2xx status.
	KindServer
	// KindDecode means the response body did not match the expected shape.
	KindDecode
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindServer:
		return "server"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// Error is the single failure value returned by Client for any request.
// Callers branch on Kind (or Transport) only for retry decisions; the
// client itself never retries.
type Error struct {
	Action     routes.Action
	Kind       Kind
	StatusCode int    // zero unless Kind is KindServer
	Message    string // decoded server error message, if any
	cause      error
}

func (e *Error) Error() string {
	if e.Kind == KindServer {
		return fmt.Sprintf("%s: server returned %d: %s", e.Action, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s error: %v", e.Action, e.Kind, e.cause)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Transport reports whether the request never reached the server, the
// only case where a retry cannot duplicate a server-side effect.
func (e *Error) Transport() bool {
	return e.Kind == KindTransport
}
