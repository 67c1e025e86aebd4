package gateway

import (
	"errors"
	"fmt"
)

// Kind classifies gateway failures.
type Kind int

const (
	// RemoteStatus: the endpoint answered with a non-200 status.
	RemoteStatus Kind = iota + 1
	// Unparseable: the response text held no extractable JSON object.
	Unparseable
	// Transport: the request never produced a response (timeout, connection error).
	Transport
)

func (k Kind) String() string {
	switch k {
	case RemoteStatus:
		return "remote_status"
	case Unparseable:
		return "unparseable"
	case Transport:
		return "transport"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is checks against an *Error.
var (
	ErrRemoteStatus = errors.New("gateway remote status")
	ErrUnparseable  = errors.New("gateway unparseable response")
	ErrTransport    = errors.New("gateway transport")
)

// Error is returned by every failed gateway call.
type Error struct {
	Kind       Kind
	StatusCode int    // set for RemoteStatus
	Raw        string // response text for Unparseable, body for RemoteStatus
	Err        error
}

func (e *Error) Error() string {
	switch e.Kind {
	case RemoteStatus:
		return fmt.Sprintf("gateway: remote status %d", e.StatusCode)
	case Unparseable:
		if e.Err != nil {
			return fmt.Sprintf("gateway: unparseable response: %v", e.Err)
		}
		return "gateway: unparseable response"
	default:
		return fmt.Sprintf("gateway: transport: %v", e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the Kind sentinels.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrRemoteStatus:
		return e.Kind == RemoteStatus
	case ErrUnparseable:
		return e.Kind == Unparseable
	case ErrTransport:
		return e.Kind == Transport
	}
	return false
}
