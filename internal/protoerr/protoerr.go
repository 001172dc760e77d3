// Package protoerr defines the compositor's error taxonomy: a closed set
// of Kinds matching the propagation table in §7, and a single
// typed error carrying the Kind plus the offending object for protocol
// dispatch.
package protoerr

import "fmt"

// Kind identifies which row of §7's error taxonomy an error
// belongs to. Kind determines whether the condition is protocol-fatal
// for the offending client resource, or locally recoverable.
type Kind int

const (
	// InvalidBufferOffset: attach_buffer with (dx,dy) != (0,0) on
	// protocol v5+.
	InvalidBufferOffset Kind = iota
	// InvalidBufferSize: a buffer or commit geometry is zero-sized or not
	// divisible by the surface's buffer scale.
	InvalidBufferSize
	// ClientMismatch: a buffer's owning client differs from the
	// surface's owning client.
	ClientMismatch
	// InvalidState: an operation was attempted on a destroyed surface, or
	// a role was assigned twice.
	InvalidState
	// MissingCapability: a seat device request names a capability the
	// seat does not advertise.
	MissingCapability
	// BufferNotFound: a registry lookup by BufferId failed. Recovered
	// locally by dropping the operation.
	BufferNotFound
	// ProtocolParseError: the wire reader could not decode a message.
	ProtocolParseError
	// RendererElementError: a single draw element failed. Recovered by
	// skipping that element.
	RendererElementError
	// RendererFrameError: present failed for the whole frame. Recovered
	// by skipping the frame; frame callbacks are not signaled.
	RendererFrameError
	// TextureUploadError: a texture upload/update failed. Recovered by
	// dropping that node from the frame.
	TextureUploadError
	// OutOfMemory: a buffer or texture allocation failed.
	OutOfMemory
)

func (k Kind) String() string {
	switch k {
	case InvalidBufferOffset:
		return "InvalidBufferOffset"
	case InvalidBufferSize:
		return "InvalidBufferSize"
	case ClientMismatch:
		return "ClientMismatch"
	case InvalidState:
		return "InvalidState"
	case MissingCapability:
		return "MissingCapability"
	case BufferNotFound:
		return "BufferNotFound"
	case ProtocolParseError:
		return "ProtocolParseError"
	case RendererElementError:
		return "RendererElementError"
	case RendererFrameError:
		return "RendererFrameError"
	case TextureUploadError:
		return "TextureUploadError"
	case OutOfMemory:
		return "OutOfMemory"
	default:
		return "Unknown"
	}
}

// Recoverable reports whether errors of this Kind are handled locally
// per §7 (dropped, logged, or skipped) rather than surfaced as a
// terminal protocol error.
func (k Kind) Recoverable() bool {
	switch k {
	case BufferNotFound, RendererElementError, RendererFrameError, TextureUploadError:
		return true
	default:
		return false
	}
}

// Error is the compositor's structured error type. Object names the
// protocol object or entity the error concerns (e.g. "wl_surface@12"),
// for inclusion in the protocol error dispatched to the client.
type Error struct {
	Kind    Kind
	Object  string
	Message string
	Cause   error
}

// New creates an Error of the given Kind.
func New(kind Kind, object, message string) *Error {
	return &Error{Kind: kind, Object: object, Message: message}
}

// Wrap creates an Error of the given Kind wrapping cause.
func Wrap(kind Kind, object string, cause error) *Error {
	return &Error{Kind: kind, Object: object, Message: cause.Error(), Cause: cause}
}

func (e *Error) Error() string {
	if e.Object != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Object, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether the first *Error found in err's Unwrap chain has the
// given Kind, e.g. protoerr.Is(err, protoerr.InvalidState).
func Is(err error, kind Kind) bool {
	var pe *Error
	for err != nil {
		if e, ok := err.(*Error); ok {
			pe = e
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return pe != nil && pe.Kind == kind
}
