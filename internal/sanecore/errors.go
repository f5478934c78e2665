// Package sanecore holds the error taxonomy shared by every other package
// in the backend, so sense decoding, transports and the session FSM all
// speak the same small vocabulary of logical failures (spec.md §7).
package sanecore

import "fmt"

// Kind is one of the logical error kinds a scan operation can surface to
// its caller. It is deliberately a closed set: callers compare with
// errors.Is against the package-level Err* values below, never by string.
type Kind int

const (
	KindNone Kind = iota
	KindIOError
	KindTimeout
	KindDeviceBusy
	KindCoverOpen
	KindNoDocs
	KindJammed
	KindCancelled
	KindEOF
	KindInval
	KindNoMem
	KindAccessDenied
	KindUnsupported
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "GOOD"
	case KindIOError:
		return "IO_ERROR"
	case KindTimeout:
		return "TIMEOUT"
	case KindDeviceBusy:
		return "DEVICE_BUSY"
	case KindCoverOpen:
		return "COVER_OPEN"
	case KindNoDocs:
		return "NO_DOCS"
	case KindJammed:
		return "JAMMED"
	case KindCancelled:
		return "CANCELLED"
	case KindEOF:
		return "EOF"
	case KindInval:
		return "INVAL"
	case KindNoMem:
		return "NO_MEM"
	case KindAccessDenied:
		return "ACCESS_DENIED"
	case KindUnsupported:
		return "UNSUPPORTED"
	default:
		return "UNKNOWN"
	}
}

// Error wraps a Kind with an optional underlying cause. It is comparable
// with errors.Is against the Err* sentinels, and unwraps to the cause for
// callers that want the lower-level detail.
type Error struct {
	Kind  Kind
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is an *Error with no Cause and the same Kind,
// such as the package-level sentinel naming that Kind. This lets callers write
// errors.Is(err, sanecore.ErrNoDocs) regardless of whether err carries a
// wrapped cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Cause == nil && t.Kind == e.Kind
}

// New builds an *Error of the given kind, optionally wrapping cause.
func New(kind Kind, cause error) *Error {
	return &Error{Kind: kind, Cause: cause}
}

// Sentinels for errors.Is comparisons. None of these carry a Cause; they
// exist purely to be matched against.
var (
	ErrIOError      = &Error{Kind: KindIOError}
	ErrTimeout      = &Error{Kind: KindTimeout}
	ErrDeviceBusy   = &Error{Kind: KindDeviceBusy}
	ErrCoverOpen    = &Error{Kind: KindCoverOpen}
	ErrNoDocs       = &Error{Kind: KindNoDocs}
	ErrJammed       = &Error{Kind: KindJammed}
	ErrCancelled    = &Error{Kind: KindCancelled}
	ErrEOF          = &Error{Kind: KindEOF}
	ErrInval        = &Error{Kind: KindInval}
	ErrNoMem        = &Error{Kind: KindNoMem}
	ErrAccessDenied = &Error{Kind: KindAccessDenied}
	ErrUnsupported  = &Error{Kind: KindUnsupported}
)

// KindOf extracts the Kind carried by err, if any, defaulting to
// KindIOError for an unrecognized non-nil error — an opaque transport
// failure is still an I/O error even if it wasn't constructed through New.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	var e *Error
	if as, ok := err.(*Error); ok {
		e = as
	} else {
		return KindIOError
	}
	return e.Kind
}
