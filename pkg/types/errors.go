package types

import (
	"errors"
	"fmt"
)

// ErrKind classifies errors so callers can branch on intent rather than text.
type ErrKind int

const (
	ErrKindFormat      ErrKind = iota // bad signature or unsupported sector size class
	ErrKindWrongFormat                // input is a different, recognizable format
	ErrKindCorrupt                    // cycles, out-of-range sectors, inconsistent sizes
	ErrKindBounds                     // read past a record, aggregate count mismatch
	ErrKindSizeSanity                 // implausible declared count, rejected before allocating
	ErrKindUnsupported                // valid feature we don't support
	ErrKindNotFound                   // missing storage or stream
	ErrKindState                      // invalid operation for current state (closed, wrong type)
)

func (k ErrKind) String() string {
	switch k {
	case ErrKindFormat:
		return "format"
	case ErrKindWrongFormat:
		return "wrong-format"
	case ErrKindCorrupt:
		return "corrupt"
	case ErrKindBounds:
		return "bounds"
	case ErrKindSizeSanity:
		return "size-sanity"
	case ErrKindUnsupported:
		return "unsupported"
	case ErrKindNotFound:
		return "not-found"
	case ErrKindState:
		return "state"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is a typed error with an optional underlying cause.
type Error struct {
	Kind ErrKind
	Msg  string
	Err  error // optional underlying cause
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch {
	case e.Err != nil && e.Msg == "":
		return e.Err.Error()
	case e.Err != nil:
		return e.Msg + ": " + e.Err.Error()
	default:
		return e.Msg
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same Kind, so errors.Is(err, ErrCorrupt)
// holds for every corruption error regardless of its message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return t.Kind == e.Kind
}

// Errorf builds an *Error of the given kind. %w verbs are honoured the same
// way fmt.Errorf honours them.
func Errorf(kind ErrKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// Sentinels for errors.Is checks, one per kind.
var (
	// ErrFormat indicates the input is not a compound file or declares an
	// unsupported sector size.
	ErrFormat = &Error{Kind: ErrKindFormat, Msg: "not a compound file"}
	// ErrWrongFormat indicates the input is another recognizable format.
	ErrWrongFormat = &Error{Kind: ErrKindWrongFormat, Msg: "wrong parser for this format"}
	// ErrCorrupt indicates non-recoverable structural inconsistency.
	ErrCorrupt = &Error{Kind: ErrKindCorrupt, Msg: "corrupt compound file structure"}
	// ErrBounds indicates a read past a record boundary or a count mismatch.
	ErrBounds = &Error{Kind: ErrKindBounds, Msg: "read out of bounds"}
	// ErrSizeSanity indicates an implausibly large declared count.
	ErrSizeSanity = &Error{Kind: ErrKindSizeSanity, Msg: "declared size exceeds available data"}
	// ErrUnsupported indicates a recognized but unsupported feature.
	ErrUnsupported = &Error{Kind: ErrKindUnsupported, Msg: "unsupported feature"}
	// ErrNotFound indicates a missing storage or stream.
	ErrNotFound = &Error{Kind: ErrKindNotFound, Msg: "not found"}
	// ErrState indicates an operation invalid for the current state.
	ErrState = &Error{Kind: ErrKindState, Msg: "invalid state"}
)

// Detail causes carried inside ErrKindWrongFormat errors.
var (
	// ErrOOXML indicates a ZIP package, i.e. an XML-based Office document
	// handed to the binary container reader.
	ErrOOXML = errors.New("data is a ZIP/OOXML package, use an OOXML reader instead")
	// ErrRawBIFF indicates a bare BIFF2-4 record stream without a container.
	ErrRawBIFF = errors.New("data is a raw BIFF stream without compound file envelope")
)
