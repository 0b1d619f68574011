package cursor

import (
	"errors"
	"fmt"
)

// Kind classifies the failures a cursor can report
type Kind uint8

const (
	// ExecutionFailure means the server rejected the query
	// (syntax, constraint, permission...). The connection stays usable.
	ExecutionFailure Kind = iota + 1
	// TransportFailure means the connection itself failed: I/O errors,
	// protocol desync, or a fetch abandoned mid-flight.
	// The connection must not be reused.
	TransportFailure
	// ExclusivityViolation means a second cursor was requested
	// over a connection that already has a live cursor.
	ExclusivityViolation
)

func (k Kind) String() string {
	switch k {
	case ExecutionFailure:
		return "execution"
	case TransportFailure:
		return "transport"
	case ExclusivityViolation:
		return "exclusivity"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Sentinels to match an [*Error] of a given kind with errors.Is
var (
	ErrExecution   = &Error{Kind: ExecutionFailure}
	ErrTransport   = &Error{Kind: TransportFailure}
	ErrExclusivity = &Error{Kind: ExclusivityViolation}
)

var (
	// ErrClosed is returned by Next after the cursor has been closed
	ErrClosed = errors.New("cursor: cursor is closed")

	// ErrRowExpired is returned when a row is read after the cursor
	// that produced it has moved on
	ErrRowExpired = errors.New("cursor: row is no longer valid")

	// ErrFetchInProgress is returned when Next is called while another
	// call to Next on the same cursor has not returned
	ErrFetchInProgress = errors.New("cursor: fetch already in progress")

	// ErrNoRows is returned by One when the query produced no rows
	ErrNoRows = errors.New("cursor: no rows in result set")
)

var (
	errConnBroken = errors.New("connection is broken and cannot be reused")
	errConnBusy   = errors.New("connection already has a live cursor")
)

// Error is the typed failure returned by cursors.
// Use errors.Is with ErrExecution, ErrTransport or ErrExclusivity
// to check the kind, and errors.As/Unwrap to reach the backend error.
type Error struct {
	Kind    Kind
	Backend string
	Err     error
}

func newError(kind Kind, backend string, err error) *Error {
	return &Error{Kind: kind, Backend: backend, Err: err}
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := "cursor: " + e.Kind.String() + " failure"
	if e.Backend != "" {
		msg += " (" + e.Backend + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches a kind-only *Error such as ErrTransport
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}

	return t.Err == nil && t.Backend == "" && t.Kind == e.Kind
}

// KindOf returns the Kind of the first [*Error] in err's chain,
// or 0 if there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	return 0
}
