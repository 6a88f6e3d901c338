package supervisor

import (
	"fmt"
	"syscall"
)

// OutcomeKind classifies how a run ended.
type OutcomeKind int

const (
	// Exited means the child exited normally; Outcome.Code holds its status.
	Exited OutcomeKind = iota
	// Signaled means an unhandled signal terminated the child.
	Signaled
	// Cancelled means the run was cancelled before the child exited.
	Cancelled
	// OutputClosed means the reader of our own output went away (EPIPE).
	OutputClosed
)

func (k OutcomeKind) String() string {
	switch k {
	case Exited:
		return "exited"
	case Signaled:
		return "signaled"
	case Cancelled:
		return "cancelled"
	case OutputClosed:
		return "output closed"
	default:
		return "unknown"
	}
}

// Outcome is the terminal result of a run.
type Outcome struct {
	Kind OutcomeKind
	// Code is the child's exit status, 0-255, when Kind is Exited.
	Code int
	// Signal is the terminating signal when Kind is Signaled.
	Signal syscall.Signal
}

func (o Outcome) String() string {
	switch o.Kind {
	case Exited:
		return fmt.Sprintf("exited with code %d", o.Code)
	case Signaled:
		return fmt.Sprintf("killed by signal: %v", o.Signal)
	default:
		return o.Kind.String()
	}
}

// Success reports whether the outcome should be treated as a successful run.
func (o Outcome) Success() bool {
	return (o.Kind == Exited && o.Code == 0) || o.Kind == OutputClosed
}

// exitCode maps a raw exit code into 0-255. Codes that are not a plain exit
// status (negative) become the generic failure code 1.
func exitCode(code int) int {
	if code < 0 {
		return 1
	}
	return code & 0xff
}

// IOError reports a failure reading the child's output or writing ours.
type IOError struct {
	Stream string
	Op     string // "read" or "write"
	Err    error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Stream, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }
