package transport

import (
	"fmt"
	"syscall"
)

// Exit is how the child terminated.
type Exit struct {
	// Code is the exit code of a normal exit, -1 if the child was signaled.
	Code int
	// Signaled is set when an unhandled signal terminated the child.
	Signaled bool
	Signal   syscall.Signal
}

func (e Exit) String() string {
	if e.Signaled {
		return fmt.Sprintf("killed by signal %d (%v)", int(e.Signal), e.Signal)
	}
	return fmt.Sprintf("exit code %d", e.Code)
}
