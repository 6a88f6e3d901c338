//go:build unix

package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/dkoosis/elapsed/pkg/transport"
)

// interruptSignals returns the signals that cancel a run.
func interruptSignals() []os.Signal {
	return []os.Signal{os.Interrupt, syscall.SIGTERM}
}

// catchBrokenPipe makes writes to a closed stdout or stderr fail with EPIPE
// instead of killing the process. The returned func undoes it.
func catchBrokenPipe() func() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGPIPE)
	return func() { signal.Stop(ch) }
}

// forwardResize keeps the child's pseudo-terminal the size of the first of
// files that is a terminal, until the returned func is called.
func forwardResize(child *transport.Child, files ...*os.File) func() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGWINCH)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ch:
				if size, ok := transport.TerminalSize(files...); ok {
					_ = child.Resize(size)
				}
			case <-done:
				return
			}
		}
	}()
	return func() {
		signal.Stop(ch)
		close(done)
	}
}
