//go:build !unix

package main

import (
	"os"

	"github.com/dkoosis/elapsed/pkg/transport"
)

// interruptSignals returns the signals that cancel a run.
func interruptSignals() []os.Signal {
	return []os.Signal{os.Interrupt}
}

func catchBrokenPipe() func() { return func() {} }

func forwardResize(*transport.Child, ...*os.File) func() { return func() {} }
