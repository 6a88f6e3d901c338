//go:build !unix

package transport

import (
	"os"
)

// decodeExit uses ProcessState.ExitCode, which is available on every platform.
func decodeExit(state *os.ProcessState) Exit {
	return Exit{Code: state.ExitCode()}
}

// killProcess kills the process directly; there are no process groups here.
func killProcess(p *os.Process, _ bool) error {
	return p.Kill()
}
