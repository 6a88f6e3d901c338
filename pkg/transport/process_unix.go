//go:build unix

package transport

import (
	"os"
	"syscall"
)

func decodeExit(state *os.ProcessState) Exit {
	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return Exit{Code: -1, Signaled: true, Signal: ws.Signal()}
	}
	return Exit{Code: state.ExitCode()}
}

// killProcess sends SIGKILL to p, and to its whole process group when p
// leads one.
func killProcess(p *os.Process, group bool) error {
	if group {
		_ = syscall.Kill(-p.Pid, syscall.SIGKILL)
	}
	return p.Kill()
}
