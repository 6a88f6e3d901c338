//go:build !unix

package transport

import (
	"os"
	"os/exec"
)

// PtySupported reports whether Spawn can attach a child to a pseudo-terminal.
const PtySupported = false

func spawnPty(_ *exec.Cmd, _ Spec) (*Child, error) {
	return nil, &SpawnError{Op: OpPtyOpen, Err: ErrPtyUnsupported}
}

func resizePty(_ *os.File, _ Size) error {
	return ErrPtyUnsupported
}
