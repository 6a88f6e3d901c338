//go:build unix

package transport

import (
	"os"
	"os/exec"
	"syscall"

	"github.com/creack/pty"

	"github.com/dkoosis/elapsed/pkg/source"
)

// PtySupported reports whether Spawn can attach a child to a pseudo-terminal.
const PtySupported = true

// ttyFd is the descriptor, in the child, that the pty slave is installed on
// and that becomes its controlling terminal. Stdin stays the supervisor's.
const ttyFd = 1

func spawnPty(cmd *exec.Cmd, spec Spec) (*Child, error) {
	master, slave, err := pty.Open()
	if err != nil {
		return nil, &SpawnError{Op: OpPtyOpen, Err: err}
	}

	size := spec.Size
	if size.IsZero() {
		size = DefaultSize
	}
	if err := resizePty(master, size); err != nil {
		closeAll(master, slave)
		return nil, &SpawnError{Op: OpPtyResize, Err: err}
	}

	secondary := source.Null()
	var errR, errW *os.File
	if spec.SplitStderr {
		errR, errW, err = os.Pipe()
		if err != nil {
			closeAll(master, slave)
			return nil, &SpawnError{Op: OpPipe, Err: err}
		}
		secondary = source.Pipe(source.KindStderr, errR)
		cmd.Stderr = errW
	} else {
		cmd.Stderr = slave
	}

	cmd.Stdin = spec.stdin()
	cmd.Stdout = slave
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid:  true,
		Setctty: true,
		Ctty:    ttyFd,
	}

	err = cmd.Start()
	// The child holds its own copies; the master only reports EOF once every
	// copy of the slave is closed.
	closeAll(slave, errW)
	if err != nil {
		closeAll(master, errR)
		return nil, &SpawnError{Op: OpStart, Command: spec.Command, Err: err}
	}

	return &Child{
		cmd:       cmd,
		primary:   source.Pty(master),
		secondary: secondary,
		group:     true,
		pty:       master,
	}, nil
}

func resizePty(master *os.File, size Size) error {
	return pty.Setsize(master, &pty.Winsize{Rows: size.Rows, Cols: size.Cols})
}
