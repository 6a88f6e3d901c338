// Package transport spawns the supervised child, connected either through
// plain pipes or through a pseudo-terminal.
package transport

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/dkoosis/elapsed/internal/logging"
	"github.com/dkoosis/elapsed/pkg/source"
)

// Spawn operations, reported in SpawnError.Op.
const (
	OpPipe      = "create pipe"
	OpPtyOpen   = "open pty"
	OpPtyResize = "resize pty"
	OpStart     = "start command"
)

// ErrPtyUnsupported is returned when a pty is requested on a platform without one.
var ErrPtyUnsupported = errors.New("pseudo-terminals are not supported on this platform")

// SpawnError reports a failure to launch the child. No child process is left
// running when it is returned.
type SpawnError struct {
	Op      string
	Command string
	Err     error
}

func (e *SpawnError) Error() string {
	if e.Command != "" {
		return fmt.Sprintf("%s %q: %v", e.Op, e.Command, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// Spec describes the child to spawn.
type Spec struct {
	Command string
	Args    []string
	Env     []string // nil inherits the supervisor's environment
	Dir     string

	// Stdin is handed to the child; nil means the supervisor's os.Stdin.
	Stdin *os.File

	// TTY attaches the child to a pseudo-terminal (Unix only).
	TTY bool
	// SplitStderr keeps the child's stderr on its own pipe when TTY is set.
	SplitStderr bool
	// Size of the pseudo-terminal. The zero value means DefaultSize.
	Size Size

	Log logrus.FieldLogger
}

func (s Spec) stdin() *os.File {
	if s.Stdin != nil {
		return s.Stdin
	}
	return os.Stdin
}

// Child is a running child process and the sources its output arrives on.
type Child struct {
	cmd       *exec.Cmd
	primary   source.Source
	secondary source.Source
	group     bool     // the child leads its own process group
	pty       *os.File // pty master, nil for plain pipes
	log       logrus.FieldLogger

	mu     sync.Mutex // guards closed against a concurrent Resize
	closed bool
}

// Spawn starts the child described by spec. With spec.TTY unset the child's
// stdout and stderr are separate pipes; otherwise the child runs on a
// pseudo-terminal whose master is the primary source.
func Spawn(spec Spec) (*Child, error) {
	log := logging.OrDiscard(spec.Log).WithField("command", spec.Command)

	cmd := exec.Command(spec.Command, spec.Args...)
	cmd.Env = spec.Env
	cmd.Dir = spec.Dir

	var (
		child *Child
		err   error
	)
	if spec.TTY {
		child, err = spawnPty(cmd, spec)
	} else {
		child, err = spawnPipes(cmd, spec)
	}
	if err != nil {
		log.WithError(err).Debug("spawn failed")
		return nil, err
	}

	child.log = log.WithField("pid", child.Pid())
	child.log.WithFields(logrus.Fields{
		"primary":   child.primary.Kind(),
		"secondary": child.secondary.Kind(),
	}).Debug("spawned")
	return child, nil
}

func spawnPipes(cmd *exec.Cmd, spec Spec) (*Child, error) {
	outR, outW, err := os.Pipe()
	if err != nil {
		return nil, &SpawnError{Op: OpPipe, Err: err}
	}
	errR, errW, err := os.Pipe()
	if err != nil {
		closeAll(outR, outW)
		return nil, &SpawnError{Op: OpPipe, Err: err}
	}

	cmd.Stdin = spec.stdin()
	cmd.Stdout = outW
	cmd.Stderr = errW
	err = cmd.Start()
	closeAll(outW, errW)
	if err != nil {
		closeAll(outR, errR)
		return nil, &SpawnError{Op: OpStart, Command: spec.Command, Err: err}
	}

	return &Child{
		cmd:       cmd,
		primary:   source.Pipe(source.KindStdout, outR),
		secondary: source.Pipe(source.KindStderr, errR),
	}, nil
}

// Primary returns the source carrying the child's stdout (and, on a pty
// without split stderr, its stderr too).
func (c *Child) Primary() source.Source { return c.primary }

// Secondary returns the source carrying the child's separate stderr, or a
// null source when stderr is not captured separately.
func (c *Child) Secondary() source.Source { return c.secondary }

// Pid returns the child's process id.
func (c *Child) Pid() int {
	if c.cmd.Process == nil {
		return 0
	}
	return c.cmd.Process.Pid
}

// Wait blocks until the child exits and reaps it. It must be called once.
func (c *Child) Wait() (Exit, error) {
	err := c.cmd.Wait()
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return Exit{}, fmt.Errorf("waiting for child: %w", err)
	}
	exit := decodeExit(c.cmd.ProcessState)
	c.log.WithField("exit", exit.String()).Debug("child exited")
	return exit, nil
}

// Kill forcibly terminates the child, and in pty mode every process in its
// session's process group. Killing an already finished child is not an error.
func (c *Child) Kill() error {
	if c.cmd.Process == nil {
		return nil
	}
	c.log.Debug("killing child")
	err := killProcess(c.cmd.Process, c.group)
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}

// Resize sets the size of the child's pseudo-terminal. It does nothing for a
// child on plain pipes or once Close has been called.
func (c *Child) Resize(size Size) error {
	if c.pty == nil || size.IsZero() {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.log.WithField("size", fmt.Sprintf("%dx%d", size.Cols, size.Rows)).Debug("resizing pty")
	return resizePty(c.pty, size)
}

// Close releases both sources, unblocking any pending reads.
func (c *Child) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return errors.Join(c.primary.Close(), c.secondary.Close())
}

func closeAll(files ...*os.File) {
	for _, f := range files {
		if f != nil {
			_ = f.Close()
		}
	}
}
