// elapsed runs a command and shows how long it has been running.
//
// Usage:
//
//	elapsed make -j8
//	elapsed --total go test ./...
//	elapsed --tty --split-stderr cargo build
//
// The command's stdout and stderr are passed through unchanged, line by line.
// While it runs, a self-overwriting "Elapsed: HH:MM:SS" line is kept at the
// bottom of stderr when stderr is a terminal.
package main

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"os/signal"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dkoosis/elapsed/internal/config"
	"github.com/dkoosis/elapsed/internal/logging"
	"github.com/dkoosis/elapsed/internal/ui"
	"github.com/dkoosis/elapsed/internal/version"
	"github.com/dkoosis/elapsed/pkg/statusline"
	"github.com/dkoosis/elapsed/pkg/supervisor"
	"github.com/dkoosis/elapsed/pkg/transport"
)

// Exit codes used when the command's own status is not available.
const (
	exitIOError   = 1
	exitUsage     = 2
	exitCannotRun = 126
	exitNotFound  = 127
	exitSignal    = 128
	exitCancelled = exitSignal + 2 // as if by SIGINT
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), interruptSignals()...)
	defer stop()
	defer catchBrokenPipe()()

	a := &app{
		stdin:   stdin,
		stdout:  stdout,
		stderr:  stderr,
		getenv:  os.Getenv,
		printer: ui.NewPrinter(stderr, ui.UseColor(isTTYWriter(stderr), os.Getenv)),
	}
	return a.run(ctx, args)
}

type app struct {
	stdin          io.Reader
	stdout, stderr io.Writer
	getenv         func(string) string
	printer        *ui.Printer

	code int
}

func (a *app) run(ctx context.Context, args []string) int {
	root := a.newRootCmd()
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		return a.fail(err)
	}
	return a.code
}

func (a *app) newRootCmd() *cobra.Command {
	var flags config.CliFlags

	cmd := &cobra.Command{
		Use:   "elapsed [flags] <command> [args...]",
		Short: "Run a command and show how long it has been running",
		Long: `elapsed runs a command, passes its output through unchanged and keeps a
live "Elapsed: HH:MM:SS" line at the bottom of the terminal.

Everything after the command name is passed to the command, flags included.`,
		Args:          cobra.ArbitraryArgs,
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			f := cmd.Flags()
			flags.TotalSet = f.Changed("total")
			flags.TTYSet = f.Changed("tty")
			flags.SplitStderrSet = f.Changed("split-stderr")
			flags.FormatSet = f.Changed("format")
			flags.LogFileSet = f.Changed("log-file")
			flags.LogLevelSet = f.Changed("log-level")

			cfg, err := config.Resolve(flags, args, a.getenv, transport.PtySupported)
			if err != nil {
				return err
			}
			return a.execute(cmd.Context(), cfg)
		},
	}
	cmd.SetOut(a.stdout)
	cmd.SetErr(a.stderr)
	cmd.SetVersionTemplate("elapsed {{.Version}}\n")
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &config.UsageError{Msg: err.Error()}
	})

	f := cmd.Flags()
	// Flags end at the command name; everything after it belongs to the command.
	f.SetInterspersed(false)
	f.BoolVarP(&flags.Total, "total", "t", false, "leave the final elapsed time visible after the command exits")
	f.BoolVarP(&flags.TTY, "tty", "T", false, "run the command attached to a pseudo-terminal (Unix only)")
	f.BoolVarP(&flags.SplitStderr, "split-stderr", "S", false, "with --tty, capture the command's stderr separately (Unix only)")
	f.StringVarP(&flags.Format, "format", "F", config.Defaults().Format, "timer format")
	f.StringVar(&flags.ConfigPath, "config", "", "path to a YAML config file")
	f.StringVar(&flags.LogFile, "log-file", "", "write debug logs to this file")
	f.StringVar(&flags.LogLevel, "log-level", logging.DefaultLevel, "log level for --log-file")
	return cmd
}

// execute spawns the command and supervises it until it ends.
func (a *app) execute(ctx context.Context, cfg *config.Config) error {
	log, closer, err := logging.New(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		return &config.UsageError{Msg: "invalid --log-file", Err: err}
	}
	defer func() { _ = closer.Close() }()

	entry := log.WithField("command", cfg.Command)
	entry.WithFields(logrus.Fields{
		"args":        cfg.Args,
		"config_file": cfg.ConfigFile,
		"origins":     cfg.Origins,
		"tty":         cfg.TTY,
	}).Debug("configuration resolved")

	stdinFile, releaseStdin, err := childStdin(a.stdin)
	if err != nil {
		return err
	}
	stdinTerm, _ := a.stdin.(*os.File)
	stdoutFile, _ := a.stdout.(*os.File)
	stderrFile, _ := a.stderr.(*os.File)

	spec := transport.Spec{
		Command:     cfg.Command,
		Args:        cfg.Args,
		Stdin:       stdinFile,
		TTY:         cfg.TTY,
		SplitStderr: cfg.SplitStderr,
		Log:         entry,
	}
	if cfg.TTY {
		if size, ok := transport.TerminalSize(stdinTerm, stdoutFile, stderrFile); ok {
			spec.Size = size
		}
	}

	child, err := transport.Spawn(spec)
	releaseStdin()
	if err != nil {
		return err
	}
	stopResize := func() {}
	if cfg.TTY {
		stopResize = forwardResize(child, stdinTerm, stdoutFile, stderrFile)
	}

	stderrTTY := isTTYWriter(a.stderr)
	opts := []statusline.Option{statusline.WithFormat(cfg.TimerFormat())}
	if stderrTTY {
		opts = append(opts, statusline.WithWidth(termWidth(a.stderr)))
	}

	outcome, err := supervisor.Run(ctx, child, supervisor.Options{
		Stdout:           a.stdout,
		Stderr:           a.stderr,
		StdoutIsTerminal: isTTYWriter(a.stdout),
		Status:           statusline.New(a.stderr, stderrTTY, opts...),
		Total:            cfg.Total,
		Log:              entry,
	})
	stopResize()
	if err != nil {
		return err
	}

	a.code = outcomeCode(outcome)
	if outcome.Kind == supervisor.Signaled {
		a.printer.Warnf("%s: %s", cfg.Command, outcome)
	}
	return nil
}

// outcomeCode maps the end of a run to the process exit status.
func outcomeCode(o supervisor.Outcome) int {
	switch o.Kind {
	case supervisor.Exited:
		return o.Code
	case supervisor.Signaled:
		return exitSignal + int(o.Signal)
	case supervisor.Cancelled:
		return exitCancelled
	default:
		return 0
	}
}

// fail reports err and returns the matching exit code.
func (a *app) fail(err error) int {
	var (
		usageErr *config.UsageError
		spawnErr *transport.SpawnError
		ioErr    *supervisor.IOError
	)
	switch {
	case errors.As(err, &usageErr):
		a.printer.Errorf("%v", err)
		a.printer.Notef("run '%s --help' for usage", ui.ProgramName)
		return exitUsage
	case errors.As(err, &spawnErr):
		if spawnErr.Op == transport.OpStart && isCommandNotFoundError(spawnErr.Err) {
			a.printer.Errorf("command not found: %s", spawnErr.Command)
			return exitNotFound
		}
		a.printer.Errorf("%v", err)
		return exitCannotRun
	case errors.As(err, &ioErr):
		a.printer.Errorf("%v", err)
		return exitIOError
	default:
		a.printer.Errorf("%v", err)
		return exitIOError
	}
}

// childStdin returns the file the child reads its stdin from. A reader that
// is not a file is copied into the child through a pipe; release closes the
// supervisor's copy of the read end once the child has started.
func childStdin(r io.Reader) (f *os.File, release func(), err error) {
	if r == nil {
		return nil, func() {}, nil
	}
	if file, ok := r.(*os.File); ok {
		return file, func() {}, nil
	}
	pr, pw, err := os.Pipe()
	if err != nil {
		return nil, nil, &transport.SpawnError{Op: transport.OpPipe, Err: err}
	}
	go func() {
		// Fails with EPIPE once the child is gone; the rest of r is dropped.
		_, _ = io.Copy(pw, r)
		_ = pw.Close()
	}()
	return pr, func() { _ = pr.Close() }, nil
}

func isCommandNotFoundError(err error) bool {
	return errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist)
}

// isTTYWriter reports whether w is a terminal.
func isTTYWriter(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// termWidth returns the width of the terminal behind w, or 0 when unknown.
func termWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok {
		return 0
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}
	return width
}
