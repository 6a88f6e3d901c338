// Package supervisor runs the event loop that forwards a child's output while
// keeping a live status line on the terminal.
//
// The loop is the single point of terminal output during a run: every write
// to a stream shared with the status line is bracketed by Clear and Print, in
// the same goroutine, so no two writes ever interleave.
package supervisor

import (
	"context"
	"errors"
	"io"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dkoosis/elapsed/internal/logging"
	"github.com/dkoosis/elapsed/pkg/linereader"
	"github.com/dkoosis/elapsed/pkg/source"
	"github.com/dkoosis/elapsed/pkg/statusline"
	"github.com/dkoosis/elapsed/pkg/transport"
)

const (
	// DefaultTick is the status line refresh interval.
	DefaultTick = time.Second
	// DefaultDrainTimeout bounds how long output still in flight is forwarded
	// after the child exits.
	DefaultDrainTimeout = 100 * time.Millisecond
)

// Process is a spawned child as seen by the event loop. *transport.Child
// implements it.
type Process interface {
	Primary() source.Source
	Secondary() source.Source
	Wait() (transport.Exit, error)
	Kill() error
	Close() error
}

// Options configures a run.
type Options struct {
	// Stdout receives primary lines, Stderr secondary lines.
	Stdout io.Writer
	Stderr io.Writer
	// StdoutIsTerminal reports whether Stdout shares the status line's
	// terminal, so primary lines need the status line cleared around them.
	StdoutIsTerminal bool
	// Status is drawn on Stderr.
	Status *statusline.Line
	// Total prints a final reading once the loop ends.
	Total bool

	Tick         time.Duration
	DrainTimeout time.Duration // negative disables draining
	Log          logrus.FieldLogger
}

type waitResult struct {
	exit transport.Exit
	err  error
}

type supervisor struct {
	proc   Process
	opts   Options
	status *statusline.Line
	log    logrus.FieldLogger

	primary   <-chan linereader.Result
	secondary <-chan linereader.Result
	exited    chan waitResult
	done      chan struct{}
	reaped    bool
}

// Run supervises proc until it exits or ctx is cancelled. Whatever happens,
// the child is not left running when Run returns.
//
// A returned error is an *IOError or a failure to wait for the child; every
// other ending is described by the Outcome.
func Run(ctx context.Context, proc Process, opts Options) (Outcome, error) {
	if opts.Tick <= 0 {
		opts.Tick = DefaultTick
	}
	ticker := time.NewTicker(opts.Tick)
	defer ticker.Stop()
	return run(ctx, proc, opts, ticker.C)
}

func run(ctx context.Context, proc Process, opts Options, ticks <-chan time.Time) (Outcome, error) {
	s := newSupervisor(proc, opts)
	defer s.teardown()

	outcome, err := s.loop(ctx, ticks)
	if err != nil {
		return s.failure(err)
	}
	if opts.Total {
		if err := s.status.PrintTotal(); err != nil {
			return s.failure(&IOError{Stream: "stderr", Op: "write", Err: err})
		}
	}
	s.log.WithField("outcome", outcome.String()).Debug("run finished")
	return outcome, nil
}

func newSupervisor(proc Process, opts Options) *supervisor {
	if opts.Stdout == nil {
		opts.Stdout = io.Discard
	}
	if opts.Stderr == nil {
		opts.Stderr = io.Discard
	}
	if opts.Status == nil {
		opts.Status = statusline.New(opts.Stderr, false)
	}
	if opts.DrainTimeout == 0 {
		opts.DrainTimeout = DefaultDrainTimeout
	}
	s := &supervisor{
		proc:   proc,
		opts:   opts,
		status: opts.Status,
		log:    logging.OrDiscard(opts.Log),
		exited: make(chan waitResult, 1),
		done:   make(chan struct{}),
	}

	s.primary = linereader.New(proc.Primary()).Lines(s.done)
	s.secondary = linereader.New(proc.Secondary()).Lines(s.done)
	go func() {
		exit, err := proc.Wait()
		s.exited <- waitResult{exit: exit, err: err}
	}()
	return s
}

func (s *supervisor) loop(ctx context.Context, ticks <-chan time.Time) (Outcome, error) {
	if err := s.print(); err != nil {
		return Outcome{}, err
	}

	for {
		select {
		case <-ctx.Done():
			s.log.Debug("cancelled")
			return Outcome{Kind: Cancelled}, s.clear()

		case <-ticks:
			if err := s.redraw(); err != nil {
				return Outcome{}, err
			}

		case res, ok := <-s.primary:
			if !ok {
				s.log.WithField("source", s.proc.Primary().Kind()).Debug("end of stream")
				s.primary = nil
				continue
			}
			if err := s.handlePrimary(res); err != nil {
				return Outcome{}, err
			}

		case res, ok := <-s.secondary:
			if !ok {
				s.log.WithField("source", s.proc.Secondary().Kind()).Debug("end of stream")
				s.secondary = nil
				continue
			}
			if err := s.handleSecondary(res); err != nil {
				return Outcome{}, err
			}

		case w := <-s.exited:
			s.reaped = true
			return s.finish(w)
		}
	}
}

// handlePrimary writes a primary line. Only when stdout is the status line's
// terminal does the status line need clearing around it.
func (s *supervisor) handlePrimary(res linereader.Result) error {
	if res.Err != nil {
		return &IOError{Stream: s.proc.Primary().Kind().String(), Op: "read", Err: res.Err}
	}
	shared := s.opts.StdoutIsTerminal
	if shared {
		if err := s.clear(); err != nil {
			return err
		}
	}
	if err := write(s.opts.Stdout, res.Line); err != nil {
		return &IOError{Stream: "stdout", Op: "write", Err: err}
	}
	if shared {
		return s.print()
	}
	return nil
}

// handleSecondary writes a secondary line. Stderr always carries the status
// line, so it is always cleared and redrawn.
func (s *supervisor) handleSecondary(res linereader.Result) error {
	if res.Err != nil {
		return &IOError{Stream: s.proc.Secondary().Kind().String(), Op: "read", Err: res.Err}
	}
	if err := s.clear(); err != nil {
		return err
	}
	if err := write(s.opts.Stderr, res.Line); err != nil {
		return &IOError{Stream: "stderr", Op: "write", Err: err}
	}
	return s.print()
}

// finish forwards output that was already on its way when the child exited,
// then clears the status line and maps the exit status.
func (s *supervisor) finish(w waitResult) (Outcome, error) {
	if w.err != nil {
		return Outcome{}, w.err
	}
	if err := s.drain(); err != nil {
		return Outcome{}, err
	}
	if err := s.clear(); err != nil {
		return Outcome{}, err
	}
	if w.exit.Signaled {
		return Outcome{Kind: Signaled, Signal: w.exit.Signal}, nil
	}
	return Outcome{Kind: Exited, Code: exitCode(w.exit.Code)}, nil
}

func (s *supervisor) drain() error {
	if s.opts.DrainTimeout < 0 {
		return nil
	}
	timer := time.NewTimer(s.opts.DrainTimeout)
	defer timer.Stop()

	for s.primary != nil || s.secondary != nil {
		select {
		case res, ok := <-s.primary:
			if !ok {
				s.primary = nil
				continue
			}
			if err := s.handlePrimary(res); err != nil {
				return err
			}
		case res, ok := <-s.secondary:
			if !ok {
				s.secondary = nil
				continue
			}
			if err := s.handleSecondary(res); err != nil {
				return err
			}
		case <-timer.C:
			s.log.Debug("drain timed out; output still open")
			return nil
		}
	}
	return nil
}

func (s *supervisor) redraw() error {
	if err := s.clear(); err != nil {
		return err
	}
	return s.print()
}

func (s *supervisor) clear() error {
	if err := s.status.Clear(); err != nil {
		return &IOError{Stream: "stderr", Op: "write", Err: err}
	}
	return nil
}

func (s *supervisor) print() error {
	if err := s.status.Print(); err != nil {
		return &IOError{Stream: "stderr", Op: "write", Err: err}
	}
	return nil
}

// failure turns a run error into its result. A broken pipe on our own output
// means whoever reads it has gone away: that ends the run quietly.
func (s *supervisor) failure(err error) (Outcome, error) {
	var ioErr *IOError
	if errors.As(err, &ioErr) && ioErr.Op == "write" && errors.Is(err, syscall.EPIPE) {
		s.log.WithField("stream", ioErr.Stream).Debug("output closed")
		return Outcome{Kind: OutputClosed}, nil
	}
	s.log.WithError(err).Debug("run failed")
	return Outcome{}, err
}

// teardown kills and reaps the child if it is still running, then releases
// the sources and stops the reader goroutines.
func (s *supervisor) teardown() {
	if !s.reaped {
		if err := s.proc.Kill(); err != nil {
			s.log.WithError(err).Debug("kill failed")
		}
		<-s.exited
		s.reaped = true
	}
	close(s.done)
	if err := s.proc.Close(); err != nil {
		s.log.WithError(err).Debug("closing sources")
	}
}

// write sends line unchanged and flushes buffered writers.
func write(w io.Writer, line []byte) error {
	if _, err := w.Write(line); err != nil {
		return err
	}
	if f, ok := w.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}
