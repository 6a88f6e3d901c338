package supervisor

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkoosis/elapsed/pkg/source"
	"github.com/dkoosis/elapsed/pkg/statusline"
	"github.com/dkoosis/elapsed/pkg/transport"
)

// screen is a minimal terminal: it understands carriage return, newline
// (as a terminal with output post-processing does, returning to column 0),
// erase to end of line and cursor up. It also keeps every byte written.
type screen struct {
	mu       sync.Mutex
	rows     [][]rune
	row, col int
	raw      bytes.Buffer
}

func (s *screen) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raw.Write(p)

	for rest := string(p); rest != ""; {
		switch {
		case strings.HasPrefix(rest, "\033[K"):
			s.erase()
			rest = rest[3:]
			continue
		case strings.HasPrefix(rest, "\033[1A"):
			if s.row > 0 {
				s.row--
			}
			rest = rest[4:]
			continue
		}
		r, size := utf8.DecodeRuneInString(rest)
		rest = rest[size:]
		switch r {
		case '\r':
			s.col = 0
		case '\n':
			s.row++
			s.col = 0
		default:
			s.put(r)
		}
	}
	return len(p), nil
}

func (s *screen) put(r rune) {
	for len(s.rows) <= s.row {
		s.rows = append(s.rows, nil)
	}
	line := s.rows[s.row]
	for len(line) < s.col {
		line = append(line, ' ')
	}
	if s.col < len(line) {
		line[s.col] = r
	} else {
		line = append(line, r)
	}
	s.rows[s.row] = line
	s.col++
}

func (s *screen) erase() {
	if s.row < len(s.rows) && s.col < len(s.rows[s.row]) {
		s.rows[s.row] = s.rows[s.row][:s.col]
	}
}

// String returns the visible text, without trailing blanks or empty rows.
func (s *screen) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	lines := make([]string, len(s.rows))
	for i, row := range s.rows {
		lines[i] = strings.TrimRight(string(row), " ")
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}

func (s *screen) Raw() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.raw.String()
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// fakeProcess is a child whose output and exit are driven by the test.
type fakeProcess struct {
	primary, secondary source.Source
	outW, errW         *io.PipeWriter

	exit    chan transport.Exit
	waitErr error

	killed   chan struct{}
	killOnce sync.Once
	kills    atomic.Int32
	closed   atomic.Bool
}

func newFakeProcess() *fakeProcess {
	outR, outW := io.Pipe()
	errR, errW := io.Pipe()
	return &fakeProcess{
		primary:   source.Pipe(source.KindStdout, outR),
		secondary: source.Pipe(source.KindStderr, errR),
		outW:      outW,
		errW:      errW,
		exit:      make(chan transport.Exit),
		killed:    make(chan struct{}),
	}
}

func (p *fakeProcess) Primary() source.Source   { return p.primary }
func (p *fakeProcess) Secondary() source.Source { return p.secondary }

func (p *fakeProcess) Wait() (transport.Exit, error) {
	select {
	case exit := <-p.exit:
		return exit, p.waitErr
	case <-p.killed:
		return transport.Exit{Code: -1, Signaled: true, Signal: syscall.SIGKILL}, nil
	}
}

func (p *fakeProcess) Kill() error {
	p.kills.Add(1)
	p.killOnce.Do(func() { close(p.killed) })
	return nil
}

func (p *fakeProcess) Close() error {
	p.closed.Store(true)
	return errors.Join(p.primary.Close(), p.secondary.Close())
}

type result struct {
	outcome Outcome
	err     error
}

// harness runs the loop against a fakeProcess with hand-fed ticks and a fake
// clock. By default stdout and stderr are the same terminal.
type harness struct {
	t      *testing.T
	proc   *fakeProcess
	clock  *fakeClock
	ticks  chan time.Time
	term   *screen
	cancel context.CancelFunc
	done   chan result
}

func start(t *testing.T, configure func(h *harness, opts *Options)) *harness {
	t.Helper()

	h := &harness{
		t:     t,
		proc:  newFakeProcess(),
		clock: newClock(),
		ticks: make(chan time.Time),
		term:  &screen{},
		done:  make(chan result, 1),
	}
	opts := Options{
		Stdout:           h.term,
		Stderr:           h.term,
		StdoutIsTerminal: true,
		Status:           statusline.New(h.term, true, statusline.WithClock(h.clock.now)),
		DrainTimeout:     2 * time.Second,
	}
	if configure != nil {
		configure(h, &opts)
	}

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	t.Cleanup(cancel)

	go func() {
		outcome, err := run(ctx, h.proc, opts, h.ticks)
		h.done <- result{outcome: outcome, err: err}
	}()
	return h
}

func (h *harness) tick(d time.Duration) {
	h.clock.advance(d)
	h.ticks <- h.clock.now()
}

func (h *harness) stdout(s string) {
	_, err := io.WriteString(h.proc.outW, s)
	require.NoError(h.t, err)
}

func (h *harness) stderr(s string) {
	_, err := io.WriteString(h.proc.errW, s)
	require.NoError(h.t, err)
}

// exit ends the child's output and then its process.
func (h *harness) exit(exit transport.Exit) result {
	h.t.Helper()
	require.NoError(h.t, h.proc.outW.Close())
	require.NoError(h.t, h.proc.errW.Close())
	h.proc.exit <- exit
	return h.wait()
}

func (h *harness) wait() result {
	h.t.Helper()
	select {
	case r := <-h.done:
		return r
	case <-time.After(5 * time.Second):
		h.t.Fatal("run did not return")
		return result{}
	}
}

func (h *harness) showsEventually(want string) {
	h.t.Helper()
	require.EventuallyWithT(h.t, func(c *assert.CollectT) {
		assert.Equal(c, want, h.term.String())
	}, 2*time.Second, 5*time.Millisecond)
}

// syncBuffer is a bytes.Buffer safe for use by the loop and the test at once.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type failingWriter struct {
	err error
}

func (w failingWriter) Write([]byte) (int, error) { return 0, w.err }
