// Package statusline draws a self-overwriting elapsed-time indicator on a terminal.
package statusline

import (
	"io"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/dkoosis/elapsed/pkg/durfmt"
)

const (
	eraseLine = "\r\033[K"
	cursorUp  = "\033[1A"
)

// Line is the status line. Every other write to its destination must be
// preceded by Clear and followed by Print, so that the status line is always
// the last thing visible on that stream.
//
// Whether the line is active is decided once, at construction. An inactive
// line never writes control sequences: Clear and Print do nothing.
type Line struct {
	out    io.Writer
	active bool
	start  time.Time
	now    func() time.Time
	format *durfmt.Format
	width  int
}

// Option configures a Line.
type Option func(*Line)

// WithFormat sets the format used to render the elapsed time.
func WithFormat(f *durfmt.Format) Option {
	return func(l *Line) {
		if f != nil {
			l.format = f
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Line) {
		if now != nil {
			l.now = now
		}
	}
}

// WithWidth sets the terminal width in cells. Rendered rows are truncated so
// they never wrap. Zero or negative means unknown: no truncation.
func WithWidth(width int) Option {
	return func(l *Line) { l.width = width }
}

// New returns a Line writing to out, with the run's start time taken now.
// isTerminal reports whether out is an interactive terminal.
func New(out io.Writer, isTerminal bool, opts ...Option) *Line {
	l := &Line{
		out:    out,
		active: isTerminal,
		now:    time.Now,
		format: durfmt.MustParse(durfmt.Default),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.start = l.now()
	return l
}

// Active reports whether the line draws anything.
func (l *Line) Active() bool {
	return l.active
}

// Elapsed returns the time since the line was created.
func (l *Line) Elapsed() time.Duration {
	return l.now().Sub(l.start)
}

// Clear erases the status line, leaving the cursor at the start of the row it
// began on.
func (l *Line) Clear() error {
	if !l.active {
		return nil
	}
	var sb strings.Builder
	sb.WriteString(eraseLine)
	for range l.format.Newlines() {
		sb.WriteString(cursorUp)
		sb.WriteString(eraseLine)
	}
	return l.write(sb.String())
}

// Print draws the current elapsed time. The cursor is left at the end of the
// rendered text, with no trailing newline.
func (l *Line) Print() error {
	if !l.active {
		return nil
	}
	return l.write(l.render())
}

// PrintTotal draws the elapsed time followed by a newline so that the final
// reading stays visible. Unlike Print it also writes to a non-terminal.
func (l *Line) PrintTotal() error {
	return l.write(l.render() + "\n")
}

func (l *Line) render() string {
	text := l.format.Display(l.Elapsed())
	if l.width <= 1 {
		return text
	}
	rows := strings.Split(text, "\n")
	for i, row := range rows {
		rows[i] = runewidth.Truncate(row, l.width-1, "")
	}
	return strings.Join(rows, "\n")
}

// write sends s in a single call and flushes buffered writers.
func (l *Line) write(s string) error {
	if _, err := io.WriteString(l.out, s); err != nil {
		return err
	}
	if f, ok := l.out.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}
