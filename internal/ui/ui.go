// Package ui styles the messages elapsed prints about itself on stderr.
package ui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// ProgramName prefixes every diagnostic.
const ProgramName = "elapsed"

// Theme defines the styles used for diagnostics.
type Theme struct {
	Name    string
	Prefix  lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Muted   lipgloss.Style
}

// DefaultTheme returns a coloured theme bound to r.
func DefaultTheme(r *lipgloss.Renderer) Theme {
	return Theme{
		Name:    "default",
		Prefix:  r.NewStyle().Bold(true),
		Error:   r.NewStyle().Foreground(lipgloss.Color("196")), // red
		Warning: r.NewStyle().Foreground(lipgloss.Color("214")), // orange
		Muted:   r.NewStyle().Foreground(lipgloss.Color("242")), // gray
	}
}

// MonoTheme returns a theme without any styling.
func MonoTheme(r *lipgloss.Renderer) Theme {
	return Theme{
		Name:    "mono",
		Prefix:  r.NewStyle(),
		Error:   r.NewStyle(),
		Warning: r.NewStyle(),
		Muted:   r.NewStyle(),
	}
}

// UseColor reports whether diagnostics written to a stream may be coloured.
// NO_COLOR disables colour whatever its value, as long as it is set.
func UseColor(isTerminal bool, getenv func(string) string) bool {
	return isTerminal && getenv("NO_COLOR") == ""
}

// Printer writes "elapsed: ..." diagnostics.
type Printer struct {
	out   io.Writer
	theme Theme
}

// NewPrinter returns a Printer writing to out, styled only when color is set.
func NewPrinter(out io.Writer, color bool) *Printer {
	return newPrinter(out, lipgloss.NewRenderer(out), color)
}

func newPrinter(out io.Writer, r *lipgloss.Renderer, color bool) *Printer {
	if !color {
		r.SetColorProfile(termenv.Ascii)
		return &Printer{out: out, theme: MonoTheme(r)}
	}
	return &Printer{out: out, theme: DefaultTheme(r)}
}

// Errorf prints an error message.
func (p *Printer) Errorf(format string, args ...any) {
	p.print(p.theme.Error, format, args...)
}

// Warnf prints a warning.
func (p *Printer) Warnf(format string, args ...any) {
	p.print(p.theme.Warning, format, args...)
}

// Notef prints an informational message.
func (p *Printer) Notef(format string, args ...any) {
	p.print(p.theme.Muted, format, args...)
}

func (p *Printer) print(style lipgloss.Style, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	_, _ = fmt.Fprintf(p.out, "%s %s\n", p.theme.Prefix.Render(ProgramName+":"), style.Render(msg))
}
