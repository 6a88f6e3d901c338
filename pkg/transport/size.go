package transport

import (
	"os"

	"golang.org/x/term"
)

// Size is a terminal size in character cells.
type Size struct {
	Rows uint16
	Cols uint16
}

// DefaultSize is used for a pty when the supervisor's own terminal size is unknown.
var DefaultSize = Size{Rows: 24, Cols: 80}

// IsZero reports whether s is unset.
func (s Size) IsZero() bool {
	return s.Rows == 0 || s.Cols == 0
}

// TerminalSize returns the size of the first file that is a terminal.
func TerminalSize(files ...*os.File) (Size, bool) {
	for _, f := range files {
		if f == nil {
			continue
		}
		fd := int(f.Fd())
		if !term.IsTerminal(fd) {
			continue
		}
		w, h, err := term.GetSize(fd)
		if err != nil || w <= 0 || h <= 0 {
			continue
		}
		return Size{Rows: uint16(h), Cols: uint16(w)}, true
	}
	return Size{}, false
}
