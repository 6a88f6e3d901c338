// Package durfmt renders durations through a small strftime-like format language.
//
// Specifiers:
//
//	%H    hours, at least two digits, unbounded
//	%M    minutes within the hour, two digits
//	%S    seconds within the minute, two digits
//	%s    total whole seconds
//	%f    fractional seconds, six digits
//	%Nf   fractional seconds, N digits (truncated, never rounded)
//	%n    newline
//	%t    tab
//	%e    escape (0x1B)
//	%%    literal percent
//
// Backslash escapes \n, \t, \e and \\ are accepted as well.
package durfmt

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Default is the format used when none is configured.
const Default = "Elapsed: %H:%M:%S"

const defaultPrecision = 6

// MaxPrecision is the largest N accepted in %Nf.
const MaxPrecision = 255

var (
	// ErrBrokenPercent is returned when a format ends with a lone '%'.
	ErrBrokenPercent = errors.New("'%' not followed by anything")
	// ErrBrokenEscape is returned when a format ends with a lone backslash.
	ErrBrokenEscape = errors.New("backslash not followed by anything")
	// ErrPrecisionOverflow is returned when a %Nf precision exceeds MaxPrecision.
	ErrPrecisionOverflow = errors.New("%f precision too large")
)

// InvalidPercentError reports an unknown specifier after '%'.
type InvalidPercentError struct {
	Char rune
}

func (e InvalidPercentError) Error() string {
	return fmt.Sprintf("'%%' followed by invalid specifier %q", e.Char)
}

// InvalidEscapeError reports an unknown character after a backslash.
type InvalidEscapeError struct {
	Char rune
}

func (e InvalidEscapeError) Error() string {
	return fmt.Sprintf("backslash followed by invalid character %q", e.Char)
}

type pieceKind int

const (
	pieceText pieceKind = iota
	pieceHour
	pieceMinute
	pieceSecond
	pieceTotalSeconds
	pieceSubseconds
)

type piece struct {
	kind      pieceKind
	text      string
	precision int
}

// Format is a parsed duration format. The zero value renders nothing.
type Format struct {
	pieces   []piece
	newlines int
}

// MustParse is like Parse but panics on error.
func MustParse(spec string) *Format {
	f, err := Parse(spec)
	if err != nil {
		panic(err)
	}
	return f
}

// Parse compiles spec.
func Parse(spec string) (*Format, error) {
	f := &Format{}
	runes := []rune(spec)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		switch c {
		case '%':
			i++
			if i >= len(runes) {
				return nil, ErrBrokenPercent
			}
			switch s := runes[i]; {
			case s == 'H':
				f.push(piece{kind: pieceHour})
			case s == 'M':
				f.push(piece{kind: pieceMinute})
			case s == 'S':
				f.push(piece{kind: pieceSecond})
			case s == 's':
				f.push(piece{kind: pieceTotalSeconds})
			case s == 'f':
				f.push(piece{kind: pieceSubseconds, precision: defaultPrecision})
			case s == 'n':
				f.pushChar('\n')
			case s == 't':
				f.pushChar('\t')
			case s == 'e':
				f.pushChar('\x1b')
			case s == '%':
				f.pushChar('%')
			case s >= '0' && s <= '9':
				start := i
				for i+1 < len(runes) && runes[i+1] >= '0' && runes[i+1] <= '9' {
					i++
				}
				digits := string(runes[start : i+1])
				i++
				if i >= len(runes) || runes[i] != 'f' {
					return nil, InvalidPercentError{Char: s}
				}
				precision, err := strconv.ParseUint(digits, 10, 32)
				if err != nil || precision > MaxPrecision {
					return nil, ErrPrecisionOverflow
				}
				f.push(piece{kind: pieceSubseconds, precision: int(precision)})
			default:
				return nil, InvalidPercentError{Char: s}
			}
		case '\\':
			i++
			if i >= len(runes) {
				return nil, ErrBrokenEscape
			}
			switch s := runes[i]; s {
			case 'n':
				f.pushChar('\n')
			case 't':
				f.pushChar('\t')
			case 'e':
				f.pushChar('\x1b')
			case '\\':
				f.pushChar('\\')
			default:
				return nil, InvalidEscapeError{Char: s}
			}
		default:
			f.pushChar(c)
		}
	}
	return f, nil
}

func (f *Format) push(p piece) {
	f.pieces = append(f.pieces, p)
}

func (f *Format) pushChar(c rune) {
	if n := len(f.pieces); n > 0 && f.pieces[n-1].kind == pieceText {
		f.pieces[n-1].text += string(c)
	} else {
		f.pieces = append(f.pieces, piece{kind: pieceText, text: string(c)})
	}
	if c == '\n' {
		f.newlines++
	}
}

// Newlines reports how many line breaks every rendering contains.
func (f *Format) Newlines() int {
	return f.newlines
}

// Display renders d. Negative durations render as zero.
func (f *Format) Display(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d / time.Second)
	nanos := int64(d % time.Second)

	var sb strings.Builder
	for _, p := range f.pieces {
		switch p.kind {
		case pieceText:
			sb.WriteString(p.text)
		case pieceHour:
			fmt.Fprintf(&sb, "%02d", secs/3600)
		case pieceMinute:
			fmt.Fprintf(&sb, "%02d", secs/60%60)
		case pieceSecond:
			fmt.Fprintf(&sb, "%02d", secs%60)
		case pieceTotalSeconds:
			sb.WriteString(strconv.FormatInt(secs, 10))
		case pieceSubseconds:
			writeSubseconds(&sb, nanos, p.precision)
		}
	}
	return sb.String()
}

// writeSubseconds writes the first precision decimal digits of nanos/1e9,
// padding with zeros past nanosecond resolution.
func writeSubseconds(sb *strings.Builder, nanos int64, precision int) {
	divisor := int64(time.Second / 10)
	for range precision {
		if divisor == 0 {
			sb.WriteByte('0')
			continue
		}
		sb.WriteByte(byte('0' + nanos/divisor))
		nanos %= divisor
		divisor /= 10
	}
}
