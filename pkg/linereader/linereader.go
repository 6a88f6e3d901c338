// Package linereader splits a chunked byte source into newline-terminated records.
package linereader

import (
	"bytes"
	"errors"
	"io"
)

// ChunkSize is the most bytes requested from the source per read.
const ChunkSize = 2048

// Reader assembles lines from an io.Reader. Bytes are passed through unchanged;
// no decoding or newline normalization happens.
//
// A Reader is not safe for concurrent use.
type Reader struct {
	src    io.Reader
	buf    []byte
	cursor int // buf[:cursor] is known to contain no '\n'
	eof    bool
	err    error
	chunk  [ChunkSize]byte
}

// New returns a Reader over src.
func New(src io.Reader) *Reader {
	return &Reader{src: src}
}

// Next returns the next line including its trailing '\n'. At end of stream a
// non-empty unterminated fragment is returned once, without a terminator, and
// every call after that returns io.EOF. A read error from the source is
// returned and repeated on every later call.
func (r *Reader) Next() ([]byte, error) {
	for {
		if r.err != nil {
			return nil, r.err
		}

		if i := bytes.IndexByte(r.buf[r.cursor:], '\n'); i >= 0 {
			return r.take(r.cursor + i + 1), nil
		}

		if r.eof {
			if len(r.buf) == 0 {
				return nil, io.EOF
			}
			return r.take(len(r.buf)), nil
		}

		r.cursor = len(r.buf)
		n, err := r.src.Read(r.chunk[:])
		if n > 0 {
			r.buf = append(r.buf, r.chunk[:n]...)
		}
		switch {
		case errors.Is(err, io.EOF):
			r.eof = true
		case err != nil:
			r.err = err
			r.buf = nil
			r.cursor = 0
		case n == 0:
			r.eof = true
		}
	}
}

// take removes and returns the first n buffered bytes.
func (r *Reader) take(n int) []byte {
	line := make([]byte, n)
	copy(line, r.buf[:n])
	rest := copy(r.buf, r.buf[n:])
	r.buf = r.buf[:rest]
	r.cursor = 0
	return line
}

// Buffered reports how many bytes are held without having been returned.
func (r *Reader) Buffered() int {
	return len(r.buf)
}

// Result is one delivery from Lines: either a line or a terminal error.
type Result struct {
	Line []byte
	Err  error
}

// Lines calls Next in a new goroutine and delivers each line on the returned
// channel. The channel is closed at end of stream, or after a Result carrying
// a read error. Closing done stops the goroutine once its pending read returns;
// the caller is responsible for unblocking that read (typically by closing the
// source).
func (r *Reader) Lines(done <-chan struct{}) <-chan Result {
	out := make(chan Result)
	go func() {
		defer close(out)
		for {
			line, err := r.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			res := Result{Line: line, Err: err}
			select {
			case out <- res:
			case <-done:
				return
			}
			if err != nil {
				return
			}
		}
	}()
	return out
}
