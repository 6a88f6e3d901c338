// Package source provides the byte sources a supervised child's output is read from.
package source

import (
	"io"
	"sync"
)

// Kind identifies the variant of a Source.
type Kind int

const (
	KindStdout Kind = iota
	KindStderr
	KindPty
	KindNull
)

func (k Kind) String() string {
	switch k {
	case KindStdout:
		return "stdout"
	case KindStderr:
		return "stderr"
	case KindPty:
		return "pty"
	case KindNull:
		return "null"
	default:
		return "unknown"
	}
}

// Source produces the next chunk of available bytes, blocking until some are
// available. Read returns io.EOF once no further bytes will ever arrive.
// Closing a Source unblocks a pending Read.
type Source interface {
	io.ReadCloser
	Kind() Kind
}

// pipeSource reads one of the child's standard streams.
type pipeSource struct {
	io.ReadCloser
	kind Kind
}

// Pipe wraps the read end of a pipe connected to the child's stdout or stderr.
func Pipe(kind Kind, r io.ReadCloser) Source {
	return &pipeSource{ReadCloser: r, kind: kind}
}

func (p *pipeSource) Kind() Kind { return p.kind }

// nullSource never yields data.
type nullSource struct {
	once sync.Once
	done chan struct{}
}

// Null returns a Source that blocks in Read until it is closed. It stands in
// for a stream that is deliberately not captured.
func Null() Source {
	return &nullSource{done: make(chan struct{})}
}

func (n *nullSource) Read([]byte) (int, error) {
	<-n.done
	return 0, io.EOF
}

func (n *nullSource) Close() error {
	n.once.Do(func() { close(n.done) })
	return nil
}

func (n *nullSource) Kind() Kind { return KindNull }
