package source

import (
	"errors"
	"io"
	"os"
	"syscall"
)

// ptySource reads the master side of a pseudo-terminal.
type ptySource struct {
	master *os.File
}

// Pty wraps a pty master. Once every holder of the slave side has closed it
// (the child exited), Linux fails reads on the master with EIO; Read reports
// that as io.EOF.
func Pty(master *os.File) Source {
	return &ptySource{master: master}
}

func (p *ptySource) Read(b []byte) (int, error) {
	n, err := p.master.Read(b)
	if err != nil && errors.Is(err, syscall.EIO) {
		return n, io.EOF
	}
	return n, err
}

func (p *ptySource) Close() error { return p.master.Close() }

func (p *ptySource) Kind() Kind { return KindPty }
