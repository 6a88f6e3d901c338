//go:build linux

package source

import (
	"bytes"
	"io"
	"testing"

	"github.com/creack/pty"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPty_Read_ReportsEOF_When_SlaveClosed(t *testing.T) {
	master, slave, err := pty.Open()
	if err != nil {
		t.Skipf("no pty available: %v", err)
	}
	src := Pty(master)
	defer src.Close()
	assert.Equal(t, KindPty, src.Kind())

	_, err = slave.Write([]byte("hi\n"))
	require.NoError(t, err)

	var got []byte
	buf := make([]byte, 64)
	for !bytes.Contains(got, []byte("\n")) {
		n, err := src.Read(buf)
		require.NoError(t, err)
		got = append(got, buf[:n]...)
	}
	assert.Equal(t, "hi\r\n", string(got))

	require.NoError(t, slave.Close())
	_, err = src.Read(buf)
	assert.ErrorIs(t, err, io.EOF, "EIO must be normalized to a clean end of stream")
}
