//go:build unix

package main

import (
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func killSelf() {
	_ = syscall.Kill(os.Getpid(), syscall.SIGKILL)
}

func TestRun_Returns126_When_CommandNotExecutable(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "script")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0o600))

	a := newTestApp(t, nil)
	assert.Equal(t, exitCannotRun, a.run(path))
	assert.Contains(t, a.stderr.String(), "elapsed: start command")
}

func TestRun_Returns128PlusSignal_When_CommandKilled(t *testing.T) {
	a := newTestApp(t, nil)
	code := a.run(helper(t, "kill")...)

	assert.Equal(t, 128+int(syscall.SIGKILL), code)
	assert.Contains(t, a.stderr.String(), "killed by signal")
}

// runPty runs elapsed with the given flags in pty mode, skipping the test
// when no pseudo-terminal can be opened.
func runPty(t *testing.T, flags ...string) *testApp {
	t.Helper()
	a := newTestApp(t, nil)
	code := a.run(append(flags, helper(t, "lines")...)...)
	if code == exitCannotRun && strings.Contains(a.stderr.String(), "open pty") {
		t.Skipf("no pty available: %s", a.stderr.String())
	}
	require.Equal(t, 0, code, a.stderr.String())
	return a
}

func TestRun_MergesStreamsOnTerminal_When_TTYRequested(t *testing.T) {
	a := runPty(t, "--tty")

	assert.Equal(t, "one\r\nwarn\r\ntwo", a.stdout.String())
	assert.Empty(t, a.stderr.String())
}

func TestRun_KeepsStderrSeparate_When_SplitStderrRequested(t *testing.T) {
	a := runPty(t, "-T", "-S")

	assert.Equal(t, "one\r\ntwo", a.stdout.String())
	assert.Equal(t, "warn\n", a.stderr.String())
}

func TestRun_FeedsStdinToCommand_When_TTYRequested(t *testing.T) {
	a := newTestApp(t, nil).withStdin("alpha\nbeta\n")
	code := a.run(append([]string{"--tty"}, helper(t, "echo-stdin")...)...)
	if code == exitCannotRun && strings.Contains(a.stderr.String(), "open pty") {
		t.Skipf("no pty available: %s", a.stderr.String())
	}

	require.Equal(t, 0, code, a.stderr.String())
	assert.Equal(t, "got alpha\r\ngot beta\r\n", a.stdout.String())
}
