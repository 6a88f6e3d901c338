package statusline

import (
	"bufio"
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkoosis/elapsed/pkg/durfmt"
)

// fakeClock advances only when told to.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func TestLine_Print_RendersHMS_When_Active(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	clock := newClock()
	l := New(&buf, true, WithClock(clock.now))
	clock.advance(2*time.Hour + 34*time.Minute + 56*time.Second)

	require.NoError(t, l.Print())
	assert.Equal(t, "Elapsed: 02:34:56", buf.String())
}

func TestLine_Print_DoesNotCapHours_When_RunIsLong(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	clock := newClock()
	l := New(&buf, true, WithClock(clock.now))
	clock.advance(250*time.Hour + 5*time.Second)

	require.NoError(t, l.Print())
	assert.Equal(t, "Elapsed: 250:00:05", buf.String())
}

func TestLine_Clear_WritesCarriageReturnAndErase_When_Active(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := New(&buf, true)

	require.NoError(t, l.Clear())
	assert.Equal(t, "\r\033[K", buf.String())
}

func TestLine_Clear_ErasesEveryRow_When_FormatSpansLines(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := New(&buf, true, WithFormat(durfmt.MustParse("%H%n%M%n%S")))

	require.NoError(t, l.Clear())
	assert.Equal(t, "\r\033[K\033[1A\r\033[K\033[1A\r\033[K", buf.String())
}

func TestLine_ClearAndPrint_WriteNothing_When_NotTerminal(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := New(&buf, false)

	require.NoError(t, l.Clear())
	require.NoError(t, l.Print())
	assert.False(t, l.Active())
	assert.Zero(t, buf.Len())
}

func TestLine_PrintTotal_AppendsNewline_When_NotTerminal(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	clock := newClock()
	l := New(&buf, false, WithClock(clock.now))
	clock.advance(6 * time.Second)

	require.NoError(t, l.PrintTotal())
	assert.Equal(t, "Elapsed: 00:00:06\n", buf.String())
}

func TestLine_Print_TruncatesRows_When_WidthKnown(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := New(&buf, true, WithWidth(10), WithFormat(durfmt.MustParse("Elapsed: %H:%M:%S%nshort")))

	require.NoError(t, l.Print())
	assert.Equal(t, "Elapsed: \nshort", buf.String())
}

func TestLine_Print_FlushesBufferedWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	l := New(w, true)

	require.NoError(t, l.Print())
	assert.Equal(t, "Elapsed: 00:00:00", buf.String())
}

func TestLine_Elapsed_UsesInjectedClock(t *testing.T) {
	t.Parallel()

	clock := newClock()
	l := New(&bytes.Buffer{}, true, WithClock(clock.now))
	clock.advance(1500 * time.Millisecond)

	assert.Equal(t, 1500*time.Millisecond, l.Elapsed())
}
