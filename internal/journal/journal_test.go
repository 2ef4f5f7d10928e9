package journal

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(t *time.Time) func() time.Time {
	return func() time.Time { return *t }
}

func TestWriter_AppendAndRead(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 1, 14, 5, 0, 0, time.UTC)
	w := NewWriter(dir, "ticks")
	w.now = fixedClock(&now)

	assert.Empty(t, w.Path())
	require.NoError(t, w.Append(":MATCH:START:", []string{`{"name":"m"}`}))
	require.NoError(t, w.Append(":TICK:", []string{`{"matchInfo":{}}`}))
	require.NoError(t, w.Append(":MATCH:END:", nil))
	require.NoError(t, w.Flush())

	path := w.Path()
	assert.Equal(t, filepath.Join(dir, "ticks-2026-03-01-14.jsonl.zst"), path)
	require.NoError(t, w.Close())

	entries, err := ReadFile(path)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, uint64(1), entries[0].Seq)
	assert.Equal(t, ":MATCH:START:", entries[0].Command)
	assert.Equal(t, []string{`{"matchInfo":{}}`}, entries[1].Args)
	assert.Nil(t, entries[2].Args)
	assert.True(t, now.Equal(entries[2].Time))
}

func TestWriter_RotatesOnHour(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 1, 14, 59, 59, 0, time.UTC)
	w := NewWriter(dir, "ticks")
	w.now = fixedClock(&now)

	require.NoError(t, w.Append(":TICK:", []string{"a"}))
	require.NoError(t, w.Flush())
	first := w.Path()

	now = now.Add(2 * time.Second)
	require.NoError(t, w.Append(":TICK:", []string{"b"}))
	require.NoError(t, w.Flush())
	second := w.Path()
	require.NoError(t, w.Close())

	assert.NotEqual(t, first, second)

	a, err := ReadFile(first)
	require.NoError(t, err)
	b, err := ReadFile(second)
	require.NoError(t, err)
	require.Len(t, a, 1)
	require.Len(t, b, 1)
	assert.Equal(t, uint64(2), b[0].Seq, "sequence continues across files")
}

func TestWriter_ReopenAppends(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	for _, arg := range []string{"first", "second"} {
		w := NewWriter(dir, "ticks")
		w.now = fixedClock(&now)
		require.NoError(t, w.Append(":TICK:", []string{arg}))
		require.NoError(t, w.Close())
	}

	entries, err := ReadFile(filepath.Join(dir, "ticks-2026-03-01-09.jsonl.zst"))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, []string{"second"}, entries[1].Args)
}

func TestRead_Errors(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "missing.jsonl.zst"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = Read(bytes.NewReader([]byte("not zstd at all")))
	assert.Error(t, err)
}

func TestWriter_CloseWithoutWrites(t *testing.T) {
	w := NewWriter(t.TempDir(), "ticks")
	assert.NoError(t, w.Close())
}

func TestWriter_AppendDoesNotTouchDisk(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "journal")
	now := time.Date(2026, 3, 1, 14, 5, 0, 0, time.UTC)
	w := newWriter(dir, "ticks")
	w.now = fixedClock(&now)

	require.NoError(t, w.Append(":TICK:", []string{"a"}))
	require.NoError(t, w.Append(":TICK:", []string{"b"}))

	assert.Equal(t, 2, w.Pending())
	assert.Empty(t, w.Path())
	_, err := os.Stat(dir)
	assert.ErrorIs(t, err, os.ErrNotExist, "nothing is created until the flusher runs")

	require.NoError(t, w.Flush())
	assert.Zero(t, w.Pending())
	path := w.Path()
	require.NoError(t, w.Close())

	entries, err := ReadFile(path)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, []string{"b"}, entries[1].Args)
}

func TestWriter_BackgroundFlush(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 1, 14, 5, 0, 0, time.UTC)
	w := newWriter(dir, "ticks")
	w.now = fixedClock(&now)
	w.start()
	defer w.Close()

	require.NoError(t, w.Append(":TICK:", []string{"a"}))
	assert.Eventually(t, func() bool {
		return w.Pending() == 0 && w.Path() != ""
	}, time.Second, 5*time.Millisecond)
}

func TestWriter_CloseDrainsQueue(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 1, 14, 5, 0, 0, time.UTC)
	w := newWriter(dir, "ticks")
	w.now = fixedClock(&now)

	for i := 0; i < 5; i++ {
		require.NoError(t, w.Append(":TICK:", nil))
	}
	require.NoError(t, w.Close())
	assert.ErrorIs(t, w.Append(":TICK:", nil), ErrClosed)
	assert.NoError(t, w.Close(), "second close is a no-op")

	entries, err := ReadFile(filepath.Join(dir, "ticks-2026-03-01-14.jsonl.zst"))
	require.NoError(t, err)
	assert.Len(t, entries, 5)
}
