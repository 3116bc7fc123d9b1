package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestTailer(t *testing.T) (*Tailer, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "auth.log")
	return NewTailer("auth_log", path, zap.NewNop().Sugar()), path
}

func appendFile(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(content)
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func TestTailerMissingFileIsNotFatal(t *testing.T) {
	tl, path := newTestTailer(t)

	lines, err := tl.Poll()
	assert.NoError(t, err)
	assert.Empty(t, lines)

	// The file appearing later is picked up on the next cycle.
	appendFile(t, path, "first line\n")
	lines, err = tl.Poll()
	require.NoError(t, err)
	assert.Equal(t, []string{"first line"}, lines)
}

func TestTailerYieldsOnlyNewLines(t *testing.T) {
	tl, path := newTestTailer(t)
	appendFile(t, path, "one\ntwo\n")

	lines, err := tl.Poll()
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, lines)

	// Nothing new: nothing returned, no duplication.
	lines, err = tl.Poll()
	require.NoError(t, err)
	assert.Empty(t, lines)

	appendFile(t, path, "three\n")
	lines, err = tl.Poll()
	require.NoError(t, err)
	assert.Equal(t, []string{"three"}, lines)
}

func TestTailerBuffersPartialTrailingLine(t *testing.T) {
	tl, path := newTestTailer(t)
	appendFile(t, path, "complete\nincompl")

	lines, err := tl.Poll()
	require.NoError(t, err)
	assert.Equal(t, []string{"complete"}, lines, "partial line held back")

	appendFile(t, path, "ete now\nnext\n")
	lines, err = tl.Poll()
	require.NoError(t, err)
	assert.Equal(t, []string{"incomplete now", "next"}, lines)
}

func TestTailerDetectsTruncation(t *testing.T) {
	tl, path := newTestTailer(t)
	appendFile(t, path, "old-1\nold-2\nold-3\n")
	_, err := tl.Poll()
	require.NoError(t, err)

	// Truncate and write fresh, shorter content.
	require.NoError(t, os.WriteFile(path, []byte("fresh\n"), 0o644))

	lines, err := tl.Poll()
	require.NoError(t, err)
	assert.Equal(t, []string{"fresh"}, lines, "cursor reset to zero after truncation")
}

func TestTailerDetectsRotation(t *testing.T) {
	tl, path := newTestTailer(t)
	appendFile(t, path, "before rotation\n")
	_, err := tl.Poll()
	require.NoError(t, err)

	// Rotate: move the old file away, create a new one at the same path
	// with content at least as long so size alone cannot reveal it.
	require.NoError(t, os.Rename(path, path+".1"))
	appendFile(t, path, "after rotation, a much longer line\n")

	lines, err := tl.Poll()
	require.NoError(t, err)
	assert.Equal(t, []string{"after rotation, a much longer line"}, lines)
}

func TestTailerSkipsBlankLines(t *testing.T) {
	tl, path := newTestTailer(t)
	appendFile(t, path, "a\n\n\nb\n")

	lines, err := tl.Poll()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, lines)
}

func TestTailerCRLFLines(t *testing.T) {
	tl, path := newTestTailer(t)
	appendFile(t, path, "windows line\r\nplain line\n")

	lines, err := tl.Poll()
	require.NoError(t, err)
	assert.Equal(t, []string{"windows line", "plain line"}, lines)
}

func TestTailerOffsetAdvances(t *testing.T) {
	tl, path := newTestTailer(t)
	appendFile(t, path, "abc\n")

	_, err := tl.Poll()
	require.NoError(t, err)
	assert.Equal(t, int64(4), tl.Offset())
	assert.Equal(t, "auth_log", tl.Source())
	assert.Equal(t, path, tl.Path())
}
