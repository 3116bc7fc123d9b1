// Package ingest reads newly appended lines from configured log sources.
package ingest

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
)

// maxPollBytes caps how much a single poll reads from one source so one
// backlogged file cannot stall the whole cycle. Remaining bytes are picked up
// on the next poll.
const maxPollBytes = 4 << 20

// Tailer tracks a read cursor into one append-only log file and yields newly
// appended complete lines. It is owned by the engine's scheduler and mutated
// only during a poll cycle; no internal locking. The file is opened per poll,
// so there is no handle to release between cycles.
type Tailer struct {
	source  string
	path    string
	offset  int64
	info    os.FileInfo // identity at the last successful poll
	partial []byte      // trailing bytes of an incomplete line
	logger  *zap.SugaredLogger
}

// NewTailer creates a tailer for one source. The file does not need to exist
// yet; a missing file is skipped each poll until it appears.
func NewTailer(source, path string, logger *zap.SugaredLogger) *Tailer {
	return &Tailer{source: source, path: path, logger: logger}
}

// Poll returns all complete lines appended since the previous poll. A trailing
// line without its newline is buffered and returned once completed. File
// replacement or truncation resets the cursor to zero and is logged as an
// operational discontinuity, not an error. A missing file yields no lines and
// no error.
func (t *Tailer) Poll() ([]string, error) {
	f, err := os.Open(t.path)
	if err != nil {
		if os.IsNotExist(err) {
			t.logger.Debugw("log source absent, retrying next cycle", "source", t.source, "path", t.path)
			return nil, nil
		}
		return nil, fmt.Errorf("open %s: %w", t.path, err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", t.path, err)
	}
	if t.info != nil && (!os.SameFile(t.info, fi) || fi.Size() < t.offset) {
		t.logger.Warnw("log source rotated or truncated, resetting cursor",
			"source", t.source, "path", t.path, "old_offset", t.offset, "size", fi.Size())
		t.offset = 0
		t.partial = nil
	}
	t.info = fi

	if fi.Size() == t.offset {
		return nil, nil
	}
	if _, err := f.Seek(t.offset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek %s: %w", t.path, err)
	}
	data, err := io.ReadAll(io.LimitReader(f, maxPollBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", t.path, err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	buf := append(t.partial, data...)
	var lines []string
	for {
		i := bytes.IndexByte(buf, '\n')
		if i < 0 {
			break
		}
		line := string(bytes.TrimRight(buf[:i], "\r"))
		if line != "" {
			lines = append(lines, line)
		}
		buf = buf[i+1:]
	}
	t.partial = append([]byte(nil), buf...)
	t.offset += int64(len(data))
	return lines, nil
}

// Source returns the source name this tailer serves.
func (t *Tailer) Source() string { return t.source }

// Path returns the file being tailed.
func (t *Tailer) Path() string { return t.path }

// Offset returns the current read cursor, for diagnostics.
func (t *Tailer) Offset() int64 { return t.offset }
