package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"vigil/core"
	"vigil/detect"
	"vigil/stats"
)

// SnapshotVersion is written into every snapshot document. Loading tolerates
// older documents: unknown fields are ignored and missing ones default empty.
const SnapshotVersion = 1

// SnapshotDocument is the single durable record holding all persisted engine
// state: the alert store, the stats counters and trend, and the correlator's
// per-key windows.
type SnapshotDocument struct {
	Version int                  `json:"version"`
	SavedAt time.Time            `json:"saved_at"`
	Alerts  []core.Alert         `json:"alerts"`
	Stats   stats.State          `json:"stats"`
	Windows []detect.WindowState `json:"correlation_windows"`
}

// SnapshotGateway owns the snapshot file. Saves are atomic: the document is
// written to a temp file in the same directory, synced, then renamed over the
// previous snapshot, so a crash mid-write cannot corrupt it.
type SnapshotGateway struct {
	path   string
	logger *zap.SugaredLogger
}

// NewSnapshotGateway creates a gateway for the given snapshot path.
func NewSnapshotGateway(path string, logger *zap.SugaredLogger) *SnapshotGateway {
	return &SnapshotGateway{path: path, logger: logger}
}

// Path returns the snapshot file location.
func (g *SnapshotGateway) Path() string {
	return g.path
}

// Save writes the document atomically.
func (g *SnapshotGateway) Save(doc *SnapshotDocument) error {
	doc.Version = SnapshotVersion
	doc.SavedAt = time.Now().UTC()

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	dir := filepath.Dir(g.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(g.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmpName, g.path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	g.logger.Infow("state snapshot saved",
		"path", g.path, "alerts", len(doc.Alerts), "windows", len(doc.Windows))
	return nil
}

// Load reads the snapshot document. A missing file returns (nil, nil): first
// start is not an error. A malformed file returns an error the caller logs
// before continuing with empty state.
func (g *SnapshotGateway) Load() (*SnapshotDocument, error) {
	data, err := os.ReadFile(g.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	var doc SnapshotDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", g.path, err)
	}
	return &doc, nil
}
