// Package engine wires the tailers, rule catalog, correlator and state stores
// into the single-writer correlation core.
package engine

import (
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"vigil/config"
	"vigil/core"
	"vigil/detect"
	"vigil/ingest"
	"vigil/metrics"
	"vigil/stats"
	"vigil/storage"
)

// stopTimeout bounds how long Stop waits for the scheduler goroutine.
const stopTimeout = 5 * time.Second

// Engine owns all mutable correlation state. One mutex guards it; the
// background scheduler is the sole writer of tailer cursors, correlation
// windows, the event ring, the alert store and the aggregator, while queries,
// acknowledgement and save/load serialize with it through the same lock.
// Every public method returns copies, never live references.
type Engine struct {
	cfg    *config.Config
	logger *zap.SugaredLogger

	mu         sync.Mutex
	tailers    []*ingest.Tailer
	catalog    *detect.Catalog
	correlator *detect.Correlator
	alerts     *storage.AlertStore
	ring       *storage.EventRing
	stats      *stats.Aggregator
	gateway    *storage.SnapshotGateway

	running        bool
	stop           chan struct{}
	done           chan struct{}
	lastMinuteTick time.Time
}

// New builds an engine from configuration and a validated rule set.
func New(cfg *config.Config, rules []*core.Rule, logger *zap.SugaredLogger) (*Engine, error) {
	catalog, err := detect.NewCatalog(rules, logger)
	if err != nil {
		return nil, err
	}
	correlator, err := detect.NewCorrelator(cfg.MaxCorrelationKeys, logger)
	if err != nil {
		return nil, err
	}

	// Only in-file order per source is guaranteed, but stable source
	// iteration keeps logs and tests sane.
	names := make([]string, 0, len(cfg.Sources))
	for name := range cfg.Sources {
		names = append(names, name)
	}
	sort.Strings(names)
	tailers := make([]*ingest.Tailer, 0, len(names))
	for _, name := range names {
		tailers = append(tailers, ingest.NewTailer(name, cfg.Sources[name], logger))
	}

	now := time.Now()
	return &Engine{
		cfg:            cfg,
		logger:         logger,
		tailers:        tailers,
		catalog:        catalog,
		correlator:     correlator,
		alerts:         storage.NewAlertStore(),
		ring:           storage.NewEventRing(cfg.EventRingSize),
		stats:          stats.NewAggregator(now, cfg.TopN),
		gateway:        storage.NewSnapshotGateway(cfg.StatePath, logger),
		lastMinuteTick: now,
	}, nil
}

// Start launches the background poll loop. Idempotent.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return
	}
	e.running = true
	e.stop = make(chan struct{})
	e.done = make(chan struct{})
	go e.run(e.stop, e.done)
	e.logger.Infow("engine started",
		"sources", len(e.tailers), "rules", e.catalog.Len(), "interval", e.cfg.Interval)
}

// Stop signals the loop, waits for the in-flight cycle (bounded), then saves
// state. Idempotent.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	stop, done := e.stop, e.done
	e.mu.Unlock()

	close(stop)
	select {
	case <-done:
	case <-time.After(stopTimeout):
		e.logger.Warnw("scheduler did not stop in time", "timeout", stopTimeout)
	}

	if !e.SaveState() {
		e.logger.Warn("state save on shutdown failed")
	}
	e.logger.Info("engine stopped")
}

// run is the scheduler loop: one poll cycle per interval until stopped.
func (e *Engine) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(e.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			e.pollCycle()
		}
	}
}

type polledLines struct {
	source string
	lines  []string
}

// pollCycle runs one poll-ingest-correlate pass. A panic in one cycle is
// recovered and logged so a single bad line or rule cannot halt ingestion.
// Tailers are read outside the state lock: file I/O must never stall readers
// of the query API.
func (e *Engine) pollCycle() {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Errorw("poll cycle panicked",
				"panic", r, "stack", string(debug.Stack()))
		}
	}()
	started := time.Now()

	batches := make([]polledLines, 0, len(e.tailers))
	for _, t := range e.tailers {
		lines, err := t.Poll()
		if err != nil {
			// Transient: skip this source, retry next cycle.
			metrics.SourceReadErrors.WithLabelValues(t.Source()).Inc()
			e.logger.Warnw("source read failed, will retry", "source", t.Source(), "error", err)
			continue
		}
		if len(lines) > 0 {
			batches = append(batches, polledLines{source: t.Source(), lines: lines})
		}
	}

	now := time.Now()
	e.mu.Lock()
	for _, batch := range batches {
		for _, line := range batch.lines {
			e.ingestLocked(batch.source, line, now)
		}
	}
	if now.Sub(e.lastMinuteTick) >= time.Minute {
		e.stats.TickMinute(now)
		e.lastMinuteTick = now
	}
	e.mu.Unlock()

	metrics.PollCycleDuration.Observe(time.Since(started).Seconds())
}

// ingestLocked pushes one line through stats, the event ring, the rule catalog
// and the correlator. Caller holds e.mu.
func (e *Engine) ingestLocked(source, line string, now time.Time) {
	e.stats.RecordEvent(source, now)
	e.ring.Record(core.NewEvent(source, line, now))
	metrics.EventsIngested.WithLabelValues(source).Inc()

	for _, m := range e.catalog.Match(source, line) {
		alert := e.correlator.Observe(m.Rule, m.Entity, line, now)
		if alert == nil {
			continue
		}
		e.alerts.Record(alert)
		e.stats.RecordAlert(alert.RuleName, alert.Severity)
		metrics.AlertsGenerated.WithLabelValues(string(alert.Severity)).Inc()
		e.logger.Infow("alert raised",
			"rule", alert.RuleName,
			"severity", alert.Severity,
			"entity", m.Entity,
			"count", alert.EventCount)
	}
}

// GetStats returns a point-in-time statistics snapshot.
func (e *Engine) GetStats() stats.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats.Snapshot(time.Now())
}

// GetAlerts lists alerts newest first. acknowledged and severity are optional
// filters; limit <= 0 applies the store default.
func (e *Engine) GetAlerts(limit int, acknowledged *bool, severity core.Severity) []core.Alert {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.alerts.List(core.AlertFilter{
		Limit:        limit,
		Acknowledged: acknowledged,
		Severity:     severity,
	})
}

// GetEvents lists recently observed raw lines newest first, optionally
// restricted to one source.
func (e *Engine) GetEvents(limit int, source string) []core.Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ring.List(limit, source)
}

// AcknowledgeAlert flips the acknowledged flag. False for unknown ids.
func (e *Engine) AcknowledgeAlert(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.alerts.Acknowledge(id)
}

// NextNewAlert returns the most recent alert not yet delivered to the
// notification consumer and clears its new flag. Non-blocking, safe to call
// once per second indefinitely. Nil when nothing is pending.
func (e *Engine) NextNewAlert() *core.Alert {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.alerts.DrainNew()
}

// ResetAlerts discards all stored alerts. Administrative.
func (e *Engine) ResetAlerts() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.alerts.Reset()
}

// SaveState snapshots alerts, stats and correlation windows to the state file.
// The document is assembled under the lock but written outside it so slow
// disks never block ingestion. Reports success as a boolean per the engine's
// error policy.
func (e *Engine) SaveState() bool {
	e.mu.Lock()
	doc := &storage.SnapshotDocument{
		Alerts:  e.alerts.Export(),
		Stats:   e.stats.Export(),
		Windows: e.correlator.Export(),
	}
	e.mu.Unlock()

	if err := e.gateway.Save(doc); err != nil {
		metrics.SnapshotSaveFailures.Inc()
		e.logger.Errorw("state save failed", "path", e.gateway.Path(), "error", err)
		return false
	}
	return true
}

// LoadState replaces in-memory state wholesale from the snapshot file. A
// missing file leaves the engine empty and returns false; a malformed file is
// logged and likewise leaves the engine empty.
func (e *Engine) LoadState() bool {
	doc, err := e.gateway.Load()
	if err != nil {
		e.logger.Warnw("state load failed, starting empty", "error", err)
		return false
	}
	if doc == nil {
		e.logger.Infow("no previous state found, starting empty", "path", e.gateway.Path())
		return false
	}

	e.mu.Lock()
	e.alerts.Import(doc.Alerts)
	e.stats.Import(doc.Stats)
	e.correlator.Import(doc.Windows)
	e.mu.Unlock()

	e.logger.Infow("state restored",
		"path", e.gateway.Path(),
		"alerts", len(doc.Alerts),
		"windows", len(doc.Windows),
		"saved_at", doc.SavedAt)
	return true
}
