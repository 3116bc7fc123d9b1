// Package stats maintains the running counters and rate series the dashboard
// side of the system queries.
package stats

import (
	"sort"
	"time"

	"vigil/core"
)

const (
	// TrendBuckets is the fixed length of the per-minute trend series.
	TrendBuckets = 60
	// secRingSize covers the rolling per-second sample. Sized to a full
	// minute so the events-per-minute rate needs no extra bookkeeping.
	secRingSize = 60
	// epsSampleSeconds is the span of closed seconds the per-second rate is
	// averaged over. A short sample smooths poll-cycle burstiness without
	// lagging far behind reality.
	epsSampleSeconds = 5
	// DefaultTopN is how many entries the top-source/top-rule tables carry.
	DefaultTopN = 5
)

type secBucket struct {
	sec   int64
	count uint64
}

// TrendBucket is one closed minute of the trend series.
type TrendBucket struct {
	Label string `json:"label"` // HH:MM of the closed minute
	Count uint64 `json:"count"`
}

// NameCount is one row of a frequency table.
type NameCount struct {
	Name  string `json:"name"`
	Count uint64 `json:"count"`
}

// Snapshot is a consistent point-in-time copy of all aggregate statistics.
type Snapshot struct {
	StartTime       time.Time                `json:"start_time"`
	UptimeSeconds   int64                    `json:"uptime_seconds"`
	TotalEvents     uint64                   `json:"total_events"`
	TotalAlerts     uint64                   `json:"total_alerts"`
	EventsPerSecond float64                  `json:"events_per_second"`
	EventsPerMinute uint64                   `json:"events_per_minute"`
	SeverityCounts  map[core.Severity]uint64 `json:"severity_counts"`
	TopSources      []NameCount              `json:"top_sources"`
	TopRules        []NameCount              `json:"top_rules"`
	Trend           []TrendBucket            `json:"trend"`
}

// State is the persistable part of the aggregator. Rolling per-second samples
// are elapsed-time-dependent and deliberately excluded.
type State struct {
	StartTime      time.Time                `json:"start_time"`
	TotalEvents    uint64                   `json:"total_events"`
	TotalAlerts    uint64                   `json:"total_alerts"`
	SeverityCounts map[core.Severity]uint64 `json:"severity_counts"`
	SourceCounts   map[string]uint64        `json:"source_counts"`
	RuleCounts     map[string]uint64        `json:"rule_counts"`
	Trend          []TrendBucket            `json:"trend"`
}

// Aggregator accumulates event and alert counters. It is not internally
// locked; the engine serializes all access under its state lock.
type Aggregator struct {
	startTime      time.Time
	totalEvents    uint64
	totalAlerts    uint64
	severityCounts map[core.Severity]uint64
	sourceCounts   map[string]uint64
	ruleCounts     map[string]uint64

	secRing     [secRingSize]secBucket
	minuteCount uint64
	trend       []TrendBucket
	topN        int
}

// NewAggregator creates an aggregator started at now. Non-positive topN
// selects DefaultTopN.
func NewAggregator(now time.Time, topN int) *Aggregator {
	if topN <= 0 {
		topN = DefaultTopN
	}
	return &Aggregator{
		startTime:      now,
		severityCounts: make(map[core.Severity]uint64),
		sourceCounts:   make(map[string]uint64),
		ruleCounts:     make(map[string]uint64),
		topN:           topN,
	}
}

// RecordEvent counts one ingested line from source at now.
func (a *Aggregator) RecordEvent(source string, now time.Time) {
	a.totalEvents++
	a.minuteCount++
	a.sourceCounts[source]++

	sec := now.Unix()
	b := &a.secRing[sec%secRingSize]
	if b.sec != sec {
		b.sec = sec
		b.count = 0
	}
	b.count++
}

// RecordAlert counts one emitted alert for the rule at the given severity.
func (a *Aggregator) RecordAlert(rule string, severity core.Severity) {
	a.totalAlerts++
	a.severityCounts[severity]++
	a.ruleCounts[rule]++
}

// TickMinute closes the live minute counter into the trend series. The engine
// drives this once per minute; the oldest bucket is evicted once the series
// holds TrendBuckets entries.
func (a *Aggregator) TickMinute(now time.Time) {
	a.trend = append(a.trend, TrendBucket{
		Label: now.Format("15:04"),
		Count: a.minuteCount,
	})
	if len(a.trend) > TrendBuckets {
		a.trend = a.trend[len(a.trend)-TrendBuckets:]
	}
	a.minuteCount = 0
}

// Snapshot returns a consistent copy of all statistics as of now. It performs
// no mutation.
func (a *Aggregator) Snapshot(now time.Time) Snapshot {
	sev := make(map[core.Severity]uint64, len(a.severityCounts))
	for k, v := range a.severityCounts {
		sev[k] = v
	}
	uptime := int64(now.Sub(a.startTime).Seconds())
	if uptime < 0 {
		uptime = 0
	}
	return Snapshot{
		StartTime:       a.startTime,
		UptimeSeconds:   uptime,
		TotalEvents:     a.totalEvents,
		TotalAlerts:     a.totalAlerts,
		EventsPerSecond: a.eventsPerSecond(now),
		EventsPerMinute: a.eventsPerMinute(now),
		SeverityCounts:  sev,
		TopSources:      topN(a.sourceCounts, a.topN),
		TopRules:        topN(a.ruleCounts, a.topN),
		Trend:           append([]TrendBucket(nil), a.trend...),
	}
}

// eventsPerSecond averages the last epsSampleSeconds closed seconds. The
// current second is excluded because it is still filling.
func (a *Aggregator) eventsPerSecond(now time.Time) float64 {
	cur := now.Unix()
	var total uint64
	for _, b := range a.secRing {
		if b.sec >= cur-epsSampleSeconds && b.sec < cur {
			total += b.count
		}
	}
	return float64(total) / epsSampleSeconds
}

// eventsPerMinute sums the trailing 60 closed seconds.
func (a *Aggregator) eventsPerMinute(now time.Time) uint64 {
	cur := now.Unix()
	var total uint64
	for _, b := range a.secRing {
		if b.sec >= cur-secRingSize && b.sec < cur {
			total += b.count
		}
	}
	return total
}

func topN(counts map[string]uint64, n int) []NameCount {
	rows := make([]NameCount, 0, len(counts))
	for name, count := range counts {
		rows = append(rows, NameCount{Name: name, Count: count})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].Name < rows[j].Name
	})
	if len(rows) > n {
		rows = rows[:n]
	}
	return rows
}

// Export copies the persistable counters for the snapshot document.
func (a *Aggregator) Export() State {
	sev := make(map[core.Severity]uint64, len(a.severityCounts))
	for k, v := range a.severityCounts {
		sev[k] = v
	}
	src := make(map[string]uint64, len(a.sourceCounts))
	for k, v := range a.sourceCounts {
		src[k] = v
	}
	rules := make(map[string]uint64, len(a.ruleCounts))
	for k, v := range a.ruleCounts {
		rules[k] = v
	}
	return State{
		StartTime:      a.startTime,
		TotalEvents:    a.totalEvents,
		TotalAlerts:    a.totalAlerts,
		SeverityCounts: sev,
		SourceCounts:   src,
		RuleCounts:     rules,
		Trend:          append([]TrendBucket(nil), a.trend...),
	}
}

// Import replaces persistable counters from a snapshot. Missing maps default
// to empty so older snapshot versions load safely. Rolling per-second state
// restarts empty; StartTime is kept from the snapshot only when set, so
// uptime survives a restart that restores state.
func (a *Aggregator) Import(st State) {
	if !st.StartTime.IsZero() {
		a.startTime = st.StartTime
	}
	a.totalEvents = st.TotalEvents
	a.totalAlerts = st.TotalAlerts
	a.severityCounts = make(map[core.Severity]uint64)
	for k, v := range st.SeverityCounts {
		a.severityCounts[k] = v
	}
	a.sourceCounts = make(map[string]uint64)
	for k, v := range st.SourceCounts {
		a.sourceCounts[k] = v
	}
	a.ruleCounts = make(map[string]uint64)
	for k, v := range st.RuleCounts {
		a.ruleCounts[k] = v
	}
	a.trend = append([]TrendBucket(nil), st.Trend...)
	if len(a.trend) > TrendBuckets {
		a.trend = a.trend[len(a.trend)-TrendBuckets:]
	}
	a.secRing = [secRingSize]secBucket{}
	a.minuteCount = 0
}
