package storage

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vigil/core"
)

func makeAlert(rule string, severity core.Severity, ts time.Time) *core.Alert {
	return &core.Alert{
		Timestamp:  ts,
		RuleName:   rule,
		Source:     "auth_log",
		Severity:   severity,
		SampleLog:  "sample line",
		EventCount: 5,
	}
}

func boolPtr(b bool) *bool { return &b }

func TestAlertStoreRecordAssignsIDAndFlags(t *testing.T) {
	s := NewAlertStore()
	a := makeAlert("Brute Force Attack", core.SeverityHigh, time.Now())
	a.Acknowledged = true // Record must normalize creation state
	a.New = false

	s.Record(a)

	require.Equal(t, 1, s.Len())
	got := s.List(core.AlertFilter{})
	require.Len(t, got, 1)
	assert.NotEmpty(t, got[0].ID)
	assert.True(t, got[0].New)
	assert.False(t, got[0].Acknowledged)
}

func TestAlertStoreListNewestFirstWithLimit(t *testing.T) {
	s := NewAlertStore()
	base := time.Now()
	for i := 0; i < 10; i++ {
		s.Record(makeAlert(fmt.Sprintf("rule-%d", i), core.SeverityLow, base.Add(time.Duration(i)*time.Second)))
	}

	got := s.List(core.AlertFilter{Limit: 3})
	require.Len(t, got, 3)
	assert.Equal(t, "rule-9", got[0].RuleName)
	assert.Equal(t, "rule-8", got[1].RuleName)
	assert.Equal(t, "rule-7", got[2].RuleName)
}

func TestAlertStoreListFilters(t *testing.T) {
	s := NewAlertStore()
	now := time.Now()
	s.Record(makeAlert("low-rule", core.SeverityLow, now))
	s.Record(makeAlert("high-rule", core.SeverityHigh, now.Add(time.Second)))
	s.Record(makeAlert("crit-rule", core.SeverityCritical, now.Add(2*time.Second)))

	bySeverity := s.List(core.AlertFilter{Severity: core.SeverityHigh})
	require.Len(t, bySeverity, 1)
	assert.Equal(t, "high-rule", bySeverity[0].RuleName)

	// Acknowledge everything except the newest, then ask for the single
	// most recent unacknowledged alert.
	all := s.List(core.AlertFilter{})
	for _, a := range all[1:] {
		require.True(t, s.Acknowledge(a.ID))
	}
	unacked := s.List(core.AlertFilter{Limit: 1, Acknowledged: boolPtr(false)})
	require.Len(t, unacked, 1)
	assert.Equal(t, "crit-rule", unacked[0].RuleName)
}

func TestAlertStoreAcknowledgeIdempotent(t *testing.T) {
	s := NewAlertStore()
	s.Record(makeAlert("r", core.SeverityMedium, time.Now()))
	id := s.List(core.AlertFilter{})[0].ID

	assert.True(t, s.Acknowledge(id))
	assert.True(t, s.Acknowledge(id), "repeat acknowledge is stable")
	assert.False(t, s.Acknowledge("no-such-id"))

	got := s.List(core.AlertFilter{})
	require.Len(t, got, 1)
	assert.True(t, got[0].Acknowledged)
	assert.Equal(t, "r", got[0].RuleName, "other fields untouched")
}

func TestAlertStoreDrainNew(t *testing.T) {
	s := NewAlertStore()
	base := time.Now()
	s.Record(makeAlert("first", core.SeverityLow, base))
	s.Record(makeAlert("second", core.SeverityLow, base.Add(time.Second)))

	// Most recent new alert first, each delivered at most once.
	a := s.DrainNew()
	require.NotNil(t, a)
	assert.Equal(t, "second", a.RuleName)
	assert.False(t, a.New)

	b := s.DrainNew()
	require.NotNil(t, b)
	assert.Equal(t, "first", b.RuleName)

	assert.Nil(t, s.DrainNew(), "nothing left to deliver")

	// Draining did not alter acknowledged state or remove alerts.
	assert.Equal(t, 2, s.Len())
}

func TestAlertStoreDrainNewReturnsCopy(t *testing.T) {
	s := NewAlertStore()
	s.Record(makeAlert("r", core.SeverityLow, time.Now()))

	a := s.DrainNew()
	require.NotNil(t, a)
	a.RuleName = "mutated by caller"

	assert.Equal(t, "r", s.List(core.AlertFilter{})[0].RuleName)
}

func TestAlertStoreExportImportRoundTrip(t *testing.T) {
	s := NewAlertStore()
	now := time.Now()
	s.Record(makeAlert("a", core.SeverityLow, now))
	s.Record(makeAlert("b", core.SeverityCritical, now.Add(time.Second)))
	require.True(t, s.Acknowledge(s.List(core.AlertFilter{})[1].ID))

	restored := NewAlertStore()
	restored.Import(s.Export())

	assert.Equal(t, s.Len(), restored.Len())
	assert.Equal(t, s.List(core.AlertFilter{}), restored.List(core.AlertFilter{}))
}

func TestAlertStoreReset(t *testing.T) {
	s := NewAlertStore()
	s.Record(makeAlert("r", core.SeverityLow, time.Now()))
	s.Reset()
	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.List(core.AlertFilter{}))
}
