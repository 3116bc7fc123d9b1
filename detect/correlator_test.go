package detect

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"vigil/core"
)

func testRule(threshold, windowSeconds int) *core.Rule {
	return &core.Rule{
		Name:          "Brute Force Attack",
		Source:        "auth_log",
		Pattern:       `Failed password for .+ from (\d+\.\d+\.\d+\.\d+)`,
		Threshold:     threshold,
		WindowSeconds: windowSeconds,
		Severity:      core.SeverityHigh,
		Tactic:        "Credential Access",
		Technique:     "Brute Force",
	}
}

func newTestCorrelator(t *testing.T) *Correlator {
	t.Helper()
	c, err := NewCorrelator(0, zap.NewNop().Sugar())
	require.NoError(t, err)
	return c
}

func TestCorrelatorBelowThresholdNeverFires(t *testing.T) {
	c := newTestCorrelator(t)
	rule := testRule(5, 120)
	base := time.Now()

	for i := 0; i < 4; i++ {
		alert := c.Observe(rule, "192.168.1.50", "sample", base.Add(time.Duration(i)*time.Second))
		assert.Nil(t, alert)
	}
}

func TestCorrelatorFiresOnceThenResets(t *testing.T) {
	// 6 matches within 10 seconds against threshold=5/window=120:
	// exactly one alert with event_count=5, and the 6th match starts a
	// fresh accumulation.
	c := newTestCorrelator(t)
	rule := testRule(5, 120)
	base := time.Now()

	var fired []*core.Alert
	for i := 0; i < 6; i++ {
		if a := c.Observe(rule, "10.0.0.9", "Failed password for root from 10.0.0.9", base.Add(time.Duration(2*i)*time.Second)); a != nil {
			fired = append(fired, a)
		}
	}

	require.Len(t, fired, 1)
	assert.Equal(t, 5, fired[0].EventCount)
	assert.Equal(t, rule.Name, fired[0].RuleName)
	assert.Equal(t, core.SeverityHigh, fired[0].Severity)
	assert.Equal(t, "Credential Access", fired[0].Tactic)
	assert.True(t, fired[0].New)
	assert.False(t, fired[0].Acknowledged)

	// The key was cleared on fire: the 6th match alone is the entire window.
	assert.Equal(t, 1, c.KeyCount())
}

func TestCorrelatorSparseMatchesAgeOut(t *testing.T) {
	// 4 matches spaced 200s apart under window=120: each ages out before
	// the next arrives, so nothing ever fires.
	c := newTestCorrelator(t)
	rule := testRule(4, 120)
	base := time.Now()

	for i := 0; i < 4; i++ {
		alert := c.Observe(rule, "172.16.0.2", "sample", base.Add(time.Duration(200*i)*time.Second))
		assert.Nil(t, alert)
	}
}

func TestCorrelatorEntitiesAreIndependent(t *testing.T) {
	c := newTestCorrelator(t)
	rule := testRule(3, 60)
	base := time.Now()

	// Two entities interleaved; only the one reaching the threshold fires.
	assert.Nil(t, c.Observe(rule, "1.1.1.1", "s", base))
	assert.Nil(t, c.Observe(rule, "2.2.2.2", "s", base.Add(time.Second)))
	assert.Nil(t, c.Observe(rule, "1.1.1.1", "s", base.Add(2*time.Second)))
	assert.Nil(t, c.Observe(rule, "2.2.2.2", "s", base.Add(3*time.Second)))
	alert := c.Observe(rule, "1.1.1.1", "s", base.Add(4*time.Second))
	require.NotNil(t, alert)
	assert.Equal(t, 3, alert.EventCount)
}

func TestCorrelatorThresholdOneFiresImmediately(t *testing.T) {
	c := newTestCorrelator(t)
	rule := testRule(1, 300)

	alert := c.Observe(rule, "3.3.3.3", "ids line", time.Now())
	require.NotNil(t, alert)
	assert.Equal(t, 1, alert.EventCount)
	assert.Equal(t, 0, c.KeyCount())
}

func TestCorrelatorExportImportRoundTrip(t *testing.T) {
	c := newTestCorrelator(t)
	rule := testRule(5, 120)
	base := time.Now().Truncate(time.Second)

	c.Observe(rule, "10.0.0.1", "s", base)
	c.Observe(rule, "10.0.0.1", "s", base.Add(time.Second))
	c.Observe(rule, "10.0.0.2", "s", base.Add(2*time.Second))

	exported := c.Export()
	require.Len(t, exported, 2)

	restored := newTestCorrelator(t)
	restored.Import(exported)
	assert.Equal(t, 2, restored.KeyCount())

	// Restored partial state continues counting toward the threshold.
	restored.Observe(rule, "10.0.0.1", "s", base.Add(3*time.Second))
	restored.Observe(rule, "10.0.0.1", "s", base.Add(4*time.Second))
	alert := restored.Observe(rule, "10.0.0.1", "s", base.Add(5*time.Second))
	require.NotNil(t, alert)
	assert.Equal(t, 5, alert.EventCount)
}

func TestCorrelatorBoundsTrackedKeys(t *testing.T) {
	c, err := NewCorrelator(10, zap.NewNop().Sugar())
	require.NoError(t, err)
	rule := testRule(100, 3600)
	now := time.Now()

	for i := 0; i < 50; i++ {
		c.Observe(rule, fmt.Sprintf("10.0.%d.1", i), "s", now)
	}
	assert.LessOrEqual(t, c.KeyCount(), 10)
}

func TestCorrelatorReset(t *testing.T) {
	c := newTestCorrelator(t)
	rule := testRule(5, 120)
	c.Observe(rule, "9.9.9.9", "s", time.Now())
	require.Equal(t, 1, c.KeyCount())

	c.Reset()
	assert.Equal(t, 0, c.KeyCount())
}
