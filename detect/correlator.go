package detect

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"vigil/core"
)

// DefaultMaxKeys bounds how many (rule, entity) windows the correlator tracks
// at once. A hostile source cycling through entities can otherwise grow the
// state map without bound; evicting the least recently touched key loses only
// sub-threshold partial state for a cold entity.
const DefaultMaxKeys = 10000

type correlationKey struct {
	Rule   string
	Entity string
}

// WindowState is the persistable window of one correlation key.
type WindowState struct {
	Rule       string      `json:"rule"`
	Entity     string      `json:"entity"`
	Timestamps []time.Time `json:"timestamps"`
}

// Correlator keeps per-(rule, entity) match timestamps and decides when a
// threshold-in-window condition fires. The window is non-overlapping: firing
// clears the key, so a sustained burst yields one alert per full accumulation
// rather than an alert storm.
//
// The correlator is not internally locked; the engine serializes all access
// under its state lock.
type Correlator struct {
	windows *lru.Cache[correlationKey, []time.Time]
	logger  *zap.SugaredLogger
}

// NewCorrelator creates a correlator tracking at most maxKeys windows.
// Non-positive maxKeys selects DefaultMaxKeys.
func NewCorrelator(maxKeys int, logger *zap.SugaredLogger) (*Correlator, error) {
	if maxKeys <= 0 {
		maxKeys = DefaultMaxKeys
	}
	windows, err := lru.New[correlationKey, []time.Time](maxKeys)
	if err != nil {
		return nil, err
	}
	return &Correlator{windows: windows, logger: logger}, nil
}

// Observe records one qualifying match for (rule, entity) at now and returns
// an alert when the pruned window reaches the rule's threshold, nil otherwise.
// After firing, the key's window is cleared so the next alert requires a fresh
// accumulation of threshold matches.
func (c *Correlator) Observe(rule *core.Rule, entity, sample string, now time.Time) *core.Alert {
	key := correlationKey{Rule: rule.Name, Entity: entity}
	window, _ := c.windows.Get(key)
	window = append(window, now)
	window = prune(window, now.Add(-rule.Window()))

	if len(window) >= rule.Threshold {
		c.windows.Remove(key)
		c.logger.Infow("correlation threshold reached",
			"rule", rule.Name,
			"entity", entity,
			"count", len(window),
			"window_seconds", rule.WindowSeconds)
		return core.NewAlert(rule, sample, len(window), now)
	}

	c.windows.Add(key, window)
	return nil
}

// prune drops timestamps at or before cutoff. Windows are append-ordered, so
// the first retained index bounds the copy.
func prune(window []time.Time, cutoff time.Time) []time.Time {
	start := 0
	for start < len(window) && !window[start].After(cutoff) {
		start++
	}
	if start == 0 {
		return window
	}
	return append(window[:0:0], window[start:]...)
}

// KeyCount returns how many correlation keys currently hold state.
func (c *Correlator) KeyCount() int {
	return c.windows.Len()
}

// Reset drops all window state.
func (c *Correlator) Reset() {
	c.windows.Purge()
}

// Export copies all window state for persistence.
func (c *Correlator) Export() []WindowState {
	keys := c.windows.Keys()
	out := make([]WindowState, 0, len(keys))
	for _, key := range keys {
		window, ok := c.windows.Get(key)
		if !ok || len(window) == 0 {
			continue
		}
		out = append(out, WindowState{
			Rule:       key.Rule,
			Entity:     key.Entity,
			Timestamps: append([]time.Time(nil), window...),
		})
	}
	return out
}

// Import replaces all window state from a snapshot. Timestamps already outside
// any plausible window are kept as-is; the next Observe prunes them against
// the owning rule's window.
func (c *Correlator) Import(states []WindowState) {
	c.windows.Purge()
	for _, st := range states {
		if len(st.Timestamps) == 0 {
			continue
		}
		key := correlationKey{Rule: st.Rule, Entity: st.Entity}
		c.windows.Add(key, append([]time.Time(nil), st.Timestamps...))
	}
}
