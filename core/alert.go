package core

import (
	"time"

	"github.com/google/uuid"
)

// Alert is emitted by the correlator when a rule's threshold is reached inside
// its time window. Alerts are created once and afterwards mutated only by
// acknowledgement or by the new flag being cleared on first delivery.
type Alert struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	RuleName     string    `json:"rule_name"`
	Source       string    `json:"source"`
	Severity     Severity  `json:"severity"`
	Tactic       string    `json:"tactic"`
	Technique    string    `json:"technique"`
	SampleLog    string    `json:"sample_log"`
	EventCount   int       `json:"event_count"`
	Acknowledged bool      `json:"acknowledged"`
	New          bool      `json:"new"`
}

// NewAlert builds an alert from the rule that fired. The sample is the raw
// line that pushed the window over the threshold and count is the number of
// matches accumulated in the window at fire time.
func NewAlert(rule *Rule, sample string, count int, ts time.Time) *Alert {
	return &Alert{
		ID:           uuid.New().String(),
		Timestamp:    ts,
		RuleName:     rule.Name,
		Source:       rule.Source,
		Severity:     rule.Severity,
		Tactic:       rule.Tactic,
		Technique:    rule.Technique,
		SampleLog:    sample,
		EventCount:   count,
		Acknowledged: false,
		New:          true,
	}
}
