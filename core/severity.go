package core

import "fmt"

// Severity classifies how serious a detection rule and its alerts are.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

var severityRank = map[Severity]int{
	SeverityLow:      1,
	SeverityMedium:   2,
	SeverityHigh:     3,
	SeverityCritical: 4,
}

// Rank returns the ordering weight of the severity. Unknown severities rank
// below low so filtering on a misconfigured floor never suppresses real alerts.
func (s Severity) Rank() int {
	return severityRank[s]
}

// IsValid reports whether s is one of the four known severity levels.
func (s Severity) IsValid() bool {
	_, ok := severityRank[s]
	return ok
}

// ParseSeverity validates a severity string from configuration.
func ParseSeverity(s string) (Severity, error) {
	sev := Severity(s)
	if !sev.IsValid() {
		return "", fmt.Errorf("unknown severity %q (want low, medium, high or critical)", s)
	}
	return sev, nil
}

// Severities lists all valid severities in ascending order.
func Severities() []Severity {
	return []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}
}
