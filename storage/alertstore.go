// Package storage holds the engine's in-memory alert and event retention and
// the durable snapshot gateway.
package storage

import (
	"github.com/google/uuid"

	"vigil/core"
)

// DefaultListLimit caps alert listings when the caller passes no limit.
const DefaultListLimit = 100

// AlertStore is the ordered collection of alerts with their acknowledgement
// and new-flag lifecycle. Insertion order is chronological. The store is not
// internally locked; the engine serializes all access under its state lock,
// and every query returns copies so callers never hold live references.
type AlertStore struct {
	alerts []*core.Alert
}

// NewAlertStore creates an empty store.
func NewAlertStore() *AlertStore {
	return &AlertStore{}
}

// Record appends an alert, assigning an id when the correlator did not and
// forcing the lifecycle flags to their creation state.
func (s *AlertStore) Record(a *core.Alert) {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	a.New = true
	a.Acknowledged = false
	s.alerts = append(s.alerts, a)
}

// List returns up to the filter's limit of matching alerts, newest first.
func (s *AlertStore) List(f core.AlertFilter) []core.Alert {
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	out := make([]core.Alert, 0, min(limit, len(s.alerts)))
	for i := len(s.alerts) - 1; i >= 0 && len(out) < limit; i-- {
		if f.Matches(s.alerts[i]) {
			out = append(out, *s.alerts[i])
		}
	}
	return out
}

// Acknowledge flips the acknowledged flag for the given id. It returns true
// whenever the id exists, including repeat acknowledgements, and false for
// unknown ids.
func (s *AlertStore) Acknowledge(id string) bool {
	for _, a := range s.alerts {
		if a.ID == id {
			a.Acknowledged = true
			return true
		}
	}
	return false
}

// DrainNew returns a copy of the most recent alert still flagged new and
// clears its flag, so each alert is delivered to the notification consumer at
// most once. Nil when nothing is pending.
func (s *AlertStore) DrainNew() *core.Alert {
	for i := len(s.alerts) - 1; i >= 0; i-- {
		if s.alerts[i].New {
			s.alerts[i].New = false
			cp := *s.alerts[i]
			return &cp
		}
	}
	return nil
}

// Len returns the number of stored alerts.
func (s *AlertStore) Len() int {
	return len(s.alerts)
}

// Reset discards all alerts. Administrative, outside the normal lifecycle.
func (s *AlertStore) Reset() {
	s.alerts = nil
}

// Export copies all alerts for persistence, oldest first.
func (s *AlertStore) Export() []core.Alert {
	out := make([]core.Alert, 0, len(s.alerts))
	for _, a := range s.alerts {
		out = append(out, *a)
	}
	return out
}

// Import replaces the store contents from a snapshot.
func (s *AlertStore) Import(alerts []core.Alert) {
	s.alerts = make([]*core.Alert, 0, len(alerts))
	for i := range alerts {
		cp := alerts[i]
		s.alerts = append(s.alerts, &cp)
	}
}
