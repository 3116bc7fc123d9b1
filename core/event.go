package core

import "time"

// Event is a single raw log line as observed during ingestion. Events are held
// only in the bounded event ring and are never persisted.
type Event struct {
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
	Raw       string    `json:"raw"`
}

// NewEvent stamps a raw line with its source and ingestion time.
func NewEvent(source, raw string, ts time.Time) Event {
	return Event{
		Source:    source,
		Timestamp: ts,
		Raw:       raw,
	}
}
