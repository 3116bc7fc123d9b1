package core

// AlertFilter narrows an alert listing. Zero value matches everything.
// Acknowledged and Severity are independent; either may be left unset.
type AlertFilter struct {
	// Limit caps the number of returned alerts. Non-positive means the
	// store's default cap.
	Limit int
	// Acknowledged, when non-nil, selects only alerts whose acknowledged
	// flag equals the pointee.
	Acknowledged *bool
	// Severity, when non-empty, selects only alerts of exactly that severity.
	Severity Severity
}

// Matches reports whether the alert passes the filter's field predicates.
// Limit is not applied here; the store applies it after ordering.
func (f AlertFilter) Matches(a *Alert) bool {
	if f.Acknowledged != nil && a.Acknowledged != *f.Acknowledged {
		return false
	}
	if f.Severity != "" && a.Severity != f.Severity {
		return false
	}
	return true
}
