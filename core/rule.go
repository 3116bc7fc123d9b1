package core

import "time"

// Rule is a detection rule: a regex pattern bound to one log source, with a
// threshold-in-window correlation policy and MITRE-style classification
// labels. Rules are plain data validated and compiled at load time by the
// detect package and are immutable afterwards.
type Rule struct {
	// Name uniquely identifies the rule and keys its correlation state.
	Name string `yaml:"name" json:"name" validate:"required"`
	// Source names the log source this rule applies to; lines from other
	// sources are rejected before the pattern is tried.
	Source string `yaml:"source" json:"source" validate:"required"`
	// Pattern is a regular expression with at least one capture group.
	Pattern string `yaml:"pattern" json:"pattern" validate:"required"`
	// EntityGroup selects which capture group holds the correlated entity
	// (typically an IP address). Zero means group 1.
	EntityGroup int `yaml:"entity_group,omitempty" json:"entity_group,omitempty" validate:"gte=0"`
	// Threshold is how many qualifying matches within the window fire an alert.
	Threshold int `yaml:"threshold" json:"threshold" validate:"gt=0"`
	// WindowSeconds is the sliding correlation window.
	WindowSeconds int `yaml:"window_seconds" json:"window_seconds" validate:"gt=0"`

	Severity  Severity `yaml:"severity" json:"severity" validate:"required"`
	Tactic    string   `yaml:"tactic,omitempty" json:"tactic,omitempty"`
	Technique string   `yaml:"technique,omitempty" json:"technique,omitempty"`

	// Predicate optionally names a registered match predicate that is applied
	// to the full submatch slice after the pattern matches. Empty means the
	// pattern alone decides.
	Predicate string `yaml:"predicate,omitempty" json:"predicate,omitempty"`
}

// Window returns the correlation window as a duration.
func (r *Rule) Window() time.Duration {
	return time.Duration(r.WindowSeconds) * time.Second
}

// EntityGroupIndex returns the effective capture-group index for the entity.
func (r *Rule) EntityGroupIndex() int {
	if r.EntityGroup <= 0 {
		return 1
	}
	return r.EntityGroup
}
