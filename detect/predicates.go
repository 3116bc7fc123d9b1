// Package detect implements rule matching and threshold-in-window correlation.
package detect

import (
	"fmt"
	"strconv"
	"sync"
)

// Predicate is the programmable extra check a rule may attach. It receives the
// full submatch slice from the rule's pattern (index 0 is the whole match) and
// returns whether the match qualifies for correlation. Rejection affects
// correlation only; the line still reaches stats and the event ring.
type Predicate func(groups []string) bool

var (
	predicateMu sync.RWMutex
	predicates  = map[string]Predicate{}
)

// RegisterPredicate makes a predicate available to rules under the given name.
// Registering a duplicate name panics: predicate sets are wired at init time
// and a silent overwrite would change rule semantics.
func RegisterPredicate(name string, p Predicate) {
	predicateMu.Lock()
	defer predicateMu.Unlock()
	if _, exists := predicates[name]; exists {
		panic(fmt.Sprintf("detect: predicate %q registered twice", name))
	}
	predicates[name] = p
}

// LookupPredicate resolves a predicate name from rule configuration.
func LookupPredicate(name string) (Predicate, error) {
	predicateMu.RLock()
	defer predicateMu.RUnlock()
	p, ok := predicates[name]
	if !ok {
		return nil, fmt.Errorf("unknown predicate %q", name)
	}
	return p, nil
}

// MinBytesGroup returns a predicate that parses the given capture group as an
// integer byte count and accepts matches at or above min. Unparseable or
// missing groups reject the match.
func MinBytesGroup(group int, min int64) Predicate {
	return func(groups []string) bool {
		if group < 0 || group >= len(groups) {
			return false
		}
		n, err := strconv.ParseInt(groups[group], 10, 64)
		if err != nil {
			return false
		}
		return n >= min
	}
}

func init() {
	// Stock predicate for the data-exfiltration rule: the firewall ACCEPT
	// line's second capture group is the transfer size in bytes.
	RegisterPredicate("transfer_over_1mb", MinBytesGroup(2, 1_000_000))
}
