package detect

import (
	"fmt"
	"regexp"

	"go.uber.org/zap"

	"vigil/core"
)

// Match is one rule's successful classification of a line.
type Match struct {
	Rule   *core.Rule
	Entity string
	Groups []string
}

type compiledRule struct {
	rule      *core.Rule
	re        *regexp.Regexp
	predicate Predicate // nil when the rule has none
}

// Catalog holds the compiled detection rules. It is immutable after
// construction and safe for concurrent use.
type Catalog struct {
	rules  []compiledRule
	logger *zap.SugaredLogger
}

// NewCatalog compiles and validates the rule set. Rule names must be unique,
// patterns must compile with at least as many capture groups as the rule's
// entity group index, and predicate names must resolve.
func NewCatalog(rules []*core.Rule, logger *zap.SugaredLogger) (*Catalog, error) {
	seen := make(map[string]struct{}, len(rules))
	compiled := make([]compiledRule, 0, len(rules))
	for _, r := range rules {
		if _, dup := seen[r.Name]; dup {
			return nil, fmt.Errorf("duplicate rule name %q", r.Name)
		}
		seen[r.Name] = struct{}{}

		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("rule %q: invalid pattern: %w", r.Name, err)
		}
		if re.NumSubexp() < r.EntityGroupIndex() {
			return nil, fmt.Errorf("rule %q: pattern has %d capture groups, entity group is %d",
				r.Name, re.NumSubexp(), r.EntityGroupIndex())
		}

		var pred Predicate
		if r.Predicate != "" {
			pred, err = LookupPredicate(r.Predicate)
			if err != nil {
				return nil, fmt.Errorf("rule %q: %w", r.Name, err)
			}
		}

		compiled = append(compiled, compiledRule{rule: r, re: re, predicate: pred})
	}
	return &Catalog{rules: compiled, logger: logger}, nil
}

// Match evaluates every rule against the line. The source filter is applied
// before the pattern as a cheap rejection. Rules are independent: a single
// line may satisfy more than one rule, and all matches are returned in
// catalog order.
func (c *Catalog) Match(source, line string) []Match {
	var matches []Match
	for i := range c.rules {
		cr := &c.rules[i]
		if cr.rule.Source != source {
			continue
		}
		groups := cr.re.FindStringSubmatch(line)
		if groups == nil {
			continue
		}
		entity := groups[cr.rule.EntityGroupIndex()]
		if cr.predicate != nil && !cr.predicate(groups) {
			continue
		}
		matches = append(matches, Match{Rule: cr.rule, Entity: entity, Groups: groups})
	}
	return matches
}

// Rules returns the rule set backing the catalog.
func (c *Catalog) Rules() []*core.Rule {
	out := make([]*core.Rule, len(c.rules))
	for i := range c.rules {
		out[i] = c.rules[i].rule
	}
	return out
}

// Len returns the number of rules in the catalog.
func (c *Catalog) Len() int {
	return len(c.rules)
}
