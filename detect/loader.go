package detect

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"vigil/core"
)

// ruleDocument is the on-disk shape of a rule file.
type ruleDocument struct {
	Rules []*core.Rule `yaml:"rules"`
}

// LoadRules reads a YAML rule document and validates every rule: required
// fields, positive threshold and window, known severity, resolvable predicate
// and compilable pattern. Validation failures abort the load; a rule file is
// configuration and a bad rule set should stop startup rather than silently
// detect less than the operator asked for.
func LoadRules(path string) ([]*core.Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule file: %w", err)
	}
	var doc ruleDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse rule file %s: %w", path, err)
	}
	if len(doc.Rules) == 0 {
		return nil, fmt.Errorf("rule file %s contains no rules", path)
	}
	if err := ValidateRules(doc.Rules); err != nil {
		return nil, err
	}
	return doc.Rules, nil
}

// ValidateRules checks structural validity of a rule set. Pattern compilation
// and predicate resolution are checked again by NewCatalog; doing both here
// keeps load-time errors attached to the file that caused them.
func ValidateRules(rules []*core.Rule) error {
	validate := validator.New()
	for _, r := range rules {
		if err := validate.Struct(r); err != nil {
			return fmt.Errorf("rule %q: %w", r.Name, err)
		}
		if !r.Severity.IsValid() {
			return fmt.Errorf("rule %q: unknown severity %q", r.Name, r.Severity)
		}
		if r.Predicate != "" {
			if _, err := LookupPredicate(r.Predicate); err != nil {
				return fmt.Errorf("rule %q: %w", r.Name, err)
			}
		}
	}
	return nil
}
