package guard

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Rule is one protection policy: a fixed window request budget per
// fingerprint, optionally preceded by user-agent bot detection.
type Rule struct {
	Name       string        `yaml:"name"`
	Window     time.Duration `yaml:"window"`
	Max        int64         `yaml:"max"`
	DetectBots bool          `yaml:"detect_bots"`
	AllowBots  []string      `yaml:"allow_bots"`
}

type Rules struct {
	Admin      Rule `yaml:"admin"`
	Enrollment Rule `yaml:"enrollment"`
}

func DefaultRules() Rules {
	return Rules{
		Admin: Rule{
			Name:       "admin",
			Window:     2 * time.Minute,
			Max:        15,
			DetectBots: true,
		},
		Enrollment: Rule{
			Name:       "enrollment",
			Window:     5 * time.Minute,
			Max:        5,
			DetectBots: true,
		},
	}
}

// LoadRules overlays the YAML file at path on DefaultRules. An empty path
// returns the defaults.
func LoadRules(path string) (Rules, error) {
	rules := DefaultRules()
	if strings.TrimSpace(path) == "" {
		return rules, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return rules, fmt.Errorf("read rate limit rules: %w", err)
	}
	if err := yaml.Unmarshal(raw, &rules); err != nil {
		return rules, fmt.Errorf("parse rate limit rules: %w", err)
	}
	for _, r := range []Rule{rules.Admin, rules.Enrollment} {
		if err := r.validate(); err != nil {
			return DefaultRules(), err
		}
	}
	return rules, nil
}

func (r Rule) validate() error {
	if r.Name == "" {
		return fmt.Errorf("rate limit rule without name")
	}
	if r.Max < 0 {
		return fmt.Errorf("rule %s: max must not be negative", r.Name)
	}
	if r.Max > 0 && r.Window <= 0 {
		return fmt.Errorf("rule %s: window must be positive", r.Name)
	}
	return nil
}
