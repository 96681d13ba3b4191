// Package checks loads check definitions from a YAML file.
//
// A checks file is a single `checks:` list. Declaration order is preserved and
// becomes the run order:
//
//	checks:
//	  - name: missing_user_ids
//	    description: Find events where user_pseudo_id is null
//	  - name: daily_volume
//	    description: Daily event count
//	    sql: SELECT event_date, COUNT(*) FROM events GROUP BY 1
package checks

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/teranos/vigil/errors"
)

// Definition is one configured check. It is immutable once loaded.
type Definition struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
	SQL         string `yaml:"sql,omitempty" json:"sql,omitempty"`
	Examples    string `yaml:"examples,omitempty" json:"examples,omitempty"`
}

// HasSQL reports whether the check carries an explicit query.
// Whitespace-only sql counts as absent.
func (d Definition) HasSQL() bool {
	return strings.TrimSpace(d.SQL) != ""
}

type file struct {
	Checks []Definition `yaml:"checks"`
}

// Load reads and parses a checks file.
func Load(path string) ([]Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapConfig(err, "failed to read checks file "+path)
	}
	defs, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "checks file %s", path)
	}
	return defs, nil
}

// Parse decodes a checks document. A record missing name or description,
// or a repeated name, is a config error.
func Parse(data []byte) ([]Definition, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.WrapConfig(err, "invalid checks YAML")
	}

	seen := make(map[string]int, len(f.Checks))
	for i := range f.Checks {
		d := &f.Checks[i]
		d.Name = strings.TrimSpace(d.Name)
		d.Description = strings.TrimSpace(d.Description)

		if d.Name == "" {
			return nil, errors.NewConfigError("check #%d is missing name", i+1)
		}
		if d.Description == "" {
			return nil, errors.NewConfigError("check %q is missing description", d.Name)
		}
		if first, dup := seen[d.Name]; dup {
			return nil, errors.NewConfigError("check %q is defined twice (#%d and #%d)", d.Name, first+1, i+1)
		}
		seen[d.Name] = i
	}

	return f.Checks, nil
}
