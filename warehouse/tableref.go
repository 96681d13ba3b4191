package warehouse

import (
	"strings"

	"github.com/teranos/vigil/am"
	"github.com/teranos/vigil/errors"
)

// TableRef is the three-part reference catalog.schema.table that checks are
// written against. Catalog and Schema may be empty.
type TableRef struct {
	Catalog string
	Schema  string
	Table   string
}

// TableRefFromConfig builds the reference from warehouse settings.
func TableRefFromConfig(cfg am.WarehouseConfig) TableRef {
	return TableRef{Catalog: cfg.Catalog, Schema: cfg.Schema, Table: cfg.Table}
}

// ApplyTo returns cfg targeting this reference.
func (t TableRef) ApplyTo(cfg am.WarehouseConfig) am.WarehouseConfig {
	cfg.Catalog, cfg.Schema, cfg.Table = t.Catalog, t.Schema, t.Table
	return cfg
}

// ParseTableRef splits "a.b.c", "b.c" or "c".
func ParseTableRef(s string) (TableRef, error) {
	parts := strings.Split(s, ".")
	for _, p := range parts {
		if p == "" {
			return TableRef{}, errors.NewConfigError("invalid table reference %q", s)
		}
	}
	switch len(parts) {
	case 1:
		return TableRef{Table: parts[0]}, nil
	case 2:
		return TableRef{Schema: parts[0], Table: parts[1]}, nil
	case 3:
		return TableRef{Catalog: parts[0], Schema: parts[1], Table: parts[2]}, nil
	default:
		return TableRef{}, errors.NewConfigError("table reference %q has more than three parts", s)
	}
}

// String returns the dotted reference with empty parts omitted.
func (t TableRef) String() string {
	var parts []string
	for _, p := range []string{t.Catalog, t.Schema, t.Table} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ".")
}

// quoted returns the reference as an identifier usable in a FROM clause.
// Postgres cannot address another database, so the catalog is dropped.
func (t TableRef) quoted() string {
	if t.Schema != "" {
		return quoteIdent(t.Schema) + "." + quoteIdent(t.Table)
	}
	return quoteIdent(t.Table)
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
