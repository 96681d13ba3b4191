package warehouse

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Column is one column of the target table, in declared order.
type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Row is an ordered mapping of column name to scalar value. The key set is
// fixed by the query that produced it; rows from different checks share no
// schema.
type Row struct {
	Columns []string
	Values  []any
}

// ResultSet is the rows of one query in the order the store returned them.
type ResultSet []Row

// Get returns the value of the named column.
func (r Row) Get(column string) (any, bool) {
	for i, c := range r.Columns {
		if c == column {
			return r.Values[i], true
		}
	}
	return nil, false
}

// String renders the row as {col: value, ...} in column order.
func (r Row) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, c := range r.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s: %v", c, r.Values[i])
	}
	b.WriteByte('}')
	return b.String()
}

// MarshalJSON encodes the row as a JSON object preserving column order.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range r.Columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(c)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(r.Values[i])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// normalizeValue turns driver byte slices into strings so rows print and
// encode as text.
func normalizeValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
