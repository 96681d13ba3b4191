package warehouse

import (
	"fmt"
	"strconv"
)

// dialect holds the driver-specific SQL the store issues on its own behalf.
// Check queries are passed through untouched.
type dialect struct {
	describe    func(ref TableRef) (string, []any)
	placeholder func(n int) string
}

var dialects = map[string]dialect{
	DriverSQLite: {
		describe: func(ref TableRef) (string, []any) {
			// The table-valued form of PRAGMA table_info accepts bind parameters
			if ref.Schema != "" {
				return "SELECT name, type FROM pragma_table_info(?, ?) ORDER BY cid", []any{ref.Table, ref.Schema}
			}
			return "SELECT name, type FROM pragma_table_info(?) ORDER BY cid", []any{ref.Table}
		},
		placeholder: func(int) string { return "?" },
	},
	DriverPostgres: {
		describe: func(ref TableRef) (string, []any) {
			schema := ref.Schema
			if schema == "" {
				schema = "public"
			}
			query := "SELECT column_name AS name, data_type AS type FROM information_schema.columns" +
				" WHERE table_schema = $1 AND table_name = $2"
			args := []any{schema, ref.Table}
			if ref.Catalog != "" {
				query += " AND table_catalog = $3"
				args = append(args, ref.Catalog)
			}
			return query + " ORDER BY ordinal_position", args
		},
		placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
	},
}

func toString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}

func toInt64(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int32:
		return int64(t)
	case int:
		return int64(t)
	case float64:
		return int64(t)
	case string:
		n, _ := strconv.ParseInt(t, 10, 64)
		return n
	default:
		return 0
	}
}
