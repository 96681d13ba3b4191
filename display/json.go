package display

import (
	"encoding/json"
	"os"
)

// CompactEnv switches JSON output to a single line, for piping into log
// shippers that expect one document per line.
const CompactEnv = "VIGIL_JSON_COMPACT"

// MarshalJSON marshals v indented for humans, or compact when CompactEnv is set
func MarshalJSON(v interface{}) ([]byte, error) {
	if os.Getenv(CompactEnv) != "" {
		return json.Marshal(v)
	}
	return json.MarshalIndent(v, "", "  ")
}
