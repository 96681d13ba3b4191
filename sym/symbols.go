// Package sym defines the glyphs vigil prints in front of command output.
// They are stable across CLI help, console output and documentation.
package sym

// Command glyphs
const (
	AM     = "≡" // am: configuration and system settings
	Run    = "⟶" // run: execute checks
	Checks = "⊨" // checks: check definitions
	Schema = "⋈" // schema: target table layout
	Watch  = "꩜" // watch: recurring runs
	DB     = "⊔" // usage ledger and warehouse storage
)

// Outcome glyphs
const (
	Passed  = "✓"
	Alerted = "✦"
	Silent  = "∘"
	Failed  = "✗"
)

// CommandToSymbol maps command names to their glyph
var CommandToSymbol = map[string]string{
	"am":     AM,
	"run":    Run,
	"checks": Checks,
	"schema": Schema,
	"watch":  Watch,
	"usage":  DB,
}

// SymbolToCommand maps glyphs back to command names
var SymbolToCommand = map[string]string{
	AM:     "am",
	Run:    "run",
	Checks: "checks",
	Schema: "schema",
	Watch:  "watch",
	DB:     "usage",
}

// StateGlyph returns the glyph for an outcome state name, or "?"
func StateGlyph(state string) string {
	switch state {
	case "passed":
		return Passed
	case "alerted":
		return Alerted
	case "classified_silent":
		return Silent
	case "failed":
		return Failed
	default:
		return "?"
	}
}
