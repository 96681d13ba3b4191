package sym

import (
	"testing"
	"unicode/utf8"
)

func TestSymbolToCommandAndCommandToSymbolAreBidirectional(t *testing.T) {
	for symbol, cmd := range SymbolToCommand {
		got, ok := CommandToSymbol[cmd]
		if !ok {
			t.Errorf("SymbolToCommand has %q → %q, but CommandToSymbol has no entry for %q", symbol, cmd, cmd)
			continue
		}
		if got != symbol {
			t.Errorf("bidirectional mismatch: SymbolToCommand[%q] = %q, but CommandToSymbol[%q] = %q", symbol, cmd, cmd, got)
		}
	}

	for cmd, symbol := range CommandToSymbol {
		if got := SymbolToCommand[symbol]; got != cmd {
			t.Errorf("bidirectional mismatch: CommandToSymbol[%q] = %q, but SymbolToCommand[%q] = %q", cmd, symbol, symbol, got)
		}
	}
}

func TestGlyphsAreSingleRunes(t *testing.T) {
	for _, g := range []string{AM, Run, Checks, Schema, Watch, DB, Passed, Alerted, Silent, Failed} {
		if n := utf8.RuneCountInString(g); n != 1 {
			t.Errorf("glyph %q has %d runes, want 1", g, n)
		}
	}
}

func TestStateGlyph(t *testing.T) {
	cases := map[string]string{
		"passed":            Passed,
		"alerted":           Alerted,
		"classified_silent": Silent,
		"failed":            Failed,
		"unknown":           "?",
	}
	for state, want := range cases {
		if got := StateGlyph(state); got != want {
			t.Errorf("StateGlyph(%q) = %q, want %q", state, got, want)
		}
	}
}
