package logger

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

const (
	colorReset = "\x1b[0m"
	colorBold  = "\x1b[1m"
)

// Gruvbox Dark palette
var palette = struct {
	fg, aqua, orange, yellow, purple, red, redBg, yellowBg string
}{
	fg:       "\x1b[38;5;223m",
	aqua:     "\x1b[38;5;108m",
	orange:   "\x1b[38;5;208m",
	yellow:   "\x1b[38;5;214m",
	purple:   "\x1b[38;5;175m",
	red:      "\x1b[38;5;167m",
	redBg:    "\x1b[48;5;88m",
	yellowBg: "\x1b[48;5;58m",
}

var bufferPool = buffer.NewPool()

// minimalEncoder implements a calm, compact console encoder.
// Format: "13:04:35  runner  Check classified  category=anomaly check=daily_signups"
//
// Fields attached with With() accumulate in the embedded map encoder and are
// printed alongside the per-entry fields.
type minimalEncoder struct {
	*zapcore.MapObjectEncoder
}

func newMinimalEncoder() *minimalEncoder {
	return &minimalEncoder{MapObjectEncoder: zapcore.NewMapObjectEncoder()}
}

func (enc *minimalEncoder) Clone() zapcore.Encoder {
	clone := zapcore.NewMapObjectEncoder()
	for k, v := range enc.Fields {
		clone.Fields[k] = v
	}
	return &minimalEncoder{MapObjectEncoder: clone}
}

func (enc *minimalEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	final := bufferPool.Get()

	final.AppendString(palette.aqua)
	final.AppendString(ent.Time.Format("15:04:05"))
	final.AppendString(colorReset)

	if ent.Level != zapcore.InfoLevel {
		final.AppendString("  ")
		final.AppendString(levelColorString(ent.Level))
	}

	if ent.LoggerName != "" {
		final.AppendString("  ")
		final.AppendString(colorComponent(ent.LoggerName))
		final.AppendString(ent.LoggerName)
		final.AppendString(colorReset)
	}

	final.AppendString("  ")
	final.AppendString(palette.fg)
	final.AppendString(ent.Message)
	final.AppendString(colorReset)

	all := enc.Clone().(*minimalEncoder)
	for _, f := range fields {
		f.AddTo(all)
	}
	if rendered := renderFields(all.Fields); rendered != "" {
		final.AppendString("  ")
		final.AppendString(rendered)
	}

	final.AppendString("\n")
	return final, nil
}

// levelColorString returns bold + colored + background for non-info levels
func levelColorString(level zapcore.Level) string {
	switch level {
	case zapcore.DebugLevel:
		return palette.purple + "DEBUG" + colorReset
	case zapcore.WarnLevel:
		return colorBold + palette.yellowBg + palette.yellow + "WARN" + colorReset
	default:
		return colorBold + palette.redBg + palette.red + level.CapitalString() + colorReset
	}
}

// colorComponent hashes the logger name so each component keeps one color.
func colorComponent(name string) string {
	hash := 0
	for _, c := range name {
		hash += int(c)
	}
	if hash%2 == 0 {
		return palette.orange
	}
	return palette.yellow
}

// renderFields prints every field as key=value in a stable order.
// No field is ever dropped.
func renderFields(fields map[string]interface{}) string {
	if len(fields) == 0 {
		return ""
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, fields[k]))
	}
	return strings.Join(parts, " ")
}
