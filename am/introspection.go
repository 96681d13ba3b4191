package am

import (
	"os"
	"sort"
	"strings"

	"github.com/spf13/viper"
)

// ConfigSource represents where a configuration value came from
type ConfigSource string

const (
	SourceDefault     ConfigSource = "default"
	SourceSystem      ConfigSource = "system"      // /etc/vigil/config.toml
	SourceUser        ConfigSource = "user"        // ~/.vigil/am.toml
	SourceProject     ConfigSource = "project"     // project am.toml
	SourceEnvironment ConfigSource = "environment" // VIGIL_* env vars
)

// sensitiveKeys are masked in introspection output
var sensitiveKeys = map[string]bool{
	"openrouter.api_key":       true,
	"anthropic.api_key":        true,
	"notify.slack.webhook_url": true,
	"warehouse.dsn":            true,
	"report.s3.access_key":     true,
	"report.s3.secret_key":     true,
}

// SourceInfo tracks where a configuration value originated
type SourceInfo struct {
	Source ConfigSource
	Path   string // File path or environment variable name
}

// SettingInfo contains metadata about a configuration setting
type SettingInfo struct {
	Key        string       `json:"key" yaml:"key"`
	Value      interface{}  `json:"value" yaml:"value"`
	Source     ConfigSource `json:"source" yaml:"source"`
	SourcePath string       `json:"source_path,omitempty" yaml:"source_path,omitempty"`
}

// Introspect lists every effective setting with the source that set it,
// sorted by key. Secrets are masked.
func Introspect(v *viper.Viper) []SettingInfo {
	sourcesMu.Lock()
	defer sourcesMu.Unlock()

	keys := v.AllKeys()
	sort.Strings(keys)

	settings := make([]SettingInfo, 0, len(keys))
	for _, key := range keys {
		info := SourceInfo{Source: SourceDefault, Path: "built-in default"}
		if si, ok := ConfigSources[key]; ok {
			info = si
		}

		envKey := envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if os.Getenv(envKey) != "" {
			info = SourceInfo{Source: SourceEnvironment, Path: envKey}
		}

		value := v.Get(key)
		if sensitiveKeys[key] {
			value = MaskSecret(v.GetString(key))
		}

		settings = append(settings, SettingInfo{
			Key:        key,
			Value:      value,
			Source:     info.Source,
			SourcePath: info.Path,
		})
	}
	return settings
}

// MaskSecret keeps the first four characters of a secret
func MaskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "****"
	}
	return s[:4] + "****"
}

// EffectiveSettings returns the merged settings as a nested map with secrets
// masked, ready for TOML, JSON or YAML rendering.
func EffectiveSettings(v *viper.Viper) map[string]interface{} {
	out := map[string]interface{}{}
	for _, s := range Introspect(v) {
		parts := strings.Split(s.Key, ".")
		node := out
		for _, p := range parts[:len(parts)-1] {
			next, ok := node[p].(map[string]interface{})
			if !ok {
				next = map[string]interface{}{}
				node[p] = next
			}
			node = next
		}
		node[parts[len(parts)-1]] = s.Value
	}
	return out
}
