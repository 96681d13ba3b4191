package am

import "time"

// Config represents the vigil configuration
type Config struct {
	Database       DatabaseConfig       `mapstructure:"database"`
	Warehouse      WarehouseConfig      `mapstructure:"warehouse"`
	Generation     GenerationConfig     `mapstructure:"generation"`
	LocalInference LocalInferenceConfig `mapstructure:"local_inference"`
	OpenRouter     OpenRouterConfig     `mapstructure:"openrouter"`
	Anthropic      AnthropicConfig      `mapstructure:"anthropic"`
	Notify         NotifyConfig         `mapstructure:"notify"`
	Run            RunConfig            `mapstructure:"run"`
	Report         ReportConfig         `mapstructure:"report"`
}

// DatabaseConfig configures the local SQLite ledger (generation usage)
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// WarehouseConfig configures the tabular event store that checks query
type WarehouseConfig struct {
	Driver  string `mapstructure:"driver"`  // sqlite3 or pgx
	DSN     string `mapstructure:"dsn"`     // Driver-specific connection string
	Catalog string `mapstructure:"catalog"` // First part of the table reference (project / database)
	Schema  string `mapstructure:"schema"`  // Second part (dataset / schema)
	Table   string `mapstructure:"table"`   // Target table
}

// GenerationConfig selects and throttles the generation provider
type GenerationConfig struct {
	Provider          string `mapstructure:"provider"`            // local, openrouter, anthropic, auto
	RequestsPerMinute int    `mapstructure:"requests_per_minute"` // 0 = unlimited
}

// LocalInferenceConfig configures local model inference (Ollama, LocalAI, etc.)
type LocalInferenceConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	BaseURL        string `mapstructure:"base_url"`        // e.g., "http://localhost:11434" for Ollama
	Model          string `mapstructure:"model"`           // e.g., "qwen2.5-coder:7b"
	TimeoutSeconds int    `mapstructure:"timeout_seconds"` // Request timeout in seconds
}

// OpenRouterConfig configures OpenRouter.ai API access
type OpenRouterConfig struct {
	APIKey    string `mapstructure:"api_key"`
	Model     string `mapstructure:"model"`      // e.g., "openai/gpt-4o-mini"
	MaxTokens *int   `mapstructure:"max_tokens"` // nil = default 1000
}

// AnthropicConfig configures direct Anthropic API access
type AnthropicConfig struct {
	APIKey    string `mapstructure:"api_key"`
	Model     string `mapstructure:"model"`
	MaxTokens *int   `mapstructure:"max_tokens"`
}

// NotifyConfig configures alert delivery
type NotifyConfig struct {
	Slack SlackConfig `mapstructure:"slack"`
}

// SlackConfig configures the Slack incoming webhook
type SlackConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	WebhookURL string `mapstructure:"webhook_url"`
}

// RunConfig controls how a run executes checks
type RunConfig struct {
	ChecksFile               string `mapstructure:"checks_file"`
	Concurrency              int    `mapstructure:"concurrency"`                // 1 = sequential
	QueryTimeoutSeconds      int    `mapstructure:"query_timeout_seconds"`      // Per data store call
	GenerationTimeoutSeconds int    `mapstructure:"generation_timeout_seconds"` // Per generation call
	NotifyTimeoutSeconds     int    `mapstructure:"notify_timeout_seconds"`     // Per delivery
	WatchIntervalSeconds     int    `mapstructure:"watch_interval_seconds"`     // Re-run period for `vigil watch`
	ContextLookbackDays      int    `mapstructure:"context_lookback_days"`      // Event volume window; 0 disables run context
}

// ReportConfig controls where run reports go
type ReportConfig struct {
	Format string   `mapstructure:"format"` // table or json
	Output string   `mapstructure:"output"` // File path; empty = stdout
	S3     S3Config `mapstructure:"s3"`
}

// S3Config configures upload of run reports to S3-compatible object storage
type S3Config struct {
	Enabled   bool   `mapstructure:"enabled"`
	Endpoint  string `mapstructure:"endpoint"`
	Bucket    string `mapstructure:"bucket"`
	Prefix    string `mapstructure:"prefix"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// TableRef returns the three-part table reference checks are written against.
// Empty parts are omitted, so a plain sqlite table yields just its name.
func (w WarehouseConfig) TableRef() string {
	ref := ""
	for _, part := range []string{w.Catalog, w.Schema, w.Table} {
		if part == "" {
			continue
		}
		if ref != "" {
			ref += "."
		}
		ref += part
	}
	return ref
}

// QueryTimeout returns the per-call data store timeout
func (r RunConfig) QueryTimeout() time.Duration {
	return time.Duration(r.QueryTimeoutSeconds) * time.Second
}

// GenerationTimeout returns the per-call generation timeout
func (r RunConfig) GenerationTimeout() time.Duration {
	return time.Duration(r.GenerationTimeoutSeconds) * time.Second
}

// NotifyTimeout returns the per-delivery timeout
func (r RunConfig) NotifyTimeout() time.Duration {
	return time.Duration(r.NotifyTimeoutSeconds) * time.Second
}

// File system constants
const (
	DefaultDirPermissions  = 0755
	DefaultFilePermissions = 0644
)
