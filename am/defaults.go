package am

import (
	"github.com/spf13/viper"
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.path", "vigil.db")

	v.SetDefault("warehouse.driver", "sqlite3")
	v.SetDefault("warehouse.dsn", "events.db")
	v.SetDefault("warehouse.table", "events")

	v.SetDefault("generation.provider", "auto")
	v.SetDefault("generation.requests_per_minute", 0)

	// Local Inference (Ollama) defaults
	v.SetDefault("local_inference.enabled", false)
	v.SetDefault("local_inference.base_url", "http://localhost:11434")
	v.SetDefault("local_inference.model", "llama3.2:3b")
	v.SetDefault("local_inference.timeout_seconds", 120)

	v.SetDefault("openrouter.model", "openai/gpt-4o-mini")
	v.SetDefault("openrouter.max_tokens", 1000)

	v.SetDefault("anthropic.model", "claude-sonnet-4-5")
	v.SetDefault("anthropic.max_tokens", 1024)

	v.SetDefault("notify.slack.enabled", true)

	v.SetDefault("run.checks_file", "checks.yaml")
	v.SetDefault("run.concurrency", 1)
	v.SetDefault("run.query_timeout_seconds", 60)
	v.SetDefault("run.generation_timeout_seconds", 90)
	v.SetDefault("run.notify_timeout_seconds", 10)
	v.SetDefault("run.watch_interval_seconds", 3600)
	v.SetDefault("run.context_lookback_days", 0)

	v.SetDefault("report.format", "table")
	v.SetDefault("report.s3.prefix", "vigil/runs")
	v.SetDefault("report.s3.region", "us-east-1")
	v.SetDefault("report.s3.use_ssl", true)
}

// BindSensitiveEnvVars explicitly binds secrets and connection strings to
// environment variables so they never have to live in a config file.
func BindSensitiveEnvVars(v *viper.Viper) {
	_ = v.BindEnv("openrouter.api_key", "VIGIL_OPENROUTER_API_KEY", "OPENROUTER_API_KEY")
	_ = v.BindEnv("anthropic.api_key", "VIGIL_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY")
	_ = v.BindEnv("notify.slack.webhook_url", "VIGIL_SLACK_WEBHOOK_URL", "SLACK_WEBHOOK_URL")
	_ = v.BindEnv("warehouse.dsn", "VIGIL_WAREHOUSE_DSN")
	_ = v.BindEnv("report.s3.access_key", "VIGIL_S3_ACCESS_KEY")
	_ = v.BindEnv("report.s3.secret_key", "VIGIL_S3_SECRET_KEY")
	_ = v.BindEnv("database.path", "VIGIL_DATABASE_PATH")
}

// GetDatabasePath returns the usage ledger path
func (c *Config) GetDatabasePath() string {
	if c.Database.Path == "" {
		return "vigil.db"
	}
	return c.Database.Path
}

// GetConcurrency returns the worker count, never below one
func (c *Config) GetConcurrency() int {
	if c.Run.Concurrency < 1 {
		return 1
	}
	return c.Run.Concurrency
}
