package am

import (
	"github.com/teranos/vigil/errors"
)

var (
	validDrivers   = map[string]bool{"sqlite3": true, "pgx": true}
	validProviders = map[string]bool{"local": true, "openrouter": true, "anthropic": true, "auto": true}
	validFormats   = map[string]bool{"table": true, "json": true}
)

// Validate checks that the configuration is valid. Failures are config
// errors, fatal before any check runs.
func (c *Config) Validate() error {
	if err := c.validate(); err != nil {
		return errors.Mark(err, errors.ErrConfig)
	}
	return nil
}

func (c *Config) validate() error {
	if !validDrivers[c.Warehouse.Driver] {
		return errors.Newf("warehouse.driver must be sqlite3 or pgx, got %q", c.Warehouse.Driver)
	}
	if c.Warehouse.DSN == "" {
		return errors.WithHint(errors.New("warehouse.dsn cannot be empty"),
			"set warehouse.dsn in am.toml or VIGIL_WAREHOUSE_DSN")
	}
	if c.Warehouse.Table == "" {
		return errors.New("warehouse.table cannot be empty")
	}

	if !validProviders[c.Generation.Provider] {
		return errors.Newf("generation.provider must be one of local, openrouter, anthropic, auto; got %q", c.Generation.Provider)
	}
	if c.Generation.RequestsPerMinute < 0 {
		return errors.Newf("generation.requests_per_minute must be >= 0, got %d", c.Generation.RequestsPerMinute)
	}

	if c.LocalInference.Enabled {
		if c.LocalInference.BaseURL == "" {
			return errors.New("local_inference.base_url cannot be empty when enabled")
		}
		if c.LocalInference.Model == "" {
			return errors.New("local_inference.model cannot be empty when enabled")
		}
		if c.LocalInference.TimeoutSeconds <= 0 {
			return errors.Newf("local_inference.timeout_seconds must be > 0, got %d", c.LocalInference.TimeoutSeconds)
		}
	}

	if c.OpenRouter.MaxTokens != nil && *c.OpenRouter.MaxTokens <= 0 {
		return errors.Newf("openrouter.max_tokens must be > 0, got %d (omit for default)", *c.OpenRouter.MaxTokens)
	}
	if c.Anthropic.MaxTokens != nil && *c.Anthropic.MaxTokens <= 0 {
		return errors.Newf("anthropic.max_tokens must be > 0, got %d (omit for default)", *c.Anthropic.MaxTokens)
	}

	if c.Run.Concurrency < 0 {
		return errors.Newf("run.concurrency must be >= 0, got %d", c.Run.Concurrency)
	}
	if c.Run.QueryTimeoutSeconds <= 0 {
		return errors.Newf("run.query_timeout_seconds must be > 0, got %d", c.Run.QueryTimeoutSeconds)
	}
	if c.Run.GenerationTimeoutSeconds <= 0 {
		return errors.Newf("run.generation_timeout_seconds must be > 0, got %d", c.Run.GenerationTimeoutSeconds)
	}
	if c.Run.NotifyTimeoutSeconds <= 0 {
		return errors.Newf("run.notify_timeout_seconds must be > 0, got %d", c.Run.NotifyTimeoutSeconds)
	}
	if c.Run.WatchIntervalSeconds < 0 {
		return errors.Newf("run.watch_interval_seconds must be >= 0, got %d", c.Run.WatchIntervalSeconds)
	}
	if c.Run.ContextLookbackDays < 0 {
		return errors.Newf("run.context_lookback_days must be >= 0, got %d", c.Run.ContextLookbackDays)
	}

	if !validFormats[c.Report.Format] {
		return errors.Newf("report.format must be table or json, got %q", c.Report.Format)
	}
	if c.Report.S3.Enabled {
		if c.Report.S3.Endpoint == "" || c.Report.S3.Bucket == "" {
			return errors.New("report.s3.endpoint and report.s3.bucket are required when upload is enabled")
		}
	}

	return nil
}
