package commands

import (
	"github.com/spf13/cobra"

	"github.com/teranos/vigil/am"
	"github.com/teranos/vigil/checks"
	"github.com/teranos/vigil/errors"
)

// ConfigFile is the --config override; empty uses the normal search
var ConfigFile string

// loadConfig loads and validates configuration. Any failure is a config
// error and aborts before a check runs.
func loadConfig() (*am.Config, error) {
	var (
		cfg *am.Config
		err error
	)
	if ConfigFile != "" {
		cfg, err = am.LoadFromFile(ConfigFile)
	} else {
		cfg, err = am.Load()
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return cfg, nil
}

// checksPath is --checks when given, otherwise run.checks_file
func checksPath(cmd *cobra.Command, cfg *am.Config) string {
	if path, _ := cmd.Flags().GetString("checks"); path != "" {
		return path
	}
	return cfg.Run.ChecksFile
}

func loadChecks(cmd *cobra.Command, cfg *am.Config) (string, []checks.Definition, error) {
	path := checksPath(cmd, cfg)
	defs, err := checks.Load(path)
	if err != nil {
		return path, nil, err
	}
	return path, defs, nil
}
