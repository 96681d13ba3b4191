package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/teranos/vigil/ai/provider"
	"github.com/teranos/vigil/am"
	"github.com/teranos/vigil/errors"
	"github.com/teranos/vigil/sym"
)

// AmCmd represents the am (configuration) command
var AmCmd = &cobra.Command{
	Use:   "am",
	Short: sym.AM + " Manage vigil configuration",
	Long: sym.AM + ` am — Manage vigil configuration ("I am")

Configuration sources (later overrides earlier):
1. Default values
2. System config (/etc/vigil/config.toml)
3. User config (~/.vigil/am.toml)
4. Project config (./am.toml, searched upward)
5. Environment variables (VIGIL_* prefix)

Examples:
  vigil am show                    # Show current configuration
  vigil am show --format json      # Show configuration in JSON format
  vigil am get warehouse.table     # Get specific config value
  vigil am validate                # Validate current configuration
  vigil am where                   # Show which source set each value`,
}

var amShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  "Display the merged configuration from all sources. Secrets are masked.",
	RunE:  runAmShow,
}

var amGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a specific configuration value",
	Long:  "Get a specific configuration value using dot notation (e.g., warehouse.table, run.concurrency)",
	Args:  cobra.ExactArgs(1),
	RunE:  runAmGet,
}

var amValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate current configuration",
	RunE:  runAmValidate,
}

var amWhereCmd = &cobra.Command{
	Use:   "where",
	Short: "Show where each setting comes from",
	RunE:  runAmWhere,
}

var configFormat string

func init() {
	amShowCmd.Flags().StringVar(&configFormat, "format", "toml", "Output format: toml, json, yaml")

	AmCmd.AddCommand(amShowCmd)
	AmCmd.AddCommand(amGetCmd)
	AmCmd.AddCommand(amValidateCmd)
	AmCmd.AddCommand(amWhereCmd)
}

func runAmShow(cmd *cobra.Command, args []string) error {
	return renderSettings(cmd.OutOrStdout(), am.EffectiveSettings(am.GetViper()), configFormat)
}

// renderSettings writes the nested settings map in the requested format
func renderSettings(w io.Writer, settings map[string]interface{}, format string) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(settings, "", "  ")
		if err != nil {
			return errors.Wrap(err, "failed to marshal config to JSON")
		}
		_, err = fmt.Fprintln(w, string(data))
		return err

	case "yaml":
		data, err := yaml.Marshal(settings)
		if err != nil {
			return errors.Wrap(err, "failed to marshal config to YAML")
		}
		_, err = fmt.Fprintf(w, "# vigil configuration\n%s", data)
		return err

	case "toml":
		data, err := toml.Marshal(settings)
		if err != nil {
			return errors.Wrap(err, "failed to marshal config to TOML")
		}
		_, err = fmt.Fprintf(w, "# vigil configuration\n%s", data)
		return err

	default:
		return errors.Newf("unsupported format: %s (supported: toml, json, yaml)", format)
	}
}

func runAmGet(cmd *cobra.Command, args []string) error {
	key := args[0]
	for _, s := range am.Introspect(am.GetViper()) {
		if s.Key == key {
			fmt.Fprintln(cmd.OutOrStdout(), s.Value)
			return nil
		}
	}
	return errors.Newf("configuration key %q not found", key)
}

func runAmValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return errors.Wrap(err, "configuration validation failed")
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s Configuration is valid\n", sym.Passed)
	fmt.Fprintln(out, providerSummary(cfg))
	return nil
}

// providerSummary names the configured generation providers and the one a
// run would use.
func providerSummary(cfg *am.Config) string {
	available := provider.GetAvailableProviders(cfg)
	if len(available) == 0 {
		return "Generation providers: none configured (generated SQL and classification will fail)"
	}
	names := make([]string, len(available))
	for i, p := range available {
		names[i] = string(p)
	}
	selected := cfg.Generation.Provider
	if selected == "" {
		selected = string(provider.ProviderAuto)
	}
	return fmt.Sprintf("Generation providers: %s (selected: %s)", strings.Join(names, ", "), selected)
}

func runAmWhere(cmd *cobra.Command, args []string) error {
	data := pterm.TableData{{"KEY", "VALUE", "SOURCE", "FROM"}}
	for _, s := range am.Introspect(am.GetViper()) {
		data = append(data, []string{s.Key, fmt.Sprintf("%v", s.Value), string(s.Source), s.SourcePath})
	}
	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), table)
	return nil
}
