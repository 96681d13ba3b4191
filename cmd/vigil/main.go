package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teranos/vigil/cmd/vigil/commands"
	"github.com/teranos/vigil/errors"
	"github.com/teranos/vigil/logger"
)

var rootCmd = &cobra.Command{
	Use:   "vigil",
	Short: "vigil - analytics checks with classified alerts",
	Long: `vigil - analytics checks with classified alerts.

vigil runs a list of checks against an event table. A check is a query,
either written out or generated from a plain-language description. Rows a
check returns are classified as a problem, an opportunity, an insight or
noise, and everything that is not noise is sent to Slack.

Available commands:
  run     - Run all checks once
  watch   - Run checks on an interval
  checks  - List and validate check definitions
  schema  - Describe the target table
  usage   - Show generation usage and cost
  am      - Manage configuration ("I am")

Examples:
  vigil checks validate    # Validate checks.yaml
  vigil run                # Run all checks once
  vigil watch              # Keep running on an interval
  vigil am show            # Show current configuration`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbosity, _ := cmd.Flags().GetCount("verbose")
		logJSON, _ := cmd.Flags().GetBool("log-json")
		if err := logger.Initialize(logJSON, verbosity); err != nil {
			return errors.Wrap(err, "failed to initialize logger")
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Cleanup()
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv, -vvv)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Emit logs as JSON on stderr")
	rootCmd.PersistentFlags().StringVar(&commands.ConfigFile, "config", "", "Config file (skips the am.toml search)")

	rootCmd.AddCommand(commands.RunCmd)
	rootCmd.AddCommand(commands.WatchCmd)
	rootCmd.AddCommand(commands.ChecksCmd)
	rootCmd.AddCommand(commands.SchemaCmd)
	rootCmd.AddCommand(commands.UsageCmd)
	rootCmd.AddCommand(commands.AmCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		for _, hint := range errors.GetAllHints(err) {
			fmt.Fprintln(os.Stderr, "Hint:", hint)
		}
		os.Exit(1)
	}
}
