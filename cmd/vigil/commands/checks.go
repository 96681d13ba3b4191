package commands

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/vigil/display"
	"github.com/teranos/vigil/sym"
)

// ChecksCmd inspects the checks file
var ChecksCmd = &cobra.Command{
	Use:   "checks",
	Short: sym.Checks + " Inspect check definitions",
	Long: sym.Checks + ` checks — Inspect check definitions

Examples:
  vigil checks list                   # List checks in run order
  vigil checks validate               # Validate the checks file
  vigil checks validate --checks x.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var checksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List checks in run order",
	RunE:  runChecksList,
}

var checksValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the checks file",
	RunE:  runChecksValidate,
}

func init() {
	ChecksCmd.PersistentFlags().String("checks", "", "Checks file (default run.checks_file)")
	checksListCmd.Flags().Bool("json", false, "Output as JSON")

	ChecksCmd.AddCommand(checksListCmd)
	ChecksCmd.AddCommand(checksValidateCmd)
}

func runChecksList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	_, defs, err := loadChecks(cmd, cfg)
	if err != nil {
		return err
	}

	if display.ShouldOutputJSON(cmd) {
		return display.OutputJSON(cmd.OutOrStdout(), defs)
	}

	data := pterm.TableData{{"#", "NAME", "QUERY", "DESCRIPTION"}}
	for i, d := range defs {
		query := "generated"
		if d.HasSQL() {
			query = "explicit"
		}
		data = append(data, []string{fmt.Sprintf("%d", i+1), d.Name, query, d.Description})
	}
	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), table)
	return nil
}

func runChecksValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	path, defs, err := loadChecks(cmd, cfg)
	if err != nil {
		return err
	}

	generated := 0
	for _, d := range defs {
		if !d.HasSQL() {
			generated++
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %d checks are valid (%d with generated SQL)\n", sym.Passed, path, len(defs), generated)
	return nil
}
