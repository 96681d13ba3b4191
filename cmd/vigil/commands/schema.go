package commands

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/vigil/am"
	"github.com/teranos/vigil/display"
	"github.com/teranos/vigil/sym"
	"github.com/teranos/vigil/warehouse"
)

// SchemaCmd describes the target table
var SchemaCmd = &cobra.Command{
	Use:   "schema",
	Short: sym.Schema + " Describe the target table",
	Long: sym.Schema + ` schema — Describe the target table

Shows the columns that generated queries are written against, in declared
order, and the table's row count.`,
	RunE: runSchema,
}

func init() {
	SchemaCmd.Flags().Bool("json", false, "Output as JSON")
	SchemaCmd.Flags().String("table", "", "Describe another table, as table, schema.table or catalog.schema.table")
}

func runSchema(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	whCfg, err := schemaTarget(cmd, cfg.Warehouse)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	store, err := warehouse.Open(ctx, whCfg)
	if err != nil {
		return err
	}
	defer store.Close()

	info, err := store.TableInfo(ctx)
	if err != nil {
		return err
	}

	if display.ShouldOutputJSON(cmd) {
		return display.OutputJSON(cmd.OutOrStdout(), struct {
			Table string `json:"table"`
			*warehouse.TableInfo
		}{store.TableRef().String(), info})
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %s (%d rows)\n\n", sym.Schema, store.TableRef(), info.RowCount)
	data := pterm.TableData{{"#", "COLUMN", "TYPE"}}
	for i, col := range info.Schema {
		data = append(data, []string{fmt.Sprintf("%d", i+1), col.Name, col.Type})
	}
	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}
	fmt.Fprintln(out, table)
	return nil
}

// schemaTarget applies --table over the configured table reference
func schemaTarget(cmd *cobra.Command, cfg am.WarehouseConfig) (am.WarehouseConfig, error) {
	table, _ := cmd.Flags().GetString("table")
	if table == "" {
		return cfg, nil
	}
	ref, err := warehouse.ParseTableRef(table)
	if err != nil {
		return cfg, err
	}
	return ref.ApplyTo(cfg), nil
}
