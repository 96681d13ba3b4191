package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/vigil/am"
	"github.com/teranos/vigil/errors"
	"github.com/teranos/vigil/logger"
	"github.com/teranos/vigil/report"
	"github.com/teranos/vigil/runner"
	"github.com/teranos/vigil/sym"
)

// RunCmd runs every check once
var RunCmd = &cobra.Command{
	Use:   "run",
	Short: sym.Run + " Run all checks once",
	Long: sym.Run + ` run — Run all checks once

Each check resolves its query (generated from the description when no sql is
given), runs it against the warehouse, classifies any rows it returns and
sends an alert for findings that are not noise. A failing check is reported
and the run moves on to the next one.

Examples:
  vigil run                          # Run checks.yaml, print a table
  vigil run --checks nightly.yaml    # Run another checks file
  vigil run --json                   # Print the report as JSON
  vigil run --output out/run.json    # Write the report to a file
  vigil run --strict                 # Exit non-zero if any check failed`,
	RunE: runRun,
}

func init() {
	RunCmd.Flags().String("checks", "", "Checks file (default run.checks_file)")
	RunCmd.Flags().Bool("json", false, "Print the report as JSON")
	RunCmd.Flags().StringP("output", "o", "", "Write the report to a file instead of stdout")
	RunCmd.Flags().Bool("strict", false, "Exit with an error if any check failed")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	_, defs, err := loadChecks(cmd, cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := newPipeline(ctx, cfg)
	if err != nil {
		return err
	}
	defer p.Close()

	run := p.runner.Run(ctx, defs)

	opts, err := reportOptionsFromFlags(cmd, cfg)
	if err != nil {
		return err
	}
	if err := emitReport(ctx, cmd.OutOrStdout(), run, opts); err != nil {
		return err
	}
	if logger.ShouldOutput(logger.Verbosity, logger.OutputSQL) {
		printResolvedSQL(cmd.ErrOrStderr(), run)
	}

	if strict, _ := cmd.Flags().GetBool("strict"); strict && run.Failed() {
		return errors.Newf("%d of %d checks failed", run.Counts()[runner.StateFailed], len(run.Outcomes))
	}
	return nil
}

type reportOptions struct {
	format report.Format
	output string
	s3     am.S3Config
}

func reportOptionsFromFlags(cmd *cobra.Command, cfg *am.Config) (reportOptions, error) {
	format, err := report.ParseFormat(cfg.Report.Format)
	if err != nil {
		return reportOptions{}, err
	}
	if jsonFlag, _ := cmd.Flags().GetBool("json"); jsonFlag {
		format = report.FormatJSON
	}
	output := cfg.Report.Output
	if flagOutput, _ := cmd.Flags().GetString("output"); flagOutput != "" {
		output = flagOutput
	}
	return reportOptions{format: format, output: output, s3: cfg.Report.S3}, nil
}

// emitReport prints or writes the run report and uploads it when S3 upload
// is enabled.
func emitReport(ctx context.Context, w io.Writer, run *runner.Run, opts reportOptions) error {
	if opts.output != "" {
		if err := report.WriteFile(opts.output, run, opts.format); err != nil {
			return err
		}
		pterm.Success.Printf("Report written to %s\n", opts.output)
	} else if err := report.Write(w, run, opts.format); err != nil {
		return errors.Wrap(err, "failed to write report")
	}

	if !opts.s3.Enabled {
		return nil
	}
	sink, err := report.NewS3Sink(opts.s3)
	if err != nil {
		return err
	}
	key, err := sink.Upload(ctx, run)
	if err != nil {
		return err
	}
	logger.FromContext(ctx, logger.Logger).Infow("Report uploaded", "bucket", opts.s3.Bucket, "key", key)
	return nil
}

// printResolvedSQL lists the query each check ran, marking generated ones
func printResolvedSQL(w io.Writer, run *runner.Run) {
	for _, out := range run.Outcomes {
		if out.SQL == "" {
			continue
		}
		source := "explicit"
		if out.GeneratedSQL {
			source = "generated"
		}
		fmt.Fprintf(w, "%s %s (%s)\n%s\n\n", sym.StateGlyph(string(out.State)), out.Check, source, out.SQL)
	}
}
