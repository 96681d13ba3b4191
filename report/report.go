// Package report renders a run's outcomes as a console table or JSON and
// ships the JSON form to files or object storage.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pterm/pterm"

	"github.com/teranos/vigil/errors"
	"github.com/teranos/vigil/runner"
	"github.com/teranos/vigil/sym"
)

// Format is a report rendering
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
)

// ParseFormat accepts "table" or "json"; empty means table
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatTable:
		return FormatTable, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", errors.NewConfigError("unknown report format %q (supported: table, json)", s)
	}
}

// Document is the JSON shape of a run report
type Document struct {
	RunID      string               `json:"run_id"`
	StartedAt  time.Time            `json:"started_at"`
	FinishedAt time.Time            `json:"finished_at"`
	Summary    map[runner.State]int `json:"summary"`
	Outcomes   []runner.Outcome     `json:"outcomes"`
}

// NewDocument builds the report document for run
func NewDocument(run *runner.Run) Document {
	outcomes := run.Outcomes
	if outcomes == nil {
		outcomes = []runner.Outcome{}
	}
	return Document{
		RunID:      run.ID,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
		Summary:    run.Counts(),
		Outcomes:   outcomes,
	}
}

// Marshal renders the JSON report
func Marshal(run *runner.Run) ([]byte, error) {
	data, err := json.MarshalIndent(NewDocument(run), "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal report")
	}
	return data, nil
}

// Write renders run to w in the given format
func Write(w io.Writer, run *runner.Run, format Format) error {
	switch format {
	case FormatJSON:
		data, err := Marshal(run)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case FormatTable, "":
		return writeTable(w, run)
	default:
		return errors.Newf("unknown report format %q", format)
	}
}

// WriteFile writes the report to path, creating parent directories
func WriteFile(path string, run *runner.Run, format Format) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "failed to create report directory %s", dir)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create report file %s", path)
	}
	if err := Write(f, run, format); err != nil {
		f.Close()
		return err
	}
	return errors.Wrap(f.Close(), "failed to close report file")
}

const detailWidth = 60

func writeTable(w io.Writer, run *runner.Run) error {
	data := pterm.TableData{{"CHECK", "STATE", "ROWS", "CATEGORY", "SEVERITY", "DETAIL", "TIME"}}
	for _, o := range run.Outcomes {
		var category, severity, detail string
		if o.Classification != nil {
			category = o.Classification.Category.Title()
			severity = o.Classification.Severity.Title()
			detail = o.Classification.Title
		}
		switch {
		case o.State == runner.StateFailed:
			detail = o.Error
		case o.DeliveryError != "":
			detail += " (delivery failed)"
		}
		data = append(data, []string{
			o.Check,
			sym.StateGlyph(string(o.State)) + " " + string(o.State),
			fmt.Sprintf("%d", o.RowCount),
			category,
			severity,
			truncate(detail, detailWidth),
			fmt.Sprintf("%dms", o.DurationMS),
		})
	}

	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return errors.Wrap(err, "failed to render report table")
	}

	counts := run.Counts()
	_, err = fmt.Fprintf(w, "%s\nRun %s: %d checks, %d passed, %d alerted, %d silent, %d failed\n",
		table, run.ID, len(run.Outcomes),
		counts[runner.StatePassed], counts[runner.StateAlerted],
		counts[runner.StateClassifiedSilent], counts[runner.StateFailed])
	return err
}

func truncate(s string, maxLen int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}
