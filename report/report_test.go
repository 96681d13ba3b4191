package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/vigil/classifier"
	"github.com/teranos/vigil/errors"
	"github.com/teranos/vigil/runner"
	"github.com/teranos/vigil/warehouse"
)

func sampleRun() *runner.Run {
	started := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)
	return &runner.Run{
		ID:         "7d7f3c2e-5a8b-4f0e-9b7a-2f1c3d4e5f60",
		StartedAt:  started,
		FinishedAt: started.Add(4 * time.Second),
		Outcomes: []runner.Outcome{
			{Check: "missing_user_ids", State: runner.StatePassed, SQL: "SELECT 1 WHERE FALSE", DurationMS: 12},
			{
				Check:    "purchase_drop",
				State:    runner.StateAlerted,
				SQL:      "SELECT event_date, purchases FROM daily",
				RowCount: 1,
				Results: warehouse.ResultSet{
					{Columns: []string{"event_date", "purchases"}, Values: []any{"20260228", int64(0)}},
				},
				Classification: &classifier.Classification{
					Category:    classifier.CategoryProblemCritical,
					Severity:    classifier.SeverityHigh,
					Title:       "Purchase tracking stopped",
					CheckName:   "purchase_drop",
					ResultCount: 1,
				},
				Delivered:  true,
				DurationMS: 2300,
			},
			{
				Check:     "broken",
				State:     runner.StateFailed,
				Error:     "execute query: no such table: evnts",
				ErrorKind: "query",
				Err:       errors.New("execute query: no such table: evnts"),
			},
		},
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatTable, f)

	f, err = ParseFormat(" JSON ")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	_, err = ParseFormat("csv")
	require.Error(t, err)
	assert.True(t, errors.IsConfigError(err))
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleRun(), FormatJSON))

	var doc struct {
		RunID    string         `json:"run_id"`
		Summary  map[string]int `json:"summary"`
		Outcomes []struct {
			Check          string           `json:"check"`
			State          string           `json:"state"`
			Error          string           `json:"error"`
			Results        []map[string]any `json:"results"`
			Classification *struct {
				Category string `json:"category"`
			} `json:"classification"`
		} `json:"outcomes"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))

	assert.Equal(t, "7d7f3c2e-5a8b-4f0e-9b7a-2f1c3d4e5f60", doc.RunID)
	assert.Equal(t, map[string]int{"passed": 1, "alerted": 1, "classified_silent": 0, "failed": 1}, doc.Summary)
	require.Len(t, doc.Outcomes, 3)
	assert.Equal(t, "missing_user_ids", doc.Outcomes[0].Check)
	assert.Nil(t, doc.Outcomes[0].Classification)
	assert.Equal(t, "problem_critical", doc.Outcomes[1].Classification.Category)
	assert.Equal(t, "20260228", doc.Outcomes[1].Results[0]["event_date"])
	assert.Equal(t, "execute query: no such table: evnts", doc.Outcomes[2].Error)
	assert.NotContains(t, buf.String(), `"Err"`)
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleRun(), FormatTable))

	out := buf.String()
	for _, want := range []string{
		"CHECK", "missing_user_ids", "purchase_drop", "Problem Critical", "High",
		"Purchase tracking stopped", "no such table: evnts",
		"3 checks, 1 passed, 1 alerted, 0 silent, 1 failed",
	} {
		assert.Contains(t, out, want)
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "run.json")

	require.NoError(t, WriteFile(path, sampleRun(), FormatJSON))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"run_id": "7d7f3c2e-5a8b-4f0e-9b7a-2f1c3d4e5f60"`)
}

func TestEmptyRunMarshalsOutcomesArray(t *testing.T) {
	data, err := Marshal(&runner.Run{ID: "r"})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"outcomes": []`)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "a b", truncate("a\n  b", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}
