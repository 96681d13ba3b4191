package runner

import (
	"encoding/json"
	"time"

	"github.com/teranos/vigil/classifier"
	"github.com/teranos/vigil/errors"
	"github.com/teranos/vigil/warehouse"
)

// State is the terminal state of one check
type State string

const (
	StatePassed           State = "passed"
	StateAlerted          State = "alerted"
	StateClassifiedSilent State = "classified_silent"
	StateFailed           State = "failed"
)

// Outcome is the result of one check. Exactly one is produced per definition.
type Outcome struct {
	Check          string                     `json:"check"`
	State          State                      `json:"state"`
	SQL            string                     `json:"sql,omitempty"`
	GeneratedSQL   bool                       `json:"generated_sql,omitempty"`
	Results        warehouse.ResultSet        `json:"results"`
	RowCount       int                        `json:"row_count"`
	Classification *classifier.Classification `json:"classification,omitempty"`
	Error          string                     `json:"error,omitempty"`
	ErrorKind      string                     `json:"error_kind,omitempty"`
	Delivered      bool                       `json:"delivered,omitempty"`
	DeliveryError  string                     `json:"delivery_error,omitempty"`
	DurationMS     int64                      `json:"duration_ms"`

	// Err and DeliveryErr keep the typed errors for errors.Is
	Err         error `json:"-"`
	DeliveryErr error `json:"-"`
}

func (o *Outcome) fail(err error) {
	o.State = StateFailed
	o.Err = err
	o.Error = err.Error()
	o.ErrorKind = errors.Kind(err)
}

// MarshalJSON writes results for every check that got past its query, as []
// when no rows came back. A check that failed before querying has none.
func (o Outcome) MarshalJSON() ([]byte, error) {
	type outcome Outcome
	if o.Results != nil || o.State != StateFailed {
		if o.Results == nil {
			o.Results = warehouse.ResultSet{}
		}
		return json.Marshal(outcome(o))
	}
	return json.Marshal(struct {
		outcome
		Results *warehouse.ResultSet `json:"results,omitempty"`
	}{outcome: outcome(o)})
}

// Run is one execution of a set of checks
type Run struct {
	ID         string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Outcomes   []Outcome `json:"outcomes"`
}

// Counts tallies outcomes by state
func (r *Run) Counts() map[State]int {
	counts := map[State]int{
		StatePassed:           0,
		StateAlerted:          0,
		StateClassifiedSilent: 0,
		StateFailed:           0,
	}
	for _, o := range r.Outcomes {
		counts[o.State]++
	}
	return counts
}

// Failed reports whether any check failed
func (r *Run) Failed() bool {
	for _, o := range r.Outcomes {
		if o.State == StateFailed {
			return true
		}
	}
	return false
}
