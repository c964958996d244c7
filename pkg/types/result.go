package types

import (
	"fmt"
	"time"
)

// Outcome is the terminal kind of a run. Callers must handle all three.
type Outcome int

const (
	Success Outcome = iota
	Failure
	Timeout
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case Failure:
		return "failure"
	case Timeout:
		return "timeout"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// MarshalText renders the outcome by name.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Result is what a bounded run reports to its caller.
type Result struct {
	Outcome Outcome `json:"outcome"`
	// Cause is the failure text, rendered verbatim by collaborators.
	Cause string `json:"cause,omitempty"`
	// Err is the underlying error for Failure.
	Err error `json:"-"`
	// Report is set when the run finished, successfully or not.
	Report *Report `json:"report,omitempty"`
	// Elapsed is the wall time the caller waited.
	Elapsed time.Duration `json:"elapsed"`
}

// State is a position in a run's state machine.
type State string

const (
	StateIdle               State = "idle"
	StateReadingWatermark   State = "reading_watermark"
	StateExtracting         State = "extracting"
	StateApplying           State = "applying"
	StateAdvancingWatermark State = "advancing_watermark"
	StateDone               State = "done"
	StateFailed             State = "failed"
)

// Report describes one run.
type Report struct {
	RunID      string        `json:"run_id"`
	Since      time.Time     `json:"since"`
	Watermark  time.Time     `json:"watermark"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	State      State         `json:"state"`
	Tables     []TableReport `json:"tables"`
}

// Applied returns the number of rows applied across all tables.
func (r *Report) Applied() int {
	if r == nil {
		return 0
	}
	n := 0
	for _, t := range r.Tables {
		n += t.Applied
	}
	return n
}

// TableReport describes one table within a run.
type TableReport struct {
	Table      string `json:"table"`
	Extracted  int    `json:"extracted"`
	Applied    int    `json:"applied"`
	FullResync bool   `json:"full_resync"`
}

// VerifyStatus is the per-table verification verdict.
type VerifyStatus string

const (
	Match    VerifyStatus = "match"
	Mismatch VerifyStatus = "mismatch"
)

// Verification holds one table's comparison. Rows are only kept for
// mismatches.
type Verification struct {
	Table      string       `json:"table"`
	Status     VerifyStatus `json:"status"`
	SourceRows []Record     `json:"source_rows,omitempty"`
	TargetRows []Record     `json:"target_rows,omitempty"`
}
