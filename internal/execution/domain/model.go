package domain

import "time"

// Record statuses.
const (
	StatusCompleted = "completed"
	StatusTimedOut  = "timed_out"
)

// TimeoutMarker is stored in Record.Error for runs killed by the timeout.
const TimeoutMarker = "timeout"

// TimestampLayout names history artifacts and workspace snapshots. It sorts
// lexicographically in time order.
const TimestampLayout = "20060102_150405.000000"

// Record is one execution, persisted as a JSON artifact and never modified
// after it is written.
type Record struct {
	Timestamp  string `json:"timestamp"`
	Status     string `json:"status"`
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	ReturnCode int    `json:"returncode"`
	Error      string `json:"error,omitempty"`
	FileName   string `json:"fileName"`
}

// TimedOut reports whether the record marks a run killed by the timeout.
func (r Record) TimedOut() bool {
	return r.Status == StatusTimedOut || r.Error == TimeoutMarker
}

// Result is returned to callers of a successful execution.
type Result struct {
	CurrentOutput    Record   `json:"current_output"`
	ExecutionHistory []Record `json:"execution_history"`
	FilePath         string   `json:"file_path"`
}

// NewTimestamp formats t as a record timestamp.
func NewTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// SandboxError is a failure of the execution machinery itself, as opposed to
// a program that ran and failed. It carries the stack captured where the
// failure was detected.
type SandboxError struct {
	Err   error
	Trace string
}

func (e *SandboxError) Error() string { return e.Err.Error() }

func (e *SandboxError) Unwrap() error { return e.Err }
