package harness

// LogRecord is one captured diagnostics record.
type LogRecord struct {
	Level string `json:"level"`
	Msg   string `json:"msg"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	Scenario string `json:"scenario"`

	// Pass indicates overall success: the pause outcome matched the
	// expectation, the revived graph matched the original and every
	// assertion held.
	Pass bool `json:"pass"`

	// PauseError is the error code Pause failed with, if it failed.
	PauseError string `json:"pause_error,omitempty"`

	// Objs is the number of objs entries written.
	Objs int `json:"objs"`

	// State is the snapshot as indented JSON, without document escaping.
	State string `json:"state,omitempty"`

	// Listeners are the listener lines, "q:id=<id> on:<event> <closure>".
	Listeners []string `json:"listeners,omitempty"`

	// HTML is the paused container element.
	HTML string `json:"html,omitempty"`

	// SnapshotID is the id the paused document was stored under.
	SnapshotID string `json:"snapshot_id,omitempty"`

	// Logs are the diagnostics emitted while pausing and resuming.
	Logs []LogRecord `json:"logs,omitempty"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult(scenario string) *Result {
	return &Result{
		Scenario: scenario,
		Pass:     true,
		Errors:   []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
