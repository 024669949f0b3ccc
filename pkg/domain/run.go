package domain

import (
	"time"

	"github.com/google/uuid"
)

// RunID uniquely identifies a persisted pipeline run.
// It wraps uuid.UUID to provide type safety at the domain layer.
type RunID uuid.UUID

// String returns the canonical textual representation of the ID.
func (id RunID) String() string { return uuid.UUID(id).String() }

// MarshalText encodes the ID in its canonical form, so it reads as a string
// in JSON documents and job arguments.
func (id RunID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

// UnmarshalText decodes an ID encoded by MarshalText.
func (id *RunID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b) //nolint: wrapcheck
}

// ParseRunID parses the textual representation of a RunID.
func ParseRunID(s string) (RunID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return RunID{}, err //nolint: wrapcheck
	}

	return RunID(id), nil
}

// RunStatus represents the lifecycle state of a persisted run.
type RunStatus string

const (
	// RunStatusPending indicates the run has been enqueued but not picked up yet.
	RunStatusPending RunStatus = "PENDING"
	// RunStatusRunning indicates a worker is executing the pipeline.
	RunStatusRunning RunStatus = "RUNNING"
	// RunStatusCompleted indicates the pipeline finished and a result is available.
	RunStatusCompleted RunStatus = "COMPLETED"
	// RunStatusFailed indicates the run ended with an error; see LastError.
	RunStatusFailed RunStatus = "FAILED"
)

// ScannerKind selects the external tool used by the scan stage.
type ScannerKind string

const (
	// ScannerXSS feeds candidates to the XSS scanner (dalfox).
	ScannerXSS ScannerKind = "dalfox"
	// ScannerParams feeds candidates to the parameter discovery scanner (arjun).
	ScannerParams ScannerKind = "arjun"
	// ScannerNone skips the scan stage.
	ScannerNone ScannerKind = "none"
)

// Request holds everything a single pipeline run needs to know.
type Request struct {
	// Target is the domain or URL given by the user.
	Target string `json:"target"`
	// BlindURL is the optional blind XSS callback forwarded to the XSS scanner.
	BlindURL string `json:"blindUrl,omitempty"`
	// OutputPath is where the final lines are written; empty means stdout.
	OutputPath string `json:"outputPath,omitempty"`
	// AllowSubdomains lets the live crawler follow subdomains of the target.
	AllowSubdomains bool `json:"allowSubdomains,omitempty"`
	// MaxPages caps the number of pages fetched by the built-in crawler.
	MaxPages int `json:"maxPages,omitempty"`
	// Filter enables the pattern filter stage.
	Filter bool `json:"filter,omitempty"`
	// Scanner selects the scan stage tool.
	Scanner ScannerKind `json:"scanner"`
	// KeepGoing turns tool failures into empty stage output instead of stopping.
	KeepGoing bool `json:"keepGoing,omitempty"`
}

// Target is the parsed form of Request.Target.
type Target struct {
	// Domain is the bare host name, as expected by archive harvesters.
	Domain string
	// URL is the absolute URL used as crawl starting point.
	URL string
}

// StageReport summarizes one pipeline stage.
type StageReport struct {
	Stage    string        `json:"stage"`
	Input    int           `json:"input"`
	Output   int           `json:"output"`
	Duration time.Duration `json:"duration"`
	Skipped  bool          `json:"skipped,omitempty"`
}

// Result is the outcome of a pipeline run.
type Result struct {
	// URLs is the merged, deduplicated output of the collector.
	URLs []string `json:"urls"`
	// Candidates is the output of the pattern filter (equal to URLs when disabled).
	Candidates []string `json:"candidates"`
	// Lines is the output of the final executed stage.
	Lines []string `json:"lines"`
	// Stages reports each stage in execution order.
	Stages []StageReport `json:"stages"`
}

// Run is the persisted record of a pipeline run.
type Run struct {
	// ID is the unique identifier of the run.
	ID RunID `json:"id"`
	// Target is the normalized target domain, used to look runs up.
	Target string `json:"target"`
	// Request is the request the run was started with.
	Request Request `json:"request"`
	// Status is the current lifecycle state of the run.
	Status RunStatus `json:"status"`
	// Result is the pipeline result once the run completed.
	Result Result `json:"result"`

	// Attempts is the number of times a worker has tried to execute this run.
	Attempts uint `json:"attempts"`
	// LastError stores the most recent error message, if any.
	LastError string `json:"lastError,omitempty"`

	// CreatedAt is the time when the run was created.
	CreatedAt time.Time `json:"createdAt"`
	// UpdatedAt is the time when the run was last updated.
	UpdatedAt time.Time `json:"updatedAt"`
}
