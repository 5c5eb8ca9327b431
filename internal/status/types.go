package status

import "time"

// RunPhase represents the current phase of a scheduled run type
type RunPhase string

const (
	// RunPhaseRunning means a run is currently in progress
	RunPhaseRunning RunPhase = "Running"

	// RunPhaseComplete means the last run finished and every course succeeded or was skipped
	RunPhaseComplete RunPhase = "Complete"

	// RunPhaseFailed means the last run failed or some course failed
	RunPhaseFailed RunPhase = "Failed"
)

// RunStatus represents the state of one run type (full, unlock)
type RunStatus struct {
	// Phase represents the current run phase
	Phase RunPhase `json:"phase"`

	// Message provides additional information about the run status
	Message string `json:"message,omitempty"`

	// LastAttempt is the timestamp of the last run attempt
	LastAttempt *time.Time `json:"lastAttempt,omitempty"`

	// AttemptCount is the number of attempts since the last success
	AttemptCount int `json:"attemptCount,omitempty"`

	// LastSuccess is the timestamp of the last successful run
	LastSuccess *time.Time `json:"lastSuccess,omitempty"`

	// LastSummary digests the outcome of the last finished run
	LastSummary *SummaryDigest `json:"lastSummary,omitempty"`

	// Schedule is the run interval from configuration (e.g., "30m", "1h").
	// Empty for run types that are only triggered manually.
	Schedule string `json:"schedule,omitempty"`
}

// SummaryDigest holds the course counts of a finished run
type SummaryDigest struct {
	Total     int    `json:"total"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
	Skipped   int    `json:"skipped"`
	Elapsed   string `json:"elapsed,omitempty"`
}

// IsRunning reports whether a run of this type is in progress
func (s *RunStatus) IsRunning() bool {
	return s != nil && s.Phase == RunPhaseRunning
}
