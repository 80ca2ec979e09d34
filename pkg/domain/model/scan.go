package model

import (
	"time"

	"github.com/google/uuid"
)

// ScanID identifies one scan pass
type ScanID string

// NewScanID returns a new random scan ID
func NewScanID() ScanID {
	return ScanID(uuid.NewString())
}

func (id ScanID) String() string {
	return string(id)
}

// Outcome of one target in a scan, shown as the per-target progress indicator
type Outcome string

const (
	OutcomeUpdated Outcome = "updated"
	OutcomeCurrent Outcome = "current"
	OutcomeManual  Outcome = "manual"
	OutcomeFailed  Outcome = "failed"
	OutcomeSkipped Outcome = "skipped"
)

// LedgerEntry is one line of the grouped scan summary
type LedgerEntry struct {
	Name     string `json:"name"`
	Location string `json:"location"`
	VCS      string `json:"vcs"`
}

// ScanFailure records a target whose fetch or comparison failed
type ScanFailure struct {
	TargetID TargetID `json:"target_id"`
	Name     string   `json:"name"`
	Error    string   `json:"error"`
}

// ScanReport is the result of a finished scan
type ScanReport struct {
	ID          ScanID        `json:"id"`
	StartedAt   time.Time     `json:"started_at"`
	FinishedAt  time.Time     `json:"finished_at"`
	TargetCount int           `json:"target_count"`
	UpdateCount int           `json:"update_count"`
	Updated     []LedgerEntry `json:"updated"`
	Manual      []LedgerEntry `json:"manual"`
	Failures    []ScanFailure `json:"failures"`
	Skipped     int           `json:"skipped"`
}

// Duration returns the wall time of the scan
func (r *ScanReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
