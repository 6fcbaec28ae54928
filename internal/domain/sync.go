package domain

import "time"

// SyncOutcome is the terminal state of one merchant sync.
type SyncOutcome string

const (
	// SyncSuccess means customers, linkage, and status were all persisted.
	SyncSuccess SyncOutcome = "success"
	// SyncPartial means customers were persisted but a later step degraded
	// (missing invoice permissions, status write failure, ...).
	SyncPartial SyncOutcome = "partial_success"
	// SyncFailure means nothing was persisted for the merchant.
	SyncFailure SyncOutcome = "failure"
)

// SyncReport summarizes one sync invocation for one merchant.
type SyncReport struct {
	ID          string      `json:"id"`
	MerchantID  string      `json:"merchantId"`
	Outcome     SyncOutcome `json:"outcome"`
	RecordCount int         `json:"recordCount"`
	LinkedCount int         `json:"linkedCount"`
	Reason      string      `json:"reason,omitempty"`
	NextStep    string      `json:"nextStep,omitempty"`
	StartedAt   time.Time   `json:"startedAt"`
	FinishedAt  time.Time   `json:"finishedAt"`
}

// CycleSummary aggregates one scheduler pass over all active merchants.
type CycleSummary struct {
	ID         string       `json:"id"`
	Synced     int          `json:"synced"`
	Refreshed  int          `json:"refreshed"`
	Skipped    int          `json:"skipped"`
	Failed     int          `json:"failed"`
	Reports    []SyncReport `json:"reports,omitempty"`
	StartedAt  time.Time    `json:"startedAt"`
	FinishedAt time.Time    `json:"finishedAt"`
}
