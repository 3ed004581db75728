// Package model holds the records persisted in the local history database.
package model

import "time"

// Operation status values.
const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// SyncOperation records one push or pull run. The engine never reads these
// back; they exist for `vsync history`.
type SyncOperation struct {
	ID         int64
	OpID       string // per-invocation UUID, also written to the log
	Verb       string // "push" or "pull"
	VaultName  string
	Status     string
	StartedAt  time.Time
	FinishedAt *time.Time
	Detail     string // error text or a short summary
}

// Duration returns how long the operation ran, or zero if it has not finished.
func (o *SyncOperation) Duration() time.Duration {
	if o.FinishedAt == nil {
		return 0
	}
	return o.FinishedAt.Sub(o.StartedAt)
}
