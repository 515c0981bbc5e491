package storage

import (
	"context"
	"time"
)

// Run records one completed suite run.
type Run struct {
	ID        int64     `json:"id"`
	StartedAt time.Time `json:"started_at"`
	Suite     string    `json:"suite"`
	OK        bool      `json:"ok"`
	Passed    int       `json:"passed"`
	Failed    int       `json:"failed"`
	Warned    int       `json:"warned"`
	// Findings is the run's findings serialized as JSON.
	Findings []byte `json:"-"`
}

// Store persists verification run history.
type Store interface {
	InsertRun(ctx context.Context, r *Run) error
	ListRuns(ctx context.Context, suiteName string, limit int) ([]*Run, error)
	GetRun(ctx context.Context, id int64) (*Run, error)
	PurgeOldRuns(ctx context.Context, before time.Time) (int64, error)
	Close() error
}
