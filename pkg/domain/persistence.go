package domain

import (
	"context"
	"errors"
)

// ErrRunNotFound is returned by stores when a run id is unknown.
var ErrRunNotFound = errors.New("run not found")

// RunStore persists completed run reports. Implementations keep an in-memory
// index so reads never fail; writes may fail on the durable backend.
type RunStore interface {
	// SaveRun inserts or replaces the run with the same ID.
	SaveRun(ctx context.Context, run Run) error
	GetRun(id string) (Run, bool)
	// ListRuns returns runs ordered by start time, newest first.
	ListRuns() []Run
	DeleteRun(ctx context.Context, id string) error
	Close() error
}
