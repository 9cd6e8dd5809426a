// Package persistence defines the storage collaborators the scheduling core
// depends on. The core reads a snapshot per run and writes nothing except
// run records for the external approval step.
package persistence

import (
	"context"
	"errors"

	"github.com/example/workforce-scheduler/internal/scheduler"
)

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
)

// SnapshotSource loads the immutable read model for a run. A failure here is
// fatal to the run: implementations wrap underlying errors so callers can
// map them to scheduler.ErrDataUnavailable.
type SnapshotSource interface {
	LoadSnapshot(ctx context.Context, window scheduler.Window) (*scheduler.Snapshot, error)
}

// RunRecordSink persists run output for the approval step. The committed
// schedule itself is never written by the core.
type RunRecordSink interface {
	SaveRunRecord(ctx context.Context, rec *scheduler.RunRecord) error
}

// RunRecordSource reads back persisted run records.
type RunRecordSource interface {
	GetRunRecord(ctx context.Context, id string) (*scheduler.RunRecord, error)
}
