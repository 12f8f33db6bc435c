package dlq

import (
	"context"
	"time"

	"github.com/xraph/syncq/id"
)

// ListOpts controls filtering and pagination for dead letter queries.
type ListOpts struct {
	// Status filters by entry status. Empty means all statuses.
	Status Status
	// Limit is the maximum number of entries to return. Zero means no limit.
	Limit int
	// Offset is the number of entries to skip.
	Offset int
}

// Store defines the persistence contract for the dead letter store.
type Store interface {
	// PushDLQ adds a new entry in pending status.
	PushDLQ(ctx context.Context, entry *Entry) error

	// GetDLQ retrieves an entry by ID.
	GetDLQ(ctx context.Context, entryID id.DLQID) (*Entry, error)

	// UpdateDLQ persists changes to an existing entry.
	UpdateDLQ(ctx context.Context, entry *Entry) error

	// ListDLQ returns entries matching the given options, oldest first.
	ListDLQ(ctx context.Context, opts ListOpts) ([]*Entry, error)

	// PurgeDLQ removes resolved entries processed before the given
	// time. Returns the number of entries removed.
	PurgeDLQ(ctx context.Context, before time.Time) (int, error)

	// CountDLQ returns the number of entries matching the status.
	// An empty status counts everything.
	CountDLQ(ctx context.Context, status Status) (int64, error)
}
