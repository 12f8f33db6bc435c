package recovery

import (
	"context"
	"time"

	"github.com/xraph/syncq"
	"github.com/xraph/syncq/id"
)

// Store persists recorded errors. Implementations must be safe for
// concurrent use; the in-memory store under store/memory is the
// reference implementation.
type Store interface {
	// PutError inserts a newly recorded error.
	PutError(ctx context.Context, serr *syncq.SyncError) error

	// GetError returns the error with the given ID, or
	// syncq.ErrErrorNotFound.
	GetError(ctx context.Context, errID id.ErrorID) (*syncq.SyncError, error)

	// UpdateError replaces the stored copy of serr.
	UpdateError(ctx context.Context, serr *syncq.SyncError) error

	// ListReadyForRetry returns unresolved errors whose NextRetryAt is
	// set and not after now.
	ListReadyForRetry(ctx context.Context, now time.Time) ([]*syncq.SyncError, error)

	// ListErrors returns all recorded errors, optionally filtered by
	// scope. An empty scopeID matches everything.
	ListErrors(ctx context.Context, scopeID string) ([]*syncq.SyncError, error)

	// PurgeResolvedErrors deletes resolved errors whose ResolvedAt is
	// before the cutoff and reports how many were removed.
	PurgeResolvedErrors(ctx context.Context, before time.Time) (int, error)
}
