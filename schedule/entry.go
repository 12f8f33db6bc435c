package schedule

import (
	"time"

	"github.com/xraph/syncq/job"
)

// Entry is one recurring enqueue: a cron expression paired with the
// job it produces. Entries are identified by name; adding an entry
// under an existing name replaces it.
type Entry struct {
	// Name uniquely identifies the entry within a Scheduler.
	Name string

	// Spec is the cron expression, e.g. "*/5 * * * *" or "@every 1m".
	Spec string

	// JobType is the job type enqueued on each firing.
	JobType string

	// Payload is handed to every enqueued job unchanged.
	Payload []byte

	// Enabled entries fire; disabled entries are kept but skipped.
	Enabled bool

	// LastRunAt is when the entry last fired, nil before the first
	// firing.
	LastRunAt *time.Time

	// NextRunAt is the next due time, derived from Spec.
	NextRunAt time.Time

	opts []job.Option
}
