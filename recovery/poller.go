package recovery

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/syncq/id"
)

// Resubmitter re-submits failed jobs to the queue. The queue engine's
// RetryFailedJobs satisfies it.
type Resubmitter interface {
	RetryFailedJobs(ctx context.Context, jobIDs ...id.JobID) (int, error)
}

// Poller periodically asks the manager for errors whose retry time has
// arrived, advances each through RetryError, and re-submits the backing
// job when another retry was granted.
type Poller struct {
	manager  *Manager
	resubmit Resubmitter
	interval time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
}

// NewPoller creates a retry poller. An interval of zero or less falls
// back to one second.
func NewPoller(m *Manager, rs Resubmitter, interval time.Duration, logger *slog.Logger) *Poller {
	if interval <= 0 {
		interval = time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{manager: m, resubmit: rs, interval: interval, logger: logger}
}

// Start launches the polling loop. Starting a running poller is a
// no-op.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	go p.loop(ctx, p.stopCh, p.doneCh)
}

// Stop halts the polling loop and waits for the in-flight sweep to
// finish.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()

	close(stopCh)
	<-doneCh
}

func (p *Poller) loop(ctx context.Context, stopCh, doneCh chan struct{}) {
	defer close(doneCh)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Sweep(ctx)
		}
	}
}

// Sweep runs one poll pass: every ready error is advanced, and jobs
// granted another retry are re-submitted to the queue. It returns the
// number of jobs re-submitted. Exposed for tests and manual triggering.
func (p *Poller) Sweep(ctx context.Context) int {
	ready, err := p.manager.ErrorsReadyForRetry(ctx)
	if err != nil {
		p.logger.Error("list ready errors", slog.String("error", err.Error()))
		return 0
	}

	var resubmitted int
	for _, serr := range ready {
		again, err := p.manager.RetryError(ctx, serr.ID)
		if err != nil {
			p.logger.Error("retry error",
				slog.String("error_id", serr.ID.String()),
				slog.String("error", err.Error()),
			)
			continue
		}
		if !again {
			continue
		}
		if serr.JobID.IsNil() {
			continue
		}
		n, err := p.resubmit.RetryFailedJobs(ctx, serr.JobID)
		if err != nil {
			p.logger.Error("resubmit job",
				slog.String("job_id", serr.JobID.String()),
				slog.String("error", err.Error()),
			)
			continue
		}
		resubmitted += n
	}
	if resubmitted > 0 {
		p.logger.Debug("retry sweep", slog.Int("resubmitted", resubmitted))
	}
	return resubmitted
}
