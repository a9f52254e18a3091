// Package cleanup runs the periodic maintenance of the session store.
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// runTimeout bounds one scheduled purge.
const runTimeout = time.Minute

// RevocationPurger deletes revocations whose token has expired anyway.
// service.AuthService implements it.
type RevocationPurger interface {
	PurgeRevoked(ctx context.Context) (int64, error)
}

// Purger drops expired revocations on a cron schedule. A failed run is logged
// and the next tick tries again.
type Purger struct {
	target RevocationPurger
	cron   *cron.Cron
	logger *slog.Logger
}

// NewPurger validates schedule (standard five-field cron or a descriptor such
// as "@every 1h") and registers the job. Nothing runs until Start.
func NewPurger(target RevocationPurger, schedule string, logger *slog.Logger) (*Purger, error) {
	// Overlapping runs would just race on the same rows.
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	p := &Purger{
		target: target,
		cron:   c,
		logger: logger,
	}

	if _, err := p.cron.AddFunc(schedule, p.run); err != nil {
		return nil, fmt.Errorf("cleanup: invalid schedule %q: %w", schedule, err)
	}
	return p, nil
}

// Start begins running the schedule in the background.
func (p *Purger) Start() {
	p.cron.Start()
	p.logger.Info("revocation purge scheduled", slog.Time("next", p.next()))
}

// Stop halts the schedule and waits for a running purge to finish, or for ctx
// to expire.
func (p *Purger) Stop(ctx context.Context) error {
	done := p.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce purges immediately and returns how many revocations were removed.
func (p *Purger) RunOnce(ctx context.Context) (int64, error) {
	n, err := p.target.PurgeRevoked(ctx)
	if err != nil {
		return 0, fmt.Errorf("cleanup: purging revocations: %w", err)
	}
	return n, nil
}

func (p *Purger) run() {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	n, err := p.RunOnce(ctx)
	if err != nil {
		p.logger.Error("revocation purge failed", slog.String("error", err.Error()))
		return
	}
	if n > 0 {
		p.logger.Info("purged expired revocations", slog.Int64("count", n))
	}
}

func (p *Purger) next() time.Time {
	entries := p.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}
