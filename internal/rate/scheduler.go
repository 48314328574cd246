package rate

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
)

// Scheduler refreshes the provider on a fixed recurring schedule for the
// lifetime of the session. A failed refresh is never retried faster than
// the schedule: the next tick is the retry.
type Scheduler struct {
	cron *cron.Cron
}

// NewScheduler registers a refresh job under the given cron spec
// (typically "@hourly").
func NewScheduler(provider *Provider, spec string) (*Scheduler, error) {
	c := cron.New()

	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()

		provider.Refresh(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("registering refresh schedule %q: %w", spec, err)
	}

	return &Scheduler{cron: c}, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop tears the schedule down; it does not interrupt a refresh already
// in flight.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}
