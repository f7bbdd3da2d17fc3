package syncqueue

import (
	"context"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/R3E-Network/offline_gateway/internal/app/system"
	"github.com/R3E-Network/offline_gateway/pkg/logger"
)

var _ system.Service = (*Runner)(nil)

// Runner triggers opportunistic sync passes on a cron schedule, so
// pre-warm failures and stranded mutations recover even when no
// connectivity-restored signal arrives.
type Runner struct {
	service  *Service
	schedule string
	tag      string
	log      *logger.Logger

	mu   sync.Mutex
	cron *cron.Cron
}

// NewRunner creates a lifecycle-managed periodic sync runner.
func NewRunner(service *Service, schedule, tag string, log *logger.Logger) *Runner {
	if log == nil {
		log = logger.NewDefault("sync-runner")
	}
	if schedule == "" {
		schedule = "@every 5m"
	}
	if tag == "" {
		tag = "offline-sync"
	}
	return &Runner{service: service, schedule: schedule, tag: tag, log: log}
}

func (r *Runner) Name() string { return "sync-runner" }

func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cron != nil {
		return nil
	}
	c := cron.New()
	_, err := c.AddFunc(r.schedule, func() {
		if err := r.service.Replay(context.Background(), r.tag); err != nil {
			r.log.WithError(err).Warn("scheduled sync pass failed")
		}
	})
	if err != nil {
		return err
	}
	c.Start()
	r.cron = c
	r.log.WithField("schedule", r.schedule).Info("sync runner started")
	return nil
}

func (r *Runner) Stop(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cron == nil {
		return nil
	}
	stopped := r.cron.Stop()
	r.cron = nil
	select {
	case <-stopped.Done():
	case <-ctx.Done():
	}
	return nil
}
