package registry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"

	tderrors "tunneldeck/pkg/errors"
)

// DefaultReloadInterval is how often connections are re-read when nothing else
// triggers a reload.
const DefaultReloadInterval = 30 * time.Second

// Reloader periodically reloads a registry so connections changed outside the
// panel show up.
type Reloader struct {
	scheduler gocron.Scheduler
	opts      []gocron.SchedulerOption
	registry  *Registry
	interval  time.Duration
	logger    *zap.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
}

// NewReloader creates a reloader for registry.
func NewReloader(registry *Registry, interval time.Duration, logger *zap.Logger, opts ...gocron.SchedulerOption) (*Reloader, error) {
	scheduler, err := gocron.NewScheduler(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	if interval <= 0 {
		interval = DefaultReloadInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Reloader{
		scheduler: scheduler,
		opts:      opts,
		registry:  registry,
		interval:  interval,
		logger:    logger,
	}, nil
}

// Start schedules the periodic reload. The first reload happens after one interval.
// A stopped reloader can be started again.
func (r *Reloader) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return fmt.Errorf("reloader is already running")
	}
	if r.scheduler == nil {
		scheduler, err := gocron.NewScheduler(r.opts...)
		if err != nil {
			return fmt.Errorf("failed to create scheduler: %w", err)
		}
		r.scheduler = scheduler
	}

	ctx, cancel := context.WithCancel(ctx)
	_, err := r.scheduler.NewJob(
		gocron.DurationJob(r.interval),
		gocron.NewTask(func() {
			r.reload(ctx)
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithName("registry-reload"),
	)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to create reload job: %w", err)
	}

	r.scheduler.Start()
	r.running = true
	r.cancel = cancel
	return nil
}

// Stop shuts the scheduler down and waits for a running reload to return.
func (r *Reloader) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return tderrors.ErrSchedulerStopped
	}

	r.cancel()
	r.running = false
	scheduler := r.scheduler
	// A shut down gocron scheduler cannot run jobs again.
	r.scheduler = nil
	if err := scheduler.Shutdown(); err != nil {
		return fmt.Errorf("failed to stop scheduler: %w", err)
	}
	return nil
}

// IsRunning returns whether the reloader is running.
func (r *Reloader) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

func (r *Reloader) reload(ctx context.Context) {
	if err := r.registry.Load(ctx); err != nil {
		r.logger.Debug("registry reload interrupted", zap.Error(err))
		return
	}
	r.logger.Debug("registry reloaded", zap.Int("connections", len(r.registry.View().Connections)))
}
