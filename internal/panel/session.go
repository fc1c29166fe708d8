// Package panel assembles the refresh scheduler, the network facts, the
// connection registry and the action coordinator into one mounted session, and
// exposes the read-only state and toggle callbacks a renderer needs.
package panel

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"tunneldeck/internal/action"
	"tunneldeck/internal/backend"
	"tunneldeck/internal/netinfo"
	"tunneldeck/internal/refresh"
	"tunneldeck/internal/registry"
	tderrors "tunneldeck/pkg/errors"
)

// Options configures a session.
type Options struct {
	Refresh refresh.Config
	// ReloadInterval enables the periodic registry reload when positive.
	ReloadInterval time.Duration
	// Clock drives the refresh scheduler. Defaults to the real clock.
	Clock    clockwork.Clock
	Recorder action.Recorder
}

// State is everything a renderer shows.
type State struct {
	Snapshot            netinfo.Snapshot
	Connections         []backend.Connection
	OpenVPN             registry.OpenVPNState
	IPv6Disabled        bool
	HasActiveConnection bool
	Loaded              bool
	Refreshing          bool
	Phase               refresh.State
}

// Session is one mounted panel.
type Session struct {
	client    *backend.Client
	store     *netinfo.Store
	fetcher   *netinfo.Fetcher
	scheduler *refresh.Scheduler
	registry  *registry.Registry
	reloader  *registry.Reloader
	coord     *action.Coordinator
	logger    *zap.Logger

	mu      sync.Mutex
	subs    map[int]func()
	nextSub int
	mounted bool
	closed  bool
	cancel  context.CancelFunc
}

// New builds an unmounted session on top of client.
func New(client *backend.Client, opts Options, logger *zap.Logger) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Session{
		client: client,
		logger: logger,
		subs:   make(map[int]func()),
	}

	s.store = netinfo.NewStore(s.notify)
	s.fetcher = netinfo.NewFetcher(client, s.store, logger.Named("netinfo"))
	s.scheduler = refresh.New(opts.Clock, s.refreshJob, opts.Refresh, logger.Named("refresh"))
	s.scheduler.OnStateChange(s.notify)
	s.registry = registry.New(client, s.scheduler, logger.Named("registry"))
	s.registry.OnChange(s.notify)
	s.coord = action.NewCoordinator(s.registry, client, s.store, s.scheduler, opts.Recorder, logger.Named("action"))

	if opts.ReloadInterval > 0 {
		reloader, err := registry.NewReloader(s.registry, opts.ReloadInterval, logger.Named("reloader"))
		if err != nil {
			return nil, fmt.Errorf("failed to create registry reloader: %w", err)
		}
		s.reloader = reloader
	}

	return s, nil
}

// Mount loads the registry and starts refreshing. The first fetch runs after
// the debounce delay. An unmounted session can be mounted again; a closed one
// cannot.
func (s *Session) Mount(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("panel is closed: %w", tderrors.ErrSchedulerStopped)
	}
	if s.mounted {
		s.mu.Unlock()
		return fmt.Errorf("panel is already mounted")
	}
	if err := s.scheduler.Start(); err != nil {
		s.mu.Unlock()
		return err
	}
	ctx, cancel := context.WithCancel(ctx)
	s.mounted = true
	s.cancel = cancel
	s.mu.Unlock()

	if err := s.registry.Load(ctx); err != nil {
		s.Unmount()
		return err
	}

	if s.reloader != nil {
		if err := s.reloader.Start(ctx); err != nil {
			s.Unmount()
			return err
		}
	}

	s.scheduler.RequestImmediateRefresh()
	return nil
}

// Unmount cancels the pending timer and stops background work. A fetch that is
// still running completes, but nothing is re-armed afterwards.
func (s *Session) Unmount() {
	s.mu.Lock()
	if !s.mounted {
		s.mu.Unlock()
		return
	}
	s.mounted = false
	cancel := s.cancel
	s.mu.Unlock()

	s.scheduler.Stop()
	if s.reloader != nil && s.reloader.IsRunning() {
		if err := s.reloader.Stop(); err != nil {
			s.logger.Warn("failed to stop registry reloader", zap.Error(err))
		}
	}
	cancel()
}

// Close unmounts the session and stops the scheduler for good. One-shot callers
// that toggle without mounting use it to drop the refresh a toggle requests.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.Unmount()
	s.scheduler.Close()
}

// State returns the current state.
func (s *Session) State() State {
	view := s.registry.View()
	phase := s.scheduler.State()
	return State{
		Snapshot:            s.store.Snapshot(),
		Connections:         view.Connections,
		OpenVPN:             view.OpenVPN,
		IPv6Disabled:        view.IPv6Disabled,
		HasActiveConnection: view.HasActiveConnection(),
		Loaded:              view.Loaded,
		Refreshing:          phase != refresh.Idle,
		Phase:               phase,
	}
}

// Subscribe registers fn to be called after any state change. fn must not block.
// The returned function removes the subscription.
func (s *Session) Subscribe(fn func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// OnToggleConnection brings a connection up or down.
func (s *Session) OnToggleConnection(ctx context.Context, id string, desired bool) error {
	return s.coord.ToggleConnection(ctx, id, desired)
}

// OnToggleIPv6 disables or re-enables IPv6 on the active connection.
func (s *Session) OnToggleIPv6(ctx context.Context, disabled bool) error {
	return s.coord.ToggleIPv6(ctx, disabled)
}

// OnToggleOpenVPN enables or disables OpenVPN support.
func (s *Session) OnToggleOpenVPN(ctx context.Context, enabled bool) error {
	return s.coord.ToggleOpenVPN(ctx, enabled)
}

// Refresh asks for a debounced refresh.
func (s *Session) Refresh() {
	s.scheduler.RequestImmediateRefresh()
}

// Registry exposes the connection registry for lookups.
func (s *Session) Registry() *registry.Registry {
	return s.registry
}

// FetchOnce loads the registry and runs one fetch cycle synchronously, without
// mounting.
func (s *Session) FetchOnce(ctx context.Context) error {
	if err := s.registry.Load(ctx); err != nil {
		return err
	}
	return s.fetcher.Fetch(ctx, newCycleID())
}

func (s *Session) refreshJob(ctx context.Context) error {
	cycleID := newCycleID()
	s.logger.Debug("refresh cycle started", zap.String("cycle_id", cycleID))

	if err := s.fetcher.Fetch(ctx, cycleID); err != nil {
		return err
	}
	return s.registry.ReloadIfStale(ctx)
}

func (s *Session) notify() {
	s.mu.Lock()
	subs := make([]func(), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn()
	}
}

func newCycleID() string {
	return "cycle-" + uuid.NewString()
}
