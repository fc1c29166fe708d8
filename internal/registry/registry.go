// Package registry keeps the panel's view of the backend's connections: the
// manageable VPN connections, the active connection and OpenVPN support.
package registry

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"tunneldeck/internal/backend"
	tderrors "tunneldeck/pkg/errors"
)

// Source is the subset of the backend the registry talks to.
type Source interface {
	Show(ctx context.Context) ([]backend.Connection, error)
	ActiveConnection(ctx context.Context) (*backend.Connection, error)
	SetConnection(ctx context.Context, uuid string, up bool) error
	IsOpenVPNInstalled(ctx context.Context) (bool, error)
	IsOpenVPNEnabled(ctx context.Context) (bool, error)
}

// Refresher is notified after a connection changed state on the backend.
type Refresher interface {
	RequestImmediateRefresh()
}

// OpenVPNState describes the OpenVPN toggle.
type OpenVPNState struct {
	Installed bool
	Enabled   bool
	// Disabled means the toggle is not interactive.
	Disabled bool
}

// View is a consistent copy of the registry state.
type View struct {
	Connections  []backend.Connection
	Active       *backend.Connection
	IPv6Disabled bool
	OpenVPN      OpenVPNState
	Loaded       bool
}

// HasActiveConnection reports whether an active wifi/ethernet connection is known.
func (v View) HasActiveConnection() bool {
	return v.Active != nil
}

// Registry caches connection state fetched from the backend.
type Registry struct {
	src       Source
	refresher Refresher
	logger    *zap.Logger

	mu           sync.RWMutex
	connections  []backend.Connection
	active       *backend.Connection
	ipv6Disabled bool
	openvpn      OpenVPNState
	overlay      map[string]bool
	loaded       bool
	stale        bool
	onChange     func()
}

// New creates an empty registry. refresher may be nil.
func New(src Source, refresher Refresher, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		src:       src,
		refresher: refresher,
		logger:    logger,
		overlay:   make(map[string]bool),
	}
}

// OnChange registers fn to be called after the state changes. fn runs outside
// the registry lock.
func (r *Registry) OnChange(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onChange = fn
}

// Filter returns the VPN and WireGuard connections sorted by name. The sort is
// stable and compares names byte-wise.
func Filter(conns []backend.Connection) []backend.Connection {
	out := make([]backend.Connection, 0, len(conns))
	for _, c := range conns {
		if c.Manageable() {
			out = append(out, c)
		}
	}
	slices.SortStableFunc(out, func(a, b backend.Connection) int {
		return strings.Compare(a.Name, b.Name)
	})
	return out
}

// Load refreshes the connection list, the active connection and the OpenVPN
// state concurrently. A failing query is logged and leaves its part of the
// state as it was. Load only returns an error when ctx is done.
func (r *Registry) Load(ctx context.Context) error {
	loadID := "load-" + uuid.NewString()
	logger := r.logger.With(zap.String("load_id", loadID))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		active, err := r.src.ActiveConnection(gctx)
		if err != nil {
			logger.Warn("failed to load active connection", zap.Error(err))
			return gctx.Err()
		}
		r.update(func() {
			r.active = active
			r.ipv6Disabled = active != nil && active.IPv6Disabled != nil && *active.IPv6Disabled
		})
		return gctx.Err()
	})

	g.Go(func() error {
		conns, err := r.src.Show(gctx)
		if err != nil {
			logger.Warn("failed to load connections", zap.Error(err))
			return gctx.Err()
		}
		filtered := Filter(conns)
		r.update(func() {
			r.connections = filtered
			clear(r.overlay)
		})
		logger.Debug("connections loaded", zap.Int("total", len(conns)), zap.Int("shown", len(filtered)))
		return gctx.Err()
	})

	g.Go(func() error {
		r.loadOpenVPN(gctx, logger)
		return gctx.Err()
	})

	err := g.Wait()

	r.update(func() { r.loaded = true })
	return err
}

func (r *Registry) loadOpenVPN(ctx context.Context, logger *zap.Logger) {
	installed, err := r.src.IsOpenVPNInstalled(ctx)
	if err != nil {
		// Unknown install state keeps the toggle usable; the enabled query is skipped.
		logger.Warn("failed to check openvpn install state", zap.Error(err))
		r.update(func() { r.openvpn.Disabled = false })
		return
	}
	if !installed {
		r.update(func() {
			r.openvpn = OpenVPNState{Installed: false, Enabled: false, Disabled: true}
		})
		return
	}

	r.update(func() {
		r.openvpn.Installed = true
		r.openvpn.Disabled = false
	})

	enabled, err := r.src.IsOpenVPNEnabled(ctx)
	if err != nil {
		logger.Warn("failed to check openvpn enabled state", zap.Error(err))
		return
	}
	r.update(func() { r.openvpn.Enabled = enabled })
}

// Toggle brings the connection identified by id up or down. The backend error,
// if any, is returned unchanged. On success the registry is marked stale and an
// immediate refresh is requested.
func (r *Registry) Toggle(ctx context.Context, id string, desired bool) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %q", tderrors.ErrInvalidUUID, id)
	}

	if err := r.src.SetConnection(ctx, id, desired); err != nil {
		return err
	}

	r.MarkStale()
	if r.refresher != nil {
		r.refresher.RequestImmediateRefresh()
	}
	return nil
}

// SetConnected records the expected connected state of a connection until the
// next successful list load.
func (r *Registry) SetConnected(id string, connected bool) {
	r.update(func() { r.overlay[id] = connected })
}

// SetIPv6Disabled sets the local IPv6 flag ahead of the backend confirming it.
func (r *Registry) SetIPv6Disabled(disabled bool) {
	r.update(func() { r.ipv6Disabled = disabled })
}

// SetOpenVPNEnabled sets the local OpenVPN flag ahead of the backend confirming it.
func (r *Registry) SetOpenVPNEnabled(enabled bool) {
	r.update(func() { r.openvpn.Enabled = enabled })
}

// MarkStale schedules a reload on the next ReloadIfStale.
func (r *Registry) MarkStale() {
	r.mu.Lock()
	r.stale = true
	r.mu.Unlock()
}

// ReloadIfStale reloads the registry if MarkStale was called since the last reload.
func (r *Registry) ReloadIfStale(ctx context.Context) error {
	r.mu.Lock()
	stale := r.stale
	r.stale = false
	r.mu.Unlock()

	if !stale {
		return nil
	}
	return r.Load(ctx)
}

// Loaded reports whether Load has completed at least once.
func (r *Registry) Loaded() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loaded
}

// View returns a copy of the current state with pending connection toggles applied.
func (r *Registry) View() View {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]backend.Connection, len(r.connections))
	copy(conns, r.connections)
	for i := range conns {
		if want, ok := r.overlay[conns[i].UUID]; ok {
			conns[i].Connected = want
		}
	}

	var active *backend.Connection
	if r.active != nil {
		a := *r.active
		active = &a
	}

	return View{
		Connections:  conns,
		Active:       active,
		IPv6Disabled: r.ipv6Disabled,
		OpenVPN:      r.openvpn,
		Loaded:       r.loaded,
	}
}

// Find looks a connection up by UUID or exact name.
func (r *Registry) Find(nameOrUUID string) (backend.Connection, error) {
	for _, c := range r.View().Connections {
		if c.UUID == nameOrUUID || c.Name == nameOrUUID {
			return c, nil
		}
	}
	return backend.Connection{}, fmt.Errorf("%w: %s", tderrors.ErrConnectionNotFound, nameOrUUID)
}

func (r *Registry) update(fn func()) {
	r.mu.Lock()
	fn()
	onChange := r.onChange
	r.mu.Unlock()

	if onChange != nil {
		onChange()
	}
}
