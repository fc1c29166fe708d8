package registry

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"tunneldeck/internal/backend"
	"tunneldeck/internal/backend/backendtest"
	tderrors "tunneldeck/pkg/errors"
)

const (
	uuidWork = "0b8a3c52-8f6e-4a41-9a4e-0c6f1b1f2a01"
	uuidHome = "5d2e1f10-7a3b-4c9d-8e21-3f4a5b6c7d02"
)

type countingRefresher struct{ n atomic.Int32 }

func (c *countingRefresher) RequestImmediateRefresh() { c.n.Add(1) }

func fakeBackend() *backendtest.Fake {
	return backendtest.New().
		Reply(backend.MethodShow, []backend.Connection{
			{Name: "work", UUID: uuidWork, Type: "vpn"},
			{Name: "Wired connection 1", UUID: "w1", Type: "802-3-ethernet", Connected: true},
			{Name: "home", UUID: uuidHome, Type: "wireguard", Connected: true},
			{Name: "Home", UUID: "h2", Type: "vpn"},
			{Name: "cafe", UUID: "c1", Type: "802-11-wireless"},
		}).
		Reply(backend.MethodActiveConnection, map[string]any{
			"name": "Wired connection 1", "uuid": "w1", "type": "802-3-ethernet",
			"connected": true, "ipv6_disabled": true,
		}).
		Reply(backend.MethodIsOpenVPNInstalled, true).
		Reply(backend.MethodIsOpenVPNEnabled, true).
		Reply(backend.MethodUp, nil).
		Reply(backend.MethodDown, nil)
}

func TestFilter(t *testing.T) {
	tests := []struct {
		name  string
		in    []backend.Connection
		names []string
	}{
		{
			name:  "empty",
			in:    nil,
			names: []string{},
		},
		{
			name: "drops non vpn types",
			in: []backend.Connection{
				{Name: "eth", Type: "802-3-ethernet"},
				{Name: "wg", Type: "wireguard"},
				{Name: "bridge", Type: "bridge"},
			},
			names: []string{"wg"},
		},
		{
			name: "case sensitive byte order",
			in: []backend.Connection{
				{Name: "beta", Type: "vpn"},
				{Name: "Alpha", Type: "vpn"},
				{Name: "alpha", Type: "wireguard"},
				{Name: "Beta", Type: "wireguard"},
			},
			names: []string{"Alpha", "Beta", "alpha", "beta"},
		},
		{
			name: "stable for equal names",
			in: []backend.Connection{
				{Name: "dup", UUID: "1", Type: "vpn"},
				{Name: "a", UUID: "x", Type: "vpn"},
				{Name: "dup", UUID: "2", Type: "wireguard"},
			},
			names: []string{"a", "dup", "dup"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filter(tt.in)
			names := make([]string, 0, len(got))
			for _, c := range got {
				names = append(names, c.Name)
			}
			require.Equal(t, tt.names, names)
		})
	}

	got := Filter([]backend.Connection{
		{Name: "dup", UUID: "1", Type: "vpn"},
		{Name: "dup", UUID: "2", Type: "wireguard"},
	})
	require.Equal(t, "1", got[0].UUID)
	require.Equal(t, "2", got[1].UUID)
}

func TestLoad(t *testing.T) {
	r := New(backend.NewClient(fakeBackend()), nil, zaptest.NewLogger(t))
	require.False(t, r.Loaded())

	require.NoError(t, r.Load(context.Background()))

	v := r.View()
	require.True(t, v.Loaded)
	require.Len(t, v.Connections, 3)
	require.Equal(t, []string{"Home", "home", "work"}, []string{v.Connections[0].Name, v.Connections[1].Name, v.Connections[2].Name})
	require.True(t, v.HasActiveConnection())
	require.Equal(t, "w1", v.Active.UUID)
	require.True(t, v.IPv6Disabled)
	require.Equal(t, OpenVPNState{Installed: true, Enabled: true, Disabled: false}, v.OpenVPN)
}

func TestLoad_OpenVPNNotInstalledSkipsEnabledQuery(t *testing.T) {
	fake := fakeBackend().Reply(backend.MethodIsOpenVPNInstalled, false)
	r := New(backend.NewClient(fake), nil, zap.NewNop())

	require.NoError(t, r.Load(context.Background()))

	require.Equal(t, OpenVPNState{Installed: false, Enabled: false, Disabled: true}, r.View().OpenVPN)
	require.Zero(t, fake.Count(backend.MethodIsOpenVPNEnabled))
}

func TestLoad_OpenVPNEnabledQueryFails(t *testing.T) {
	fake := fakeBackend().Fail(backend.MethodIsOpenVPNEnabled, errors.New("pacman: lock held"))
	r := New(backend.NewClient(fake), nil, zap.NewNop())

	require.NoError(t, r.Load(context.Background()))

	ovpn := r.View().OpenVPN
	require.False(t, ovpn.Enabled)
	require.False(t, ovpn.Disabled, "toggle must stay interactive")
	require.True(t, ovpn.Installed)
}

func TestLoad_OpenVPNInstallCheckFails(t *testing.T) {
	fake := fakeBackend().Fail(backend.MethodIsOpenVPNInstalled, errors.New("timeout"))
	r := New(backend.NewClient(fake), nil, zap.NewNop())

	require.NoError(t, r.Load(context.Background()))

	require.False(t, r.View().OpenVPN.Disabled)
	require.Zero(t, fake.Count(backend.MethodIsOpenVPNEnabled))
}

func TestLoad_FailureKeepsPriorState(t *testing.T) {
	fake := fakeBackend()
	r := New(backend.NewClient(fake), nil, zap.NewNop())
	require.NoError(t, r.Load(context.Background()))

	boom := errors.New("backend restarting")
	fake.Fail(backend.MethodShow, boom).Fail(backend.MethodActiveConnection, boom)
	require.NoError(t, r.Load(context.Background()))

	v := r.View()
	require.Len(t, v.Connections, 3)
	require.True(t, v.IPv6Disabled)
}

func TestLoad_ReportsCancellation(t *testing.T) {
	r := New(backend.NewClient(fakeBackend()), nil, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, r.Load(ctx), context.Canceled)
	require.True(t, r.Loaded())
}

func TestLoad_NoActiveConnection(t *testing.T) {
	fake := fakeBackend().Reply(backend.MethodActiveConnection, nil)
	r := New(backend.NewClient(fake), nil, zap.NewNop())

	require.NoError(t, r.Load(context.Background()))

	v := r.View()
	require.False(t, v.HasActiveConnection())
	require.False(t, v.IPv6Disabled)
}

func TestToggle(t *testing.T) {
	fake := fakeBackend()
	refresher := &countingRefresher{}
	r := New(backend.NewClient(fake), refresher, zap.NewNop())

	require.NoError(t, r.Toggle(context.Background(), uuidWork, true))

	calls := fake.Calls()
	require.Len(t, calls, 1)
	require.Equal(t, backend.MethodUp, calls[0].Method)
	require.JSONEq(t, `{"uuid":"`+uuidWork+`"}`, string(calls[0].Args))
	require.Equal(t, int32(1), refresher.n.Load())

	require.NoError(t, r.Toggle(context.Background(), uuidHome, false))
	require.Equal(t, 1, fake.Count(backend.MethodDown))
	require.Equal(t, int32(2), refresher.n.Load())
}

func TestToggle_ErrorPropagatesWithoutRefresh(t *testing.T) {
	fake := fakeBackend().Fail(backend.MethodUp, errors.New("secrets required"))
	refresher := &countingRefresher{}
	r := New(backend.NewClient(fake), refresher, zap.NewNop())

	err := r.Toggle(context.Background(), uuidWork, true)
	require.Error(t, err)

	var re *tderrors.RemoteError
	require.ErrorAs(t, err, &re)
	require.Equal(t, backend.MethodUp, re.Method)
	require.Zero(t, refresher.n.Load())
}

func TestToggle_InvalidUUID(t *testing.T) {
	fake := fakeBackend()
	r := New(backend.NewClient(fake), nil, zap.NewNop())

	err := r.Toggle(context.Background(), "not-a-uuid", true)
	require.ErrorIs(t, err, tderrors.ErrInvalidUUID)
	require.Empty(t, fake.Calls())
}

func TestOverlayClearedOnReload(t *testing.T) {
	r := New(backend.NewClient(fakeBackend()), nil, zap.NewNop())
	require.NoError(t, r.Load(context.Background()))

	r.SetConnected(uuidWork, true)
	c, err := r.Find("work")
	require.NoError(t, err)
	require.True(t, c.Connected)

	r.MarkStale()
	require.NoError(t, r.ReloadIfStale(context.Background()))

	c, err = r.Find(uuidWork)
	require.NoError(t, err)
	require.False(t, c.Connected)
}

func TestReloadIfStale(t *testing.T) {
	fake := fakeBackend()
	r := New(backend.NewClient(fake), nil, zap.NewNop())

	require.NoError(t, r.ReloadIfStale(context.Background()))
	require.Zero(t, fake.Count(backend.MethodShow))

	r.MarkStale()
	require.NoError(t, r.ReloadIfStale(context.Background()))
	require.NoError(t, r.ReloadIfStale(context.Background()))
	require.Equal(t, 1, fake.Count(backend.MethodShow))
}

func TestFind_NotFound(t *testing.T) {
	r := New(backend.NewClient(fakeBackend()), nil, zap.NewNop())
	require.NoError(t, r.Load(context.Background()))

	_, err := r.Find("Wired connection 1")
	require.ErrorIs(t, err, tderrors.ErrConnectionNotFound)
}

func TestOnChange(t *testing.T) {
	var changes atomic.Int32
	r := New(backend.NewClient(fakeBackend()), nil, zap.NewNop())
	r.OnChange(func() { changes.Add(1) })

	r.SetIPv6Disabled(true)
	r.SetOpenVPNEnabled(true)
	require.Equal(t, int32(2), changes.Load())
	require.True(t, r.View().IPv6Disabled)
	require.True(t, r.View().OpenVPN.Enabled)
}

func TestReloader(t *testing.T) {
	fake := fakeBackend()
	r := New(backend.NewClient(fake), nil, zap.NewNop())

	rl, err := NewReloader(r, 20*time.Millisecond, zap.NewNop())
	require.NoError(t, err)
	require.ErrorIs(t, rl.Stop(), tderrors.ErrSchedulerStopped)

	require.NoError(t, rl.Start(context.Background()))
	require.True(t, rl.IsRunning())
	require.Error(t, rl.Start(context.Background()))

	require.Eventually(t, func() bool { return fake.Count(backend.MethodShow) >= 2 }, 2*time.Second, 10*time.Millisecond)
	require.True(t, r.Loaded())

	require.NoError(t, rl.Stop())
	require.False(t, rl.IsRunning())
}

func TestReloader_Restart(t *testing.T) {
	fake := fakeBackend()
	r := New(backend.NewClient(fake), nil, zap.NewNop())

	rl, err := NewReloader(r, 20*time.Millisecond, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, rl.Start(context.Background()))
	require.NoError(t, rl.Stop())
	stopped := fake.Count(backend.MethodShow)

	require.NoError(t, rl.Start(context.Background()))
	defer rl.Stop()
	require.Eventually(t, func() bool { return fake.Count(backend.MethodShow) >= stopped+2 }, 2*time.Second, 10*time.Millisecond)
}
