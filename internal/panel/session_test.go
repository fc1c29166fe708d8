package panel

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tunneldeck/internal/backend"
	"tunneldeck/internal/backend/backendtest"
	"tunneldeck/internal/netinfo"
	"tunneldeck/internal/refresh"
	tderrors "tunneldeck/pkg/errors"
)

const (
	workUUID = "3f2504e0-4f89-41d3-9a0c-0305e82c3301"
	wait     = 2 * time.Second
	tick     = 5 * time.Millisecond
)

func fakeBackend() *backendtest.Fake {
	return backendtest.New().
		Reply(backend.MethodShow, []backend.Connection{
			{Name: "work", UUID: workUUID, Type: "vpn"},
			{Name: "eth", UUID: "e1", Type: "802-3-ethernet", Connected: true},
		}).
		Reply(backend.MethodActiveConnection, map[string]any{"name": "eth", "uuid": "e1", "type": "802-3-ethernet", "connected": true}).
		Reply(backend.MethodIsOpenVPNInstalled, true).
		Reply(backend.MethodIsOpenVPNEnabled, false).
		Reply(backend.MethodUp, nil).
		Reply(backend.MethodResetCachedData, true).
		Reply(backend.MethodPriorityInterface, map[string]any{"success": true, "data": "tun0", "ip": "10.8.0.2"}).
		Reply(backend.MethodInternetAvailable, map[string]any{"success": true, "data": true}).
		Reply(backend.MethodGatewayAvailable, map[string]any{"success": true, "data": false}).
		Reply(backend.MethodPrioritizedNetworkInfo, map[string]any{"success": true, "data": "GENERAL.DEVICE: tun0\nIP4.GATEWAY: 10.8.0.1\n"})
}

func newSession(t *testing.T, fake *backendtest.Fake) (*Session, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	s, err := New(backend.NewClient(fake), Options{
		Refresh: refresh.DefaultConfig(),
		Clock:   clock,
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(s.Unmount)
	return s, clock
}

func TestMount_LoadsThenRefreshes(t *testing.T) {
	s, clock := newSession(t, fakeBackend())

	var changes atomic.Int32
	unsubscribe := s.Subscribe(func() { changes.Add(1) })
	defer unsubscribe()

	require.NoError(t, s.Mount(context.Background()))

	st := s.State()
	require.True(t, st.Loaded)
	require.Len(t, st.Connections, 1)
	require.True(t, st.HasActiveConnection)
	require.False(t, st.OpenVPN.Disabled)
	require.True(t, st.Refreshing)
	require.True(t, st.Snapshot.IsPending())

	clock.Advance(refresh.DefaultConfig().DebounceDelay)
	require.Eventually(t, func() bool { return !s.State().Refreshing }, wait, tick)

	snap := s.State().Snapshot
	require.Equal(t, "tun0", snap.PriorityInterface)
	require.Equal(t, "10.8.0.2", snap.LANIP)
	require.Equal(t, netinfo.No, snap.GatewayReachable)
	require.Equal(t, netinfo.Yes, snap.InternetReachable)
	require.Equal(t, []string{"GENERAL.DEVICE: tun0", "IP4.GATEWAY: 10.8.0.1"}, snap.DiagnosticLines)
	require.Greater(t, changes.Load(), int32(0))

	require.Error(t, s.Mount(context.Background()), "double mount")
}

func TestToggleReloadsRegistryOnNextRefresh(t *testing.T) {
	fake := fakeBackend()
	s, clock := newSession(t, fake)
	require.NoError(t, s.Mount(context.Background()))
	clock.Advance(refresh.DefaultConfig().DebounceDelay)
	require.Eventually(t, func() bool { return !s.State().Refreshing }, wait, tick)
	require.Equal(t, 1, fake.Count(backend.MethodShow))

	require.NoError(t, s.OnToggleConnection(context.Background(), workUUID, true))

	st := s.State()
	require.True(t, st.Snapshot.IsPending())
	require.True(t, st.Connections[0].Connected, "optimistic flag")
	require.Equal(t, refresh.Scheduled, st.Phase)

	clock.Advance(refresh.DefaultConfig().DebounceDelay)
	require.Eventually(t, func() bool { return fake.Count(backend.MethodShow) == 2 }, wait, tick)
	require.Eventually(t, func() bool { return !s.State().Refreshing }, wait, tick)

	// The backend still reports the connection down; the overlay is gone.
	require.False(t, s.State().Connections[0].Connected)
}

func TestUnmount_StopsRefreshing(t *testing.T) {
	fake := fakeBackend()
	s, clock := newSession(t, fake)
	require.NoError(t, s.Mount(context.Background()))

	s.Unmount()
	s.Unmount()

	clock.Advance(time.Minute)
	require.Zero(t, fake.Count(backend.MethodResetCachedData))
	require.False(t, s.State().Refreshing)
}

func TestRemount_ResumesRefreshing(t *testing.T) {
	fake := fakeBackend()
	s, clock := newSession(t, fake)

	require.NoError(t, s.Mount(context.Background()))
	s.Unmount()
	require.False(t, s.scheduler.Pending())

	require.NoError(t, s.Mount(context.Background()))
	require.True(t, s.scheduler.Pending())

	clock.Advance(refresh.DefaultConfig().DebounceDelay)
	require.Eventually(t, func() bool { return fake.Count(backend.MethodResetCachedData) == 1 }, wait, tick)
	require.Eventually(t, func() bool { return !s.State().Refreshing }, wait, tick)
	require.True(t, s.scheduler.Pending(), "idle timer re-armed after the fetch")

	clock.Advance(refresh.DefaultConfig().IdleInterval)
	require.Eventually(t, func() bool { return fake.Count(backend.MethodResetCachedData) == 2 }, wait, tick)
}

func TestMount_RetryAfterFailure(t *testing.T) {
	fake := fakeBackend()
	s, clock := newSession(t, fake)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Error(t, s.Mount(ctx))

	require.NoError(t, s.Mount(context.Background()))
	clock.Advance(refresh.DefaultConfig().DebounceDelay)
	require.Eventually(t, func() bool { return fake.Count(backend.MethodResetCachedData) == 1 }, wait, tick)
}

func TestMount_AfterCloseFails(t *testing.T) {
	s, _ := newSession(t, fakeBackend())
	s.Close()

	require.ErrorIs(t, s.Mount(context.Background()), tderrors.ErrSchedulerStopped)
	require.False(t, s.scheduler.Pending())
}

func TestSubscribe_Unsubscribe(t *testing.T) {
	s, _ := newSession(t, fakeBackend())

	var n atomic.Int32
	unsubscribe := s.Subscribe(func() { n.Add(1) })
	s.Registry().SetIPv6Disabled(true)
	require.Equal(t, int32(1), n.Load())

	unsubscribe()
	s.Registry().SetIPv6Disabled(false)
	require.Equal(t, int32(1), n.Load())
}

func TestFetchOnce(t *testing.T) {
	fake := fakeBackend()
	s, _ := newSession(t, fake)

	require.NoError(t, s.FetchOnce(context.Background()))

	st := s.State()
	require.True(t, st.Loaded)
	require.Equal(t, "tun0", st.Snapshot.PriorityInterface)
	require.False(t, st.Refreshing)
}

func TestReloaderOption(t *testing.T) {
	fake := fakeBackend()
	s, err := New(backend.NewClient(fake), Options{
		Refresh:        refresh.DefaultConfig(),
		ReloadInterval: 20 * time.Millisecond,
		Clock:          clockwork.NewFakeClock(),
	}, nil)
	require.NoError(t, err)
	defer s.Unmount()

	require.NoError(t, s.Mount(context.Background()))
	require.Eventually(t, func() bool { return fake.Count(backend.MethodShow) >= 3 }, wait, tick)
}

func TestClose_DropsRequestedRefresh(t *testing.T) {
	fake := fakeBackend()
	s, clock := newSession(t, fake)
	require.NoError(t, s.Registry().Load(context.Background()))

	require.NoError(t, s.OnToggleConnection(context.Background(), workUUID, true))
	require.Equal(t, refresh.Scheduled, s.State().Phase)

	s.Close()
	clock.Advance(time.Minute)
	require.Zero(t, fake.Count(backend.MethodResetCachedData))
	require.Equal(t, refresh.Idle, s.State().Phase)
}
