package tui

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tunneldeck/internal/backend"
	"tunneldeck/internal/backend/backendtest"
	"tunneldeck/internal/panel"
	"tunneldeck/internal/refresh"
	"tunneldeck/internal/registry"
	"tunneldeck/internal/storage"
	"tunneldeck/internal/storage/sqlite"
)

const workUUID = "3f2504e0-4f89-41d3-9a0c-0305e82c3301"

func fakeBackend(conns ...backend.Connection) *backendtest.Fake {
	return backendtest.New().
		Reply(backend.MethodShow, conns).
		Reply(backend.MethodActiveConnection, map[string]any{"name": "eth", "uuid": "e1", "type": "802-3-ethernet", "connected": true}).
		Reply(backend.MethodIsOpenVPNInstalled, true).
		Reply(backend.MethodIsOpenVPNEnabled, false).
		Reply(backend.MethodUp, nil).
		Reply(backend.MethodResetCachedData, true)
}

func newTestModel(t *testing.T, fake *backendtest.Fake) (*Model, storage.Storage) {
	t.Helper()

	s, err := panel.New(backend.NewClient(fake), panel.Options{
		Refresh: refresh.DefaultConfig(),
		Clock:   clockwork.NewFakeClock(),
	}, zap.NewNop())
	require.NoError(t, err)

	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	m := NewModel(Deps{
		Session:  s,
		Storage:  store,
		Defaults: map[string]string{storage.SettingIdleInterval: "5s"},
	})
	t.Cleanup(m.Close)

	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return m, store
}

func load(t *testing.T, m *Model) {
	t.Helper()
	require.NoError(t, m.session.Registry().Load(context.Background()))
	m.Update(sessionChangedMsg{})
}

func TestSessionChanged_ListsConnections(t *testing.T) {
	m, _ := newTestModel(t, fakeBackend(
		backend.Connection{Name: "work", UUID: workUUID, Type: backend.TypeVPN},
		backend.Connection{Name: "eth", UUID: "e1", Type: "802-3-ethernet", Connected: true},
	))

	require.Contains(t, m.View(), "Loading connections")

	load(t, m)
	require.Len(t, m.connectionsTab.conns, 1)

	view := m.View()
	require.Contains(t, view, "work")
	require.NotContains(t, view, "802-3-ethernet")
	require.Len(t, strings.Split(view, "\n"), 40)
}

func TestConnectionsTab_Empty(t *testing.T) {
	m, _ := newTestModel(t, fakeBackend())
	load(t, m)
	require.Contains(t, m.View(), "No Connections Found")
}

func TestConnectionsTab_Toggle(t *testing.T) {
	fake := fakeBackend(backend.Connection{Name: "work", UUID: workUUID, Type: backend.TypeVPN})
	m, _ := newTestModel(t, fake)
	load(t, m)

	cmd := m.connectionsTab.Update(tea.KeyMsg{Type: tea.KeyEnter}, m)
	require.NotNil(t, cmd)
	require.Equal(t, 1, m.pending)

	res, ok := cmd().(actionResultMsg)
	require.True(t, ok)
	require.NoError(t, res.err)
	require.Equal(t, "up work", res.label)
	require.Equal(t, 1, fake.Count(backend.MethodUp))

	m.Update(res)
	require.Zero(t, m.pending)
	require.Equal(t, "Requested up work", m.notification)
	require.False(t, m.notificationErr)
	require.True(t, m.state.Connections[0].Connected, "optimistic flag")
}

func TestToggleState(t *testing.T) {
	ipv6, openvpn := settingDefs[0], settingDefs[1]

	tests := []struct {
		name            string
		state           panel.State
		ipv6Interactive bool
		vpnInteractive  bool
	}{
		{"not loaded", panel.State{}, false, false},
		{"loaded without active connection", panel.State{Loaded: true}, false, true},
		{"loaded with active connection", panel.State{Loaded: true, HasActiveConnection: true}, true, true},
		{"openvpn disabled", panel.State{Loaded: true, OpenVPN: registry.OpenVPNState{Disabled: true}}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, got := toggleState(ipv6, tt.state)
			require.Equal(t, tt.ipv6Interactive, got)
			_, got = toggleState(openvpn, tt.state)
			require.Equal(t, tt.vpnInteractive, got)
		})
	}
}

func TestSettingsTab_ToggleIgnoredWhenUnavailable(t *testing.T) {
	m, _ := newTestModel(t, fakeBackend())
	m.activeTab = tabSettings

	require.Nil(t, m.settingsTab.Update(tea.KeyMsg{Type: tea.KeyEnter}, m))
	require.Zero(t, m.pending)
}

func TestSettingsTab_EditInterval(t *testing.T) {
	m, store := newTestModel(t, fakeBackend())
	m.activeTab = tabSettings
	m.settingsTab.cursor = 2

	m.settingsTab.Update(tea.KeyMsg{Type: tea.KeyEnter}, m)
	require.True(t, m.settingsTab.editing)
	require.Equal(t, "5s", m.settingsTab.input.Value())

	m.settingsTab.input.SetValue("soon")
	require.Nil(t, m.settingsTab.Update(tea.KeyMsg{Type: tea.KeyEnter}, m))
	require.True(t, m.settingsTab.editing)
	require.True(t, m.notificationErr)

	m.settingsTab.input.SetValue("12s")
	cmd := m.settingsTab.Update(tea.KeyMsg{Type: tea.KeyEnter}, m)
	require.NotNil(t, cmd)
	require.False(t, m.settingsTab.editing)

	saved, ok := cmd().(settingSavedMsg)
	require.True(t, ok)
	require.NoError(t, saved.err)

	v, err := store.GetSetting(context.Background(), storage.SettingIdleInterval)
	require.NoError(t, err)
	require.Equal(t, "12s", v)
}

func TestClearNotification_Version(t *testing.T) {
	m, _ := newTestModel(t, fakeBackend())

	m.setNotification("first", false)
	stale := m.notifVersion
	m.setNotification("second", false)

	m.Update(clearNotificationMsg{version: stale})
	require.Equal(t, "second", m.notification)

	m.Update(clearNotificationMsg{version: m.notifVersion})
	require.Empty(t, m.notification)
}

func TestQuitClosesSession(t *testing.T) {
	m, _ := newTestModel(t, fakeBackend())

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)

	select {
	case <-m.done:
	default:
		t.Fatal("quit did not close the model")
	}
	m.Close()
}

func TestForceHeight(t *testing.T) {
	out := forceHeight("a\nb\nc", 4, 2)
	require.Equal(t, "a\nb", out)

	out = forceHeight("a", 3, 3)
	require.Equal(t, "a\n   \n   ", out)
}
