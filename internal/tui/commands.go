package tui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"tunneldeck/internal/backend"
	"tunneldeck/internal/panel"
	"tunneldeck/internal/storage"
)

// mountSession loads the connection registry and starts the refresh cycle.
func mountSession(s *panel.Session) tea.Cmd {
	return func() tea.Msg {
		return sessionMountedMsg{err: s.Mount(context.Background())}
	}
}

// toggleConnection brings a connection up or down.
func toggleConnection(s *panel.Session, conn backend.Connection, desired bool) tea.Cmd {
	verb := "down"
	if desired {
		verb = "up"
	}
	return func() tea.Msg {
		err := s.OnToggleConnection(context.Background(), conn.UUID, desired)
		return actionResultMsg{label: fmt.Sprintf("%s %s", verb, conn.Name), err: err}
	}
}

// toggleIPv6 disables or re-enables IPv6 on the active connection.
func toggleIPv6(s *panel.Session, disabled bool) tea.Cmd {
	label := "enable ipv6"
	if disabled {
		label = "disable ipv6"
	}
	return func() tea.Msg {
		return actionResultMsg{label: label, err: s.OnToggleIPv6(context.Background(), disabled)}
	}
}

// toggleOpenVPN enables or disables OpenVPN support.
func toggleOpenVPN(s *panel.Session, enabled bool) tea.Cmd {
	label := "disable openvpn"
	if enabled {
		label = "enable openvpn"
	}
	return func() tea.Msg {
		return actionResultMsg{label: label, err: s.OnToggleOpenVPN(context.Background(), enabled)}
	}
}

// loadSettings fetches all stored settings.
func loadSettings(store storage.Storage) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		settings, err := store.GetAllSettings(ctx)
		return settingsLoadedMsg{settings: settings, err: err}
	}
}

// saveSetting saves a single setting.
func saveSetting(store storage.Storage, key, value string) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		err := store.SetSetting(ctx, key, value)
		return settingSavedMsg{key: key, err: err}
	}
}

// clearNotification returns a command that fires after a delay.
func clearNotification(d time.Duration, version int) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return clearNotificationMsg{version: version}
	})
}
