package tui

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"tunneldeck/internal/panel"
	"tunneldeck/internal/storage"
)

// Tab indices.
const (
	tabConnections = 0
	tabNetwork     = 1
	tabSettings    = 2
	tabCount       = 3
)

// Model is the root BubbleTea model.
type Model struct {
	// Dependencies.
	session *panel.Session
	store   storage.Storage
	logger  *zap.Logger

	// Dimensions.
	width  int
	height int

	// Navigation.
	activeTab int
	showHelp  bool

	// Session state, re-read on every change notification.
	state panel.State
	// pending counts toggles that have not resolved yet.
	pending int

	// Tab models.
	connectionsTab connectionsModel
	networkTab     networkModel
	settingsTab    settingsModel

	// Notification.
	notification    string
	notificationErr bool
	notifVersion    int

	// Spinner for async operations.
	spinner  spinner.Model
	spinning bool

	// Change forwarding.
	changes     chan struct{}
	done        chan struct{}
	unsubscribe func()
	closeOnce   sync.Once
}

// Deps holds all dependencies injected into the TUI.
type Deps struct {
	Session *panel.Session
	Storage storage.Storage
	Logger  *zap.Logger
	// Defaults are the effective interval values, keyed by setting key.
	Defaults map[string]string
}

// NewModel creates a new root Model.
func NewModel(deps Deps) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = spinnerStyle

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &Model{
		session:        deps.Session,
		store:          deps.Storage,
		logger:         logger,
		activeTab:      tabConnections,
		spinner:        s,
		connectionsTab: newConnectionsModel(),
		networkTab:     newNetworkModel(),
		settingsTab:    newSettingsModel(deps.Defaults),
		changes:        make(chan struct{}, 1),
		done:           make(chan struct{}),
	}
	m.state = m.session.State()

	// The callback runs on whatever goroutine changed the session, so it only
	// marks a change; forward delivers it to the program.
	m.unsubscribe = m.session.Subscribe(func() {
		select {
		case m.changes <- struct{}{}:
		default:
		}
	})
	return m
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		mountSession(m.session),
		loadSettings(m.store),
	)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	prevNotifVersion := m.notifVersion

	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		ch := m.contentHeight()
		m.connectionsTab.setSize(msg.Width, ch)
		m.networkTab.setSize(msg.Width, ch)
		m.settingsTab.setSize(msg.Width, ch)
		return m, nil

	case tea.KeyMsg:
		if cmd, handled := m.handleGlobalKey(msg); handled {
			return m, cmd
		}

	// Session.
	case sessionMountedMsg:
		if msg.err != nil {
			m.logger.Error("failed to mount panel", zap.Error(msg.err))
			m.setNotification(fmt.Sprintf("Load failed: %v", msg.err), true)
		}
		m.syncState()
	case sessionChangedMsg:
		m.syncState()

	// Actions.
	case actionResultMsg:
		if m.pending > 0 {
			m.pending--
		}
		if msg.err != nil {
			m.setNotification(msg.err.Error(), true)
		} else {
			m.setNotification(fmt.Sprintf("Requested %s", msg.label), false)
		}
		m.syncState()

	// Settings.
	case settingsLoadedMsg:
		if msg.err == nil {
			m.settingsTab.setSettings(msg.settings)
		} else {
			m.logger.Warn("failed to load settings", zap.Error(msg.err))
		}
	case settingSavedMsg:
		if msg.err != nil {
			m.setNotification(fmt.Sprintf("Save failed: %v", msg.err), true)
		} else {
			m.setNotification(fmt.Sprintf("Saved %s, applies on restart", msg.key), false)
		}

	// Spinner.
	case spinner.TickMsg:
		if !m.busy() {
			m.spinning = false
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	// Notification.
	case clearNotificationMsg:
		if msg.version == m.notifVersion {
			m.notification = ""
			m.notificationErr = false
		}
	}

	// Delegate to active tab.
	switch m.activeTab {
	case tabConnections:
		cmds = append(cmds, m.connectionsTab.Update(msg, m))
	case tabSettings:
		cmds = append(cmds, m.settingsTab.Update(msg, m))
	}

	// Start the spinner when work begins.
	if m.busy() && !m.spinning {
		m.spinning = true
		cmds = append(cmds, m.spinner.Tick)
	}

	// Schedule notification auto-clear when a new notification was set.
	if m.notifVersion > prevNotifVersion && m.notification != "" {
		cmds = append(cmds, clearNotification(4*time.Second, m.notifVersion))
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	header := renderHeader(m.activeTab, m.state, m.width)

	var content string
	switch m.activeTab {
	case tabConnections:
		content = m.connectionsTab.View(m.state, m.spinner)
	case tabNetwork:
		content = m.networkTab.View(m.state, m.spinner)
	case tabSettings:
		content = m.settingsTab.View(m.state)
	}

	var notif string
	if m.notification != "" {
		if m.notificationErr {
			notif = notifErrorStyle.Render("! " + m.notification)
		} else {
			notif = notifSuccessStyle.Render("* " + m.notification)
		}
	}

	helpText := renderHelpBar(m.showHelp)
	footer := renderFooter(helpText, m.width)

	parts := []string{header}
	if notif != "" {
		parts = append(parts, notif)
	}
	parts = append(parts, content, footer)
	output := lipgloss.JoinVertical(lipgloss.Left, parts...)

	// Force exactly m.height lines to prevent BubbleTea rendering drift.
	return forceHeight(output, m.width, m.height)
}

// forceHeight ensures the string has exactly `height` lines, each padded to `width`.
// This prevents BubbleTea from leaving ghost lines when switching tabs.
func forceHeight(s string, width, height int) string {
	lines := strings.Split(s, "\n")
	// Truncate excess lines.
	if len(lines) > height {
		lines = lines[:height]
	}
	// Pad missing lines with blank space.
	blank := strings.Repeat(" ", width)
	for len(lines) < height {
		lines = append(lines, blank)
	}
	return strings.Join(lines, "\n")
}

func (m *Model) contentHeight() int {
	overhead := 5
	if m.showHelp {
		overhead += 2
	}
	h := m.height - overhead
	if h < 1 {
		h = 1
	}
	return h
}

// handleGlobalKey reports whether the key was consumed before reaching the tab.
func (m *Model) handleGlobalKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	// Don't intercept while a setting is being edited.
	if m.activeTab == tabSettings && m.settingsTab.editing {
		return nil, false
	}

	switch {
	case key.Matches(msg, keys.Quit):
		m.Close()
		return tea.Quit, true

	case key.Matches(msg, keys.Help):
		m.showHelp = !m.showHelp
		m.resize()
		return nil, true

	case key.Matches(msg, keys.TabNext):
		m.activeTab = (m.activeTab + 1) % tabCount
		return nil, true

	case key.Matches(msg, keys.TabPrev):
		m.activeTab = (m.activeTab - 1 + tabCount) % tabCount
		return nil, true

	case key.Matches(msg, keys.Refresh):
		m.session.Refresh()
		m.syncState()
		return nil, true
	}

	return nil, false
}

func (m *Model) resize() {
	ch := m.contentHeight()
	m.connectionsTab.setSize(m.width, ch)
	m.networkTab.setSize(m.width, ch)
	m.settingsTab.setSize(m.width, ch)
}

func (m *Model) syncState() {
	m.state = m.session.State()
	m.connectionsTab.setConnections(m.state.Connections)
}

// busy reports whether the spinner should animate.
func (m *Model) busy() bool {
	return m.pending > 0 || m.state.Refreshing || !m.state.Loaded
}

func (m *Model) setNotification(text string, isErr bool) {
	m.notification = text
	m.notificationErr = isErr
	m.notifVersion++
}

// forward delivers session changes to p until the model is closed.
func (m *Model) forward(p *tea.Program) {
	for {
		select {
		case <-m.changes:
			p.Send(sessionChangedMsg{})
		case <-m.done:
			return
		}
	}
}

// Close unsubscribes from the session and unmounts it. Safe to call twice.
func (m *Model) Close() {
	m.closeOnce.Do(func() {
		m.unsubscribe()
		m.session.Unmount()
		close(m.done)
	})
}

// NewProgram creates a bubbletea program with alt screen.
func NewProgram(deps Deps) (*tea.Program, *Model) {
	m := NewModel(deps)
	p := tea.NewProgram(m, tea.WithAltScreen())
	go m.forward(p)
	return p, m
}

// Run starts the panel and blocks until the user quits.
func Run(deps Deps) error {
	p, m := NewProgram(deps)
	defer m.Close()
	_, err := p.Run()
	return err
}
