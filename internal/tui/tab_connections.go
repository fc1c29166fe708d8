package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"tunneldeck/internal/backend"
	"tunneldeck/internal/panel"
)

type connectionsModel struct {
	table table.Model
	conns []backend.Connection
	width int
	// height is the space available below the tab bar.
	height int
}

func newConnectionsModel() connectionsModel {
	t := table.New(
		table.WithColumns(connectionColumns(0)),
		table.WithFocused(true),
		table.WithHeight(10),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(colorBorder).
		BorderBottom(true).
		Bold(true).
		Foreground(colorPurple)
	s.Selected = s.Selected.
		Foreground(colorFg).
		Background(colorSelBg).
		Bold(true)
	t.SetStyles(s)

	return connectionsModel{table: t}
}

func connectionColumns(width int) []table.Column {
	if width > 80 {
		return []table.Column{
			{Title: "Name", Width: width/3 - 2},
			{Title: "Type", Width: 12},
			{Title: "Device", Width: width/4 - 4},
			{Title: "State", Width: 10},
		}
	}
	return []table.Column{
		{Title: "Name", Width: 25},
		{Title: "Type", Width: 12},
		{Title: "Device", Width: 12},
		{Title: "State", Width: 10},
	}
}

func (cm *connectionsModel) setSize(w, h int) {
	cm.width = w
	cm.height = h
	cm.table.SetColumns(connectionColumns(w))
	// One line for the hint below the table.
	th := h - 1
	if th < 1 {
		th = 1
	}
	cm.table.SetHeight(th)
}

func (cm *connectionsModel) setConnections(conns []backend.Connection) {
	cm.conns = conns

	rows := make([]table.Row, len(conns))
	for i, c := range conns {
		device := c.Device
		if device == "" {
			device = "-"
		}
		state := "down"
		if c.Connected {
			state = "up"
		}
		rows[i] = table.Row{truncate(c.Name, 40), c.Type, device, state}
	}
	cm.table.SetRows(rows)
}

// selected returns the highlighted connection, if any.
func (cm *connectionsModel) selected() (backend.Connection, bool) {
	idx := cm.table.Cursor()
	if idx < 0 || idx >= len(cm.conns) {
		return backend.Connection{}, false
	}
	return cm.conns[idx], true
}

func (cm *connectionsModel) Update(msg tea.Msg, root *Model) tea.Cmd {
	if msg, ok := msg.(tea.KeyMsg); ok && key.Matches(msg, keys.Toggle) {
		conn, ok := cm.selected()
		if !ok {
			return nil
		}
		root.pending++
		return toggleConnection(root.session, conn, !conn.Connected)
	}

	var cmd tea.Cmd
	cm.table, cmd = cm.table.Update(msg)
	return cmd
}

func (cm *connectionsModel) View(st panel.State, spin spinner.Model) string {
	var b strings.Builder

	switch {
	case !st.Loaded:
		b.WriteString(spin.View() + " " + dimStyle.Render("Loading connections..."))
	case len(cm.conns) == 0:
		b.WriteString(titleStyle.Render("No Connections Found"))
		b.WriteString("\n")
		b.WriteString(dimStyle.Render("Only VPN and WireGuard connections are listed."))
	default:
		b.WriteString(cm.table.View())
		b.WriteString("\n")
		b.WriteString(dimStyle.Render("enter/space to bring the selected connection up or down"))
	}

	return forceHeight(b.String(), cm.width, cm.height)
}

// truncate shortens s to n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
