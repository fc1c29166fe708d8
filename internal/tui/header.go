package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"tunneldeck/internal/backend"
	"tunneldeck/internal/netinfo"
	"tunneldeck/internal/panel"
)

var tabNames = []string{"Connections", "Network", "Settings"}

func renderHeader(activeTab int, st panel.State, width int) string {
	tabs := make([]string, len(tabNames))
	for i, name := range tabNames {
		style := inactiveTabStyle
		if i == activeTab {
			style = activeTabStyle
		}
		tabs[i] = style.Render(name)
	}

	logo := logoStyle.Render("TUNNELDECK")
	pill := renderPill(st)
	spacer := strings.Repeat(" ", max(width-lipgloss.Width(logo)-lipgloss.Width(pill), 1))

	return lipgloss.JoinVertical(lipgloss.Left,
		logo+spacer+pill,
		lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...),
		rule(width),
	)
}

// rule is a horizontal separator spanning the terminal.
func rule(width int) string {
	return ruleStyle.Render(strings.Repeat("─", max(width, 0)))
}

func renderPill(st panel.State) string {
	switch {
	case st.Refreshing:
		return refreshingPillStyle.Render(" REFRESHING ")
	case st.Snapshot.InternetReachable == netinfo.Yes:
		label := " ONLINE "
		if iface := st.Snapshot.PriorityInterface; iface != "" && iface != backend.NotAvailable {
			label = fmt.Sprintf(" ONLINE %s ", iface)
		}
		return onlinePillStyle.Render(label)
	case st.Snapshot.InternetReachable == netinfo.No:
		return offlinePillStyle.Render(" OFFLINE ")
	default:
		return unknownPillStyle.Render(" " + backend.NotAvailable + " ")
	}
}

func renderFooter(helpText string, width int) string {
	return lipgloss.JoinVertical(lipgloss.Left, rule(width), helpBarStyle.Render(helpText))
}

func renderHelpBar(showFull bool) string {
	if !showFull {
		return renderBindings(keys.ShortHelp(), " | ")
	}
	groups := keys.FullHelp()
	lines := make([]string, 0, len(groups))
	for _, group := range groups {
		lines = append(lines, renderBindings(group, "  "))
	}
	return strings.Join(lines, "\n")
}

func renderBindings(bindings []key.Binding, sep string) string {
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		if b.Enabled() {
			parts = append(parts, helpKeyStyle.Render(b.Help().Key)+" "+helpDescStyle.Render(b.Help().Desc))
		}
	}
	return strings.Join(parts, helpSepStyle.Render(sep))
}
