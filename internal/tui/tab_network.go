package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"

	"tunneldeck/internal/backend"
	"tunneldeck/internal/panel"
)

type networkModel struct {
	width  int
	height int
}

func newNetworkModel() networkModel {
	return networkModel{}
}

func (nm *networkModel) setSize(w, h int) {
	nm.width = w
	nm.height = h
}

func (nm *networkModel) View(st panel.State, spin spinner.Model) string {
	snap := st.Snapshot

	status := dimStyle.Render("Up to date")
	if st.Refreshing {
		status = spin.View() + " " + warningStyle.Render("Refreshing...")
	}

	updated := "-"
	if !snap.UpdatedAt.IsZero() {
		updated = snap.UpdatedAt.Format("15:04:05")
	}

	factRows := []string{
		nm.row("Interface", snap.PriorityInterface),
		nm.row("LAN IP", snap.LANIP),
		nm.row("Gateway", reachStyle(snap.GatewayReachable.String()).Render(snap.GatewayReachable.String())),
		nm.row("Internet", reachStyle(snap.InternetReachable.String()).Render(snap.InternetReachable.String())),
		nm.row("Updated", updated),
	}
	factsCard := lipgloss.JoinVertical(lipgloss.Left,
		append([]string{cardTitleStyle.Render("Network"), status, ""}, factRows...)...,
	)

	lines := snap.DiagnosticLines
	if len(lines) == 0 {
		lines = []string{backend.NotAvailable}
	}
	diagCard := lipgloss.JoinVertical(lipgloss.Left,
		cardTitleStyle.Render("Diagnostics"),
		cardValueStyle.Render(strings.Join(lines, "\n")),
	)

	// Layout: side by side if wide enough.
	w := nm.width - 6
	if w < 30 {
		w = 30
	}

	var content string
	if nm.width > 80 {
		halfW := (w - 4) / 2
		left := cardStyle.Width(halfW).Render(factsCard)
		right := cardStyle.Width(halfW).Render(diagCard)
		content = lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", right)
	} else {
		content = lipgloss.JoinVertical(lipgloss.Left,
			cardStyle.Width(w).Render(factsCard),
			cardStyle.Width(w).Render(diagCard),
		)
	}
	return forceHeight(content, nm.width, nm.height)
}

func (nm *networkModel) row(label, value string) string {
	return cardLabelStyle.Render(label+":") + " " + cardValueStyle.Render(value)
}
