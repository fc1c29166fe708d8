package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"tunneldeck/internal/config"
	"tunneldeck/internal/panel"
	"tunneldeck/internal/storage"
)

// settingKind distinguishes remote toggles from stored intervals.
type settingKind int

const (
	settingToggle   settingKind = iota // Remote toggle applied immediately.
	settingInterval                    // Duration stored in the settings table.
)

const (
	toggleIPv6Key    = "ipv6_disabled"
	toggleOpenVPNKey = "openvpn_enabled"
)

// settingDef defines a setting's display metadata.
type settingDef struct {
	key         string
	label       string
	description string
	kind        settingKind
}

var settingDefs = []settingDef{
	{key: toggleIPv6Key, label: "Disable IPv6", description: "Disable IPv6 on the active connection", kind: settingToggle},
	{key: toggleOpenVPNKey, label: "Enable OpenVPN", description: "NetworkManager OpenVPN support", kind: settingToggle},
	{key: storage.SettingIdleInterval, label: "Idle Interval", description: "Time between periodic checks", kind: settingInterval},
	{key: storage.SettingDebounceDelay, label: "Debounce", description: "Delay before a requested refresh", kind: settingInterval},
	{key: storage.SettingCoalesceDelay, label: "Coalesce", description: "Delay when a refresh is already pending", kind: settingInterval},
	{key: storage.SettingReloadInterval, label: "Reload Interval", description: "Time between connection list reloads", kind: settingInterval},
}

type settingsModel struct {
	settings map[string]string
	defaults map[string]string
	cursor   int
	editing  bool
	input    textinput.Model
	width    int
	height   int
}

func newSettingsModel(defaults map[string]string) settingsModel {
	ti := textinput.New()
	ti.CharLimit = 16
	ti.Prompt = "> "
	ti.PromptStyle = lipgloss.NewStyle().Foreground(colorPurple)
	ti.TextStyle = lipgloss.NewStyle().Foreground(colorFg)

	if defaults == nil {
		defaults = make(map[string]string)
	}
	return settingsModel{
		settings: make(map[string]string),
		defaults: defaults,
		input:    ti,
	}
}

func (sm *settingsModel) setSize(w, h int) {
	sm.width = w
	sm.height = h
	sm.input.Width = w / 2
}

func (sm *settingsModel) setSettings(s map[string]string) {
	sm.settings = s
}

func (sm *settingsModel) currentDef() settingDef {
	if sm.cursor >= 0 && sm.cursor < len(settingDefs) {
		return settingDefs[sm.cursor]
	}
	return settingDefs[0]
}

func (sm *settingsModel) value(def settingDef) string {
	if v, ok := sm.settings[def.key]; ok {
		return v
	}
	return sm.defaults[def.key]
}

// toggleState returns the displayed value of a toggle and whether it accepts
// input.
func toggleState(def settingDef, st panel.State) (on, interactive bool) {
	switch def.key {
	case toggleIPv6Key:
		return st.IPv6Disabled, st.Loaded && st.HasActiveConnection
	case toggleOpenVPNKey:
		return st.OpenVPN.Enabled, st.Loaded && !st.OpenVPN.Disabled
	}
	return false, false
}

func (sm *settingsModel) Update(msg tea.Msg, root *Model) tea.Cmd {
	if sm.editing {
		return sm.updateEditing(msg, root)
	}

	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return nil
	}
	def := sm.currentDef()

	switch {
	case key.Matches(km, keys.Up):
		if sm.cursor > 0 {
			sm.cursor--
		}
	case key.Matches(km, keys.Down):
		if sm.cursor < len(settingDefs)-1 {
			sm.cursor++
		}
	case key.Matches(km, keys.Toggle):
		if def.kind == settingToggle {
			return sm.toggle(def, root)
		}
		// Interval setting: open editor.
		sm.editing = true
		sm.input.SetValue(sm.value(def))
		sm.input.Focus()
		return textinput.Blink
	}
	return nil
}

func (sm *settingsModel) toggle(def settingDef, root *Model) tea.Cmd {
	on, interactive := toggleState(def, root.state)
	if !interactive {
		return nil
	}
	root.pending++
	switch def.key {
	case toggleIPv6Key:
		return toggleIPv6(root.session, !on)
	case toggleOpenVPNKey:
		return toggleOpenVPN(root.session, !on)
	}
	return nil
}

func (sm *settingsModel) updateEditing(msg tea.Msg, root *Model) tea.Cmd {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Back):
			sm.editing = false
			sm.input.Blur()
			return nil
		case msg.String() == "enter":
			def := sm.currentDef()
			val := strings.TrimSpace(sm.input.Value())
			if _, err := config.ParseSetting(val); err != nil {
				root.setNotification(fmt.Sprintf("Invalid %s: %v", strings.ToLower(def.label), err), true)
				return nil
			}
			sm.editing = false
			sm.input.Blur()
			sm.settings[def.key] = val
			return saveSetting(root.store, def.key, val)
		}
	}

	var cmd tea.Cmd
	sm.input, cmd = sm.input.Update(msg)
	return cmd
}

func (sm *settingsModel) View(st panel.State) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Settings"))
	b.WriteString("\n\n")

	for i, def := range settingDefs {
		isSelected := i == sm.cursor

		var value string
		interactive := true
		if def.kind == settingToggle {
			var on bool
			on, interactive = toggleState(def, st)
			value = renderToggle(on, interactive)
		} else {
			value = sm.value(def)
		}

		var line string
		if isSelected {
			label := lipgloss.NewStyle().Bold(true).Foreground(colorPurple).Width(18).Render("> " + def.label)
			if sm.editing {
				line = label + sm.input.View()
			} else {
				line = label + lipgloss.NewStyle().Foreground(colorFg).Render(value)
			}
		} else {
			label := lipgloss.NewStyle().Foreground(colorFg).Width(18).Render("  " + def.label)
			line = label + lipgloss.NewStyle().Foreground(colorDimFg).Render(value)
		}

		b.WriteString(line + "\n")

		// Show description for selected item.
		if isSelected && !sm.editing {
			hint := def.description
			switch {
			case def.kind == settingInterval:
				hint += fmt.Sprintf("  (enter to edit, default: %s, applies on restart)", sm.defaults[def.key])
			case !interactive:
				hint += "  " + unavailableReason(def, st)
			default:
				hint += "  (enter/space to toggle)"
			}
			b.WriteString(lipgloss.NewStyle().
				Foreground(colorDimFg).
				PaddingLeft(2).
				Render("  "+hint) + "\n")
		}
	}

	return forceHeight(b.String(), sm.width, sm.height)
}

func renderToggle(on, interactive bool) string {
	box := "[ ]"
	if on {
		box = "[x]"
	}
	if !interactive {
		return dimStyle.Render(box)
	}
	return lipgloss.NewStyle().Bold(true).Foreground(colorPurple).Render(box)
}

func unavailableReason(def settingDef, st panel.State) string {
	switch {
	case !st.Loaded:
		return "(loading)"
	case def.key == toggleIPv6Key:
		return "(no active connection)"
	case !st.OpenVPN.Installed:
		return "(openvpn is not installed)"
	default:
		return "(unavailable)"
	}
}
