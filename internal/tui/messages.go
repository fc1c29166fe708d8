package tui

// Session messages.

type sessionMountedMsg struct {
	err error
}

// sessionChangedMsg is sent whenever the panel session reports a change.
type sessionChangedMsg struct{}

// Action messages.

type actionResultMsg struct {
	label string
	err   error
}

// Settings update messages.

type settingsLoadedMsg struct {
	settings map[string]string
	err      error
}

type settingSavedMsg struct {
	key string
	err error
}

// Notification message.

type clearNotificationMsg struct {
	version int
}
