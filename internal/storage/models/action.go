package models

import "time"

// Action kinds
const (
	ActionConnection = "connection"
	ActionIPv6       = "ipv6"
	ActionOpenVPN    = "openvpn"
)

// Action represents one user-triggered toggle sent to the backend
type Action struct {
	ID           int64     `json:"id"`
	Kind         string    `json:"kind"`             // connection, ipv6, openvpn
	Target       string    `json:"target,omitempty"` // connection uuid, empty for global toggles
	Desired      bool      `json:"desired"`
	Success      bool      `json:"success"`
	ErrorMessage string    `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Verb renders the action as the command a user would type.
func (a *Action) Verb() string {
	switch a.Kind {
	case ActionConnection:
		if a.Desired {
			return "up"
		}
		return "down"
	case ActionIPv6:
		if a.Desired {
			return "disable ipv6"
		}
		return "enable ipv6"
	case ActionOpenVPN:
		if a.Desired {
			return "enable openvpn"
		}
		return "disable openvpn"
	}
	return a.Kind
}
