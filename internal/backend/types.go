package backend

import (
	"bytes"
	"encoding/json"
)

// Remote method names exposed by the backend.
const (
	MethodShow                   = "show"
	MethodActiveConnection       = "active_connection"
	MethodUp                     = "up"
	MethodDown                   = "down"
	MethodEnableIPv6             = "enable_ipv6"
	MethodDisableIPv6            = "disable_ipv6"
	MethodIsOpenVPNInstalled     = "is_openvpn_pacman_installed"
	MethodIsOpenVPNEnabled       = "is_openvpn_enabled"
	MethodEnableOpenVPN          = "enable_openvpn"
	MethodDisableOpenVPN         = "disable_openvpn"
	MethodResetCachedData        = "reset_cached_data"
	MethodPriorityInterface      = "get_priority_interface"
	MethodPriorityInterfaceName  = "get_priority_interface_name"
	MethodInternetAvailable      = "is_internet_available"
	MethodGatewayAvailable       = "is_gateway_available"
	MethodPrioritizedNetworkInfo = "get_prioritized_network_info"
)

// Connection types shown in the panel.
const (
	TypeVPN       = "vpn"
	TypeWireGuard = "wireguard"
)

// NotAvailable is the placeholder the backend and the panel use for unknown values.
const NotAvailable = "N/A"

// Connection is one NetworkManager connection as reported by "show".
type Connection struct {
	Name      string `json:"name"`
	UUID      string `json:"uuid"`
	Type      string `json:"type"`
	Device    string `json:"device,omitempty"`
	Connected bool   `json:"connected"`

	// Only present on the record returned by "active_connection".
	IPv6Disabled *bool `json:"ipv6_disabled,omitempty"`
}

// Manageable reports whether the connection is a VPN-like type the panel lists.
func (c Connection) Manageable() bool {
	return c.Type == TypeVPN || c.Type == TypeWireGuard
}

// InterfaceResult is the payload of get_priority_interface.
type InterfaceResult struct {
	Success bool   `json:"success"`
	Data    string `json:"data"`
	IP      string `json:"ip,omitempty"`
}

// ReachabilityResult is the payload of is_internet_available and is_gateway_available.
// Older backends reply with a bare boolean; that form is accepted as a successful result.
type ReachabilityResult struct {
	Success bool  `json:"success"`
	Data    *bool `json:"data,omitempty"`
}

// Reachable reports true only for a successful result carrying data=true.
func (r ReachabilityResult) Reachable() bool {
	return r.Success && r.Data != nil && *r.Data
}

func (r *ReachabilityResult) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	if bytes.Equal(trimmed, []byte("true")) || bytes.Equal(trimmed, []byte("false")) {
		v := trimmed[0] == 't'
		r.Success = true
		r.Data = &v
		return nil
	}

	type plain ReachabilityResult
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*r = ReachabilityResult(p)
	return nil
}

// NetworkInfoResult is the payload of get_prioritized_network_info.
type NetworkInfoResult struct {
	Success     bool            `json:"success"`
	Data        string          `json:"data"`
	GatewayPing json.RawMessage `json:"gateway_ping,omitempty"`
}
