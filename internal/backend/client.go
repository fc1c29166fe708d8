package backend

import (
	"context"
	"errors"

	tderrors "tunneldeck/pkg/errors"
)

// Client is the typed view of the backend RPC surface.
type Client struct {
	caller Caller
}

// NewClient wraps a Caller.
func NewClient(caller Caller) *Client {
	return &Client{caller: caller}
}

func (c *Client) call(ctx context.Context, method string, args any, out any) error {
	err := c.caller.Call(ctx, method, args, out)
	if err == nil {
		return nil
	}
	var re *tderrors.RemoteError
	if errors.As(err, &re) {
		return err
	}
	return &tderrors.RemoteError{Method: method, Err: err}
}

// Show lists every connection known to the backend.
func (c *Client) Show(ctx context.Context) ([]Connection, error) {
	var conns []Connection
	if err := c.call(ctx, MethodShow, nil, &conns); err != nil {
		return nil, err
	}
	return conns, nil
}

// ActiveConnection returns the active wifi/ethernet connection, or nil when the
// backend reports none.
func (c *Client) ActiveConnection(ctx context.Context) (*Connection, error) {
	var conn *Connection
	if err := c.call(ctx, MethodActiveConnection, nil, &conn); err != nil {
		return nil, err
	}
	return conn, nil
}

type uuidArgs struct {
	UUID string `json:"uuid"`
}

// Up brings the connection up.
func (c *Client) Up(ctx context.Context, uuid string) error {
	return c.call(ctx, MethodUp, uuidArgs{UUID: uuid}, nil)
}

// Down takes the connection down.
func (c *Client) Down(ctx context.Context, uuid string) error {
	return c.call(ctx, MethodDown, uuidArgs{UUID: uuid}, nil)
}

// SetConnection calls Up or Down depending on up.
func (c *Client) SetConnection(ctx context.Context, uuid string, up bool) error {
	if up {
		return c.Up(ctx, uuid)
	}
	return c.Down(ctx, uuid)
}

// SetIPv6Disabled disables or re-enables IPv6 on the active connection.
func (c *Client) SetIPv6Disabled(ctx context.Context, disabled bool) error {
	if disabled {
		return c.call(ctx, MethodDisableIPv6, nil, nil)
	}
	return c.call(ctx, MethodEnableIPv6, nil, nil)
}

// IsOpenVPNInstalled reports whether the NetworkManager OpenVPN package is present.
func (c *Client) IsOpenVPNInstalled(ctx context.Context) (bool, error) {
	var installed bool
	err := c.call(ctx, MethodIsOpenVPNInstalled, nil, &installed)
	return installed, err
}

// IsOpenVPNEnabled returns the backend's OpenVPN setting.
func (c *Client) IsOpenVPNEnabled(ctx context.Context) (bool, error) {
	var enabled bool
	err := c.call(ctx, MethodIsOpenVPNEnabled, nil, &enabled)
	return enabled, err
}

// SetOpenVPNEnabled installs or removes OpenVPN support on the backend.
func (c *Client) SetOpenVPNEnabled(ctx context.Context, enabled bool) error {
	if enabled {
		return c.call(ctx, MethodEnableOpenVPN, nil, nil)
	}
	return c.call(ctx, MethodDisableOpenVPN, nil, nil)
}

// ResetCachedData drops the backend's cached network facts.
func (c *Client) ResetCachedData(ctx context.Context) (bool, error) {
	var ok bool
	err := c.call(ctx, MethodResetCachedData, nil, &ok)
	return ok, err
}

// PriorityInterface returns the interface carrying the default route and its LAN IP.
// A backend that rejects the method is asked again under its older name.
func (c *Client) PriorityInterface(ctx context.Context) (InterfaceResult, error) {
	var res InterfaceResult
	err := c.call(ctx, MethodPriorityInterface, nil, &res)
	if err == nil || !errors.Is(err, tderrors.ErrRemoteCall) {
		return res, err
	}

	var alias InterfaceResult
	if aliasErr := c.call(ctx, MethodPriorityInterfaceName, nil, &alias); aliasErr != nil {
		return res, err
	}
	return alias, nil
}

// InternetAvailable reports whether the backend can reach the Internet.
func (c *Client) InternetAvailable(ctx context.Context) (ReachabilityResult, error) {
	var res ReachabilityResult
	err := c.call(ctx, MethodInternetAvailable, nil, &res)
	return res, err
}

// GatewayAvailable reports whether the priority interface's gateway answers.
func (c *Client) GatewayAvailable(ctx context.Context) (ReachabilityResult, error) {
	var res ReachabilityResult
	err := c.call(ctx, MethodGatewayAvailable, nil, &res)
	return res, err
}

// PrioritizedNetworkInfo returns the multi-line diagnostic text for the priority interface.
func (c *Client) PrioritizedNetworkInfo(ctx context.Context) (NetworkInfoResult, error) {
	var res NetworkInfoResult
	err := c.call(ctx, MethodPrioritizedNetworkInfo, nil, &res)
	return res, err
}
