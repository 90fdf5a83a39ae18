// Package backend is the typed command and notification surface of the
// tunnel backend, layered on a channel.NotificationChannel.
package backend

import (
	"context"
	"encoding/json"
	"fmt"

	"tunnelctl/internal/channel"
)

// Command wire names.
const (
	CmdStartProxy       = "StartProxy"
	CmdStopProxy        = "StopProxy"
	CmdAddTunnel        = "AddTunnel"
	CmdGetConfig        = "GetConfig"
	CmdSaveTunnelConfig = "SaveTunnelConfig"
	CmdGetMaxHops       = "GetMaxHops"
	CmdGetWalletAddr    = "GetPaymentNetworkWalletAddr"
	CmdGetProxyAddr     = "GetProxyAddr"
	CmdGetTunnelEnabled = "GetTunnelEnabled"
)

// Operator response wire names.
const (
	RespRouteDecision  = "tunnel_check_result"
	RespRouteRequest   = "tunnel_route_request"
	RespReinitDecision = "tunnel_reinit_ask_result"
)

// TunnelSettings are the persisted tunnel settings.
type TunnelSettings struct {
	SectionCount    int
	PaymentsEnabled bool
	PoolPath        string
}

// RouteDecision is the operator's answer to a route check.
type RouteDecision int

const (
	// DecisionCancel is sent as a bare tunnel_check_result with no payload.
	DecisionCancel RouteDecision = iota
	DecisionAccept
	DecisionReroute
)

func (d RouteDecision) String() string {
	switch d {
	case DecisionAccept:
		return "accept"
	case DecisionReroute:
		return "reroute"
	default:
		return "cancel"
	}
}

// CommandError names the backend command that failed.
type CommandError struct {
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// Backend is everything the coordinator asks of the tunnel backend.
type Backend interface {
	StartProxy(ctx context.Context) error
	StopProxy(ctx context.Context) error
	// AddTunnel asks the backend to let the user pick a node pool. The outcome
	// arrives later as a pool-attached notification.
	AddTunnel(ctx context.Context) error
	GetConfig(ctx context.Context) (TunnelSettings, error)
	SaveTunnelConfig(ctx context.Context, settings TunnelSettings) error
	GetMaxHops(ctx context.Context) (int, error)
	GetPaymentNetworkWalletAddr(ctx context.Context) (string, error)
	GetProxyAddr(ctx context.Context) (string, error)
	GetTunnelEnabled(ctx context.Context) (bool, error)

	SendRouteDecision(ctx context.Context, decision RouteDecision) error
	RequestRouteSize(ctx context.Context, hopCount int) error
	SendReinitDecision(ctx context.Context, agreed bool) error

	// Notifications returns the raw inbound event stream.
	Notifications() <-chan channel.Event
}

// Client implements Backend over a NotificationChannel.
type Client struct {
	ch channel.NotificationChannel
}

var _ Backend = (*Client)(nil)

// NewClient creates a Client.
func NewClient(ch channel.NotificationChannel) *Client {
	return &Client{ch: ch}
}

// configEnvelope mirrors the backend's GetConfig result.
type configEnvelope struct {
	TunnelConfig *struct {
		TunnelSectionsNum   int    `json:"TunnelSectionsNum"`
		PaymentsEnabled     bool   `json:"PaymentsEnabled"`
		NodesPoolConfigPath string `json:"NodesPoolConfigPath"`
	} `json:"TunnelConfig"`
}

func (c *Client) StartProxy(ctx context.Context) error {
	return c.callNoResult(ctx, CmdStartProxy)
}

func (c *Client) StopProxy(ctx context.Context) error {
	return c.callNoResult(ctx, CmdStopProxy)
}

func (c *Client) AddTunnel(ctx context.Context) error {
	return c.callNoResult(ctx, CmdAddTunnel)
}

func (c *Client) GetConfig(ctx context.Context) (TunnelSettings, error) {
	var env configEnvelope
	if err := c.callInto(ctx, &env, CmdGetConfig); err != nil {
		return TunnelSettings{}, err
	}
	if env.TunnelConfig == nil {
		return TunnelSettings{}, nil
	}
	return TunnelSettings{
		SectionCount:    env.TunnelConfig.TunnelSectionsNum,
		PaymentsEnabled: env.TunnelConfig.PaymentsEnabled,
		PoolPath:        env.TunnelConfig.NodesPoolConfigPath,
	}, nil
}

// SaveTunnelConfig persists settings. The backend answers with an empty
// string on success and the failure text otherwise.
func (c *Client) SaveTunnelConfig(ctx context.Context, s TunnelSettings) error {
	var failure string
	if err := c.callInto(ctx, &failure, CmdSaveTunnelConfig, s.SectionCount, s.PaymentsEnabled, s.PoolPath); err != nil {
		return err
	}
	if failure != "" {
		return &CommandError{Command: CmdSaveTunnelConfig, Err: fmt.Errorf("%s", failure)}
	}
	return nil
}

func (c *Client) GetMaxHops(ctx context.Context) (int, error) {
	var n int
	err := c.callInto(ctx, &n, CmdGetMaxHops)
	return n, err
}

func (c *Client) GetPaymentNetworkWalletAddr(ctx context.Context) (string, error) {
	var addr string
	err := c.callInto(ctx, &addr, CmdGetWalletAddr)
	return addr, err
}

func (c *Client) GetProxyAddr(ctx context.Context) (string, error) {
	var addr string
	err := c.callInto(ctx, &addr, CmdGetProxyAddr)
	return addr, err
}

func (c *Client) GetTunnelEnabled(ctx context.Context) (bool, error) {
	var enabled bool
	err := c.callInto(ctx, &enabled, CmdGetTunnelEnabled)
	return enabled, err
}

func (c *Client) SendRouteDecision(ctx context.Context, decision RouteDecision) error {
	var err error
	switch decision {
	case DecisionAccept:
		err = c.ch.Emit(ctx, RespRouteDecision, true)
	case DecisionReroute:
		err = c.ch.Emit(ctx, RespRouteDecision, false)
	default:
		err = c.ch.Emit(ctx, RespRouteDecision)
	}
	return wrap(RespRouteDecision, err)
}

func (c *Client) RequestRouteSize(ctx context.Context, hopCount int) error {
	return wrap(RespRouteRequest, c.ch.Emit(ctx, RespRouteRequest, hopCount))
}

func (c *Client) SendReinitDecision(ctx context.Context, agreed bool) error {
	return wrap(RespReinitDecision, c.ch.Emit(ctx, RespReinitDecision, agreed))
}

func (c *Client) Notifications() <-chan channel.Event {
	return c.ch.Events()
}

func (c *Client) callNoResult(ctx context.Context, name string, args ...any) error {
	_, err := c.ch.Call(ctx, name, args...)
	return wrap(name, err)
}

func (c *Client) callInto(ctx context.Context, out any, name string, args ...any) error {
	raw, err := c.ch.Call(ctx, name, args...)
	if err != nil {
		return wrap(name, err)
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &CommandError{Command: name, Err: fmt.Errorf("decoding result: %w", err)}
	}
	return nil
}

func wrap(name string, err error) error {
	if err == nil {
		return nil
	}
	return &CommandError{Command: name, Err: err}
}
