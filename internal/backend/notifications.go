package backend

import (
	"encoding/json"
	"errors"
	"fmt"

	"tunnelctl/internal/channel"
)

// Notification wire names.
const (
	EventStatus          = "statusUpdate"
	EventTunnelUpdated   = "tunnel_updated"
	EventRouteCheck      = "tunnel_check"
	EventReinitRequested = "tunnel_reinit_ask"
	EventTunnelPaid      = "tunnel_paid"
	EventPoolAdded       = "tunnel_pool_added"
	EventConfigSaved     = "config_saved"
)

// ErrUnknownNotification is returned by Decode for tags it does not know.
var ErrUnknownNotification = errors.New("unknown notification")

// Notification is a decoded backend event.
type Notification interface {
	Tag() string
}

// StatusUpdate reports a proxy lifecycle phase.
type StatusUpdate struct {
	Phase  string
	Detail string
}

// TunnelUpdated carries the current tunnel exit address.
type TunnelUpdated struct {
	Addr string
}

// Section is one hop of a proposed route.
type Section struct {
	Name  string `json:"Name"`
	Outer bool   `json:"Outer"`
}

// RouteCheck asks the operator to approve a route.
type RouteCheck struct {
	Sections      []Section
	PriceInPerMB  string
	PriceOutPerMB string
}

// ReinitRequested signals a stalled tunnel.
type ReinitRequested struct{}

// TunnelPaid carries the amount paid so far.
type TunnelPaid struct {
	Amount string
}

// PoolAdded announces an attached node pool. An empty path or zero
// MaxNodes means the pool was detached.
type PoolAdded struct {
	Path     string
	MaxNodes int
}

// ConfigSaved reports that the tunnel settings were persisted.
type ConfigSaved struct{}

func (StatusUpdate) Tag() string    { return EventStatus }
func (TunnelUpdated) Tag() string   { return EventTunnelUpdated }
func (RouteCheck) Tag() string      { return EventRouteCheck }
func (ReinitRequested) Tag() string { return EventReinitRequested }
func (TunnelPaid) Tag() string      { return EventTunnelPaid }
func (PoolAdded) Tag() string       { return EventPoolAdded }
func (ConfigSaved) Tag() string     { return EventConfigSaved }

// Decode turns a raw channel event into a typed Notification.
func Decode(ev channel.Event) (Notification, error) {
	switch ev.Name {
	case EventStatus:
		var n StatusUpdate
		if err := decodeArgs(ev, &n.Phase, &n.Detail); err != nil {
			return nil, err
		}
		return n, nil
	case EventTunnelUpdated:
		var n TunnelUpdated
		if err := decodeArgs(ev, &n.Addr); err != nil {
			return nil, err
		}
		return n, nil
	case EventRouteCheck:
		var (
			n       RouteCheck
			in, out amount
		)
		if err := decodeArgs(ev, &n.Sections, &in, &out); err != nil {
			return nil, err
		}
		n.PriceInPerMB, n.PriceOutPerMB = string(in), string(out)
		return n, nil
	case EventReinitRequested:
		return ReinitRequested{}, nil
	case EventTunnelPaid:
		var paid amount
		if err := decodeArgs(ev, &paid); err != nil {
			return nil, err
		}
		return TunnelPaid{Amount: string(paid)}, nil
	case EventPoolAdded:
		var n PoolAdded
		if err := decodeArgs(ev, &n.Path, &n.MaxNodes); err != nil {
			return nil, err
		}
		return n, nil
	case EventConfigSaved:
		return ConfigSaved{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownNotification, ev.Name)
	}
}

// decodeArgs fills targets positionally. Missing trailing arguments leave
// their targets at the zero value.
func decodeArgs(ev channel.Event, targets ...any) error {
	if len(ev.Args) > len(targets) {
		return fmt.Errorf("%s: expected at most %d arguments, got %d", ev.Name, len(targets), len(ev.Args))
	}
	for i, raw := range ev.Args {
		if err := json.Unmarshal(raw, targets[i]); err != nil {
			return fmt.Errorf("%s: argument %d: %w", ev.Name, i, err)
		}
	}
	return nil
}

// amount is a TON value sent either as a decimal string or as a bare JSON
// number. Numbers keep their literal digits.
type amount string

func (a *amount) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*a = amount(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("amount must be a string or number: %s", b)
	}
	*a = amount(n.String())
	return nil
}
