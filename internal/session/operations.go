package session

import (
	"context"
	"fmt"

	"tunnelctl/internal/backend"
	"tunnelctl/internal/reporting"
	"tunnelctl/pkg/logging"
)

// StartProxy asks the backend to connect. It returns ErrActionInFlight
// while a previous start or stop has not reached a terminal status.
func (c *Coordinator) StartProxy(ctx context.Context) error {
	return c.do(ctx, func() error { return c.proxyAction(actionStart) })
}

// StopProxy asks the backend to disconnect.
func (c *Coordinator) StopProxy(ctx context.Context) error {
	return c.do(ctx, func() error { return c.proxyAction(actionStop) })
}

// ToggleProxy stops a ready proxy and starts it otherwise.
func (c *Coordinator) ToggleProxy(ctx context.Context) error {
	return c.do(ctx, func() error { return c.proxyAction(c.lifecycle.actionFor()) })
}

func (c *Coordinator) proxyAction(action proxyAction) error {
	if c.lifecycle.locked() {
		return ErrActionInFlight
	}
	if err := c.laneFree(LaneLifecycle); err != nil {
		return err
	}
	if err := c.lifecycle.begin(action); err != nil {
		return err
	}

	run := c.backend.StartProxy
	if action == actionStop {
		run = c.backend.StopProxy
	}
	c.issue(job{
		lane: LaneLifecycle,
		name: action.String(),
		run:  run,
		done: func(err error) {
			if err != nil {
				c.lifecycle.deliveryFailed(action)
				c.notify(LaneLifecycle, err, true)
			}
		},
	})
	return nil
}

// AcceptRoute approves the live route proposal.
func (c *Coordinator) AcceptRoute(ctx context.Context) error {
	return c.do(ctx, func() error { return c.decideRoute(backend.DecisionAccept, 0) })
}

// CancelRoute rejects the live route proposal. Dismissing the route
// dialog without a choice is the same as cancelling.
func (c *Coordinator) CancelRoute(ctx context.Context) error {
	return c.do(ctx, func() error { return c.decideRoute(backend.DecisionCancel, 0) })
}

// RerouteRoute rejects the live proposal and asks for a route of hops
// sections. hops must lie in [1, maxNodes].
func (c *Coordinator) RerouteRoute(ctx context.Context, hops int) error {
	return c.do(ctx, func() error { return c.decideRoute(backend.DecisionReroute, hops) })
}

func (c *Coordinator) decideRoute(decision backend.RouteDecision, hops int) error {
	if err := c.negotiation.check(decision, hops); err != nil {
		return err
	}
	if err := c.laneFree(LaneNegotiation); err != nil {
		return err
	}
	d, err := c.negotiation.beginDecision(decision, hops)
	if err != nil {
		return err
	}

	var sizeErr error
	c.issue(job{
		lane: LaneNegotiation,
		name: backend.RespRouteDecision,
		run: func(ctx context.Context) error {
			if err := c.backend.SendRouteDecision(ctx, decision); err != nil {
				return err
			}
			if decision == backend.DecisionReroute {
				sizeErr = c.backend.RequestRouteSize(ctx, hops)
			}
			return nil
		},
		done: func(err error) {
			if err != nil {
				if c.negotiation.decisionFailed(d) {
					c.notify(LaneNegotiation, err, true)
				} else {
					logging.Debug("Negotiation", "Stale %s for proposal %s failed: %v", decision, d.proposalID, err)
				}
				return
			}
			if c.negotiation.decisionDelivered(d) {
				ev := reporting.NewBaseEvent(reporting.EventTypeRouteResolved, eventSource, reporting.SeverityInfo, c.negotiation.lastOutcome)
				ev.WithCorrelation(d.proposalID)
				c.publishEvent(ev)
			}
			if sizeErr != nil {
				c.notify(LaneNegotiation, fmt.Errorf("route size request failed, the backend will re-propose with its current size: %w", sizeErr), true)
			}
		},
	})
	return nil
}

// AnswerReinit sends the operator's answer to a reinit request.
func (c *Coordinator) AnswerReinit(ctx context.Context, agreed bool) error {
	return c.do(ctx, func() error {
		if err := c.reinit.check(); err != nil {
			return err
		}
		if err := c.laneFree(LaneReinit); err != nil {
			return err
		}
		if err := c.reinit.beginAnswer(); err != nil {
			return err
		}
		c.issue(job{
			lane: LaneReinit,
			name: backend.RespReinitDecision,
			run: func(ctx context.Context) error {
				return c.backend.SendReinitDecision(ctx, agreed)
			},
			done: func(err error) {
				if err != nil {
					c.reinit.answerFailed()
					c.notify(LaneReinit, err, true)
					return
				}
				if c.reinit.answerDelivered(agreed) {
					c.publishReinitRequested()
				}
			},
		})
		return nil
	})
}

// DismissReinit closes the reinit question without answering it.
func (c *Coordinator) DismissReinit(ctx context.Context) error {
	return c.do(ctx, c.reinit.dismiss)
}

// AttachPool asks the backend to let the user pick a node pool file. The
// chosen pool arrives as a pool-attached notification.
func (c *Coordinator) AttachPool(ctx context.Context) error {
	return c.do(ctx, func() error {
		if err := c.tunnelEditable(); err != nil {
			return err
		}
		if err := c.laneFree(LaneConfig); err != nil {
			return err
		}
		c.issue(job{
			lane: LaneConfig,
			name: backend.CmdAddTunnel,
			run:  c.backend.AddTunnel,
			done: func(err error) {
				if err != nil {
					c.notify(LaneConfig, err, true)
				}
			},
		})
		return nil
	})
}

// ConfigureTunnel opens the configuration flow on the committed pool.
func (c *Coordinator) ConfigureTunnel(ctx context.Context) error {
	return c.do(ctx, func() error {
		if c.lifecycle.active() {
			return ErrProxyActive
		}
		if err := c.flow.openForOperator(); err != nil {
			return err
		}
		c.flowOpened()
		return nil
	})
}

// ResetPool detaches the node pool, keeping hop count and payments.
func (c *Coordinator) ResetPool(ctx context.Context) error {
	return c.do(ctx, func() error {
		if err := c.tunnelEditable(); err != nil {
			return err
		}
		if err := c.laneFree(LaneConfig); err != nil {
			return err
		}
		settings := c.committed
		settings.PoolPath = ""
		c.issue(job{
			lane: LaneConfig,
			name: backend.CmdSaveTunnelConfig,
			run: func(ctx context.Context) error {
				return c.backend.SaveTunnelConfig(ctx, settings)
			},
			done: func(err error) {
				if err != nil {
					c.notify(LaneConfig, err, true)
					return
				}
				logging.Info("PoolConfig", "Node pool detached")
				c.committed = settings
				c.tunnelEnabled = false
			},
		})
		return nil
	})
}

// tunnelEditable guards operator actions that change the tunnel setup.
func (c *Coordinator) tunnelEditable() error {
	if c.lifecycle.active() {
		return ErrProxyActive
	}
	if c.flow.open() {
		return ErrFlowOpen
	}
	return nil
}

// IncrementHops adds a hop to the draft, clamped to the pool's maximum.
func (c *Coordinator) IncrementHops(ctx context.Context) error {
	return c.do(ctx, c.flow.incrementHops)
}

// DecrementHops removes a hop from the draft, never going below one.
func (c *Coordinator) DecrementHops(ctx context.Context) error {
	return c.do(ctx, c.flow.decrementHops)
}

// SetHops sets the draft hop count, clamped to [1, maxNodes].
func (c *Coordinator) SetHops(ctx context.Context, n int) error {
	return c.do(ctx, func() error { return c.flow.setHops(n) })
}

// TogglePayments switches payments in the draft. Enabling them for the
// first time in a flow fetches the wallet deposit address.
func (c *Coordinator) TogglePayments(ctx context.Context, enabled bool) error {
	return c.do(ctx, func() error {
		fetch, err := c.flow.togglePayments(enabled)
		if err != nil || !fetch {
			return err
		}
		gen := c.flow.gen
		var addr string
		c.issue(job{
			lane: laneNone,
			name: backend.CmdGetWalletAddr,
			run: func(ctx context.Context) error {
				var err error
				addr, err = c.backend.GetPaymentNetworkWalletAddr(ctx)
				return err
			},
			done: func(err error) {
				if c.flow.walletFetched(gen, addr, err) && err != nil {
					c.notify(LaneConfig, err, true)
				}
			},
		})
		return nil
	})
}

// SaveConfig persists the draft. The flow closes once the backend accepts it.
func (c *Coordinator) SaveConfig(ctx context.Context) error {
	return c.do(ctx, func() error {
		if err := c.flow.editable(); err != nil {
			return err
		}
		if err := c.laneFree(LaneConfig); err != nil {
			return err
		}
		settings, err := c.flow.beginSave()
		if err != nil {
			return err
		}
		c.issue(job{
			lane: LaneConfig,
			name: backend.CmdSaveTunnelConfig,
			run: func(ctx context.Context) error {
				return c.backend.SaveTunnelConfig(ctx, settings)
			},
			done: func(err error) {
				c.flow.saveDone(err)
				if err != nil {
					c.notify(LaneConfig, err, true)
					return
				}
				c.committed = settings
				c.tunnelEnabled = settings.PoolPath != ""
				c.flowClosed("saved")
			},
		})
		return nil
	})
}

// CancelConfig discards the draft. Nothing is sent to the backend.
func (c *Coordinator) CancelConfig(ctx context.Context) error {
	return c.do(ctx, func() error {
		if err := c.flow.cancel(); err != nil {
			return err
		}
		c.flowClosed("cancelled")
		return nil
	})
}
