package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"tunnelctl/internal/session"
	"tunnelctl/pkg/logging"
)

// Controller is the part of the coordinator the tools drive.
type Controller interface {
	Snapshot() session.State
	StartProxy(ctx context.Context) error
	StopProxy(ctx context.Context) error
	AcceptRoute(ctx context.Context) error
	CancelRoute(ctx context.Context) error
	RerouteRoute(ctx context.Context, hops int) error
	AnswerReinit(ctx context.Context, agreed bool) error
	DismissReinit(ctx context.Context) error
	AttachPool(ctx context.Context) error
	ConfigureTunnel(ctx context.Context) error
	ResetPool(ctx context.Context) error
	SetHops(ctx context.Context, n int) error
	TogglePayments(ctx context.Context, enabled bool) error
	SaveConfig(ctx context.Context) error
	CancelConfig(ctx context.Context) error
}

// Tools exposes coordinator operations as MCP tools.
type Tools struct {
	ctrl Controller
}

// NewTools creates the tool set for ctrl.
func NewTools(ctrl Controller) *Tools {
	return &Tools{ctrl: ctrl}
}

// ServerTools pairs every tool definition with its handler.
func (t *Tools) ServerTools() []server.ServerTool {
	return []server.ServerTool{
		{Tool: mcp.NewTool("tunnel_status",
			mcp.WithDescription("Show proxy status, the pending route proposal, reinit question, pool configuration draft and recent notices"),
		), Handler: t.HandleStatus},

		// Proxy lifecycle
		{Tool: mcp.NewTool("proxy_start",
			mcp.WithDescription("Connect the proxy. Rejected while a start or stop is still in progress"),
		), Handler: t.HandleProxyStart},
		{Tool: mcp.NewTool("proxy_stop",
			mcp.WithDescription("Disconnect the proxy"),
		), Handler: t.HandleProxyStop},

		// Route negotiation
		{Tool: mcp.NewTool("route_accept",
			mcp.WithDescription("Accept the route proposal currently awaiting a decision"),
		), Handler: t.HandleRouteAccept},
		{Tool: mcp.NewTool("route_cancel",
			mcp.WithDescription("Reject the route proposal without asking for another one"),
		), Handler: t.HandleRouteCancel},
		{Tool: mcp.NewTool("route_reroute",
			mcp.WithDescription("Reject the route proposal and ask for a route with the given number of hops"),
			mcp.WithNumber("hops",
				mcp.Required(),
				mcp.Description("Requested number of hops, between 1 and the pool's maximum"),
				mcp.Min(1),
			),
		), Handler: t.HandleRouteReroute},

		// Reinit confirmation
		{Tool: mcp.NewTool("reinit_answer",
			mcp.WithDescription("Answer the backend's question whether to reinitialize a stalled tunnel"),
			mcp.WithBoolean("agreed",
				mcp.Required(),
				mcp.Description("true to reinitialize the tunnel"),
			),
		), Handler: t.HandleReinitAnswer},
		{Tool: mcp.NewTool("reinit_dismiss",
			mcp.WithDescription("Close the reinit question without answering it"),
		), Handler: t.HandleReinitDismiss},

		// Tunnel setup
		{Tool: mcp.NewTool("pool_attach",
			mcp.WithDescription("Ask the backend to attach a node pool. The pool configuration flow opens once the pool is attached"),
		), Handler: t.HandlePoolAttach},
		{Tool: mcp.NewTool("pool_reset",
			mcp.WithDescription("Detach the node pool, keeping hop count and payment settings"),
		), Handler: t.HandlePoolReset},
		{Tool: mcp.NewTool("tunnel_configure",
			mcp.WithDescription("Open the pool configuration flow on the committed pool"),
		), Handler: t.HandleTunnelConfigure},

		// Pool configuration flow
		{Tool: mcp.NewTool("config_set_hops",
			mcp.WithDescription("Set the hop count of the draft. The value is clamped to the pool's range"),
			mcp.WithNumber("hops",
				mcp.Required(),
				mcp.Description("Number of hops"),
			),
		), Handler: t.HandleConfigSetHops},
		{Tool: mcp.NewTool("config_toggle_payments",
			mcp.WithDescription("Enable or disable payments in the draft"),
			mcp.WithBoolean("enabled",
				mcp.Required(),
				mcp.Description("Whether payments are enabled"),
			),
		), Handler: t.HandleConfigTogglePayments},
		{Tool: mcp.NewTool("config_save",
			mcp.WithDescription("Save the draft. The flow closes once the backend accepts it"),
		), Handler: t.HandleConfigSave},
		{Tool: mcp.NewTool("config_cancel",
			mcp.WithDescription("Discard the draft"),
		), Handler: t.HandleConfigCancel},
	}
}

// HandleStatus handles the tunnel_status tool call
func (t *Tools) HandleStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jsonData, err := json.MarshalIndent(newStatusView(t.ctrl.Snapshot()), "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to format status: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}

// HandleProxyStart handles the proxy_start tool call
func (t *Tools) HandleProxyStart(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return result("proxy_start", t.ctrl.StartProxy(ctx), "Proxy start requested")
}

// HandleProxyStop handles the proxy_stop tool call
func (t *Tools) HandleProxyStop(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return result("proxy_stop", t.ctrl.StopProxy(ctx), "Proxy stop requested")
}

// HandleRouteAccept handles the route_accept tool call
func (t *Tools) HandleRouteAccept(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return result("route_accept", t.ctrl.AcceptRoute(ctx), "Route accepted")
}

// HandleRouteCancel handles the route_cancel tool call
func (t *Tools) HandleRouteCancel(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return result("route_cancel", t.ctrl.CancelRoute(ctx), "Route cancelled")
}

// HandleRouteReroute handles the route_reroute tool call
func (t *Tools) HandleRouteReroute(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	hops, err := req.RequireInt("hops")
	if err != nil {
		return mcp.NewToolResultError("hops parameter is required"), nil
	}
	return result("route_reroute", t.ctrl.RerouteRoute(ctx, hops), fmt.Sprintf("Reroute to %d hops requested", hops))
}

// HandleReinitAnswer handles the reinit_answer tool call
func (t *Tools) HandleReinitAnswer(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	agreed, err := req.RequireBool("agreed")
	if err != nil {
		return mcp.NewToolResultError("agreed parameter is required"), nil
	}
	return result("reinit_answer", t.ctrl.AnswerReinit(ctx, agreed), fmt.Sprintf("Reinit answered: %t", agreed))
}

// HandleReinitDismiss handles the reinit_dismiss tool call
func (t *Tools) HandleReinitDismiss(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return result("reinit_dismiss", t.ctrl.DismissReinit(ctx), "Reinit question dismissed")
}

// HandlePoolAttach handles the pool_attach tool call
func (t *Tools) HandlePoolAttach(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return result("pool_attach", t.ctrl.AttachPool(ctx), "Pool attach requested")
}

// HandlePoolReset handles the pool_reset tool call
func (t *Tools) HandlePoolReset(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return result("pool_reset", t.ctrl.ResetPool(ctx), "Pool reset requested")
}

// HandleTunnelConfigure handles the tunnel_configure tool call
func (t *Tools) HandleTunnelConfigure(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return result("tunnel_configure", t.ctrl.ConfigureTunnel(ctx), "Configuration flow opened")
}

// HandleConfigSetHops handles the config_set_hops tool call
func (t *Tools) HandleConfigSetHops(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	hops, err := req.RequireInt("hops")
	if err != nil {
		return mcp.NewToolResultError("hops parameter is required"), nil
	}
	if err := t.ctrl.SetHops(ctx, hops); err != nil {
		return result("config_set_hops", err, "")
	}
	draft := t.ctrl.Snapshot().PoolFlow.Draft
	return mcp.NewToolResultText(fmt.Sprintf("Draft hop count is %d", draft.SectionCount)), nil
}

// HandleConfigTogglePayments handles the config_toggle_payments tool call
func (t *Tools) HandleConfigTogglePayments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	enabled, err := req.RequireBool("enabled")
	if err != nil {
		return mcp.NewToolResultError("enabled parameter is required"), nil
	}
	return result("config_toggle_payments", t.ctrl.TogglePayments(ctx, enabled), fmt.Sprintf("Payments enabled: %t", enabled))
}

// HandleConfigSave handles the config_save tool call
func (t *Tools) HandleConfigSave(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return result("config_save", t.ctrl.SaveConfig(ctx), "Save requested")
}

// HandleConfigCancel handles the config_cancel tool call
func (t *Tools) HandleConfigCancel(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return result("config_cancel", t.ctrl.CancelConfig(ctx), "Draft discarded")
}

// result turns an operation outcome into a tool result. Rejections become
// tool errors.
func result(tool string, err error, okText string) (*mcp.CallToolResult, error) {
	if err != nil {
		logging.Debug(subsystem, "%s rejected: %v", tool, err)
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(okText), nil
}
