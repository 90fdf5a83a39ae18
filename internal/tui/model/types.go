package model

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"

	"tunnelctl/internal/reporting"
	"tunnelctl/internal/session"
	"tunnelctl/pkg/logging"
)

// AppMode represents the current mode of the application
type AppMode int

const (
	ModeMain AppMode = iota
	ModeHelpOverlay
	ModeLogOverlay
	ModeQuitting
)

// String provides a human-readable representation of the AppMode.
func (m AppMode) String() string {
	switch m {
	case ModeMain:
		return "Main"
	case ModeHelpOverlay:
		return "HelpOverlay"
	case ModeLogOverlay:
		return "LogOverlay"
	case ModeQuitting:
		return "Quitting"
	default:
		return "Unknown"
	}
}

// MessageType represents the type of status bar message
type MessageType int

const (
	StatusBarInfo MessageType = iota
	StatusBarSuccess
	StatusBarError
	StatusBarWarning
)

// Constants for UI
const (
	// MaxActivityLogLines bounds the in-memory activity log.
	MaxActivityLogLines = 500
	// MinHeightForMainLogView is the terminal height below which the log
	// pane is only reachable through the overlay.
	MinHeightForMainLogView = 30
	// DefaultOperationTimeout bounds how long the TUI waits for the
	// coordinator to accept an operation.
	DefaultOperationTimeout = 5 * time.Second
	// WalletDepositHint is shown next to the wallet address.
	WalletDepositHint = "Deposit at least 5 TON for tunnel payments."
)

// Coordinator is the part of the session coordinator the TUI drives.
type Coordinator interface {
	Snapshot() session.State
	Updates(types ...reporting.EventType) *reporting.EventSubscription
	Unsubscribe(sub *reporting.EventSubscription)

	ToggleProxy(ctx context.Context) error
	AcceptRoute(ctx context.Context) error
	CancelRoute(ctx context.Context) error
	RerouteRoute(ctx context.Context, hops int) error
	AnswerReinit(ctx context.Context, agreed bool) error
	DismissReinit(ctx context.Context) error
	AttachPool(ctx context.Context) error
	ConfigureTunnel(ctx context.Context) error
	ResetPool(ctx context.Context) error
	IncrementHops(ctx context.Context) error
	DecrementHops(ctx context.Context) error
	TogglePayments(ctx context.Context, enabled bool) error
	SaveConfig(ctx context.Context) error
	CancelConfig(ctx context.Context) error
}

// TUIConfig holds what the TUI needs from bootstrap.
type TUIConfig struct {
	DebugMode        bool
	CopyWallet       bool
	BackendURL       string
	Coordinator      Coordinator
	OperationTimeout time.Duration
}

// Model is the TUI state. Everything the coordinator owns is read from
// State, which is replaced wholesale on every state event.
type Model struct {
	Coordinator      Coordinator
	OperationTimeout time.Duration
	BackendURL       string
	DebugMode        bool
	CopyWallet       bool

	State          session.State
	CurrentAppMode AppMode

	// PickingReroute is set while the operator chooses a reroute hop count.
	PickingReroute bool
	RerouteHops    int
	// ConfirmingReset is set while the pool reset question is shown.
	ConfirmingReset bool
	// ShowWalletQR swaps the wallet address for a scannable QR code.
	ShowWalletQR bool

	Width  int
	Height int

	Keys        KeyMap
	Help        help.Model
	Spinner     spinner.Model
	LogViewport viewport.Model
	ActivityLog []string

	StatusBarMessage     string
	StatusBarMessageType MessageType
	StatusBarSeq         int

	QuittingMessage string

	Updates    *reporting.EventSubscription
	LogChannel <-chan logging.LogEntry
}
