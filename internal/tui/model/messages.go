package model

import (
	"tunnelctl/internal/session"
	"tunnelctl/pkg/logging"
)

// StateUpdateMsg carries a new coordinator snapshot.
type StateUpdateMsg struct {
	State session.State
}

// NoticeMsg carries a newly recorded coordinator notice.
type NoticeMsg struct {
	Notice session.Notice
}

// BackendDisconnectedMsg is sent when the backend event stream ends.
type BackendDisconnectedMsg struct{}

// UpdatesClosedMsg is sent when the coordinator closed the update stream.
type UpdatesClosedMsg struct{}

// NewLogEntryMsg carries a log entry for the activity log.
type NewLogEntryMsg struct {
	Entry logging.LogEntry
}

// LogChannelClosedMsg is sent once the logging channel is closed.
type LogChannelClosedMsg struct{}

// OperationResultMsg reports the synchronous result of a coordinator operation.
type OperationResultMsg struct {
	Op  string
	Err error
}

// ClearStatusBarMsg clears the status bar message with the matching sequence number.
type ClearStatusBarMsg struct {
	Seq int
}

// ClipboardResultMsg reports a clipboard copy.
type ClipboardResultMsg struct {
	What string
	Err  error
}
