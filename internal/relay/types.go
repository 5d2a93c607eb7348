// Package relay implements the CDP relay server: it multiplexes many
// automation clients (/cdp) onto the single browser-extension producer
// (/extension), correlating commands with responses and routing events
// by session.
package relay

import "time"

// cdpCommand is the wire shape of a command sent by a CDP client.
type cdpCommand struct {
	ID        int    `json:"id"`
	Method    string `json:"method"`
	Params    any    `json:"params,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
}

// cdpResponse is the wire shape of a reply sent back to a CDP client.
type cdpResponse struct {
	ID        int       `json:"id"`
	Result    any       `json:"result,omitempty"`
	Error     *cdpError `json:"error,omitempty"`
	SessionID string    `json:"sessionId,omitempty"`
}

type cdpError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// cdpEvent is the wire shape of an event delivered to a CDP client.
type cdpEvent struct {
	Method    string `json:"method"`
	Params    any    `json:"params,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
}

// extensionCommand is what the relay sends upstream to the extension: the
// same CDP command the client sent, with the client's id swapped for a
// relay-id so responses from the single extension connection can be
// demultiplexed back to the right client.
type extensionCommand struct {
	ID        int    `json:"id"`
	Method    string `json:"method"`
	Params    any    `json:"params,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
}

// extensionResponse is a reply to a forwarded command, keyed by relay-id.
type extensionResponse struct {
	ID     int       `json:"id"`
	Result any       `json:"result,omitempty"`
	Error  *cdpError `json:"error,omitempty"`
}

// extensionEvent is an out-of-band message from the extension: a wrapped
// CDP event (forwardCDPEvent), a log line, or a pong.
type extensionEvent struct {
	Method string                `json:"method"`
	Params *extensionEventParams `json:"params,omitempty"`
}

type extensionEventParams struct {
	Method    string `json:"method"`
	SessionID string `json:"sessionId,omitempty"`
	Params    any    `json:"params,omitempty"`

	// present only on "log" messages
	Level string `json:"level,omitempty"`
	Args  []any  `json:"args,omitempty"`
}

// connState is the lifecycle state shared by both connection kinds.
type connState int32

const (
	stateConnecting connState = iota
	stateOpen
	stateClosing
	stateClosed
)

// SyntheticTarget is the relay's local stand-in for the single page the
// extension exposes. It lets unmodified CDP clients drive that page with
// the standard Target.* discovery methods.
type SyntheticTarget struct {
	TargetID         string
	Type             string
	Title            string
	URL              string
	Attached         bool
	BrowserContextID string
}

func (t *SyntheticTarget) info() map[string]any {
	return map[string]any{
		"targetId":         t.TargetID,
		"type":             t.Type,
		"title":            t.Title,
		"url":              t.URL,
		"attached":         t.Attached,
		"browserContextId": t.BrowserContextID,
	}
}

// SessionBinding records that a CDP session belongs to exactly one client.
type SessionBinding struct {
	SessionID          string
	ClientID           string
	TargetID           string
	AutoAttach         bool
	WaitingForDebugger bool
}

// PendingCommand is a correlation record for one in-flight extension call.
type PendingCommand struct {
	RelayID    int
	ClientID   string
	OrigID     int
	Method     string
	SessionID  string
	Deadline   time.Time
	resolve    chan *extensionResponse
}

// Counters are the relay-wide, read-mostly statistics exposed via the
// status endpoint and logged on shutdown. They are only ever mutated while
// holding Relay.mu.
type Counters struct {
	DroppedEvents        int64
	TimedOutCommands     int64
	ExtensionReplacements int64
	BackpressureDrops    int64
	UnknownCorrelations  int64
	ProtocolErrors       int64
}
