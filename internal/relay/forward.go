package relay

import "encoding/json"

// dispatchCommand routes one inbound client command either to the synthetic
// responder or to the extension, then sends the response frame (§2 data
// flow: A → B/C/D → E or F → client).
func (r *Relay) dispatchCommand(c *clientConn, cmd *cdpCommand) {
	if !c.limiter.Allow() {
		c.sendResponse(&cdpResponse{
			ID:        cmd.ID,
			SessionID: cmd.SessionID,
			Error:     &cdpError{Code: -32000, Message: "rate limited"},
		})
		return
	}

	if cmd.SessionID != "" && !r.assertOwnership(c.id, cmd.SessionID) {
		c.sendResponse(&cdpResponse{
			ID:        cmd.ID,
			SessionID: cmd.SessionID,
			Error:     &cdpError{Code: -32001, Message: "session not owned"},
		})
		return
	}

	if result, cdpErr, ok := r.handleSynthetic(c, cmd); ok {
		resp := &cdpResponse{ID: cmd.ID, SessionID: cmd.SessionID}
		if cdpErr != nil {
			resp.Error = cdpErr
		} else {
			resp.Result = result
		}
		c.sendResponse(resp)
		return
	}

	r.forwardToExtension(c, cmd)
}

// forwardToExtension assigns a relay-id, records a PendingCommand, and
// hands the rewritten frame to the extension's writer. The client's
// original id is restored when the response (or timeout) resolves it
// (§4.C, §4.F).
func (r *Relay) forwardToExtension(c *clientConn, cmd *cdpCommand) {
	r.mu.Lock()
	ext := r.ext
	r.mu.Unlock()

	if ext == nil {
		c.sendResponse(&cdpResponse{
			ID:        cmd.ID,
			SessionID: cmd.SessionID,
			Error:     &cdpError{Code: -32000, Message: "browser not connected"},
		})
		return
	}

	relayID := r.nextID()
	pc := &PendingCommand{
		RelayID:   relayID,
		ClientID:  c.id,
		OrigID:    cmd.ID,
		Method:    cmd.Method,
		SessionID: cmd.SessionID,
		Deadline:  r.commandDeadline(cmd.Method),
		resolve:   make(chan *extensionResponse, 1),
	}
	r.registerPending(pc)

	extCmd := &extensionCommand{
		ID:        relayID,
		Method:    cmd.Method,
		Params:    cmd.Params,
		SessionID: cmd.SessionID,
	}

	if !ext.trySend(extCmd, r.cfg.MaxClientQueueBytes) {
		r.resolvePending(relayID, &extensionResponse{
			Error: &cdpError{Code: -32000, Message: "extension busy"},
		})
		r.awaitExtensionReply(c, pc)
		return
	}

	go r.awaitExtensionReply(c, pc)
}

// awaitExtensionReply blocks only the goroutine handling this one command;
// it never holds the registry mutex while waiting on I/O (§5 suspension
// points).
func (r *Relay) awaitExtensionReply(c *clientConn, pc *PendingCommand) {
	resp := <-pc.resolve
	c.sendResponse(&cdpResponse{
		ID:        pc.OrigID,
		Result:    resp.Result,
		Error:     resp.Error,
		SessionID: pc.SessionID,
	})
}

// handleExtensionFrame dispatches one inbound message from the extension:
// a response keyed by relay-id, a wrapped CDP event, a log line, or a pong
// (§4.F, §6 extension wire format). It reports false for anything that
// doesn't parse as one of those shapes — the extension is a trusted
// producer, so a malformed frame is a programmer error (§7 kind 2), not
// something to silently drop; the caller closes the connection with 1002.
func (r *Relay) handleExtensionFrame(e *extConn, raw []byte) bool {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return false
	}

	if _, hasID := fields["id"]; hasID {
		var resp extensionResponse
		if err := json.Unmarshal(raw, &resp); err != nil {
			return false
		}
		r.resolvePending(resp.ID, &resp)
		return true
	}

	if _, hasMethod := fields["method"]; !hasMethod {
		return false
	}
	var evt extensionEvent
	if err := json.Unmarshal(raw, &evt); err != nil {
		return false
	}

	switch evt.Method {
	case "pong":
		e.missedPings = 0
	case "log":
		if evt.Params != nil {
			logf("extension[%s]: %s", evt.Params.Level, evt.Params.Args)
		}
	case "forwardCDPEvent":
		if evt.Params == nil {
			return false
		}
		r.observeTargetHint(evt.Params.Method, evt.Params.Params)
		r.routeEvent(&cdpEvent{
			Method:    evt.Params.Method,
			Params:    evt.Params.Params,
			SessionID: evt.Params.SessionID,
		})
	}
	return true
}
