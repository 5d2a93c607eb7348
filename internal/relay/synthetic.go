package relay

// handleSynthetic answers the fixed set of Target/Browser methods the relay
// serves locally, without consulting the extension (§4.E). ok is false for
// any method not in that set, meaning the caller should fall through to the
// forwarding engine.
func (r *Relay) handleSynthetic(c *clientConn, cmd *cdpCommand) (result any, cdpErr *cdpError, ok bool) {
	switch cmd.Method {
	case "Browser.getVersion":
		return r.browserGetVersion(), nil, true
	case "Target.setDiscoverTargets":
		return r.targetSetDiscoverTargets(c, cmd)
	case "Target.getTargets":
		return r.targetGetTargets(), nil, true
	case "Target.setAutoAttach":
		return r.targetSetAutoAttach(c, cmd)
	case "Target.attachToTarget":
		return r.targetAttachToTarget(c, cmd)
	case "Target.detachFromTarget":
		return r.targetDetachFromTarget(c, cmd)
	default:
		return nil, nil, false
	}
}

func (r *Relay) browserGetVersion() any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return map[string]string{
		"protocolVersion": "1.3",
		"product":         "relay/" + extensionProductTag(r.ext),
		"revision":        "0",
		"userAgent":       "cdp-relay",
		"jsVersion":       "V8",
	}
}

func extensionProductTag(e *extConn) string {
	if e == nil {
		return "disconnected"
	}
	return e.id
}

func (r *Relay) targetSetDiscoverTargets(c *clientConn, cmd *cdpCommand) (any, *cdpError, bool) {
	var params struct {
		Discover bool `json:"discover"`
	}
	decodeParams(cmd.Params, &params)

	r.mu.Lock()
	target := r.target
	r.mu.Unlock()

	if params.Discover && target != nil {
		c.sendEvent(&cdpEvent{Method: "Target.targetCreated", Params: map[string]any{"targetInfo": target.info()}})
	}
	return map[string]any{}, nil, true
}

func (r *Relay) targetGetTargets() any {
	r.mu.Lock()
	target := r.target
	r.mu.Unlock()

	if target == nil {
		return map[string]any{"targetInfos": []any{}}
	}
	return map[string]any{"targetInfos": []any{target.info()}}
}

// targetSetAutoAttach records the caller's autoAttach preference and, when a
// SyntheticTarget already exists, immediately attaches the caller to it
// exactly as Target.attachToTarget would (§4.E).
func (r *Relay) targetSetAutoAttach(c *clientConn, cmd *cdpCommand) (any, *cdpError, bool) {
	var params struct {
		AutoAttach      bool `json:"autoAttach"`
		WaitForDebugger bool `json:"waitForDebugger"`
	}
	decodeParams(cmd.Params, &params)

	c.autoAttach = params.AutoAttach
	c.waitingForDebugger = params.WaitForDebugger

	r.mu.Lock()
	target := r.target
	r.mu.Unlock()

	if params.AutoAttach && target != nil {
		r.emitAttachedToTarget(c, target, params.WaitForDebugger)
	}
	return map[string]any{}, nil, true
}

func (r *Relay) targetAttachToTarget(c *clientConn, cmd *cdpCommand) (any, *cdpError, bool) {
	var params struct {
		TargetID string `json:"targetId"`
	}
	decodeParams(cmd.Params, &params)

	r.mu.Lock()
	target := r.target
	r.mu.Unlock()

	if target == nil || params.TargetID != target.TargetID {
		return nil, &cdpError{Code: -32602, Message: "no such target"}, true
	}

	sessionID := newSessionID()
	r.bindSession(c.id, sessionID, target.TargetID, false)
	c.sendEvent(&cdpEvent{
		Method: "Target.attachedToTarget",
		Params: map[string]any{
			"sessionId":          sessionID,
			"targetInfo":         target.info(),
			"waitingForDebugger": false,
		},
	})
	return map[string]any{"sessionId": sessionID}, nil, true
}

func (r *Relay) targetDetachFromTarget(c *clientConn, cmd *cdpCommand) (any, *cdpError, bool) {
	var params struct {
		SessionID string `json:"sessionId"`
	}
	decodeParams(cmd.Params, &params)

	if params.SessionID == "" || !r.assertOwnership(c.id, params.SessionID) {
		return nil, &cdpError{Code: -32001, Message: "session not owned"}, true
	}

	r.unbindSession(params.SessionID)
	c.sendEvent(&cdpEvent{
		Method: "Target.detachedFromTarget",
		Params: map[string]any{"sessionId": params.SessionID},
	})
	return map[string]any{}, nil, true
}

// emitAttachedToTarget binds a fresh session for c against target and
// announces it, mirroring Target.attachToTarget's side effects when reached
// via auto-attach instead (§4.E, §9 waitForDebugger note).
func (r *Relay) emitAttachedToTarget(c *clientConn, target *SyntheticTarget, waitForDebugger bool) {
	sessionID := newSessionID()
	r.bindSession(c.id, sessionID, target.TargetID, true)
	c.sendEvent(&cdpEvent{
		Method: "Target.attachedToTarget",
		Params: map[string]any{
			"sessionId":          sessionID,
			"targetInfo":         target.info(),
			"waitingForDebugger": waitForDebugger,
		},
	})
	if waitForDebugger {
		// The extension does not implement CDP-level target pausing, so the
		// relay acknowledges the debugger-ready handshake locally (§9).
		c.sendEvent(&cdpEvent{Method: "Runtime.runIfWaitingForDebugger", SessionID: sessionID, Params: map[string]any{}})
	}
}
