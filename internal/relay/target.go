package relay

// observeTargetHint derives the relay's SyntheticTarget from the extension's
// own CDP traffic. The wire format (§6) does not define a dedicated
// handshake frame, so the relay treats the extension's first
// Target.targetCreated/attachedToTarget event as its announcement, and
// Target.targetInfoChanged as a refresh — this resolves the open question in
// §9 about target announcement without inventing a new message type.
func (r *Relay) observeTargetHint(method string, params any) {
	info, ok := params.(map[string]any)
	if !ok {
		return
	}

	switch method {
	case "Target.targetCreated":
		r.announceTarget(asTargetInfo(info))
	case "Target.attachedToTarget":
		if ti, ok := info["targetInfo"].(map[string]any); ok {
			r.announceTarget(asTargetInfo(ti))
		}
	case "Target.targetInfoChanged":
		if ti, ok := info["targetInfo"].(map[string]any); ok {
			r.refreshTarget(asTargetInfo(ti))
		}
	case "Target.targetDestroyed", "Target.detachedFromTarget":
		r.clearTarget()
	}
}

func asTargetInfo(m map[string]any) *SyntheticTarget {
	t := &SyntheticTarget{Type: "page", Attached: true, BrowserContextID: "default"}
	if v, ok := m["targetId"].(string); ok {
		t.TargetID = v
	}
	if v, ok := m["type"].(string); ok && v != "" {
		t.Type = v
	}
	if v, ok := m["title"].(string); ok {
		t.Title = v
	}
	if v, ok := m["url"].(string); ok {
		t.URL = v
	}
	if v, ok := m["browserContextId"].(string); ok && v != "" {
		t.BrowserContextID = v
	}
	return t
}

// announceTarget installs t as the SyntheticTarget, replacing any previous
// one. Hints without a target id or whose type is not "page" are ignored.
func (r *Relay) announceTarget(t *SyntheticTarget) {
	if t.TargetID == "" || t.Type != "page" {
		return
	}
	r.mu.Lock()
	r.target = t
	r.mu.Unlock()
}

// refreshTarget updates title/url on the existing SyntheticTarget, mirroring
// a navigation in the tab the extension exposes.
func (r *Relay) refreshTarget(t *SyntheticTarget) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.target == nil || r.target.TargetID != t.TargetID {
		return
	}
	if t.Title != "" {
		r.target.Title = t.Title
	}
	if t.URL != "" {
		r.target.URL = t.URL
	}
}

func (r *Relay) clearTarget() {
	r.mu.Lock()
	r.target = nil
	r.mu.Unlock()
}
