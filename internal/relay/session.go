package relay

import (
	"crypto/rand"
	"encoding/hex"
)

// newSessionID allocates a random 32-hex-character session id (§4.E).
func newSessionID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// bindSession creates ownership of a new CDP session for one client
// (§3 SessionBinding, §4.D).
func (r *Relay) bindSession(clientID, sessionID, targetID string, autoAttach bool) *SessionBinding {
	r.mu.Lock()
	defer r.mu.Unlock()
	b := &SessionBinding{
		SessionID:  sessionID,
		ClientID:   clientID,
		TargetID:   targetID,
		AutoAttach: autoAttach,
	}
	r.sessions[sessionID] = b
	if r.clientSessions[clientID] == nil {
		r.clientSessions[clientID] = make(map[string]bool)
	}
	r.clientSessions[clientID][sessionID] = true
	return b
}

// unbindSession destroys a session binding, e.g. on Target.detachFromTarget.
func (r *Relay) unbindSession(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.sessions[sessionID]
	if !ok {
		return
	}
	delete(r.sessions, sessionID)
	if owned := r.clientSessions[b.ClientID]; owned != nil {
		delete(owned, sessionID)
	}
}

// sessionOwner returns the client id owning sessionID, if any.
func (r *Relay) sessionOwner(sessionID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.sessions[sessionID]
	if !ok {
		return "", false
	}
	return b.ClientID, true
}

// assertOwnership rejects a client command that refers to a sessionId it
// does not own, without forwarding it (§4.D, P6).
func (r *Relay) assertOwnership(clientID, sessionID string) bool {
	owner, ok := r.sessionOwner(sessionID)
	return ok && owner == clientID
}

// routeEvent delivers an inbound extension event. Events carrying a
// sessionId go only to that session's owner; unowned sessions are dropped
// and counted. Events without a sessionId are browser-level and broadcast
// to every open client exactly once (§4.D, P6, P7).
func (r *Relay) routeEvent(evt *cdpEvent) {
	if evt.SessionID == "" {
		r.broadcast(evt)
		return
	}

	owner, ok := r.sessionOwner(evt.SessionID)
	if !ok {
		r.mu.Lock()
		r.counters.DroppedEvents++
		r.mu.Unlock()
		return
	}
	r.sendEvent(owner, evt)
}

// broadcast fans an event out to every currently-registered client.
func (r *Relay) broadcast(evt *cdpEvent) {
	r.mu.Lock()
	ids := make([]string, 0, len(r.clients))
	for id := range r.clients {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	for _, id := range ids {
		r.sendEvent(id, evt)
	}
}
