package relay

import "time"

// nextID allocates the next relay-scoped request id (§4.C). Monotonic,
// unique per relay run.
func (r *Relay) nextID() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextRelayID
	r.nextRelayID++
	return id
}

// registerPending inserts a PendingCommand, recording it against both the
// global correlation table and the owning client so removeClient can find
// it later.
func (r *Relay) registerPending(pc *PendingCommand) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending[pc.RelayID] = pc
	if c, ok := r.clients[pc.ClientID]; ok {
		c.pending[pc.RelayID] = true
	}
}

// resolvePending looks up a relay-id from an extension response and hands
// it to the waiting forwarder. Unknown relay-ids are dropped and counted
// (§4.C): they indicate a race with cancellation, never fatal.
func (r *Relay) resolvePending(relayID int, resp *extensionResponse) {
	r.mu.Lock()
	pc, ok := r.pending[relayID]
	if ok {
		delete(r.pending, relayID)
		if c := r.clients[pc.ClientID]; c != nil {
			delete(c.pending, relayID)
		}
	} else {
		r.counters.UnknownCorrelations++
	}
	r.mu.Unlock()

	if ok {
		resp.ID = pc.RelayID
		pc.resolve <- resp
	}
}

// sweepExpired resolves every PendingCommand whose deadline has passed
// with a synthetic relay-timeout error (§4.C, P8). Run by the keepalive
// ticker; never fires per-command timers.
func (r *Relay) sweepExpired(now time.Time) {
	r.mu.Lock()
	var expired []*PendingCommand
	for id, pc := range r.pending {
		if now.After(pc.Deadline) {
			delete(r.pending, id)
			if c := r.clients[pc.ClientID]; c != nil {
				delete(c.pending, id)
			}
			expired = append(expired, pc)
		}
	}
	r.counters.TimedOutCommands += int64(len(expired))
	r.mu.Unlock()

	for _, pc := range expired {
		pc.resolve <- &extensionResponse{
			ID:    pc.RelayID,
			Error: &cdpError{Code: -32000, Message: "relay timeout"},
		}
	}
}

// commandDeadline returns the deadline for a method per §4.C: 30s default,
// 60s for methods known to be slow.
func (r *Relay) commandDeadline(method string) time.Time {
	d := r.cfg.CommandTimeout
	if isLongCommand(method) {
		d = r.cfg.LongCommandTimeout
	}
	return time.Now().Add(d)
}
