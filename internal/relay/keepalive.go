package relay

import (
	"time"

	"github.com/gorilla/websocket"
)

// runKeepalive is the single ticker loop driving ping scheduling, stale
// connection eviction, and PendingCommand deadline sweeps (§4.G). It runs
// for the lifetime of the relay and exits on Close.
func (r *Relay) runKeepalive() {
	ticker := time.NewTicker(r.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			r.sweepExpired(now)
			r.pingClients()
			r.pingExtension()
		case <-r.stopCh:
			return
		}
	}
}

// pingClients sends a ping to every open client and evicts any that missed
// the previous two pings (~2 intervals, §4.G).
func (r *Relay) pingClients() {
	r.mu.Lock()
	conns := make([]*clientConn, 0, len(r.clients))
	for _, c := range r.clients {
		conns = append(conns, c)
	}
	r.mu.Unlock()

	for _, c := range conns {
		if c.missedPings >= 2 {
			r.removeClient(c.id, "stale connection")
			continue
		}
		c.missedPings++
		c.writeMu.Lock()
		_ = c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(time.Second))
		c.writeMu.Unlock()
	}
}

func (r *Relay) pingExtension() {
	r.mu.Lock()
	e := r.ext
	r.mu.Unlock()
	if e == nil {
		return
	}
	if e.missedPings >= 2 {
		r.clearExtension(e)
		return
	}
	e.missedPings++
	e.writeMu.Lock()
	_ = e.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(time.Second))
	e.writeMu.Unlock()
}

// onPong resets a client's missed-ping count; called from its read loop.
func (c *clientConn) onPong() { c.missedPings = 0 }

// shutdownGracefully implements §4.G's ordered shutdown: refuse new
// upgrades (it sets r.closing first), send a close frame to every
// connection, wait for the grace window, then force-close stragglers and
// drain all pending commands.
func (r *Relay) shutdownGracefully() {
	r.mu.Lock()
	r.closing = true
	clients := make([]*clientConn, 0, len(r.clients))
	for _, c := range r.clients {
		clients = append(clients, c)
	}
	ext := r.ext
	pending := make([]*PendingCommand, 0, len(r.pending))
	for _, pc := range r.pending {
		pending = append(pending, pc)
	}
	r.pending = make(map[int]*PendingCommand)
	counters := r.counters
	r.mu.Unlock()

	logf("relay: shutdown counters: %+v", counters)

	for _, c := range clients {
		closeWithReason(c.ws, &c.writeMu, 1001, "shutdown")
	}
	if ext != nil {
		closeWithReason(ext.ws, &ext.writeMu, 1001, "shutdown")
	}

	time.Sleep(shutdownGrace)

	for _, c := range clients {
		c.close()
	}
	if ext != nil {
		ext.close()
	}

	for _, pc := range pending {
		pc.resolve <- &extensionResponse{
			ID:    pc.RelayID,
			Error: &cdpError{Code: -32000, Message: "shutdown"},
		}
	}
}
