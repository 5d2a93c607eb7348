package relay

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

// closeWithReason sends a WebSocket close control frame carrying code and
// reason before the caller tears the connection down further. Best-effort:
// a write error here just means the peer is already gone (§4.B, P3).
func closeWithReason(ws *websocket.Conn, mu *sync.Mutex, code int, reason string) {
	if ws == nil {
		return
	}
	msg := websocket.FormatCloseMessage(code, reason)
	mu.Lock()
	_ = ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	mu.Unlock()
}

// newClientConn wraps an upgraded socket with the send queue and
// single-writer pump required by the backpressure model (§5).
func newClientConn(id, remoteAddr string, ws *websocket.Conn, queueCap int) *clientConn {
	c := &clientConn{
		id:         id,
		remoteAddr: remoteAddr,
		ws:         ws,
		sessions:   make(map[string]bool),
		pending:    make(map[int]bool),
		send:       make(chan []byte, maxQueuedFrames),
		queueCap:   queueCap,
		done:       make(chan struct{}),
		limiter:    rate.NewLimiter(rate.Limit(commandRateLimit), commandBurst),
	}
	c.state.Store(stateOpen)
	go c.writePump()
	return c
}

func (c *clientConn) writePump() {
	for {
		select {
		case frame, ok := <-c.send:
			if !ok {
				return
			}
			c.writeMu.Lock()
			err := c.ws.WriteMessage(websocket.TextMessage, frame)
			c.writeMu.Unlock()
			atomic.AddInt64(&c.queuedBytes, -int64(len(frame)))
			if err != nil {
				c.close()
				return
			}
		case <-c.done:
			return
		}
	}
}

// close marks the connection closed. Idempotent; once closed no further
// outgoing frames are accepted (§3 invariant i).
func (c *clientConn) close() {
	if c.state.CAS(stateOpen, stateClosed) || c.state.CAS(stateConnecting, stateClosed) {
		close(c.done)
		if c.ws != nil {
			_ = c.ws.Close()
		}
	}
}

// sendResponse enqueues a command reply. Responses bypass the event cap:
// they are never dropped for backpressure (§5 Backpressure).
func (c *clientConn) sendResponse(v any) {
	if c.state.Load() == stateClosed {
		return
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return
	}
	atomic.AddInt64(&c.queuedBytes, int64(len(payload)))
	select {
	case c.send <- payload:
	case <-c.done:
	}
}

// sendEvent enqueues an event for delivery, subject to the per-client
// backpressure cap. Over cap, the event is dropped and the caller should
// count it (§4.D, §5, kind 6).
func (c *clientConn) sendEvent(v any) (delivered bool) {
	if c.state.Load() == stateClosed {
		return false
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return false
	}
	if int(atomic.LoadInt64(&c.queuedBytes))+len(payload) > c.queueCap || len(c.send) >= maxQueuedFrames {
		return false
	}
	atomic.AddInt64(&c.queuedBytes, int64(len(payload)))
	select {
	case c.send <- payload:
		return true
	default:
		atomic.AddInt64(&c.queuedBytes, -int64(len(payload)))
		return false
	}
}

// newExtConn wraps an upgraded extension socket with its own write pump.
func newExtConn(id, origin, remoteAddr string, ws *websocket.Conn) *extConn {
	e := &extConn{
		id:         id,
		origin:     origin,
		remoteAddr: remoteAddr,
		ws:         ws,
		send:       make(chan []byte, maxQueuedFrames),
		done:       make(chan struct{}),
	}
	e.state.Store(stateOpen)
	go e.writePump()
	return e
}

func (e *extConn) writePump() {
	for {
		select {
		case frame, ok := <-e.send:
			if !ok {
				return
			}
			e.writeMu.Lock()
			err := e.ws.WriteMessage(websocket.TextMessage, frame)
			e.writeMu.Unlock()
			atomic.AddInt64(&e.queuedBytes, -int64(len(frame)))
			if err != nil {
				e.close()
				return
			}
		case <-e.done:
			return
		}
	}
}

func (e *extConn) close() {
	if e.state.CAS(stateOpen, stateClosed) || e.state.CAS(stateConnecting, stateClosed) {
		close(e.done)
		if e.ws != nil {
			_ = e.ws.Close()
		}
	}
}

// trySend enqueues a command for the extension. Returns false when the
// extension's queue is over the configured cap, meaning the caller should
// reject the command with "extension busy" rather than forward it
// (§5 Backpressure).
func (e *extConn) trySend(v any, cap int) bool {
	if e.state.Load() != stateOpen {
		return false
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return false
	}
	if int(atomic.LoadInt64(&e.queuedBytes))+len(payload) > cap {
		return false
	}
	atomic.AddInt64(&e.queuedBytes, int64(len(payload)))
	select {
	case e.send <- payload:
		return true
	default:
		atomic.AddInt64(&e.queuedBytes, -int64(len(payload)))
		return false
	}
}

// sendResponse looks up the client and enqueues a response frame.
func (r *Relay) sendResponse(clientID string, resp *cdpResponse) {
	r.mu.Lock()
	c := r.clients[clientID]
	r.mu.Unlock()
	if c != nil {
		c.sendResponse(resp)
	}
}

// sendEvent looks up the client and enqueues an event frame, counting a
// drop if backpressure rejected it.
func (r *Relay) sendEvent(clientID string, evt *cdpEvent) {
	r.mu.Lock()
	c := r.clients[clientID]
	r.mu.Unlock()
	if c == nil {
		return
	}
	if !c.sendEvent(evt) {
		r.mu.Lock()
		r.counters.BackpressureDrops++
		r.mu.Unlock()
	}
}
