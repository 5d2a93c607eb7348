package relay

import (
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/cdprelay/relay/internal/logging"
)

// commandRateLimit bounds how fast a single client can issue commands,
// independent of the per-queue byte cap, so a misbehaving client can't
// monopolize the extension's single command stream.
const (
	commandRateLimit = 200 // per second
	commandBurst     = 400
)

// state32 is an atomically-managed connState.
type state32 struct{ v atomic.Int32 }

func (s *state32) Load() connState       { return connState(s.v.Load()) }
func (s *state32) Store(cs connState)    { s.v.Store(int32(cs)) }
func (s *state32) CAS(old, new connState) bool {
	return s.v.CompareAndSwap(int32(old), int32(new))
}

// clientConn is one automation client connected on /cdp (§3 ClientConnection).
type clientConn struct {
	id         string
	remoteAddr string
	ws         *websocket.Conn
	writeMu    sync.Mutex

	state state32

	sessions map[string]bool // owned SessionBindings, by sessionId
	pending  map[int]bool    // relay-ids this client is waiting on

	send        chan []byte
	queueCap    int
	queuedBytes int64
	done        chan struct{}

	autoAttach         bool
	waitingForDebugger bool

	missedPings int
	limiter     *rate.Limiter
}

// extConn is the single, at-most-one upstream extension (§3 ExtensionConnection).
type extConn struct {
	id         string // validated extension id
	origin     string
	remoteAddr string
	ws         *websocket.Conn
	writeMu    sync.Mutex

	state state32

	send        chan []byte
	queuedBytes int64
	done        chan struct{}

	missedPings   int
	handshakeSeen bool
}

// Relay owns every shared table in the system. Per §5, mutations to the
// Connection Registry, Correlation Table, Session Router, and
// SyntheticTarget are serialized by mu and never held across I/O.
type Relay struct {
	cfg *ResolvedConfig

	mu sync.Mutex

	clients map[string]*clientConn
	ext     *extConn

	sessions       map[string]*SessionBinding  // sessionId -> binding
	clientSessions map[string]map[string]bool  // clientId -> sessionIds owned

	pending     map[int]*PendingCommand
	nextRelayID int

	target *SyntheticTarget

	counters Counters

	upgrader websocket.Upgrader

	closing  bool
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewRelay builds a Relay ready to be mounted or served standalone.
func NewRelay(cfg *ResolvedConfig) *Relay {
	return &Relay{
		cfg:            cfg,
		clients:        make(map[string]*clientConn),
		sessions:       make(map[string]*SessionBinding),
		clientSessions: make(map[string]map[string]bool),
		pending:        make(map[int]*PendingCommand),
		nextRelayID:    1,
		stopCh:         make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true }, // auth gate (§4.A) does the real check
		},
	}
}

// addClient admits a client into the registry under its assigned id.
func (r *Relay) addClient(c *clientConn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[c.id] = c
	r.clientSessions[c.id] = make(map[string]bool)
}

// removeClient tears a client down: resolves its pending commands with a
// synthesized error, drops its session bindings, and removes it from the
// registry (§4.B invariant ii).
func (r *Relay) removeClient(clientID string, reason string) {
	r.mu.Lock()
	c, ok := r.clients[clientID]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.clients, clientID)

	var toResolve []*PendingCommand
	for relayID := range c.pending {
		if pc, ok := r.pending[relayID]; ok {
			delete(r.pending, relayID)
			toResolve = append(toResolve, pc)
		}
	}

	for sessionID := range r.clientSessions[clientID] {
		delete(r.sessions, sessionID)
	}
	delete(r.clientSessions, clientID)
	r.mu.Unlock()

	c.close()

	for _, pc := range toResolve {
		pc.resolve <- &extensionResponse{
			ID:    pc.RelayID,
			Error: &cdpError{Code: -32000, Message: reason},
		}
	}
}

// setExtension installs a new extension connection. If one is already
// open, it is replaced: the old socket is closed with code 1000/"replaced",
// every client's in-flight commands are errored, and all session bindings
// are cleared. Clients themselves are never disconnected (§4.B, P3, P4).
func (r *Relay) setExtension(e *extConn) (old *extConn, replaced bool) {
	r.mu.Lock()
	old = r.ext
	r.ext = e
	r.target = nil

	var toResolve []*PendingCommand
	for _, pc := range r.pending {
		toResolve = append(toResolve, pc)
	}
	r.pending = make(map[int]*PendingCommand)

	r.sessions = make(map[string]*SessionBinding)
	for id := range r.clientSessions {
		r.clientSessions[id] = make(map[string]bool)
	}
	r.mu.Unlock()

	if old != nil {
		closeWithReason(old.ws, &old.writeMu, 1000, "replaced")
		old.close()
	}

	for _, pc := range toResolve {
		pc.resolve <- &extensionResponse{
			ID:    pc.RelayID,
			Error: &cdpError{Code: -32000, Message: "browser disconnected"},
		}
	}

	return old, old != nil
}

// clearExtension removes the extension after it disconnects on its own,
// erroring any commands still in flight (§4.B, P4).
func (r *Relay) clearExtension(e *extConn) {
	r.mu.Lock()
	if r.ext != e {
		r.mu.Unlock()
		return
	}
	r.ext = nil
	r.target = nil

	var toResolve []*PendingCommand
	for _, pc := range r.pending {
		toResolve = append(toResolve, pc)
	}
	r.pending = make(map[int]*PendingCommand)

	r.sessions = make(map[string]*SessionBinding)
	for id := range r.clientSessions {
		r.clientSessions[id] = make(map[string]bool)
	}
	r.mu.Unlock()

	e.close()

	for _, pc := range toResolve {
		pc.resolve <- &extensionResponse{
			ID:    pc.RelayID,
			Error: &cdpError{Code: -32000, Message: "browser disconnected"},
		}
	}
}

// extensionConnected reports whether an extension is currently open (§4.B
// observable guarantee, P9).
func (r *Relay) extensionConnected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ext != nil
}

// statusSnapshot builds the payload for GET /extension/status (§4.H).
func (r *Relay) statusSnapshot() statusBody {
	r.mu.Lock()
	defer r.mu.Unlock()
	body := statusBody{
		Connected: r.ext != nil,
		Clients:   len(r.clients),
		Counters:  r.counters,
	}
	if r.ext != nil {
		body.ExtensionID = r.ext.id
	}
	return body
}

type statusBody struct {
	Connected   bool     `json:"connected"`
	Clients     int      `json:"clients"`
	ExtensionID string   `json:"extensionId,omitempty"`
	Counters    Counters `json:"counters"`
}

func logf(format string, args ...any) {
	logging.Infof(format, args...)
}
