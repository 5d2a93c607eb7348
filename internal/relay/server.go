package relay

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/cdprelay/relay/internal/logging"
)

// Server owns the HTTP listener and router and mounts a Relay's handlers on
// it. The Relay's handlers do the upgrades; Server binds the listener and
// runs the http.Server (§4.H).
type Server struct {
	relay    *Relay
	httpSrv  *http.Server
	listener net.Listener
}

// NewServer builds a Server around cfg, ready to Start.
func NewServer(cfg *ResolvedConfig) *Server {
	r := NewRelay(cfg)
	mux := chi.NewRouter()
	mux.Get("/extension/status", r.handleStatus)
	mux.HandleFunc("/cdp", r.handleCdpUpgrade)
	mux.HandleFunc("/extension", r.handleExtensionUpgrade)

	return &Server{
		relay: r,
		httpSrv: &http.Server{
			Addr:    cfg.Addr,
			Handler: mux,
		},
	}
}

// Start binds the listener and begins serving. It returns once the socket
// is bound; Serve runs in the background. A bind failure is a kind-7 fatal
// error (§7) and is returned directly so the caller can pick exit code 2.
func (s *Server) Start() error {
	l, err := net.Listen("tcp", s.httpSrv.Addr)
	if err != nil {
		return err
	}
	s.listener = l
	go s.relay.runKeepalive()
	go func() {
		if err := s.httpSrv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Errorf("relay: serve error: %v", err)
		}
	}()
	logging.Infof("relay: listening on %s", s.httpSrv.Addr)
	return nil
}

// Close performs the ordered shutdown from §4.G and P10: refuses new
// upgrades, closes every connection, then tears down the HTTP server.
func (s *Server) Close() error {
	s.relay.stopOnce.Do(func() { close(s.relay.stopCh) })
	s.relay.shutdownGracefully()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return s.httpSrv.Shutdown(ctx)
}

func (r *Relay) isClosing() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closing
}

func (r *Relay) handleStatus(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(r.statusSnapshot())
}

// handleCdpUpgrade authenticates and upgrades a /cdp client connection,
// then runs its read loop until disconnect (§4.A, §4.B).
func (r *Relay) handleCdpUpgrade(w http.ResponseWriter, req *http.Request) {
	if r.isClosing() {
		http.Error(w, "relay shutting down", http.StatusServiceUnavailable)
		return
	}
	if reason, ok := r.checkClientAuth(req); !ok {
		logf("cdp upgrade rejected: %s", reason)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	ws, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		return
	}

	c := newClientConn(uuid.NewString(), req.RemoteAddr, ws, r.cfg.MaxClientQueueBytes)
	r.addClient(c)
	logf("cdp client connected: %s", c.id)

	ws.SetPongHandler(func(string) error {
		c.onPong()
		return nil
	})

	for {
		msgType, data, err := ws.ReadMessage()
		if err != nil {
			break
		}
		if msgType != websocket.TextMessage {
			continue // protocol error on a client frame is dropped, not fatal (§7 kind 2)
		}

		var cmd cdpCommand
		if err := json.Unmarshal(data, &cmd); err != nil || cmd.Method == "" {
			// The frame is dropped; an error reply goes back only when an id
			// can still be read from it (§7 kind 2).
			var probe struct {
				ID *int `json:"id"`
			}
			if json.Unmarshal(data, &probe) == nil && probe.ID != nil {
				c.sendResponse(&cdpResponse{ID: *probe.ID, Error: &cdpError{Code: -32600, Message: "invalid request"}})
			}
			continue
		}
		r.dispatchCommand(c, &cmd)
	}

	logf("cdp client disconnected: %s", c.id)
	r.removeClient(c.id, "connection closed")
}

// handleExtensionUpgrade authenticates and upgrades the single /extension
// connection, replacing any existing one, then runs its read loop (§4.A,
// §4.B, P3).
func (r *Relay) handleExtensionUpgrade(w http.ResponseWriter, req *http.Request) {
	if r.isClosing() {
		http.Error(w, "relay shutting down", http.StatusServiceUnavailable)
		return
	}
	if reason, ok := r.checkExtensionOrigin(req); !ok {
		logf("extension upgrade rejected: %s", reason)
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	origin := req.Header.Get("Origin")
	extID := origin[len("chrome-extension://"):]

	ws, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		return
	}

	e := newExtConn(extID, origin, req.RemoteAddr, ws)
	_, replaced := r.setExtension(e)
	if replaced {
		r.mu.Lock()
		r.counters.ExtensionReplacements++
		r.mu.Unlock()
	}
	logf("extension connected: %s", extID)

	ws.SetPongHandler(func(string) error {
		e.missedPings = 0
		return nil
	})

	handshakeDeadline := time.AfterFunc(handshakeWait, func() {
		r.mu.Lock()
		announced := r.target != nil
		r.mu.Unlock()
		if !announced {
			closeWithReason(e.ws, &e.writeMu, 1002, "handshake timeout")
			e.close()
		}
	})
	defer handshakeDeadline.Stop()

	for {
		msgType, data, err := ws.ReadMessage()
		if err != nil {
			break
		}
		if msgType != websocket.TextMessage {
			r.mu.Lock()
			r.counters.ProtocolErrors++
			r.mu.Unlock()
			logf("extension protocol error: binary frame")
			closeWithReason(e.ws, &e.writeMu, 1002, "binary frame")
			break
		}
		if !r.handleExtensionFrame(e, data) {
			r.mu.Lock()
			r.counters.ProtocolErrors++
			r.mu.Unlock()
			logf("extension protocol error: malformed frame")
			closeWithReason(e.ws, &e.writeMu, 1002, "protocol error")
			break
		}
	}

	logf("extension disconnected: %s", extID)
	e.close()
	r.clearExtension(e)
}
