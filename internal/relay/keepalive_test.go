package relay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPingClients_EvictsAfterTwoMissedPings(t *testing.T) {
	r := newTestRelay(t, Config{})
	c := newBareClient(t, "c1")
	c.missedPings = 2
	r.addClient(c)

	r.pingClients()

	r.mu.Lock()
	_, exists := r.clients[c.id]
	r.mu.Unlock()
	assert.False(t, exists)
}

func TestPingExtension_ClearsAfterTwoMissedPings(t *testing.T) {
	r := newTestRelay(t, Config{})
	ext := &extConn{id: "ext-1", send: make(chan []byte, 1), done: make(chan struct{}), missedPings: 2}
	ext.state.Store(stateOpen)
	r.setExtension(ext)

	r.pingExtension()

	assert.False(t, r.extensionConnected())
}

func TestOnPong_ResetsMissedPings(t *testing.T) {
	c := newBareClient(t, "c1")
	c.missedPings = 2
	c.onPong()
	assert.Equal(t, 0, c.missedPings)
}

// P10: shutdown resolves every pending command rather than leaving callers
// hanging, and marks the relay as closing.
func TestShutdownGracefully_ResolvesPendingCommands(t *testing.T) {
	r := newTestRelay(t, Config{})
	c := newBareClient(t, "c1")
	r.addClient(c)

	pc := &PendingCommand{RelayID: 1, ClientID: c.id, OrigID: 4, Deadline: time.Now().Add(time.Minute), resolve: make(chan *extensionResponse, 1)}
	r.registerPending(pc)

	done := make(chan *extensionResponse, 1)
	go func() { done <- <-pc.resolve }()

	start := time.Now()
	r.shutdownGracefully()
	elapsed := time.Since(start)

	assert.True(t, r.isClosing())
	assert.GreaterOrEqual(t, elapsed, shutdownGrace)

	resp := <-done
	require.NotNil(t, resp.Error)
	assert.Equal(t, "shutdown", resp.Error.Message)

	assert.Equal(t, stateClosed, c.state.Load())
}

func TestSweepExpired_IntegratesWithKeepaliveTick(t *testing.T) {
	r := newTestRelay(t, Config{})
	c := newBareClient(t, "c1")
	r.addClient(c)

	pc := &PendingCommand{RelayID: 1, ClientID: c.id, OrigID: 2, Deadline: time.Now().Add(-time.Minute), resolve: make(chan *extensionResponse, 1)}
	r.registerPending(pc)

	r.sweepExpired(time.Now())

	resp := <-pc.resolve
	require.NotNil(t, resp.Error)
	assert.Equal(t, "relay timeout", resp.Error.Message)
}
