package relay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextID_Monotonic(t *testing.T) {
	r := newTestRelay(t, Config{})
	a := r.nextID()
	b := r.nextID()
	c := r.nextID()
	assert.Less(t, a, b)
	assert.Less(t, b, c)
}

func TestResolvePending_UnknownIDIsCounted(t *testing.T) {
	r := newTestRelay(t, Config{})
	r.resolvePending(999, &extensionResponse{ID: 999})

	r.mu.Lock()
	defer r.mu.Unlock()
	assert.EqualValues(t, 1, r.counters.UnknownCorrelations)
}

func TestResolvePending_StampsRelayIDAndClearsPending(t *testing.T) {
	r := newTestRelay(t, Config{})
	c := newBareClient(t, "client-1")
	r.addClient(c)

	pc := &PendingCommand{RelayID: 42, ClientID: c.id, OrigID: 7, resolve: make(chan *extensionResponse, 1)}
	r.registerPending(pc)

	r.resolvePending(42, &extensionResponse{Result: "ok"})

	resp := <-pc.resolve
	assert.Equal(t, 42, resp.ID) // resolvePending stamps the relay-id; the
	// caller (awaitExtensionReply) is the one that substitutes OrigID back.

	r.mu.Lock()
	_, stillPending := r.pending[42]
	r.mu.Unlock()
	assert.False(t, stillPending)
}

func TestSweepExpired_ResolvesWithTimeoutError(t *testing.T) {
	r := newTestRelay(t, Config{})
	c := newBareClient(t, "client-1")
	r.addClient(c)

	pc := &PendingCommand{RelayID: 1, ClientID: c.id, OrigID: 5, Deadline: time.Now().Add(-time.Second), resolve: make(chan *extensionResponse, 1)}
	r.registerPending(pc)

	notExpired := &PendingCommand{RelayID: 2, ClientID: c.id, OrigID: 6, Deadline: time.Now().Add(time.Hour), resolve: make(chan *extensionResponse, 1)}
	r.registerPending(notExpired)

	r.sweepExpired(time.Now())

	resp := <-pc.resolve
	require.NotNil(t, resp.Error)
	assert.Equal(t, -32000, resp.Error.Code)
	assert.Equal(t, "relay timeout", resp.Error.Message)

	select {
	case <-notExpired.resolve:
		t.Fatal("non-expired command should not have been resolved")
	default:
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	assert.EqualValues(t, 1, r.counters.TimedOutCommands)
}

func TestCommandDeadline_LongMethodsGetLongerTimeout(t *testing.T) {
	r := newTestRelay(t, Config{})
	short := r.commandDeadline("Runtime.getProperties")
	long := r.commandDeadline("Page.navigate")
	assert.True(t, long.After(short))
}
