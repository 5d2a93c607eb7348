package relay

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

var hex32 = regexp.MustCompile(`^[0-9a-f]{32}$`)

func TestNewSessionID_Is32HexChars(t *testing.T) {
	id := newSessionID()
	assert.Regexp(t, hex32, id)
}

func TestBindAndUnbindSession(t *testing.T) {
	r := newTestRelay(t, Config{})
	b := r.bindSession("client-1", "session-1", "target-1", true)
	assert.Equal(t, "client-1", b.ClientID)

	owner, ok := r.sessionOwner("session-1")
	assert.True(t, ok)
	assert.Equal(t, "client-1", owner)
	assert.True(t, r.assertOwnership("client-1", "session-1"))
	assert.False(t, r.assertOwnership("client-2", "session-1"))

	r.unbindSession("session-1")
	_, ok = r.sessionOwner("session-1")
	assert.False(t, ok)
}

func TestRouteEvent_DeliversToOwnerOnly(t *testing.T) {
	r := newTestRelay(t, Config{})
	owner := newBareClient(t, "owner")
	other := newBareClient(t, "other")
	r.addClient(owner)
	r.addClient(other)
	r.bindSession(owner.id, "session-1", "target-1", false)

	r.routeEvent(&cdpEvent{Method: "Runtime.consoleAPICalled", SessionID: "session-1"})

	select {
	case frame := <-owner.send:
		assert.Contains(t, string(frame), "Runtime.consoleAPICalled")
	default:
		t.Fatal("owner should have received the event")
	}

	select {
	case <-other.send:
		t.Fatal("non-owner should not receive a session-scoped event")
	default:
	}
}

func TestRouteEvent_UnownedSessionIsDroppedAndCounted(t *testing.T) {
	r := newTestRelay(t, Config{})
	r.routeEvent(&cdpEvent{Method: "Runtime.consoleAPICalled", SessionID: "no-such-session"})

	r.mu.Lock()
	defer r.mu.Unlock()
	assert.EqualValues(t, 1, r.counters.DroppedEvents)
}

func TestBroadcast_DeliversToEveryClientExactlyOnce(t *testing.T) {
	r := newTestRelay(t, Config{})
	a := newBareClient(t, "a")
	b := newBareClient(t, "b")
	r.addClient(a)
	r.addClient(b)

	r.routeEvent(&cdpEvent{Method: "Target.targetInfoChanged"})

	for _, c := range []*clientConn{a, b} {
		assert.Len(t, c.send, 1)
	}
}
