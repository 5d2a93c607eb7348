package relay

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleSynthetic_BrowserGetVersion(t *testing.T) {
	r := newTestRelay(t, Config{})
	c := newBareClient(t, "c1")

	result, cdpErr, ok := r.handleSynthetic(c, &cdpCommand{ID: 1, Method: "Browser.getVersion"})
	require.True(t, ok)
	assert.Nil(t, cdpErr)
	assert.NotNil(t, result)
}

func TestHandleSynthetic_GetTargets_EmptyWithoutExtension(t *testing.T) {
	r := newTestRelay(t, Config{})
	c := newBareClient(t, "c1")

	result, _, ok := r.handleSynthetic(c, &cdpCommand{ID: 1, Method: "Target.getTargets"})
	require.True(t, ok)
	body := result.(map[string]any)
	assert.Empty(t, body["targetInfos"])
}

func TestHandleSynthetic_AttachToTarget(t *testing.T) {
	r := newTestRelay(t, Config{})
	r.target = &SyntheticTarget{TargetID: "t1", Type: "page", Title: "x", URL: "about:blank"}
	c := newBareClient(t, "c1")

	params, _ := json.Marshal(map[string]string{"targetId": "t1"})
	var raw any
	_ = json.Unmarshal(params, &raw)

	result, cdpErr, ok := r.handleSynthetic(c, &cdpCommand{ID: 2, Method: "Target.attachToTarget", Params: raw})
	require.True(t, ok)
	require.Nil(t, cdpErr)

	sessionID := result.(map[string]any)["sessionId"].(string)
	assert.Regexp(t, hex32, sessionID)

	owner, ok := r.sessionOwner(sessionID)
	assert.True(t, ok)
	assert.Equal(t, c.id, owner)

	// attachedToTarget event should have been queued to the caller.
	select {
	case frame := <-c.send:
		assert.Contains(t, string(frame), "Target.attachedToTarget")
		assert.Contains(t, string(frame), sessionID)
	default:
		t.Fatal("expected a queued attachedToTarget event")
	}
}

func TestHandleSynthetic_AttachToTarget_UnknownTarget(t *testing.T) {
	r := newTestRelay(t, Config{})
	c := newBareClient(t, "c1")

	params, _ := json.Marshal(map[string]string{"targetId": "nope"})
	var raw any
	_ = json.Unmarshal(params, &raw)

	_, cdpErr, ok := r.handleSynthetic(c, &cdpCommand{ID: 2, Method: "Target.attachToTarget", Params: raw})
	require.True(t, ok)
	require.NotNil(t, cdpErr)
	assert.Equal(t, -32602, cdpErr.Code)
}

func TestHandleSynthetic_DetachFromTarget_RejectsUnowned(t *testing.T) {
	r := newTestRelay(t, Config{})
	c := newBareClient(t, "c1")

	params, _ := json.Marshal(map[string]string{"sessionId": "not-owned"})
	var raw any
	_ = json.Unmarshal(params, &raw)

	_, cdpErr, ok := r.handleSynthetic(c, &cdpCommand{ID: 3, Method: "Target.detachFromTarget", Params: raw})
	require.True(t, ok)
	require.NotNil(t, cdpErr)
	assert.Equal(t, -32001, cdpErr.Code)
}

func TestHandleSynthetic_UnknownMethodFallsThrough(t *testing.T) {
	r := newTestRelay(t, Config{})
	c := newBareClient(t, "c1")
	_, _, ok := r.handleSynthetic(c, &cdpCommand{ID: 1, Method: "Page.navigate"})
	assert.False(t, ok)
}

func TestObserveTargetHint_AnnouncesFromTargetCreated(t *testing.T) {
	r := newTestRelay(t, Config{})
	r.observeTargetHint("Target.targetCreated", map[string]any{
		"targetId": "t1", "type": "page", "title": "Example", "url": "https://example.com",
	})

	r.mu.Lock()
	target := r.target
	r.mu.Unlock()
	require.NotNil(t, target)
	assert.Equal(t, "t1", target.TargetID)
	assert.Equal(t, "Example", target.Title)
}

func TestObserveTargetHint_RefreshPreservesTargetID(t *testing.T) {
	r := newTestRelay(t, Config{})
	r.target = &SyntheticTarget{TargetID: "t1", Type: "page", Title: "old", URL: "about:blank"}

	r.observeTargetHint("Target.targetInfoChanged", map[string]any{
		"targetInfo": map[string]any{"targetId": "t1", "title": "new", "url": "https://x.test"},
	})

	r.mu.Lock()
	target := r.target
	r.mu.Unlock()
	assert.Equal(t, "t1", target.TargetID)
	assert.Equal(t, "new", target.Title)
	assert.Equal(t, "https://x.test", target.URL)
}
