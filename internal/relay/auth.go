package relay

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// rejectReason categorizes a handshake rejection for logging, without ever
// echoing the supplied token (§4.A).
type rejectReason string

const (
	reasonNoToken    rejectReason = "no-token"
	reasonBadToken   rejectReason = "bad-token"
	reasonBadOrigin  rejectReason = "bad-origin"
	reasonUnknownExt rejectReason = "unknown-ext"
)

// checkClientAuth validates a /cdp upgrade request. If the relay was
// started with a configured token, the query parameter must match using a
// constant-time comparison (P1). With no configured token, unauthenticated
// clients are accepted (localhost trust model).
func (r *Relay) checkClientAuth(req *http.Request) (rejectReason, bool) {
	if r.cfg.Token == "" {
		return "", true
	}
	supplied := req.URL.Query().Get("token")
	if supplied == "" {
		return reasonNoToken, false
	}
	if !constantTimeEqual(supplied, r.cfg.Token) {
		return reasonBadToken, false
	}
	return "", true
}

// checkExtensionOrigin validates a /extension upgrade request: Origin must
// be "chrome-extension://<id>" with id in the allowlist (P2).
func (r *Relay) checkExtensionOrigin(req *http.Request) (rejectReason, bool) {
	origin := req.Header.Get("Origin")
	const prefix = "chrome-extension://"
	if origin == "" || !strings.HasPrefix(origin, prefix) {
		return reasonBadOrigin, false
	}
	id := strings.TrimPrefix(origin, prefix)
	if id == "" {
		return reasonBadOrigin, false
	}
	if !r.cfg.ExtensionIDs[id] {
		return reasonUnknownExt, false
	}
	return "", true
}

// constantTimeEqual compares two tokens without leaking timing information
// about where they first differ. subtle.ConstantTimeCompare returns at once
// when the lengths differ, so only the length can leak; equal-length tokens
// are compared in constant time.
func constantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
