package relay

import "time"

// Network defaults (§6).
const (
	DefaultPort = 19988
	DefaultHost = "127.0.0.1"
)

// Timing and sizing defaults (§4.C, §4.G, §5).
const (
	DefaultPingInterval   = 30 * time.Second
	DefaultCommandTimeout = 30 * time.Second
	LongCommandTimeout    = 60 * time.Second
	DefaultMaxClientQueue = 1 << 20 // 1 MiB
	maxQueuedFrames       = 1000
	shutdownGrace         = 2 * time.Second
	handshakeWait         = 5 * time.Second
)

// longCommandMethods get LongCommandTimeout instead of DefaultCommandTimeout.
var longCommandMethods = map[string]bool{
	"Page.navigate":          true,
	"Runtime.evaluate":       true,
	"Runtime.callFunctionOn": true,
	"Page.captureScreenshot": true,
	"Page.printToPDF":        true,
	"Target.createTarget":    true,
}

// DefaultExtensionIDs is the build-time allowlist of extension ids accepted
// on /extension: one production id plus the development ids used while
// loading the unpacked extension locally. Fixed at build time, never
// wildcarded.
var DefaultExtensionIDs = []string{
	"jfeammnjpkecdekppnclgkkffahnhfhe", // production (Chrome Web Store)
	"bfnaelmomeimhlpmgjnjophhpkkoljpa", // dev: unpacked load, key A
	"ldmmifpegigmeammaeckplhnjbbpccmm", // dev: unpacked load, key B
}

func isLongCommand(method string) bool {
	return longCommandMethods[method]
}
