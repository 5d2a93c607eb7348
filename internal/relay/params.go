package relay

import "encoding/json"

// decodeParams re-marshals an opaque CDP params value into a typed struct
// for the handful of synthetic methods the relay actually inspects (§9:
// everything else stays an opaque JSON value). Decode errors leave dst at
// its zero value rather than failing the command.
func decodeParams(params any, dst any) {
	if params == nil {
		return
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return
	}
	_ = json.Unmarshal(raw, dst)
}
