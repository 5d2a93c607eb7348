package relay

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Config is the relay configuration as loaded from YAML/env (§6).
type Config struct {
	Port                 int      `json:"port,omitempty" yaml:"port,omitempty"`
	Host                 string   `json:"host,omitempty" yaml:"host,omitempty"`
	Token                string   `json:"token,omitempty" yaml:"token,omitempty"`
	ExtensionIDs         []string `json:"extensionIds,omitempty" yaml:"extensionIds,omitempty"`
	PingIntervalMs       int      `json:"pingIntervalMs,omitempty" yaml:"pingIntervalMs,omitempty"`
	CommandTimeoutMs     int      `json:"commandTimeoutMs,omitempty" yaml:"commandTimeoutMs,omitempty"`
	LongCommandTimeoutMs int      `json:"longCommandTimeoutMs,omitempty" yaml:"longCommandTimeoutMs,omitempty"`
	MaxClientQueueBytes  int      `json:"maxClientQueueBytes,omitempty" yaml:"maxClientQueueBytes,omitempty"`
}

// ResolvedConfig is Config with every field defaulted and validated.
type ResolvedConfig struct {
	Addr                string
	Token               string
	ExtensionIDs        map[string]bool
	PingInterval        time.Duration
	CommandTimeout      time.Duration
	LongCommandTimeout  time.Duration
	MaxClientQueueBytes int
}

// DefaultConfig returns the out-of-the-box relay configuration.
func DefaultConfig() Config {
	return Config{
		Port:                 DefaultPort,
		Host:                 DefaultHost,
		ExtensionIDs:         append([]string(nil), DefaultExtensionIDs...),
		PingIntervalMs:       int(DefaultPingInterval.Milliseconds()),
		CommandTimeoutMs:     int(DefaultCommandTimeout.Milliseconds()),
		LongCommandTimeoutMs: int(LongCommandTimeout.Milliseconds()),
		MaxClientQueueBytes:  DefaultMaxClientQueue,
	}
}

// ResolveConfig fills in defaults for anything the caller left zero, then
// validates the port range (§6).
func ResolveConfig(cfg Config) (*ResolvedConfig, error) {
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("relay: port %d out of range [1,65535]", cfg.Port)
	}
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.PingIntervalMs == 0 {
		cfg.PingIntervalMs = int(DefaultPingInterval.Milliseconds())
	}
	if cfg.CommandTimeoutMs == 0 {
		cfg.CommandTimeoutMs = int(DefaultCommandTimeout.Milliseconds())
	}
	if cfg.LongCommandTimeoutMs == 0 {
		cfg.LongCommandTimeoutMs = int(LongCommandTimeout.Milliseconds())
	}
	if cfg.MaxClientQueueBytes == 0 {
		cfg.MaxClientQueueBytes = DefaultMaxClientQueue
	}

	ids := cfg.ExtensionIDs
	if len(ids) == 0 {
		ids = DefaultExtensionIDs
	}
	allowlist := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id != "" {
			allowlist[id] = true
		}
	}

	return &ResolvedConfig{
		Addr:                net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Token:               cfg.Token,
		ExtensionIDs:        allowlist,
		PingInterval:        time.Duration(cfg.PingIntervalMs) * time.Millisecond,
		CommandTimeout:      time.Duration(cfg.CommandTimeoutMs) * time.Millisecond,
		LongCommandTimeout:  time.Duration(cfg.LongCommandTimeoutMs) * time.Millisecond,
		MaxClientQueueBytes: cfg.MaxClientQueueBytes,
	}, nil
}
