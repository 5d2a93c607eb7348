// Package config loads the relay's on-disk configuration: a YAML file with
// environment-variable expansion, parsed into a relay.Config. Defaulting and
// validation are left to relay.ResolveConfig.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cdprelay/relay/internal/relay"
)

// File is the on-disk shape of the relay's config file. Field names match
// the options in §6 of the interface contract: port, host, token,
// extensionIds, pingIntervalMs, commandTimeoutMs, longCommandTimeoutMs,
// maxClientQueueBytes.
type File struct {
	Port                 int      `yaml:"port"`
	Host                 string   `yaml:"host"`
	Token                string   `yaml:"token"`
	ExtensionIDs         []string `yaml:"extensionIds"`
	PingIntervalMs       int      `yaml:"pingIntervalMs"`
	CommandTimeoutMs     int      `yaml:"commandTimeoutMs"`
	LongCommandTimeoutMs int      `yaml:"longCommandTimeoutMs"`
	MaxClientQueueBytes  int      `yaml:"maxClientQueueBytes"`
}

// Load reads a YAML config file from path, expanding ${VAR} references
// against the process environment before parsing so secrets like token can
// be injected without touching the file on disk.
func Load(path string) (relay.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return relay.Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	return LoadFromBytes(data)
}

// LoadFromBytes parses raw YAML bytes into a relay.Config, useful for the
// //go:embed default and for tests.
func LoadFromBytes(data []byte) (relay.Config, error) {
	expanded := os.ExpandEnv(string(data))
	var f File
	if err := yaml.Unmarshal([]byte(expanded), &f); err != nil {
		return relay.Config{}, fmt.Errorf("config: parse yaml: %w", err)
	}
	return relay.Config{
		Port:                 f.Port,
		Host:                 f.Host,
		Token:                f.Token,
		ExtensionIDs:         f.ExtensionIDs,
		PingIntervalMs:       f.PingIntervalMs,
		CommandTimeoutMs:     f.CommandTimeoutMs,
		LongCommandTimeoutMs: f.LongCommandTimeoutMs,
		MaxClientQueueBytes:  f.MaxClientQueueBytes,
	}, nil
}
