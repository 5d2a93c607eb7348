package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromBytes_ParsesFields(t *testing.T) {
	yaml := []byte(`
port: 9001
host: 0.0.0.0
token: static-token
extensionIds:
  - jfeammnjpkecdekppnclgkkffahnhfhe
pingIntervalMs: 15000
commandTimeoutMs: 20000
longCommandTimeoutMs: 45000
maxClientQueueBytes: 2097152
`)

	cfg, err := LoadFromBytes(yaml)
	require.NoError(t, err)
	assert.Equal(t, 9001, cfg.Port)
	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, "static-token", cfg.Token)
	assert.Equal(t, []string{"jfeammnjpkecdekppnclgkkffahnhfhe"}, cfg.ExtensionIDs)
	assert.Equal(t, 15000, cfg.PingIntervalMs)
	assert.Equal(t, 20000, cfg.CommandTimeoutMs)
	assert.Equal(t, 45000, cfg.LongCommandTimeoutMs)
	assert.Equal(t, 2097152, cfg.MaxClientQueueBytes)
}

func TestLoadFromBytes_ExpandsEnvVars(t *testing.T) {
	t.Setenv("CDPRELAY_TEST_TOKEN", "from-env")

	yaml := []byte(`
port: 9001
token: ${CDPRELAY_TEST_TOKEN}
`)

	cfg, err := LoadFromBytes(yaml)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Token)
}

func TestLoadFromBytes_UnsetEnvVarExpandsEmpty(t *testing.T) {
	_ = os.Unsetenv("CDPRELAY_UNSET_TOKEN")

	yaml := []byte(`token: ${CDPRELAY_UNSET_TOKEN}`)

	cfg, err := LoadFromBytes(yaml)
	require.NoError(t, err)
	assert.Equal(t, "", cfg.Token)
}

func TestLoadFromBytes_RejectsInvalidYAML(t *testing.T) {
	_, err := LoadFromBytes([]byte("port: [unterminated"))
	assert.Error(t, err)
}

func TestLoad_ReadsFile(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/cdprelayd.yaml"
	require.NoError(t, os.WriteFile(path, []byte("port: 7000\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Port)
}

func TestLoad_MissingFileErrors(t *testing.T) {
	_, err := Load("/nonexistent/path/to/cdprelayd.yaml")
	assert.Error(t, err)
}
