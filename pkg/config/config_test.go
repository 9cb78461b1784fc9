package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validYAML = `
environment: test
server:
  port: 8080
backend:
  type: direct
authority:
  base_url: http://authority.local
  rate_per_second: 10
resolution:
  poll_interval: 30s
consensus:
  epsilon: 0.1
calibration:
  buckets: 10
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadValid(t *testing.T) {
	c, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)
	assert.Equal(t, "test", c.Environment)
	assert.Equal(t, "direct", c.Backend.Type)
	assert.Equal(t, 0.1, c.Consensus.Epsilon)
	assert.Equal(t, 10, c.Calibration.Buckets)
}

func TestValidateRejectsUnknownBackend(t *testing.T) {
	_, err := Load(writeConfig(t, `
environment: test
backend:
  type: carrier-pigeon
authority:
  base_url: http://authority.local
`))
	assert.ErrorContains(t, err, "backend.type")
}

func TestValidateRequiresAuthority(t *testing.T) {
	_, err := Load(writeConfig(t, `
environment: test
backend:
  type: direct
`))
	assert.ErrorContains(t, err, "authority.base_url")
}

func TestValidateKafkaNeedsBrokers(t *testing.T) {
	_, err := Load(writeConfig(t, `
environment: test
backend:
  type: kafka
authority:
  base_url: http://authority.local
`))
	assert.ErrorContains(t, err, "kafka.brokers")
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("AUTHORITY_BASE_URL", "http://override.local")
	t.Setenv("BACKEND", "direct")

	c, err := LoadWithEnv(writeConfig(t, validYAML))
	require.NoError(t, err)
	assert.Equal(t, "http://override.local", c.Authority.BaseURL)
	assert.Equal(t, "direct", c.Backend.Type)
}
