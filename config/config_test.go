package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"one-rpc/one"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "one-rpc.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ONE_RPC_CONFIG", "")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := writeFile(t, `
endpoint: http://10.10.1.3:2633/RPC2
timeout: 5s
user: alice
log_level: debug
etcd_endpoints: [10.0.0.1:2379]
balancer: consistent_hash
`)
	t.Setenv("ONE_RPC_TIMEOUT", "7s")
	t.Setenv("ONE_RPC_MAX_RETRIES", "2")
	t.Setenv("ONE_RPC_ETCD_ENDPOINTS", "a:2379, b:2379")
	t.Setenv("ONE_RPC_LOG_JSON", "yes")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://10.10.1.3:2633/RPC2", cfg.Endpoint)
	assert.Equal(t, 7*time.Second, cfg.Timeout)
	assert.Equal(t, "alice", cfg.User)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 2, cfg.MaxRetries)
	assert.True(t, cfg.LogJSON)
	assert.Equal(t, []string{"a:2379", "b:2379"}, cfg.EtcdEndpoints)
	assert.Equal(t, "consistent_hash", cfg.Balancer)
}

func TestLoadConfigFromEnvPath(t *testing.T) {
	t.Setenv("ONE_RPC_CONFIG", writeFile(t, "content_type: text/xml\n"))
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "text/xml", cfg.ContentType)
}

func TestLoadErrors(t *testing.T) {
	t.Setenv("ONE_RPC_CONFIG", "")

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "endpoitn: typo\n"))
	assert.Error(t, err, "unknown keys are rejected")

	t.Setenv("ONE_RPC_TIMEOUT", "soon")
	_, err = Load("")
	assert.ErrorContains(t, err, "ONE_RPC_TIMEOUT")
}

func TestValidate(t *testing.T) {
	mutate := map[string]func(*Config){
		"no endpoint":      func(c *Config) { c.Endpoint = "" },
		"not http":         func(c *Config) { c.Endpoint = "ftp://x/RPC2" },
		"zero timeout":     func(c *Config) { c.Timeout = 0 },
		"content type":     func(c *Config) { c.ContentType = "application/json" },
		"balancer":         func(c *Config) { c.Balancer = "random" },
		"log level":        func(c *Config) { c.LogLevel = "loud" },
		"negative rate":    func(c *Config) { c.RateLimit = -1 },
		"zero burst":       func(c *Config) { c.RateLimit, c.RateBurst = 5, 0 },
		"negative retries": func(c *Config) { c.MaxRetries = -1 },
		"retry delay":      func(c *Config) { c.MaxRetries, c.RetryBaseDelay = 1, 0 },
		"colon in user":    func(c *Config) { c.User = "a:b" },
	}
	for name, m := range mutate {
		cfg := Default()
		m(&cfg)
		assert.Error(t, cfg.Validate(), name)
	}

	cfg := Default()
	cfg.Endpoint = ""
	cfg.EtcdEndpoints = []string{"etcd:2379"}
	assert.NoError(t, cfg.Validate(), "etcd discovery replaces the endpoint")
}

func TestCredential(t *testing.T) {
	cfg := Default()
	_, err := cfg.Credential()
	assert.Error(t, err)

	cfg.User, cfg.Secret = "alice", "tok"
	cred, err := cfg.Credential()
	require.NoError(t, err)
	assert.Equal(t, "alice:tok", cred)
	assert.Equal(t, one.Credential("alice", "tok"), cred)

	// The secret may itself contain ':'; only the first one separates.
	cfg.Secret = "a:b"
	cred, err = cfg.Credential()
	require.NoError(t, err)
	assert.Equal(t, "alice", one.Username(cred))
}

func TestBuildLogger(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "warn"
	logger, err := BuildLogger(cfg)
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))
}
