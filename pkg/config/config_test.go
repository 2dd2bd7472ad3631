package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	// 空目录中没有 config.yaml
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "_secalot._tcp", cfg.Discovery.Service)
	assert.Equal(t, "local.", cfg.Discovery.Domain)
	assert.Equal(t, time.Second, cfg.Discovery.PollInterval)
	assert.Equal(t, 5, cfg.Discovery.FailureThreshold)
	assert.Equal(t, 5*time.Second, cfg.Discovery.Backoff)
	assert.Equal(t, time.Second, cfg.Session.ConnectTimeout)
	assert.Equal(t, 5*time.Second, cfg.Session.ConfirmTimeout)
	assert.Equal(t, []string{"BTC", "ETH", "XRP"}, cfg.Session.Chains)
	assert.Equal(t, "mainnet", cfg.Session.BtcNetwork)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
app:
  env: production
session:
  confirm_timeout: 8s
  chains: [ETH, XRP]
  btc_network: testnet3
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0600))
	t.Setenv("REMOTE_SCREEN_DISCOVERY_BACKOFF", "7s")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.App.Env)
	assert.Equal(t, 8*time.Second, cfg.Session.ConfirmTimeout)
	assert.Equal(t, []string{"ETH", "XRP"}, cfg.Session.Chains)
	assert.Equal(t, "testnet3", cfg.Session.BtcNetwork)
	assert.Equal(t, 7*time.Second, cfg.Discovery.Backoff)
}

func TestLoadRejectsBadNetwork(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("session:\n  btc_network: dogecoin\n"), 0600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
