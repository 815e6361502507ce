package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "log:\n  level: debug\n"))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.OVN.LoadCacheOnStartup)
	assert.True(t, cfg.OVN.JSONFormat)
	assert.Equal(t, "ovn-nbctl", cfg.OVN.CommandPrefix)
	assert.Equal(t, 30*time.Second, cfg.OVN.FetchTimeout)
	assert.Equal(t, "kubectl", cfg.Executor.Mode)
	assert.Equal(t, "openshift-ovn-kubernetes", cfg.Executor.Kubectl.Namespace)
	assert.Equal(t, "app=ovnkube-node", cfg.Executor.Kubectl.LabelSelector)
	assert.Equal(t, "nbdb", cfg.Executor.Kubectl.Container)
	assert.NotContains(t, cfg.OVN.CacheDir, "~")
	assert.True(t, strings.HasSuffix(cfg.OVN.CacheDir, filepath.Join(".ovn_explorer", "cache")), cfg.OVN.CacheDir)
	assert.Same(t, cfg, Get())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("OVN_SSH_PASSWORD", "s3cret")
	cfg, err := Load(writeConfig(t, `
ovn:
  cache_dir: /var/cache/ovn
  fetch_timeout: 5s
  load_cache_on_startup: false
  commands:
    switch: "ovn-nbctl --no-leader-only --format=json list Logical_Switch"
executor:
  mode: ssh
  ssh:
    host: 10.0.0.5
    username: core
    password: ${OVN_SSH_PASSWORD}
`))
	require.NoError(t, err)

	assert.Equal(t, "/var/cache/ovn", cfg.OVN.CacheDir)
	assert.Equal(t, 5*time.Second, cfg.OVN.FetchTimeout)
	assert.False(t, cfg.OVN.LoadCacheOnStartup)
	assert.Contains(t, cfg.OVN.Commands["switch"], "--no-leader-only")
	assert.Equal(t, "s3cret", cfg.Executor.SSH.Password)
	assert.Equal(t, 22, cfg.Executor.SSH.Port)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("OVN_EXPLORER_OVN_CACHE_DIR", "/tmp/ovn-env-cache")
	cfg, err := Load(writeConfig(t, "server:\n  port: 9000\n"))
	require.NoError(t, err)
	assert.Equal(t, "/tmp/ovn-env-cache", cfg.OVN.CacheDir)
	assert.Equal(t, 9000, cfg.Server.Port)
}

func TestLoadLegacyTimeoutKey(t *testing.T) {
	cfg, err := Load(writeConfig(t, "ovn:\n  timeout: 12\n"))
	require.NoError(t, err)
	assert.Equal(t, 12*time.Second, cfg.OVN.FetchTimeout)
}

func TestLoadValidation(t *testing.T) {
	_, err := Load(writeConfig(t, "executor:\n  mode: telnet\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "executor:\n  mode: ssh\n"))
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
