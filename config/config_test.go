package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkitektio/rekuest-next/config"
)

func TestLoadFromFile_AppliesDefaultsForUnsetFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rekuest-agent.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[agent]
instance_id = "agent-1"
`), 0o644))

	cfg, err := config.LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "agent-1", cfg.Agent.InstanceID)
	assert.Equal(t, "ws://localhost:8000/ws", cfg.Transport.URL)
	assert.Equal(t, 30, cfg.Transport.PingIntervalSecs)
	assert.Equal(t, 0, cfg.Transport.ReconnectAttempts)
}

func TestLoadFromFile_OverridesTransportSettings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rekuest-agent.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[transport]
url = "ws://example.com/ws"
ping_interval_secs = 10
reconnect_attempts = 5
`), 0o644))

	cfg, err := config.LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "ws://example.com/ws", cfg.Transport.URL)
	assert.Equal(t, 10, cfg.Transport.PingIntervalSecs)
	assert.Equal(t, 5, cfg.Transport.ReconnectAttempts)
}

func TestToTransportConfig(t *testing.T) {
	cfg := &config.Config{
		Transport: config.TransportConfig{
			URL:                 "ws://host/ws",
			PingIntervalSecs:    15,
			PongTimeoutSecs:     45,
			ReconnectAttempts:   3,
			ReconnectBaseWaitMS: 500,
			ReconnectMaxWaitMS:  20000,
		},
	}
	tc := cfg.ToTransportConfig()

	assert.Equal(t, "ws://host/ws", tc.URL)
	assert.Equal(t, 15*time.Second, tc.PingInterval)
	assert.Equal(t, 45*time.Second, tc.PongTimeout)
	assert.Equal(t, 3, tc.ReconnectAttempts)
	assert.Equal(t, 500*time.Millisecond, tc.ReconnectBaseWait)
	assert.Equal(t, 20000*time.Millisecond, tc.ReconnectMaxWait)
}

func TestStatePublishInterval(t *testing.T) {
	cfg := &config.Config{Agent: config.AgentConfig{StatePublishIntervalMS: 250}}
	assert.Equal(t, 250*time.Millisecond, cfg.StatePublishInterval())
}

func TestWatcher_ReloadsOnFileChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rekuest-agent.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[agent]
instance_id = "agent-1"
`), 0o644))

	// Point the package-level loader at this directory by changing the
	// working directory, since findProjectConfig walks up from cwd.
	origWD, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(origWD) })

	config.Reset()
	t.Cleanup(config.Reset)

	w, err := config.NewWatcher(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Stop() })

	reloaded := make(chan *config.Config, 1)
	w.OnReload(func(c *config.Config) error {
		reloaded <- c
		return nil
	})
	w.Start()

	require.NoError(t, os.WriteFile(path, []byte(`
[agent]
instance_id = "agent-2"
`), 0o644))

	select {
	case c := <-reloaded:
		assert.Equal(t, "agent-2", c.Agent.InstanceID)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for config reload callback")
	}
}
