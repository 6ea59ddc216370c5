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
	chdirTest(t, t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "tcp://localhost:1883", cfg.MQTT.Broker)
	assert.Equal(t, byte(1), cfg.MQTT.QoS)
	assert.Equal(t, "dictionary/word/query", cfg.MQTT.CommandTopic)
	assert.Equal(t, "dictionary/word/meaning", cfg.MQTT.ResponseTopic)
	assert.Equal(t, "Home/BedRoom/18/#", cfg.MQTT.TelemetryTopic)
	assert.Empty(t, cfg.MQTT.ClientID)
	assert.Equal(t, 10*time.Second, cfg.Agent.Timeout)
	assert.Equal(t, "IoT.db", cfg.Storage.Path)
	assert.Equal(t, uint64(2), cfg.Dictionary.MaxRetries)
	assert.Empty(t, cfg.Metrics.Addr)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, Default(), *cfg)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agent.yaml")
	content := `
mqtt:
  broker: tcp://broker.local:1883
  qos: 0
  command_topic: lab/cmd
agent:
  timeout: 3s
  work_dir: /srv
storage:
  path: /var/lib/iot.db
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("LABAGENT_MQTT_RESPONSE_TOPIC", "lab/out")
	t.Setenv("LABAGENT_LOGGING_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "tcp://broker.local:1883", cfg.MQTT.Broker)
	assert.Equal(t, byte(0), cfg.MQTT.QoS)
	assert.Equal(t, "lab/cmd", cfg.MQTT.CommandTopic)
	assert.Equal(t, "lab/out", cfg.MQTT.ResponseTopic)
	assert.Equal(t, 3*time.Second, cfg.Agent.Timeout)
	assert.Equal(t, "/srv", cfg.Agent.WorkDir)
	assert.Equal(t, "/var/lib/iot.db", cfg.Storage.Path)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	chdirTest(t, t.TempDir())
	t.Setenv("HOME", t.TempDir())
	cfg, err := Load("")
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"no broker", func(c *Config) { c.MQTT.Broker = "" }, "mqtt.broker"},
		{"bad qos", func(c *Config) { c.MQTT.QoS = 3 }, "mqtt.qos"},
		{"no response topic", func(c *Config) { c.MQTT.ResponseTopic = "" }, "mqtt.response_topic"},
		{"zero timeout", func(c *Config) { c.Agent.Timeout = 0 }, "agent.timeout"},
		{"no db", func(c *Config) { c.Storage.Path = "" }, "storage.path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := *cfg
			tt.mutate(&c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	assert.NoError(t, cfg.Validate())
}
