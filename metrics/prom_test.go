package metrics

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func scrape(url string) (string, bool) {
	resp, err := http.Get(url)
	if err != nil {
		return "", false
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil || resp.StatusCode != http.StatusOK {
		return "", false
	}
	return string(data), true
}

func TestServe(t *testing.T) {
	addr := freeAddr(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- Serve(ctx, ServerConfig{Addr: addr, Path: "/m"}, nil) }()

	CommandsTotal.WithLabelValues("create_file", "success").Inc()
	SessionEvents.WithLabelValues("connected").Inc()
	TelemetryMessages.WithLabelValues("humidity", "persisted").Inc()

	var body string
	require.Eventually(t, func() bool {
		var ok bool
		body, ok = scrape("http://" + addr + "/m")
		return ok
	}, 2*time.Second, 20*time.Millisecond)

	assert.Contains(t, body, `labagent_commands_total{command="create_file",status="success"}`)
	assert.Contains(t, body, `labagent_session_events_total{event="connected"}`)
	assert.Contains(t, body, `labagent_telemetry_messages_total{kind="humidity",outcome="persisted"}`)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestServeAddressInUse(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	err = Serve(context.Background(), ServerConfig{Addr: l.Addr().String()}, nil)
	assert.Error(t, err)
}

func TestServerConfigDefaults(t *testing.T) {
	cfg := ServerConfig{}.withDefaults()
	assert.Equal(t, ":9100", cfg.Addr)
	assert.Equal(t, "/metrics", cfg.Path)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 3*time.Second, cfg.ReadHeaderTimeout)

	cfg = ServerConfig{Addr: ":1", Path: "/p"}.withDefaults()
	assert.Equal(t, ":1", cfg.Addr)
	assert.Equal(t, "/p", cfg.Path)
}
