package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Метрики агента. Значения меток берутся из фиксированных наборов:
// канонические имена команд, типы телеметрии, события сессии.
var (
	CommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "labagent_commands_total",
			Help: "Total number of executed commands by command and status",
		},
		[]string{"command", "status"},
	)

	CommandDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "labagent_command_duration_seconds",
			Help:    "Duration of command handlers",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"command"},
	)

	TelemetryMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "labagent_telemetry_messages_total",
			Help: "Total number of telemetry messages by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	SessionEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "labagent_session_events_total",
			Help: "MQTT session events (connected, connection_lost, publish_error, ...)",
		},
		[]string{"event"},
	)
)

// ServerConfig параметры HTTP сервера метрик; нулевые поля заменяются значениями по умолчанию
type ServerConfig struct {
	Addr              string
	Path              string
	ShutdownTimeout   time.Duration
	ReadHeaderTimeout time.Duration
}

func (c ServerConfig) withDefaults() ServerConfig {
	if c.Addr == "" {
		c.Addr = ":9100"
	}
	if c.Path == "" {
		c.Path = "/metrics"
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 5 * time.Second
	}
	if c.ReadHeaderTimeout <= 0 {
		c.ReadHeaderTimeout = 3 * time.Second
	}
	return c
}

// Serve отдает метрики Prometheus, пока не отменен ctx.
// Возвращает ошибку, если сервер не смог слушать адрес.
func Serve(ctx context.Context, cfg ServerConfig, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg = cfg.withDefaults()

	mux := http.NewServeMux()
	mux.Handle(cfg.Path, promhttp.Handler())
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}

	served := make(chan error, 1)
	go func() {
		logger.Info("metrics server listening", zap.String("addr", cfg.Addr), zap.String("path", cfg.Path))
		served <- srv.ListenAndServe()
	}()

	select {
	case err := <-served:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server on %s: %w", cfg.Addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("metrics server shutdown: %w", err)
	}
	logger.Info("metrics server stopped")
	return nil
}
