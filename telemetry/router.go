package telemetry

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"lab-agent/common"
	"lab-agent/metrics"
	"lab-agent/payload"
)

// Outcome итог обработки одного сообщения телеметрии
type Outcome string

const (
	OutcomePersisted Outcome = "persisted"
	OutcomeDiscarded Outcome = "discarded" // некорректное сообщение
	OutcomeIgnored   Outcome = "ignored"   // топик не относится к телеметрии
	OutcomeFailed    Outcome = "failed"    // ошибка хранилища
)

// Appender хранилище записей телеметрии
type Appender interface {
	Append(ctx context.Context, rec common.SensorRecord) (uint, error)
}

// Router выбирает обработчик по последнему сегменту топика
type Router struct {
	sink   Appender
	routes map[string]common.Kind
	logger *zap.Logger
}

// NewRouter создает маршрутизатор для Temperature, Humidity и Pressure
func NewRouter(sink Appender, logger *zap.Logger) (*Router, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Router{sink: sink, routes: make(map[string]common.Kind), logger: logger}
	for _, kind := range common.Kinds() {
		if err := r.register(payload.ValueField(kind), kind); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// register привязывает суффикс топика к типу; один обработчик на суффикс
func (r *Router) register(suffix string, kind common.Kind) error {
	if suffix == "" {
		return fmt.Errorf("empty topic suffix for %s", kind)
	}
	if existing, ok := r.routes[suffix]; ok {
		return fmt.Errorf("topic suffix %q already routed to %s", suffix, existing)
	}
	r.routes[suffix] = kind
	return nil
}

// suffix последний сегмент топика
func suffix(topic string) string {
	if idx := strings.LastIndexByte(topic, '/'); idx >= 0 {
		return topic[idx+1:]
	}
	return topic
}

// Route обрабатывает сообщение. Ошибка возвращается только при сбое хранилища;
// некорректные сообщения отбрасываются с предупреждением в логе.
func (r *Router) Route(ctx context.Context, topic string, data []byte) (Outcome, error) {
	kind, ok := r.routes[suffix(topic)]
	if !ok {
		r.logger.Debug("topic not routed", zap.String("topic", topic))
		metrics.TelemetryMessages.WithLabelValues("none", string(OutcomeIgnored)).Inc()
		return OutcomeIgnored, nil
	}

	outcome, err := r.persist(ctx, kind, topic, data)
	metrics.TelemetryMessages.WithLabelValues(string(kind), string(outcome)).Inc()
	return outcome, err
}

func (r *Router) persist(ctx context.Context, kind common.Kind, topic string, data []byte) (Outcome, error) {
	p, err := payload.DecodeSensorPayload(data)
	if err != nil {
		r.logger.Warn("wrong payload, skipped inserting to DB",
			zap.String("topic", topic), zap.Error(err))
		return OutcomeDiscarded, nil
	}

	rec, err := p.Record(kind)
	if err != nil {
		r.logger.Warn("wrong payload, skipped inserting to DB",
			zap.String("topic", topic), zap.Error(err))
		return OutcomeDiscarded, nil
	}

	id, err := r.sink.Append(ctx, rec)
	if err != nil {
		r.logger.Error("failed to persist telemetry",
			zap.String("topic", topic), zap.String("kind", string(kind)), zap.Error(err))
		return OutcomeFailed, err
	}

	r.logger.Info("telemetry stored",
		zap.String("kind", string(kind)),
		zap.Uint("id", id),
		zap.String("sensor_id", rec.SensorID))
	return OutcomePersisted, nil
}

// Dispatch реализует mqtt.Dispatcher: телеметрия не порождает ответов
func (r *Router) Dispatch(ctx context.Context, topic string, data []byte) ([]byte, bool) {
	// Route сам пишет в лог; сбой хранилища не останавливает обработку
	_, _ = r.Route(ctx, topic, data)
	return nil, false
}
