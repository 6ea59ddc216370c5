package command

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"lab-agent/common"
	"lab-agent/metrics"
)

// DefaultTimeout бюджет времени на одну команду
const DefaultTimeout = 10 * time.Second

const errorPrefix = "Error: "

// Executor выполняет команды из Registry с ограничением по времени
type Executor struct {
	registry *Registry
	timeout  time.Duration
	logger   *zap.Logger
}

// NewExecutor создает исполнителя. timeout <= 0 означает DefaultTimeout.
func NewExecutor(registry *Registry, timeout time.Duration, logger *zap.Logger) *Executor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{registry: registry, timeout: timeout, logger: logger}
}

// Run находит команду и выполняет ее. Неизвестная команда - обычный результат с ошибкой.
func (e *Executor) Run(ctx context.Context, cmd common.Command) common.CommandResult {
	echo := strings.ToLower(strings.TrimSpace(cmd.Name))

	entry, err := e.registry.Resolve(cmd.Name)
	if err != nil {
		e.logger.Info("unknown command", zap.String("command", cmd.Name))
		metrics.CommandsTotal.WithLabelValues("unknown", string(common.StatusError)).Inc()
		return failure(echo, fmt.Sprintf("Unknown command '%s'.", strings.TrimSpace(cmd.Name)))
	}

	result := e.Execute(ctx, entry, cmd.Arguments)
	result.Echo = echo
	return result
}

type outcome struct {
	data string
	err  error
}

// Execute вызывает обработчик в отдельной горутине и ждет не дольше timeout.
// По истечении времени горутина брошена, побочные эффекты не откатываются.
func (e *Executor) Execute(ctx context.Context, entry HandlerEntry, args []string) common.CommandResult {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: replyErrorf(fmt.Errorf("handler panicked: %v", r), "Error processing command: %v", r)}
			}
		}()
		data, err := entry.Invoke(ctx, args)
		done <- outcome{data: data, err: err}
	}()

	var result common.CommandResult
	select {
	case out := <-done:
		if out.err != nil {
			e.logger.Debug("command failed", zap.String("command", entry.Name), zap.Error(out.err))
			result = failure(entry.Name, replyText(out.err))
		} else {
			result = common.CommandResult{Status: common.StatusSuccess, Echo: entry.Name, Data: out.data}
		}
	case <-ctx.Done():
		e.logger.Warn("command abandoned", zap.String("command", entry.Name), zap.Duration("timeout", e.timeout))
		result = failure(entry.Name, replyText(ErrTimeout))
	}

	metrics.CommandDuration.WithLabelValues(entry.Name).Observe(time.Since(start).Seconds())
	metrics.CommandsTotal.WithLabelValues(entry.Name, string(result.Status)).Inc()
	return result
}

// failure формирует ответ с ошибкой; префикс "Error" не дублируется
func failure(echo, msg string) common.CommandResult {
	if !strings.HasPrefix(msg, "Error") {
		msg = errorPrefix + msg
	}
	return common.CommandResult{Status: common.StatusError, Echo: echo, Data: msg}
}
