package command

import (
	"context"

	"go.uber.org/zap"

	"lab-agent/common"
	"lab-agent/payload"
)

// Dispatcher связывает текстовые команды из MQTT с Executor
type Dispatcher struct {
	executor *Executor
	logger   *zap.Logger
}

// NewDispatcher создает диспетчер команд
func NewDispatcher(executor *Executor, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{executor: executor, logger: logger}
}

// Handle разбирает команду, выполняет ее и возвращает результат.
// Ровно один результат на каждое входящее сообщение.
func (d *Dispatcher) Handle(ctx context.Context, data []byte) common.CommandResult {
	cmd, err := payload.DecodeCommand(data)
	if err != nil {
		d.logger.Warn("empty command received")
		return common.CommandResult{
			Status: common.StatusError,
			Echo:   "",
			Data:   "Error: Empty command received.",
		}
	}

	d.logger.Info("processing command", zap.String("command", cmd.Name), zap.Int("args", len(cmd.Arguments)))
	result := d.executor.Run(ctx, cmd)
	d.logger.Info("command finished",
		zap.String("command", result.Echo),
		zap.String("status", string(result.Status)))
	return result
}

// Dispatch реализует mqtt.Dispatcher: ответ всегда публикуется
func (d *Dispatcher) Dispatch(ctx context.Context, topic string, data []byte) ([]byte, bool) {
	d.logger.Debug("command message", zap.String("topic", topic))
	return payload.EncodeResult(d.Handle(ctx, data)), true
}
