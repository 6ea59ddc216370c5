package dictionary

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Responder отвечает на слово из MQTT его значением (обычный текст)
type Responder struct {
	client interface {
		Lookup(ctx context.Context, word string) string
	}
	timeout time.Duration // бюджет одного запроса
	logger  *zap.Logger
}

// NewResponder создает обработчик запросов словаря
func NewResponder(client *Client, logger *zap.Logger) *Responder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Responder{client: client, timeout: client.Budget(), logger: logger}
}

// Dispatch реализует mqtt.Dispatcher: на каждый запрос публикуется ответ
func (r *Responder) Dispatch(ctx context.Context, topic string, data []byte) ([]byte, bool) {
	word := strings.TrimSpace(string(data))
	if word == "" {
		r.logger.Info("received an empty message, no word to search", zap.String("topic", topic))
		return []byte("Error: Received an empty word to search."), true
	}

	r.logger.Info("looking up meaning", zap.String("word", word))
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	meaning := r.client.Lookup(ctx, word)

	snippet := meaning
	if len(snippet) > 200 {
		snippet = snippet[:200] + "..."
	}
	r.logger.Debug("meaning snippet", zap.String("meaning", snippet))

	return []byte(meaning), true
}
