package mqtt

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	mqttLib "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"lab-agent/metrics"
)

// Config представляет конфигурацию MQTT сессии
type Config struct {
	Broker         string        `mapstructure:"broker"`          // Адрес брокера, например "tcp://localhost:1883"
	Username       string        `mapstructure:"username"`        // Имя пользователя (опционально)
	Password       string        `mapstructure:"password"`        // Пароль (опционально)
	ClientID       string        `mapstructure:"client_id"`       // ID клиента (опционально, генерируется если пустой)
	QoS            byte          `mapstructure:"qos"`             // Quality of Service (0, 1, 2)
	KeepAlive      int           `mapstructure:"keep_alive"`      // Интервал keep alive в секундах
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"` // Таймаут подключения
	AutoReconnect  bool          `mapstructure:"auto_reconnect"`  // Автоматическое переподключение
	CommandTopic   string        `mapstructure:"command_topic"`   // Топик команд и запросов словаря
	ResponseTopic  string        `mapstructure:"response_topic"`  // Единственный топик ответов
	TelemetryTopic string        `mapstructure:"telemetry_topic"` // Фильтр телеметрии с wildcard
}

// generateClientID генерирует случайный ID клиента
func generateClientID() string {
	return "lab-agent-" + uuid.NewString()[:8]
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() Config {
	return Config{
		Broker:         "tcp://localhost:1883",
		ClientID:       generateClientID(),
		QoS:            1,
		KeepAlive:      60,
		ConnectTimeout: 10 * time.Second,
		AutoReconnect:  true,
		CommandTopic:   "dictionary/word/query",
		ResponseTopic:  "dictionary/word/meaning",
		TelemetryTopic: "Home/BedRoom/18/#",
	}
}

// State состояние сессии
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateSubscribed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateSubscribed:
		return "subscribed"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// Dispatcher обрабатывает одно входящее сообщение.
// Если ok == true, reply публикуется в топик ответов.
type Dispatcher interface {
	Dispatch(ctx context.Context, topic string, payload []byte) (reply []byte, ok bool)
}

// Transport часть mqtt.Client, которой пользуется сессия
type Transport interface {
	Connect() mqttLib.Token
	Disconnect(quiesce uint)
	IsConnected() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) mqttLib.Token
	Subscribe(topic string, qos byte, callback mqttLib.MessageHandler) mqttLib.Token
}

// Session владеет жизненным циклом подписки и публикации.
// Сообщения обрабатываются строго по одному.
type Session struct {
	config     Config
	topic      string // фильтр подписки
	dispatcher Dispatcher
	logger     *zap.Logger

	client    Transport
	newClient func(opts *mqttLib.ClientOptions) Transport

	state    atomic.Int32
	dispatch sync.Mutex
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewSession создает сессию, подписанную на topic
func NewSession(config Config, topic string, dispatcher Dispatcher, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.ClientID == "" {
		config.ClientID = generateClientID()
	}
	s := &Session{
		config:     config,
		topic:      topic,
		dispatcher: dispatcher,
		logger:     logger.With(zap.String("client_id", config.ClientID)),
		newClient: func(opts *mqttLib.ClientOptions) Transport {
			return mqttLib.NewClient(opts)
		},
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	return s
}

// State возвращает текущее состояние сессии
func (s *Session) State() State {
	return State(s.state.Load())
}

func (s *Session) setState(state State) {
	old := State(s.state.Swap(int32(state)))
	if old != state {
		s.logger.Debug("session state changed", zap.Stringer("from", old), zap.Stringer("to", state))
	}
}

func (s *Session) options() *mqttLib.ClientOptions {
	opts := mqttLib.NewClientOptions()
	opts.AddBroker(s.config.Broker)
	opts.SetClientID(s.config.ClientID)
	opts.SetKeepAlive(time.Duration(s.config.KeepAlive) * time.Second)
	opts.SetConnectTimeout(s.config.ConnectTimeout)
	opts.SetAutoReconnect(s.config.AutoReconnect)
	// Подписки не переживают разрыв, onConnect подписывается заново
	opts.SetCleanSession(true)
	opts.SetResumeSubs(false)
	// Обработчик может работать до таймаута команды и не должен держать
	// входящий цикл paho; последовательность обеспечивает s.dispatch
	opts.SetOrderMatters(false)

	if s.config.Username != "" && s.config.Password != "" {
		opts.SetUsername(s.config.Username)
		opts.SetPassword(s.config.Password)
		s.logger.Info("MQTT authentication: ENABLED")
	} else {
		s.logger.Info("MQTT authentication: DISABLED (anonymous mode)")
	}

	opts.SetOnConnectHandler(s.onConnectHandler)
	opts.SetConnectionLostHandler(s.onConnectionLostHandler)
	opts.SetReconnectingHandler(s.onReconnectingHandler)
	return opts
}

// Start подключается к брокеру, повторяя попытки с экспоненциальной задержкой,
// пока не отменен ctx
func (s *Session) Start(ctx context.Context) error {
	s.logger.Info("starting MQTT session",
		zap.String("broker", s.config.Broker),
		zap.String("topic", s.topic))

	s.client = s.newClient(s.options())

	b := backoff.NewExponentialBackOff()
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 0

	operation := func() error {
		s.setState(StateConnecting)
		token := s.client.Connect()
		if token.Wait() && token.Error() != nil {
			s.setState(StateDisconnected)
			return token.Error()
		}
		return nil
	}
	notify := func(err error, next time.Duration) {
		s.logger.Warn("failed to connect to MQTT broker, retrying",
			zap.Error(err), zap.Duration("retry_in", next))
	}

	if err := backoff.RetryNotify(operation, backoff.WithContext(b, ctx), notify); err != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}

	s.logger.Info("MQTT session started")
	return nil
}

// Stop отключается от брокера
func (s *Session) Stop() {
	s.logger.Info("stopping MQTT session")
	s.cancel()
	if s.client != nil && s.client.IsConnected() {
		s.client.Disconnect(1000)
	}
	s.setState(StateDisconnected)
}

// onConnectHandler вызывается при каждом успешном (пере)подключении
func (s *Session) onConnectHandler(_ mqttLib.Client) {
	s.logger.Info("connected to MQTT broker")
	metrics.SessionEvents.WithLabelValues("connected").Inc()

	if err := s.subscribe(); err != nil {
		s.logger.Error("failed to subscribe", zap.String("topic", s.topic), zap.Error(err))
		metrics.SessionEvents.WithLabelValues("subscribe_error").Inc()
		return
	}
	s.setState(StateSubscribed)
	s.logger.Info("subscribed", zap.String("topic", s.topic))
}

func (s *Session) subscribe() error {
	token := s.client.Subscribe(s.topic, s.config.QoS, s.onMessage)
	if token.Wait() && token.Error() != nil {
		return token.Error()
	}
	return nil
}

// onConnectionLostHandler вызывается при потере соединения
func (s *Session) onConnectionLostHandler(_ mqttLib.Client, err error) {
	s.setState(StateDisconnected)
	metrics.SessionEvents.WithLabelValues("connection_lost").Inc()
	s.logger.Warn("connection lost", zap.Error(err))
}

// onReconnectingHandler вызывается при попытке переподключения
func (s *Session) onReconnectingHandler(_ mqttLib.Client, _ *mqttLib.ClientOptions) {
	s.setState(StateConnecting)
	s.logger.Info("attempting to reconnect to MQTT broker")
}

// onMessage передает сообщение диспетчеру и публикует ответ
func (s *Session) onMessage(_ mqttLib.Client, msg mqttLib.Message) {
	s.dispatch.Lock()
	defer s.dispatch.Unlock()

	s.logger.Debug("message received", zap.String("topic", msg.Topic()), zap.Int("bytes", len(msg.Payload())))

	reply, ok := s.dispatcher.Dispatch(s.ctx, msg.Topic(), msg.Payload())
	if !ok {
		return
	}
	if err := s.publish(reply); err != nil {
		metrics.SessionEvents.WithLabelValues("publish_error").Inc()
		s.logger.Error("failed to publish response", zap.String("topic", s.config.ResponseTopic), zap.Error(err))
	}
}

var errNotConnected = errors.New("MQTT client not connected")

// publish отправляет ответ в топик ответов
func (s *Session) publish(payload []byte) error {
	if s.client == nil || !s.client.IsConnected() {
		return errNotConnected
	}

	token := s.client.Publish(s.config.ResponseTopic, s.config.QoS, false, payload)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", s.config.ResponseTopic, err)
	}

	s.logger.Debug("response published", zap.String("topic", s.config.ResponseTopic))
	return nil
}

// IsConnected возвращает true если клиент подключен к брокеру
func (s *Session) IsConnected() bool {
	return s.client != nil && s.client.IsConnected()
}
