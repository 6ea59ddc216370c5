package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"lab-agent/command"
	"lab-agent/dictionary"
	"lab-agent/mqtt"
	"lab-agent/storage"
)

// EnvPrefix префикс переменных окружения, например LABAGENT_MQTT_BROKER
const EnvPrefix = "LABAGENT"

// Config конфигурация приложения
type Config struct {
	MQTT       mqtt.Config       `mapstructure:"mqtt"`
	Agent      AgentConfig       `mapstructure:"agent"`
	Storage    storage.Config    `mapstructure:"storage"`
	Dictionary dictionary.Config `mapstructure:"dictionary"`
	Metrics    MetricsConfig     `mapstructure:"metrics"`
	Logging    LoggingConfig     `mapstructure:"logging"`
}

// AgentConfig параметры исполнителя команд
type AgentConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`  // Таймаут одного обработчика
	WorkDir string        `mapstructure:"work_dir"` // Каталог для относительных путей, по умолчанию текущий
}

// MetricsConfig пустой Addr отключает сервер метрик
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
	Path string `mapstructure:"path"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// Default возвращает конфигурацию по умолчанию
func Default() Config {
	m := mqtt.DefaultConfig()
	m.ClientID = ""
	return Config{
		MQTT:       m,
		Agent:      AgentConfig{Timeout: command.DefaultTimeout},
		Storage:    storage.DefaultConfig(),
		Dictionary: dictionary.DefaultConfig(),
		Metrics:    MetricsConfig{Path: "/metrics"},
		Logging:    LoggingConfig{Level: "info"},
	}
}

func setDefaults(v *viper.Viper) {
	def := Default()
	m := def.MQTT
	v.SetDefault("mqtt.broker", m.Broker)
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	// пустой client_id генерируется сессией
	v.SetDefault("mqtt.client_id", m.ClientID)
	v.SetDefault("mqtt.qos", m.QoS)
	v.SetDefault("mqtt.keep_alive", m.KeepAlive)
	v.SetDefault("mqtt.connect_timeout", m.ConnectTimeout)
	v.SetDefault("mqtt.auto_reconnect", m.AutoReconnect)
	v.SetDefault("mqtt.command_topic", m.CommandTopic)
	v.SetDefault("mqtt.response_topic", m.ResponseTopic)
	v.SetDefault("mqtt.telemetry_topic", m.TelemetryTopic)

	v.SetDefault("agent.timeout", def.Agent.Timeout)
	v.SetDefault("agent.work_dir", def.Agent.WorkDir)

	v.SetDefault("storage.path", def.Storage.Path)

	d := def.Dictionary
	v.SetDefault("dictionary.base_url", d.BaseURL)
	v.SetDefault("dictionary.timeout", d.Timeout)
	v.SetDefault("dictionary.max_retries", d.MaxRetries)

	v.SetDefault("metrics.addr", def.Metrics.Addr)
	v.SetDefault("metrics.path", def.Metrics.Path)

	v.SetDefault("logging.level", def.Logging.Level)
}

// Load читает конфигурацию из файла (если есть) и переменных окружения.
// Отсутствие файла конфигурации не является ошибкой.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "lab-agent"))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate проверяет значения, без которых агент не запустится
func (c *Config) Validate() error {
	var errs []error
	if c.MQTT.Broker == "" {
		errs = append(errs, errors.New("mqtt.broker is required"))
	}
	if c.MQTT.QoS > 2 {
		errs = append(errs, fmt.Errorf("mqtt.qos must be 0, 1 or 2, got %d", c.MQTT.QoS))
	}
	if c.MQTT.CommandTopic == "" {
		errs = append(errs, errors.New("mqtt.command_topic is required"))
	}
	if c.MQTT.ResponseTopic == "" {
		errs = append(errs, errors.New("mqtt.response_topic is required"))
	}
	if c.MQTT.TelemetryTopic == "" {
		errs = append(errs, errors.New("mqtt.telemetry_topic is required"))
	}
	if c.Agent.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("agent.timeout must be positive, got %s", c.Agent.Timeout))
	}
	if c.Storage.Path == "" {
		errs = append(errs, errors.New("storage.path is required"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
