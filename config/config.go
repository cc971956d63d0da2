package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"activity-planner/internal/planner"

	"github.com/spf13/viper"
)

type Config struct {
	API     APIConfig     `mapstructure:"api"`
	Sunrise SunriseConfig `mapstructure:"sunrise"`
	Planner PlannerConfig `mapstructure:"planner"`
	MQTT    MQTTConfig    `mapstructure:"mqtt"`
	Log     LogConfig     `mapstructure:"log"`
}

type APIConfig struct {
	Port         int           `mapstructure:"port"`
	Enabled      bool          `mapstructure:"enabled"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type SunriseConfig struct {
	Endpoint       string        `mapstructure:"endpoint"`
	Timezone       string        `mapstructure:"timezone"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxAttempts    int           `mapstructure:"max_attempts"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
}

type PlannerConfig struct {
	Language string `mapstructure:"language"`
}

type MQTTConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Broker      string `mapstructure:"broker"`
	TopicPrefix string `mapstructure:"topic_prefix"`
	ClientID    string `mapstructure:"client_id"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

const envPrefix = "ACTIVITY_PLANNER"

func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/activity-planner")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set defaults
	v.SetDefault("api.port", 8000)
	v.SetDefault("api.enabled", true)
	v.SetDefault("api.read_timeout", "15s")
	v.SetDefault("api.write_timeout", "60s")
	v.SetDefault("sunrise.endpoint", "https://api.sunrise-sunset.org/json")
	v.SetDefault("sunrise.timezone", "America/Sao_Paulo")
	v.SetDefault("sunrise.timeout", "10s")
	v.SetDefault("sunrise.max_attempts", 3)
	v.SetDefault("sunrise.initial_backoff", "1s")
	v.SetDefault("planner.language", planner.DefaultLanguage)
	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.topic_prefix", "activity-planner")
	v.SetDefault("mqtt.client_id", "activity-planner")
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.API.Port < 1 || c.API.Port > 65535 {
		return fmt.Errorf("api.port %d out of range", c.API.Port)
	}
	if strings.TrimSpace(c.Sunrise.Endpoint) == "" {
		return fmt.Errorf("sunrise.endpoint is empty")
	}
	if _, err := time.LoadLocation(c.Sunrise.Timezone); err != nil || strings.TrimSpace(c.Sunrise.Timezone) == "" {
		return fmt.Errorf("sunrise.timezone %q is not a known IANA zone", c.Sunrise.Timezone)
	}
	if c.Sunrise.Timeout <= 0 {
		return fmt.Errorf("sunrise.timeout must be positive")
	}
	if c.Sunrise.MaxAttempts < 1 {
		return fmt.Errorf("sunrise.max_attempts must be at least 1")
	}
	if c.Sunrise.InitialBackoff <= 0 {
		return fmt.Errorf("sunrise.initial_backoff must be positive")
	}
	if !planner.IsSupportedLanguage(c.Planner.Language) {
		return fmt.Errorf("planner.language %q is not supported (supported: %s)",
			c.Planner.Language, strings.Join(planner.Languages(), ", "))
	}
	if c.MQTT.Enabled && strings.TrimSpace(c.MQTT.Broker) == "" {
		return fmt.Errorf("mqtt.broker is required when mqtt is enabled")
	}
	return nil
}
