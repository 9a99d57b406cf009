package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	AppEnv   string `mapstructure:"APP_ENV"`
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Guard    GuardConfig
	Dispatch DispatchConfig
	Split    SplitConfig
	// Acquirers lists the provider names webhooks are accepted for.
	Acquirers []string
	// WebhookSecret is the shared key for HMAC signature verification;
	// leaving it empty disables verification.
	WebhookSecret string `mapstructure:"WEBHOOK_SECRET"`
	LogLevel      string `mapstructure:"LOG_LEVEL"`
}

type ServerConfig struct {
	Port    string        `mapstructure:"SERVER_PORT"`
	Timeout time.Duration `mapstructure:"SERVER_TIMEOUT"`
}

type DatabaseConfig struct {
	Driver          string `mapstructure:"DB_DRIVER"`
	Host            string `mapstructure:"DB_HOST"`
	Port            string `mapstructure:"DB_PORT"`
	User            string `mapstructure:"DB_USER"`
	Password        string `mapstructure:"DB_PASSWORD"`
	Name            string `mapstructure:"DB_NAME"`
	SSLMode         string `mapstructure:"DB_SSL_MODE"`
	MaxOpenConns    int    `mapstructure:"DB_MAX_OPEN_CONNS"`
	MaxIdleConns    int    `mapstructure:"DB_MAX_IDLE_CONNS"`
	ConnMaxLifetime int    `mapstructure:"DB_CONN_MAX_LIFETIME"`
}

type RedisConfig struct {
	Host     string `mapstructure:"REDIS_HOST"`
	Port     string `mapstructure:"REDIS_PORT"`
	Password string `mapstructure:"REDIS_PASSWORD"`
	DB       int    `mapstructure:"REDIS_DB"`
}

type GuardConfig struct {
	// ProcessingWait is the duration of the single bounded wait performed
	// while a concurrent delivery is still PROCESSING.
	ProcessingWait time.Duration `mapstructure:"GUARD_PROCESSING_WAIT"`
}

type SplitConfig struct {
	Endpoint string        `mapstructure:"SPLIT_ENDPOINT"`
	APIKey   string        `mapstructure:"SPLIT_API_KEY"`
	Timeout  time.Duration `mapstructure:"SPLIT_TIMEOUT"`
}

type DispatchConfig struct {
	Workers        int           `mapstructure:"DISPATCH_WORKERS"`
	QueueSize      int           `mapstructure:"DISPATCH_QUEUE_SIZE"`
	AttemptTimeout time.Duration `mapstructure:"DISPATCH_ATTEMPT_TIMEOUT"`
	MaxRetries     int           `mapstructure:"DISPATCH_MAX_RETRIES"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		return nil, fmt.Errorf(".env dosyası yüklenemedi: %w", err)
	}

	viper.AutomaticEnv()

	var cfg Config

	cfg.AppEnv = viper.GetString("APP_ENV")
	cfg.Server.Port = viper.GetString("SERVER_PORT")
	cfg.Server.Timeout = viper.GetDuration("SERVER_TIMEOUT")

	cfg.Database.Driver = viper.GetString("DB_DRIVER")
	cfg.Database.Host = viper.GetString("DB_HOST")
	cfg.Database.Port = viper.GetString("DB_PORT")
	cfg.Database.User = viper.GetString("DB_USER")
	cfg.Database.Password = viper.GetString("DB_PASSWORD")
	cfg.Database.Name = viper.GetString("DB_NAME")
	cfg.Database.SSLMode = viper.GetString("DB_SSL_MODE")
	cfg.Database.MaxOpenConns = viper.GetInt("DB_MAX_OPEN_CONNS")
	cfg.Database.MaxIdleConns = viper.GetInt("DB_MAX_IDLE_CONNS")
	cfg.Database.ConnMaxLifetime = viper.GetInt("DB_CONN_MAX_LIFETIME")

	cfg.Redis.Host = viper.GetString("REDIS_HOST")
	cfg.Redis.Port = viper.GetString("REDIS_PORT")
	cfg.Redis.Password = viper.GetString("REDIS_PASSWORD")
	cfg.Redis.DB = viper.GetInt("REDIS_DB")

	cfg.Guard.ProcessingWait = viper.GetDuration("GUARD_PROCESSING_WAIT")
	cfg.Dispatch.Workers = viper.GetInt("DISPATCH_WORKERS")
	cfg.Dispatch.QueueSize = viper.GetInt("DISPATCH_QUEUE_SIZE")
	cfg.Dispatch.AttemptTimeout = viper.GetDuration("DISPATCH_ATTEMPT_TIMEOUT")
	cfg.Dispatch.MaxRetries = viper.GetInt("DISPATCH_MAX_RETRIES")

	cfg.Split.Endpoint = viper.GetString("SPLIT_ENDPOINT")
	cfg.Split.APIKey = viper.GetString("SPLIT_API_KEY")
	cfg.Split.Timeout = viper.GetDuration("SPLIT_TIMEOUT")

	cfg.WebhookSecret = viper.GetString("WEBHOOK_SECRET")

	if raw := viper.GetString("ACQUIRERS"); raw != "" {
		for _, name := range strings.Split(raw, ",") {
			if trimmed := strings.TrimSpace(name); trimmed != "" {
				cfg.Acquirers = append(cfg.Acquirers, trimmed)
			}
		}
	}

	cfg.LogLevel = viper.GetString("LOG_LEVEL")

	applyDefaults(&cfg)

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Guard.ProcessingWait == 0 {
		cfg.Guard.ProcessingWait = 500 * time.Millisecond
	}
	if cfg.Dispatch.Workers == 0 {
		cfg.Dispatch.Workers = 5
	}
	if cfg.Dispatch.QueueSize == 0 {
		cfg.Dispatch.QueueSize = 100
	}
	if cfg.Dispatch.AttemptTimeout == 0 {
		cfg.Dispatch.AttemptTimeout = 30 * time.Second
	}
	if cfg.Dispatch.MaxRetries == 0 {
		cfg.Dispatch.MaxRetries = 3
	}
	if cfg.Split.Timeout == 0 {
		cfg.Split.Timeout = 10 * time.Second
	}
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
	if len(cfg.Acquirers) == 0 {
		cfg.Acquirers = []string{"pix"}
	}
}
