// Package config loads the core configuration from a YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// TelegramConfig holds Telegram transport settings common for all bots.
type TelegramConfig struct {
	Token   string `yaml:"token" envconfig:"BOT_TOKEN"`
	RunMode string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds defines long polling timeout; 0 -> default
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
}

// WebhookConfig specifies webhook settings.
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level     string `yaml:"level"`
	Format    string `yaml:"format"`
	KeysOrder string `yaml:"keys_order"`
	Dir       string `yaml:"dir"`
	File      string `yaml:"file"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile"`
}

// StorageConfig selects the dialogue storage backend.
type StorageConfig struct {
	// Backend is one of "memory", "sql", "redis".
	Backend string `yaml:"backend" envconfig:"STORAGE_BACKEND"`
	// Trace wraps the selected backend with per-call logging.
	Trace bool `yaml:"trace" envconfig:"STORAGE_TRACE"`

	SQL   SQLConfig   `yaml:"sql"`
	Redis RedisConfig `yaml:"redis"`
}

// SQLConfig holds connection settings for the sql backend.
type SQLConfig struct {
	// Driver is "sqlite3" or "postgres".
	Driver         string `yaml:"driver" envconfig:"STORAGE_SQL_DRIVER"`
	DSN            string `yaml:"dsn" envconfig:"STORAGE_SQL_DSN"`
	MaxConnections int    `yaml:"max_connections" envconfig:"STORAGE_SQL_MAX_CONNECTIONS"`
}

// RedisConfig holds connection settings for the redis backend.
type RedisConfig struct {
	Addr       string `yaml:"addr" envconfig:"REDIS_ADDR"`
	Password   string `yaml:"password" envconfig:"REDIS_PASSWORD"`
	DB         int    `yaml:"db" envconfig:"REDIS_DB"`
	Prefix     string `yaml:"prefix" envconfig:"REDIS_PREFIX"`
	TTLSeconds int    `yaml:"ttl_seconds" envconfig:"REDIS_TTL_SECONDS"`
}

// SerializerConfig selects the dialogue state codec.
type SerializerConfig struct {
	// Format is one of "msgpack", "cbor". Empty means msgpack.
	Format string `yaml:"format" envconfig:"SERIALIZER_FORMAT"`
}

// EngineConfig tunes the update dispatcher loop.
type EngineConfig struct {
	Workers int `yaml:"workers" envconfig:"ENGINE_WORKERS"`
	// QueueSize buffers the update source channel.
	QueueSize int `yaml:"queue_size" envconfig:"ENGINE_QUEUE_SIZE"`
}

// ClientConfig tunes the outbound client adaptors.
type ClientConfig struct {
	// ThrottlePerSecond bounds outbound call rate; 0 disables throttling.
	ThrottlePerSecond float64 `yaml:"throttle_per_second" envconfig:"CLIENT_THROTTLE_PER_SECOND"`
	ThrottleBurst     int     `yaml:"throttle_burst" envconfig:"CLIENT_THROTTLE_BURST"`

	AutoSendQueueSize  int `yaml:"autosend_queue_size" envconfig:"CLIENT_AUTOSEND_QUEUE_SIZE"`
	AutoSendWorkers    int `yaml:"autosend_workers" envconfig:"CLIENT_AUTOSEND_WORKERS"`
	AutoSendMaxRetries int `yaml:"autosend_max_retries" envconfig:"CLIENT_AUTOSEND_MAX_RETRIES"`
	AutoSendBackoffMS  int `yaml:"autosend_backoff_ms" envconfig:"CLIENT_AUTOSEND_BACKOFF_MS"`

	// HTTP transport tuning for the Bot API; zero values take the
	// defaults (30s timeout, 3 retries, 2s backoff).
	HTTPTimeoutSeconds int `yaml:"http_timeout_seconds" envconfig:"CLIENT_HTTP_TIMEOUT_SECONDS"`
	HTTPRetryAttempts  int `yaml:"http_retry_attempts" envconfig:"CLIENT_HTTP_RETRY_ATTEMPTS"`
	HTTPRetryBackoffMS int `yaml:"http_retry_backoff_ms" envconfig:"CLIENT_HTTP_RETRY_BACKOFF_MS"`
}

const (
	// RunModeWebhook selects webhook mode for Telegram updates.
	RunModeWebhook = "webhook"
	// RunModeLongpoll selects long-polling mode for Telegram updates.
	RunModeLongpoll = "longpoll"
)

// Backend names accepted by StorageConfig.Backend.
const (
	BackendMemory = "memory"
	BackendSQL    = "sql"
	BackendRedis  = "redis"
)

// Config aggregates the configuration that belongs to the reusable core.
type Config struct {
	Telegram   TelegramConfig   `yaml:"telegram"`
	Webhook    WebhookConfig    `yaml:"webhook"`
	Logging    LoggingConfig    `yaml:"logging"`
	Storage    StorageConfig    `yaml:"storage"`
	Serializer SerializerConfig `yaml:"serializer"`
	Engine     EngineConfig     `yaml:"engine"`
	Client     ClientConfig     `yaml:"client"`
}

// Load reads configuration from a YAML file and environment variables.
// Environment values win over the file.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("config: env override: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Telegram.RunMode == "" {
		c.Telegram.RunMode = RunModeLongpoll
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = BackendMemory
	}
	if c.Engine.Workers <= 0 {
		c.Engine.Workers = 8
	}
	if c.Engine.QueueSize <= 0 {
		c.Engine.QueueSize = 100
	}
}

func (c *Config) validate() error {
	switch strings.ToLower(c.Storage.Backend) {
	case BackendMemory, BackendSQL, BackendRedis:
	default:
		return fmt.Errorf("config: unknown storage backend %q", c.Storage.Backend)
	}
	if strings.ToLower(c.Storage.Backend) == BackendRedis && c.Storage.Redis.Addr == "" {
		return fmt.Errorf("config: redis backend selected but redis.addr is empty")
	}
	if strings.ToLower(c.Storage.Backend) == BackendSQL {
		if c.Storage.SQL.Driver == "" || c.Storage.SQL.DSN == "" {
			return fmt.Errorf("config: sql backend selected but sql.driver or sql.dsn is empty")
		}
	}
	switch strings.ToLower(c.Telegram.RunMode) {
	case RunModeLongpoll:
	case RunModeWebhook:
		if c.Webhook.URL == "" {
			return fmt.Errorf("config: webhook mode selected but webhook.url is empty")
		}
	default:
		return fmt.Errorf("config: unknown telegram run_mode %q", c.Telegram.RunMode)
	}
	return nil
}
