package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	DriverMemory   = "memory"
	DriverPebble   = "pebble"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

type RuntimeConfig struct {
	Dev bool
}

type BotConfig struct {
	Token        string `yaml:"token" envconfig:"TELEGRAM_BOT_TOKEN"`
	Lang         string `yaml:"lang" envconfig:"BOT_LANG"`
	Workers      int    `yaml:"workers" envconfig:"BOT_WORKERS"` // update workers
	PollTimeout  int    `yaml:"poll_timeout" envconfig:"BOT_POLL_TIMEOUT"`
	FeedWindow   int    `yaml:"feed_window" envconfig:"FEED_WINDOW"`     // posts kept per channel
	FeedChannels int    `yaml:"feed_channels" envconfig:"FEED_CHANNELS"` // channels kept by the feed
	Debug        bool   `yaml:"debug" envconfig:"BOT_DEBUG"`
}

// SeedBinding is a binding created at start-up, before any /bind command.
type SeedBinding struct {
	GroupID int64  `yaml:"group_id"`
	Channel string `yaml:"channel"`
}

type RelayConfig struct {
	Interval   time.Duration `yaml:"interval" envconfig:"FORWARD_INTERVAL"`
	FetchLimit int           `yaml:"fetch_limit" envconfig:"FETCH_LIMIT"`
	Bindings   []SeedBinding `yaml:"bindings" ignored:"true"`

	// single binding from the environment, kept for older deployments
	SeedGroupID int64  `yaml:"-" envconfig:"GROUP_CHAT_ID"`
	SeedChannel string `yaml:"-" envconfig:"CHANNEL_USERNAME"`
}

type LogConfig struct {
	Level    string `yaml:"level" envconfig:"LOG_LEVEL"`   // trace|debug|info|warn|error
	Format   string `yaml:"format" envconfig:"LOG_FORMAT"` // json|console
	Sampling bool   `yaml:"sampling" envconfig:"LOG_SAMPLING"`
}

type HTTPConfig struct {
	Port int `yaml:"port" envconfig:"PORT"`
}

type AdminConfig struct {
	Port int `yaml:"port" envconfig:"METRICS_PORT"` // 0 disables /metrics
}

type StoreConfig struct {
	Driver    string `yaml:"driver" envconfig:"STORE_DRIVER"` // memory|pebble|redis|postgres
	PebbleDir string `yaml:"pebble_dir" envconfig:"PEBBLE_DIR"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url" envconfig:"DATABASE_URL"`
	MaxConns int32  `yaml:"max_conns" envconfig:"DATABASE_MAX_CONNS"`
}

type RedisConfig struct {
	URL       string `yaml:"url" envconfig:"REDIS_URL"`
	Password  string `yaml:"password" envconfig:"REDIS_PASSWORD"`
	DB        int    `yaml:"db" envconfig:"REDIS_DB"`
	KeyPrefix string `yaml:"key_prefix" envconfig:"REDIS_KEY_PREFIX"`
}

type Config struct {
	Bot      BotConfig      `yaml:"bot"`
	Relay    RelayConfig    `yaml:"relay"`
	Log      LogConfig      `yaml:"log"`
	HTTP     HTTPConfig     `yaml:"http"`
	Admin    AdminConfig    `yaml:"admin"`
	Store    StoreConfig    `yaml:"store"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`

	Runtime RuntimeConfig `yaml:"-" ignored:"true"`
}

// LoadConfig reads the optional YAML file at path, then applies environment overrides.
// A missing file is not an error; every setting can come from the environment.
func LoadConfig(path string, dev bool) (*Config, error) {
	var cfg Config
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("env config: %w", err)
	}

	cfg.Runtime.Dev = dev
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Bot.Lang == "" {
		cfg.Bot.Lang = "en"
	}
	if cfg.Bot.Workers <= 0 {
		cfg.Bot.Workers = 1
	}
	if cfg.Bot.PollTimeout <= 0 {
		cfg.Bot.PollTimeout = 60
	}
	if cfg.Bot.FeedWindow <= 0 {
		cfg.Bot.FeedWindow = 50
	}
	if cfg.Bot.FeedChannels <= 0 {
		cfg.Bot.FeedChannels = 1024
	}
	if cfg.Relay.Interval <= 0 {
		cfg.Relay.Interval = 30 * time.Minute
	}
	if cfg.Relay.FetchLimit <= 0 {
		cfg.Relay.FetchLimit = 10
	}
	if cfg.Relay.SeedGroupID != 0 && cfg.Relay.SeedChannel != "" {
		cfg.Relay.Bindings = append(cfg.Relay.Bindings, SeedBinding{
			GroupID: cfg.Relay.SeedGroupID,
			Channel: cfg.Relay.SeedChannel,
		})
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 8080
	}
	cfg.Store.Driver = strings.ToLower(strings.TrimSpace(cfg.Store.Driver))
	if cfg.Store.Driver == "" {
		cfg.Store.Driver = DriverMemory
	}
	if cfg.Store.PebbleDir == "" {
		cfg.Store.PebbleDir = "data/relay"
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 4
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = "relay"
	}
}

// Validate checks the settings the process cannot start without.
func (c *Config) Validate() error {
	// dev mode runs the noop bot and needs no token
	if c.Bot.Token == "" && !c.Runtime.Dev {
		return errors.New("bot.token is required (TELEGRAM_BOT_TOKEN)")
	}
	if c.Relay.FetchLimit > 100 {
		return fmt.Errorf("relay.fetch_limit must be <= 100, got %d", c.Relay.FetchLimit)
	}
	if c.Bot.FeedWindow < c.Relay.FetchLimit {
		return fmt.Errorf("bot.feed_window (%d) must be >= relay.fetch_limit (%d)", c.Bot.FeedWindow, c.Relay.FetchLimit)
	}
	switch c.Store.Driver {
	case DriverMemory, DriverPebble:
	case DriverRedis:
		if c.Redis.URL == "" {
			return errors.New("redis.url is required for the redis store")
		}
	case DriverPostgres:
		if c.Database.URL == "" {
			return errors.New("database.url is required for the postgres store")
		}
	default:
		return fmt.Errorf("unknown store.driver %q", c.Store.Driver)
	}
	return nil
}
