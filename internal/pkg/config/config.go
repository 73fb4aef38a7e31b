package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port      string `env:"PORT,      default=8080"`
	Env       string `env:"ENV,       default=development"`
	JWTSecret string `env:"JWT_SECRET"`
	LogLevel  string `env:"LOG_LEVEL, default=info"`
	// AllowAdminSignup lets /auth/register create admin accounts.
	AllowAdminSignup bool `env:"AUTH_ALLOW_ADMIN_SIGNUP, default=false"`

	Mongo MongoConfig
	Redis RedisConfig
	Sync  SyncConfig
	WS    WSConfig
}

type MongoConfig struct {
	URI         string `env:"MONGO_URI,       default=mongodb://localhost:27017"`
	Database    string `env:"MONGO_DB,        default=wholesale_sync"`
	MaxPoolSize uint64 `env:"MONGO_MAX_POOL,  default=0"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,      default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,        default=0"`
	PoolSize int    `env:"REDIS_POOL_SIZE, default=0"`
}

// SyncConfig tunes the broadcast core and the HTTP intake.
type SyncConfig struct {
	RetryInterval    time.Duration `env:"SYNC_RETRY_INTERVAL,     default=5s"`
	RetryMaxAttempts int           `env:"SYNC_RETRY_MAX_ATTEMPTS, default=3"`
	IntakeWorkers    int           `env:"SYNC_INTAKE_WORKERS,     default=4"`
	DedupTTL         time.Duration `env:"SYNC_DEDUP_TTL,          default=1h"`
}

// WSConfig bounds every WebSocket session.
type WSConfig struct {
	SendBuffer      int           `env:"WS_SEND_BUFFER,       default=64"`
	WriteTimeout    time.Duration `env:"WS_WRITE_TIMEOUT,     default=10s"`
	PingInterval    time.Duration `env:"WS_PING_INTERVAL,     default=30s"`
	MaxMessageBytes int64         `env:"WS_MAX_MESSAGE_BYTES, default=65536"`
}

// IsDevelopment reports whether the process runs with developer defaults.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" && !c.IsDevelopment() {
		errs = append(errs, errors.New("JWT_SECRET is required outside development"))
	}
	if c.Sync.RetryInterval <= 0 {
		errs = append(errs, fmt.Errorf("SYNC_RETRY_INTERVAL must be positive, got %s", c.Sync.RetryInterval))
	}
	if c.Sync.RetryMaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("SYNC_RETRY_MAX_ATTEMPTS must be at least 1, got %d", c.Sync.RetryMaxAttempts))
	}
	if c.WS.SendBuffer < 1 {
		errs = append(errs, fmt.Errorf("WS_SEND_BUFFER must be at least 1, got %d", c.WS.SendBuffer))
	}
	return errors.Join(errs...)
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	cfg, err := load(context.Background(), envconfig.OsLookuper())
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}

func load(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
