package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Config is shared by pressctl and pressd. Each binary reads the sections it
// needs.
type Config struct {
	Env       string `env:"ENV,        default=development"`
	LogLevel  string `env:"LOG_LEVEL,  default=info"`
	LogPretty bool   `env:"LOG_PRETTY, default=false"`
	// JWTSecret signs tokens on the authority. On the client it is optional;
	// when set, session tokens are verified with it before being trusted.
	JWTSecret string `env:"JWT_SECRET"`

	Client    ClientConfig
	Authority AuthorityConfig
	Mongo     MongoConfig
	Redis     RedisConfig
}

type ClientConfig struct {
	APIURL         string        `env:"PRESS_API_URL,   default=http://localhost:8080/api/v1"`
	HTTPTimeout    time.Duration `env:"HTTP_TIMEOUT,    default=10s"`
	SessionBackend string        `env:"SESSION_BACKEND, default=file"`
	SessionPath    string        `env:"SESSION_PATH"`
	CacheBackend   string        `env:"CACHE_BACKEND,   default=memory"`
	CacheTTL       time.Duration `env:"CACHE_TTL,       default=5m"`
}

type AuthorityConfig struct {
	Port     string        `env:"PORT,      default=8080"`
	TokenTTL time.Duration `env:"TOKEN_TTL, default=24h"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=induspress"`
}

type RedisConfig struct {
	Addr string `env:"REDIS_ADDR, default=localhost:6379"`
	DB   int    `env:"REDIS_DB,   default=0"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	cfg, err := LoadFrom(context.Background(), nil)
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}

// LoadFrom reads configuration from lookuper, or from the process
// environment when lookuper is nil.
func LoadFrom(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	ec := &envconfig.Config{Target: &cfg}
	if lookuper != nil {
		ec.Lookuper = lookuper
	}
	if err := envconfig.ProcessWith(ctx, ec); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch strings.ToLower(c.Client.SessionBackend) {
	case "file", "redis":
	default:
		return fmt.Errorf("SESSION_BACKEND must be file or redis, got %q", c.Client.SessionBackend)
	}
	switch strings.ToLower(c.Client.CacheBackend) {
	case "memory", "redis":
	default:
		return fmt.Errorf("CACHE_BACKEND must be memory or redis, got %q", c.Client.CacheBackend)
	}
	return nil
}

// Production reports whether ENV names a production deployment.
func (c *Config) Production() bool {
	return strings.EqualFold(c.Env, "production")
}
