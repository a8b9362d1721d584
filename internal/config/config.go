package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ErrNoSecret is returned by RequireSecret when RECIPE_DEVSERVER_SECRET is unset.
var ErrNoSecret = errors.New("RECIPE_DEVSERVER_SECRET is required")

type Config struct {
	API struct {
		URL     string
		Token   string
		Timeout time.Duration
	}
	DB struct {
		Driver string
		DSN    string
	}
	Feed struct {
		PageSize int
	}
	DevServer struct {
		Addr      string
		Secret    string
		Latency   time.Duration
		FailEvery int
	}
}

// Load reads config from environment (RECIPE_ prefix) and optional recipe-sync.yaml.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("RECIPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetConfigName("recipe-sync")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // optional config file

	v.SetDefault("api.url", "http://localhost:8080")
	v.SetDefault("api.timeout", "10s")
	v.SetDefault("db.driver", "sqlite3")
	v.SetDefault("db.dsn", "recipe-sync.db")
	v.SetDefault("feed.page_size", 20)
	v.SetDefault("devserver.addr", ":8080")
	v.SetDefault("devserver.latency", "0s")
	v.SetDefault("devserver.fail_every", 0)

	cfg := &Config{}
	cfg.API.URL = v.GetString("api.url")
	cfg.API.Token = v.GetString("api.token")
	cfg.DB.Driver = v.GetString("db.driver")
	cfg.DB.DSN = v.GetString("db.dsn")
	cfg.Feed.PageSize = v.GetInt("feed.page_size")
	cfg.DevServer.Addr = v.GetString("devserver.addr")
	cfg.DevServer.Secret = v.GetString("devserver.secret")
	cfg.DevServer.FailEvery = v.GetInt("devserver.fail_every")

	timeout, err := time.ParseDuration(v.GetString("api.timeout"))
	if err != nil {
		return nil, fmt.Errorf("invalid RECIPE_API_TIMEOUT: %w", err)
	}
	cfg.API.Timeout = timeout

	latency, err := time.ParseDuration(v.GetString("devserver.latency"))
	if err != nil {
		return nil, fmt.Errorf("invalid RECIPE_DEVSERVER_LATENCY: %w", err)
	}
	cfg.DevServer.Latency = latency

	if u, err := url.Parse(cfg.API.URL); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("RECIPE_API_URL must be an absolute URL, got %q", cfg.API.URL)
	}
	if cfg.API.Timeout <= 0 {
		return nil, fmt.Errorf("RECIPE_API_TIMEOUT must be positive")
	}
	switch cfg.DB.Driver {
	case "sqlite3", "mysql", "postgres":
	default:
		return nil, fmt.Errorf("RECIPE_DB_DRIVER must be one of sqlite3, mysql, postgres; got %q", cfg.DB.Driver)
	}
	if cfg.DB.DSN == "" {
		return nil, fmt.Errorf("RECIPE_DB_DSN is required")
	}
	if cfg.Feed.PageSize < 1 || cfg.Feed.PageSize > 100 {
		return nil, fmt.Errorf("RECIPE_FEED_PAGE_SIZE must be between 1 and 100")
	}
	if cfg.DevServer.FailEvery < 0 {
		return nil, fmt.Errorf("RECIPE_DEVSERVER_FAIL_EVERY must not be negative")
	}

	return cfg, nil
}

// RequireSecret checks that a dev server signing secret is configured.
func (c *Config) RequireSecret() error {
	if c.DevServer.Secret == "" {
		return ErrNoSecret
	}
	return nil
}
