package config_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/joestump/recipe-sync/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.API.URL != "http://localhost:8080" {
		t.Errorf("API.URL = %q", cfg.API.URL)
	}
	if cfg.API.Timeout != 10*time.Second {
		t.Errorf("API.Timeout = %v", cfg.API.Timeout)
	}
	if cfg.DB.Driver != "sqlite3" || cfg.DB.DSN != "recipe-sync.db" {
		t.Errorf("DB = %+v", cfg.DB)
	}
	if cfg.Feed.PageSize != 20 {
		t.Errorf("Feed.PageSize = %d", cfg.Feed.PageSize)
	}
	if !errors.Is(cfg.RequireSecret(), config.ErrNoSecret) {
		t.Error("RequireSecret without a secret should fail")
	}
}

func TestLoad_Environment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("RECIPE_API_URL", "https://recipes.example.com")
	t.Setenv("RECIPE_API_TOKEN", "tok")
	t.Setenv("RECIPE_API_TIMEOUT", "3s")
	t.Setenv("RECIPE_DB_DRIVER", "postgres")
	t.Setenv("RECIPE_DB_DSN", "postgres://localhost/recipes")
	t.Setenv("RECIPE_FEED_PAGE_SIZE", "50")
	t.Setenv("RECIPE_DEVSERVER_SECRET", "s3cret")
	t.Setenv("RECIPE_DEVSERVER_LATENCY", "250ms")
	t.Setenv("RECIPE_DEVSERVER_FAIL_EVERY", "3")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.API.URL != "https://recipes.example.com" || cfg.API.Token != "tok" || cfg.API.Timeout != 3*time.Second {
		t.Errorf("API = %+v", cfg.API)
	}
	if cfg.DB.Driver != "postgres" || cfg.DB.DSN != "postgres://localhost/recipes" {
		t.Errorf("DB = %+v", cfg.DB)
	}
	if cfg.Feed.PageSize != 50 {
		t.Errorf("Feed.PageSize = %d", cfg.Feed.PageSize)
	}
	if cfg.DevServer.Latency != 250*time.Millisecond || cfg.DevServer.FailEvery != 3 {
		t.Errorf("DevServer = %+v", cfg.DevServer)
	}
	if err := cfg.RequireSecret(); err != nil {
		t.Errorf("RequireSecret: %v", err)
	}
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]struct {
		key, value, want string
	}{
		"relative url":  {"RECIPE_API_URL", "localhost", "RECIPE_API_URL"},
		"bad timeout":   {"RECIPE_API_TIMEOUT", "soon", "RECIPE_API_TIMEOUT"},
		"bad driver":    {"RECIPE_DB_DRIVER", "oracle", "RECIPE_DB_DRIVER"},
		"huge page":     {"RECIPE_FEED_PAGE_SIZE", "1000", "RECIPE_FEED_PAGE_SIZE"},
		"negative fail": {"RECIPE_DEVSERVER_FAIL_EVERY", "-1", "RECIPE_DEVSERVER_FAIL_EVERY"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			t.Setenv(tc.key, tc.value)
			_, err := config.Load()
			if err == nil {
				t.Fatal("Load should fail")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("err = %v, want mention of %s", err, tc.want)
			}
		})
	}
}
