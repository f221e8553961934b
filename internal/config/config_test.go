package config

import (
	"flag"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func loadWithArgs(t *testing.T, args ...string) *Config {
	t.Helper()

	if len(args) == 0 {
		args = []string{"test"}
	}

	oldCommandLine := flag.CommandLine
	oldArgs := os.Args

	flag.CommandLine = flag.NewFlagSet(args[0], flag.ContinueOnError)
	flag.CommandLine.SetOutput(io.Discard)
	os.Args = args

	t.Cleanup(func() {
		flag.CommandLine = oldCommandLine
		os.Args = oldArgs
	})

	return Load()
}

func TestLoad_Defaults(t *testing.T) {
	cfg := loadWithArgs(t, "test")

	if cfg.API.BaseURL != "http://localhost:8000" {
		t.Errorf("API.BaseURL = %q", cfg.API.BaseURL)
	}
	if cfg.API.Timeout != 15*time.Second || cfg.API.MaxRetries != 3 || cfg.API.RetryDelay != 2*time.Second {
		t.Errorf("API retry policy = %+v", cfg.API)
	}
	if cfg.Cache.Backend != "memory" || cfg.Cache.TTL != 5*time.Minute {
		t.Errorf("Cache = %+v", cfg.Cache)
	}
	if filepath.Base(cfg.Cache.SQLitePath) != "cache.db" {
		t.Errorf("Cache.SQLitePath = %q", cfg.Cache.SQLitePath)
	}
	if cfg.Pages.ArticlesPerSection != 4 || cfg.Pages.SimilarLimit != 4 || cfg.Pages.HybridLimit != 4 {
		t.Errorf("Pages = %+v", cfg.Pages)
	}
	if !cfg.Server.EnableManualRefresh {
		t.Error("EnableManualRefresh should default to true")
	}
	if cfg.Auth.AdminSecret != "" {
		t.Error("admin signing should be off by default")
	}
}

func TestLoad_FlagsParsed(t *testing.T) {
	cfg := loadWithArgs(t, "test", "-api-url", "https://journal.example.org/api/", "-api-retries", "5", "-cache-backend", "SQLite")

	if cfg.API.BaseURL != "https://journal.example.org/api" {
		t.Errorf("API.BaseURL = %q, want trailing slash trimmed", cfg.API.BaseURL)
	}
	if cfg.API.MaxRetries != 5 {
		t.Errorf("API.MaxRetries = %d, want 5", cfg.API.MaxRetries)
	}
	if cfg.Cache.Backend != "sqlite" {
		t.Errorf("Cache.Backend = %q, want sqlite", cfg.Cache.Backend)
	}
}

func TestLoad_EnvOverridesFlags(t *testing.T) {
	t.Setenv("API_BASE_URL", "http://env:9000")
	t.Setenv("API_RETRY_DELAY", "250ms")
	t.Setenv("CACHE_TTL", "1m")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("ARTICLES_PER_SECTION", "6")

	cfg := loadWithArgs(t, "test", "-api-url", "http://flag:9000")

	if cfg.API.BaseURL != "http://env:9000" {
		t.Errorf("API.BaseURL = %q", cfg.API.BaseURL)
	}
	if cfg.API.RetryDelay != 250*time.Millisecond {
		t.Errorf("API.RetryDelay = %v", cfg.API.RetryDelay)
	}
	if cfg.Cache.TTL != time.Minute || cfg.Cache.RedisDB != 2 {
		t.Errorf("Cache = %+v", cfg.Cache)
	}
	if cfg.Pages.ArticlesPerSection != 6 {
		t.Errorf("ArticlesPerSection = %d", cfg.Pages.ArticlesPerSection)
	}
}

func TestLoad_InvalidEnvKeepsDefault(t *testing.T) {
	t.Setenv("API_TIMEOUT", "soon")
	t.Setenv("SIMILAR_LIMIT", "-3")

	cfg := loadWithArgs(t, "test")
	if cfg.API.Timeout != 15*time.Second {
		t.Errorf("API.Timeout = %v", cfg.API.Timeout)
	}
	if cfg.Pages.SimilarLimit != 4 {
		t.Errorf("SimilarLimit = %d", cfg.Pages.SimilarLimit)
	}
}

func TestLoad_EnableManualRefresh_FromEnv(t *testing.T) {
	t.Run("false", func(t *testing.T) {
		t.Setenv("ENABLE_MANUAL_REFRESH", "false")
		cfg := loadWithArgs(t, "test")
		if cfg.Server.EnableManualRefresh {
			t.Fatalf("expected EnableManualRefresh=false when ENABLE_MANUAL_REFRESH=false")
		}
	})

	t.Run("zero", func(t *testing.T) {
		t.Setenv("ENABLE_MANUAL_REFRESH", "0")
		cfg := loadWithArgs(t, "test")
		if cfg.Server.EnableManualRefresh {
			t.Fatalf("expected EnableManualRefresh=false when ENABLE_MANUAL_REFRESH=0")
		}
	})
}

func TestLoad_AdminAuthFromEnv(t *testing.T) {
	t.Setenv("ADMIN_JWT_SECRET", "s3cret")
	t.Setenv("ADMIN_TOKEN_TTL", "90s")

	cfg := loadWithArgs(t, "test")
	if cfg.Auth.AdminSecret != "s3cret" || cfg.Auth.TokenTTL != 90*time.Second {
		t.Errorf("Auth = %+v", cfg.Auth)
	}
	if cfg.Auth.AdminIssuer != "journalfeed" {
		t.Errorf("AdminIssuer = %q", cfg.Auth.AdminIssuer)
	}
}

func TestLoad_AllowedOrigins(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example ,")

	cfg := loadWithArgs(t, "test")
	want := []string{"https://a.example", "https://b.example"}
	if !reflect.DeepEqual(cfg.Server.AllowedOrigins, want) {
		t.Errorf("AllowedOrigins = %v, want %v", cfg.Server.AllowedOrigins, want)
	}
}

func TestLoad_RequestTimeout(t *testing.T) {
	tests := []struct {
		env  string
		want time.Duration
	}{
		{"", 90 * time.Second},
		{"30s", 30 * time.Second},
		{"-5s", 90 * time.Second},
		{"soon", 90 * time.Second},
	}

	for _, tt := range tests {
		t.Setenv("REQUEST_TIMEOUT", tt.env)
		cfg := loadWithArgs(t, "test")
		if cfg.Server.RequestTimeout != tt.want {
			t.Errorf("RequestTimeout with REQUEST_TIMEOUT=%q = %v, want %v", tt.env, cfg.Server.RequestTimeout, tt.want)
		}
	}
}
