package config

import (
	"flag"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	API      APIConfig
	Cache    CacheConfig
	Database DatabaseConfig
	Logging  LoggingConfig
	Auth     AuthConfig
	Pages    PagesConfig
}

// ServerConfig holds the HTTP backend configuration
type ServerConfig struct {
	HTTPAddr            string
	RefreshInterval     time.Duration
	EnableManualRefresh bool
	AllowedOrigins      []string
	RequestTimeout      time.Duration
}

// APIConfig describes the upstream recommendations API
type APIConfig struct {
	BaseURL       string
	Timeout       time.Duration
	MaxRetries    int
	RetryDelay    time.Duration
	UserAgent     string
	EndpointsPath string
	MaxConcurrent int
}

// CacheConfig holds cache configuration
type CacheConfig struct {
	Backend        string // "memory", "redis", "sqlite", "postgres" or "none"
	TTL            time.Duration
	StaleRetention time.Duration
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	SQLitePath     string
}

// DatabaseConfig holds PostgreSQL configuration for the postgres cache backend
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string
}

// AuthConfig holds the credentials used to sign requests to /admin/ routes.
// Signing is disabled when AdminSecret is empty.
type AuthConfig struct {
	AdminSecret   string
	AdminIssuer   string
	AdminAudience string
	AdminSubject  string
	TokenTTL      time.Duration
}

// PagesConfig holds how many articles each page section asks for
type PagesConfig struct {
	ArticlesPerSection int
	SimilarLimit       int
	HybridLimit        int
}

// Load reads .env, then parses command line flags and environment variables
// to build configuration. Environment variables win over flags.
func Load() *Config {
	return load(flag.CommandLine, os.Args[1:])
}

// LoadEnv builds configuration from defaults, .env and the environment only,
// for commands that parse their own flags.
func LoadEnv() *Config {
	fs := flag.NewFlagSet("journalfeed", flag.ContinueOnError)
	return load(fs, nil)
}

func load(fs *flag.FlagSet, args []string) *Config {
	_ = godotenv.Load()

	cfg := &Config{}

	// Define flags with defaults
	httpAddr := fs.String("http", ":8080", "HTTP server address")
	refreshInterval := fs.Duration("refresh-interval", 5*time.Minute, "Background homepage refresh interval (0 disables)")
	apiURL := fs.String("api-url", "http://localhost:8000", "Recommendations API base URL")
	apiTimeout := fs.Duration("api-timeout", 15*time.Second, "Timeout for each API attempt")
	apiRetries := fs.Int("api-retries", 3, "Total attempts per API request")
	apiRetryDelay := fs.Duration("api-retry-delay", 2*time.Second, "Fixed delay between API attempts")
	maxConcurrent := fs.Int("max-concurrent", 0, "Maximum concurrent fetches per fan-out (0 = unlimited)")
	cacheBackend := fs.String("cache-backend", "memory", "Cache backend: memory, redis, sqlite, postgres or none")
	cacheTTL := fs.Duration("cache-ttl", 5*time.Minute, "Cache TTL for API results")
	staleRetention := fs.Duration("stale-retention", 24*time.Hour, "How long expired entries are kept for stale fallback")
	redisAddr := fs.String("redis-addr", "localhost:6379", "Redis server address")
	sqlitePath := fs.String("sqlite-path", defaultSQLitePath(), "SQLite cache file")
	logLevel := fs.String("log-level", "info", "Log level (debug, info, warn, error)")
	dbHost := fs.String("db-host", "localhost", "PostgreSQL host")
	dbPort := fs.Int("db-port", 5432, "PostgreSQL port")
	dbUser := fs.String("db-user", "postgres", "PostgreSQL user")
	dbPassword := fs.String("db-password", "postgres", "PostgreSQL password")
	dbName := fs.String("db-name", "journalfeed", "PostgreSQL database name")
	dbSSLMode := fs.String("db-sslmode", "disable", "PostgreSQL SSL mode")

	_ = fs.Parse(args)

	// Apply environment variable overrides
	applyEnvOverrides(httpAddr, refreshInterval, apiURL, apiTimeout, apiRetries, apiRetryDelay, maxConcurrent,
		cacheBackend, cacheTTL, staleRetention, redisAddr, sqlitePath, logLevel,
		dbHost, dbPort, dbUser, dbPassword, dbName, dbSSLMode)

	cfg.Server = ServerConfig{
		HTTPAddr:            *httpAddr,
		RefreshInterval:     *refreshInterval,
		EnableManualRefresh: envBool("ENABLE_MANUAL_REFRESH", true),
		AllowedOrigins:      splitList(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "*")),
		RequestTimeout:      envDuration("REQUEST_TIMEOUT", 90*time.Second),
	}

	cfg.API = APIConfig{
		BaseURL:       strings.TrimRight(*apiURL, "/"),
		Timeout:       *apiTimeout,
		MaxRetries:    *apiRetries,
		RetryDelay:    *apiRetryDelay,
		UserAgent:     getEnvOrDefault("API_USER_AGENT", "journalfeed/1.0"),
		EndpointsPath: os.Getenv("ENDPOINTS_CONFIG_PATH"),
		MaxConcurrent: *maxConcurrent,
	}

	cfg.Cache = CacheConfig{
		Backend:        strings.ToLower(*cacheBackend),
		TTL:            *cacheTTL,
		StaleRetention: *staleRetention,
		RedisAddr:      *redisAddr,
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		RedisDB:        envInt("REDIS_DB", 0),
		SQLitePath:     *sqlitePath,
	}

	cfg.Database = DatabaseConfig{
		Host:     *dbHost,
		Port:     *dbPort,
		User:     *dbUser,
		Password: *dbPassword,
		Database: *dbName,
		SSLMode:  *dbSSLMode,
	}

	cfg.Logging = LoggingConfig{
		Level: *logLevel,
	}

	cfg.Auth = loadAuthConfig()
	cfg.Pages = loadPagesConfig()

	return cfg
}

func loadAuthConfig() AuthConfig {
	tokenTTL := 5 * time.Minute
	if v := os.Getenv("ADMIN_TOKEN_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			tokenTTL = d
		}
	}

	return AuthConfig{
		AdminSecret:   os.Getenv("ADMIN_JWT_SECRET"),
		AdminIssuer:   getEnvOrDefault("ADMIN_JWT_ISSUER", "journalfeed"),
		AdminAudience: getEnvOrDefault("ADMIN_JWT_AUDIENCE", "recommendations-api"),
		AdminSubject:  getEnvOrDefault("ADMIN_JWT_SUBJECT", "journalfeed"),
		TokenTTL:      tokenTTL,
	}
}

func loadPagesConfig() PagesConfig {
	return PagesConfig{
		ArticlesPerSection: envInt("ARTICLES_PER_SECTION", 4),
		SimilarLimit:       envInt("SIMILAR_LIMIT", 4),
		HybridLimit:        envInt("HYBRID_LIMIT", 4),
	}
}

func defaultSQLitePath() string {
	return filepath.Join(xdg.CacheHome, "journalfeed", "cache.db")
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func envInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return defaultValue
}

func envDuration(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}

func envBool(key string, defaultValue bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		return defaultValue
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func applyEnvOverrides(
	httpAddr *string,
	refreshInterval *time.Duration,
	apiURL *string,
	apiTimeout *time.Duration,
	apiRetries *int,
	apiRetryDelay *time.Duration,
	maxConcurrent *int,
	cacheBackend *string,
	cacheTTL *time.Duration,
	staleRetention *time.Duration,
	redisAddr *string,
	sqlitePath *string,
	logLevel *string,
	dbHost *string,
	dbPort *int,
	dbUser *string,
	dbPassword *string,
	dbName *string,
	dbSSLMode *string,
) {
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		*httpAddr = v
	}
	if v := os.Getenv("REFRESH_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*refreshInterval = d
		}
	}
	if v := os.Getenv("API_BASE_URL"); v != "" {
		*apiURL = v
	}
	if v := os.Getenv("API_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*apiTimeout = d
		}
	}
	if v := os.Getenv("API_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*apiRetries = n
		}
	}
	if v := os.Getenv("API_RETRY_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*apiRetryDelay = d
		}
	}
	if v := os.Getenv("MAX_CONCURRENT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*maxConcurrent = n
		}
	}
	if v := os.Getenv("CACHE_BACKEND"); v != "" {
		*cacheBackend = v
	}
	if v := os.Getenv("CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*cacheTTL = d
		}
	}
	if v := os.Getenv("STALE_RETENTION"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*staleRetention = d
		}
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		*redisAddr = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		*sqlitePath = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		*logLevel = v
	}
	if v := os.Getenv("DB_HOST"); v != "" {
		*dbHost = v
	}
	if v := os.Getenv("DB_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			*dbPort = p
		}
	}
	if v := os.Getenv("DB_USER"); v != "" {
		*dbUser = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		*dbPassword = v
	}
	if v := os.Getenv("DB_NAME"); v != "" {
		*dbName = v
	}
	if v := os.Getenv("DB_SSLMODE"); v != "" {
		*dbSSLMode = v
	}
}
