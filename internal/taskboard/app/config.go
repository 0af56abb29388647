package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/taskboard/pkg/cryptox"
	"github.com/aussiebroadwan/taskboard/pkg/httpx"
	"github.com/aussiebroadwan/taskboard/pkg/jwtx"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Env                  string        `yaml:"env"`                   // dev, test, production (default: dev)
	LogLevel             string        `yaml:"log_level"`             // debug, info, warn, error (default: info)
	LogFormat            string        `yaml:"log_format"`            // json, text (default: json)
	Port                 int           `yaml:"port"`                  // HTTP server port (default: 5000)
	ShutdownGracePeriod  time.Duration `yaml:"shutdown_grace_period"` // default: 10s
	HousekeepingInterval time.Duration `yaml:"housekeeping_interval"` // default: 1h

	DatabaseDriver string `yaml:"database_driver"` // sqlite or postgres (default: sqlite)
	DatabaseFile   string `yaml:"database_file"`   // SQLite path (default: taskboard.db)
	DatabaseURL    string `yaml:"database_url"`    // Postgres DSN, required for postgres

	PepperFile       string        `yaml:"pepper_file"`        // default: pepper
	JWTAccessSecret  string        `yaml:"jwt_access_secret"`  // required outside dev
	JWTRefreshSecret string        `yaml:"jwt_refresh_secret"` // required outside dev
	JWTAccessExpiry  time.Duration `yaml:"jwt_access_expiry"`  // default: 15m
	JWTRefreshExpiry time.Duration `yaml:"jwt_refresh_expiry"` // default: 7d

	CORSOrigin string           `yaml:"cors_origin"` // default: http://localhost:3000
	RateLimits httpx.RateLimits `yaml:"rate_limits"`

	// GeneratedSecrets is set when dev mode filled in missing JWT secrets.
	GeneratedSecrets bool `yaml:"-"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		Env:                  "dev",
		LogLevel:             "info",
		LogFormat:            "json",
		Port:                 5000,
		ShutdownGracePeriod:  10 * time.Second,
		HousekeepingInterval: time.Hour,
		DatabaseDriver:       DriverSQLite,
		DatabaseFile:         "taskboard.db",
		PepperFile:           "pepper",
		JWTAccessExpiry:      jwtx.DefaultAccessTokenTTL,
		JWTRefreshExpiry:     jwtx.DefaultRefreshTokenTTL,
		CORSOrigin:           "http://localhost:3000",
		RateLimits:           httpx.DefaultRateLimits(),
	}
}

// LoadConfig resolves defaults, then the YAML file named by
// TASKBOARD_CONFIG_FILE, then the environment. A .env file in the working
// directory is loaded into the environment first if present; variables
// already set win over it.
func LoadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := DefaultConfig()
	if err := loadYAML(os.Getenv("TASKBOARD_CONFIG_FILE"), &cfg); err != nil {
		return Config{}, err
	}
	applyEnv(&cfg)

	if cfg.Env == "dev" {
		if err := fillDevSecrets(&cfg); err != nil {
			return Config{}, err
		}
	}
	return cfg, nil
}

// loadYAML overlays the file at path onto cfg. An empty path or a missing
// file leaves cfg untouched.
func loadYAML(path string, cfg *Config) error {
	if path == "" {
		return nil
	}
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Env = getEnvOrDefault("ENV", cfg.Env)
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnvOrDefault("LOG_FORMAT", cfg.LogFormat)
	cfg.Port = getEnvIntOrDefault("PORT", cfg.Port)
	cfg.ShutdownGracePeriod = getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", cfg.ShutdownGracePeriod)
	cfg.HousekeepingInterval = getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", cfg.HousekeepingInterval)

	cfg.DatabaseDriver = strings.ToLower(getEnvOrDefault("DATABASE_DRIVER", cfg.DatabaseDriver))
	cfg.DatabaseFile = getEnvOrDefault("DATABASE_FILE", cfg.DatabaseFile)
	cfg.DatabaseURL = getEnvOrDefault("DATABASE_URL", cfg.DatabaseURL)

	cfg.PepperFile = getEnvOrDefault("PEPPER_FILE", cfg.PepperFile)
	cfg.JWTAccessSecret = getEnvOrDefault("JWT_ACCESS_SECRET", cfg.JWTAccessSecret)
	cfg.JWTRefreshSecret = getEnvOrDefault("JWT_REFRESH_SECRET", cfg.JWTRefreshSecret)
	cfg.JWTAccessExpiry = getEnvDurationOrDefault("JWT_ACCESS_EXPIRY", cfg.JWTAccessExpiry)
	cfg.JWTRefreshExpiry = getEnvDurationOrDefault("JWT_REFRESH_EXPIRY", cfg.JWTRefreshExpiry)

	cfg.CORSOrigin = getEnvOrDefault("CORS_ORIGIN", cfg.CORSOrigin)

	// Mostly useful for tests that make many rapid requests.
	cfg.RateLimits.Strict = rateLimitFromEnv("STRICT", cfg.RateLimits.Strict)
	cfg.RateLimits.Moderate = rateLimitFromEnv("MODERATE", cfg.RateLimits.Moderate)
	cfg.RateLimits.Lenient = rateLimitFromEnv("LENIENT", cfg.RateLimits.Lenient)
	cfg.RateLimits.Public = rateLimitFromEnv("PUBLIC", cfg.RateLimits.Public)
}

// fillDevSecrets generates per-process JWT secrets when none are configured.
// Tokens do not survive a restart.
func fillDevSecrets(cfg *Config) error {
	for _, s := range []*string{&cfg.JWTAccessSecret, &cfg.JWTRefreshSecret} {
		if *s != "" {
			continue
		}
		secret, err := cryptox.GenerateToken(cryptox.TokenSize256)
		if err != nil {
			return fmt.Errorf("generate dev secret: %w", err)
		}
		*s = secret
		cfg.GeneratedSecrets = true
	}
	return nil
}

// Production reports whether cookies should be Secure and internal errors
// hidden.
func (c Config) Production() bool {
	return c.Env == "production" || c.Env == "prod"
}

// Validate rejects configurations the service cannot start with.
func (c Config) Validate() error {
	var errs []error

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d out of range", c.Port))
	}

	switch c.DatabaseDriver {
	case DriverSQLite:
		if c.DatabaseFile == "" {
			errs = append(errs, errors.New("DATABASE_FILE is required for sqlite"))
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown DATABASE_DRIVER %q", c.DatabaseDriver))
	}

	switch {
	case c.JWTAccessSecret == "" || c.JWTRefreshSecret == "":
		errs = append(errs, errors.New("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET are required"))
	case len(c.JWTAccessSecret) < jwtx.MinSecretLength || len(c.JWTRefreshSecret) < jwtx.MinSecretLength:
		errs = append(errs, fmt.Errorf("JWT secrets must be at least %d bytes", jwtx.MinSecretLength))
	case c.JWTAccessSecret == c.JWTRefreshSecret:
		errs = append(errs, errors.New("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must differ"))
	}

	if c.JWTAccessExpiry <= 0 || c.JWTRefreshExpiry <= 0 {
		errs = append(errs, errors.New("JWT expiries must be positive"))
	}

	return errors.Join(errs...)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := parseDuration(value); err == nil {
		return d
	}
	return defaultValue
}

// parseDuration accepts Go durations ("15m", "1h30m"), whole days ("7d") and
// bare integers as minutes.
func parseDuration(value string) (time.Duration, error) {
	if d, err := time.ParseDuration(value); err == nil {
		return d, nil
	}

	if days, ok := strings.CutSuffix(value, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid duration %q", value)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}

	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute, nil
	}

	return 0, fmt.Errorf("invalid duration %q", value)
}

// rateLimitFromEnv reads RATELIMIT_{prefix}_REQUESTS, _WINDOW_SEC and _BURST
// over def. Non-positive or unparsable values are ignored.
func rateLimitFromEnv(prefix string, def httpx.RateLimitConfig) httpx.RateLimitConfig {
	cfg := def

	if n := getEnvIntOrDefault("RATELIMIT_"+prefix+"_REQUESTS", 0); n > 0 {
		cfg.RequestsPerWindow = n
	}
	if n := getEnvIntOrDefault("RATELIMIT_"+prefix+"_WINDOW_SEC", 0); n > 0 {
		cfg.Window = time.Duration(n) * time.Second
	}
	if n := getEnvIntOrDefault("RATELIMIT_"+prefix+"_BURST", 0); n > 0 {
		cfg.Burst = n
	}

	return cfg
}
