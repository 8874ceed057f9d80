package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

func init() {
	// Auto-load .env file if present (don't override existing env vars)
	loadDotEnv(".env")
}

func loadDotEnv(path string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		val = strings.TrimSpace(val)
		// Remove surrounding quotes
		if len(val) >= 2 && ((val[0] == '"' && val[len(val)-1] == '"') || (val[0] == '\'' && val[len(val)-1] == '\'')) {
			val = val[1 : len(val)-1]
		}
		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, val)
		}
	}
}

const (
	defaultPort        = "4400"
	defaultEnvironment = "development"

	defaultTokenTTL       = 7 * 24 * time.Hour
	defaultRequestTimeout = 30 * time.Second

	defaultClientRetryAttempts = 3
	defaultClientRetryBaseWait = 500 * time.Millisecond
)

// AuthConfig controls token issuing and verification.
type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// ClientRetryConfig controls read-side retries in the API client.
type ClientRetryConfig struct {
	MaxAttempts int
	BaseWait    time.Duration
}

type Config struct {
	Port           string
	DatabaseURL    string
	Environment    string
	MigrationsDir  string
	RequestTimeout time.Duration
	Auth           AuthConfig
	ClientRetry    ClientRetryConfig
}

func Load() (Config, error) {
	cfg := Config{
		Port:          firstNonEmpty(strings.TrimSpace(os.Getenv("PORT")), defaultPort),
		DatabaseURL:   strings.TrimSpace(os.Getenv("DATABASE_URL")),
		Environment:   resolveEnvironment(),
		MigrationsDir: firstNonEmpty(strings.TrimSpace(os.Getenv("MIGRATIONS_DIR")), "./migrations"),
		Auth: AuthConfig{
			JWTSecret: strings.TrimSpace(os.Getenv("JWT_SECRET")),
		},
	}

	requestTimeout, err := parseDuration("REQUEST_TIMEOUT", defaultRequestTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.RequestTimeout = requestTimeout

	tokenTTL, err := parseDuration("TOKEN_TTL", defaultTokenTTL)
	if err != nil {
		return Config{}, err
	}
	cfg.Auth.TokenTTL = tokenTTL

	retryAttempts, err := parseInt("CLIENT_RETRY_MAX_ATTEMPTS", defaultClientRetryAttempts)
	if err != nil {
		return Config{}, err
	}
	cfg.ClientRetry.MaxAttempts = retryAttempts

	retryBaseWait, err := parseDuration("CLIENT_RETRY_BASE_WAIT", defaultClientRetryBaseWait)
	if err != nil {
		return Config{}, err
	}
	cfg.ClientRetry.BaseWait = retryBaseWait

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if c.ClientRetry.MaxAttempts <= 0 {
		return fmt.Errorf("CLIENT_RETRY_MAX_ATTEMPTS must be greater than zero")
	}

	if !isNonDevelopment(c.Environment) {
		return nil
	}

	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required in non-development environments")
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required in non-development environments")
	}

	return nil
}

func resolveEnvironment() string {
	return strings.ToLower(firstNonEmpty(
		strings.TrimSpace(os.Getenv("APP_ENV")),
		strings.TrimSpace(os.Getenv("ENVIRONMENT")),
		strings.TrimSpace(os.Getenv("GO_ENV")),
		defaultEnvironment,
	))
}

func isNonDevelopment(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "", "dev", "development", "local", "test":
		return false
	default:
		return true
	}
}

func parseDuration(name string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return defaultValue, nil
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid duration: %w", name, err)
	}

	if parsed <= 0 {
		return 0, fmt.Errorf("%s must be greater than zero", name)
	}

	return parsed, nil
}

func parseInt(name string, defaultValue int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return defaultValue, nil
	}

	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", name, err)
	}
	return parsed, nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
