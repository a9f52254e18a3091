// Package config loads the server configuration from the environment.
//
// An optional .env file in the working directory is read first; variables
// already set in the environment win over it.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const minSecretLength = 16

// Config holds the application configuration.
type Config struct {
	Port    int
	Env     string // "development" or "production"
	DBPath  string
	Session SessionConfig
	Auth    AuthConfig
	CORS    CORSConfig

	// PurgeSchedule is a robfig/cron expression for dropping expired revocations.
	PurgeSchedule string
}

// SessionConfig describes how the page handler reaches the session endpoint.
type SessionConfig struct {
	Endpoint string
	Timeout  time.Duration
}

// AuthConfig holds JWT and GitHub OAuth settings.
type AuthConfig struct {
	JWTSecret    string
	TokenTTL     time.Duration
	SecureCookie bool
	GitHub       GitHubOAuthConfig
}

// GitHubOAuthConfig holds GitHub OAuth app credentials and the REST API base
// URL used for the profile lookup and the repository browser.
type GitHubOAuthConfig struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
	APIURL       string
}

// CORSConfig holds CORS configuration for /api.
type CORSConfig struct {
	AllowedOrigins []string
}

// Load reads .env (if present) and the environment, applies defaults and
// validates the result.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: reading .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from environment variables only.
func FromEnv() (*Config, error) {
	port, err := strconv.Atoi(getEnv("PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("config: invalid PORT: %w", err)
	}
	ttl, err := time.ParseDuration(getEnv("SESSION_TTL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("config: invalid SESSION_TTL: %w", err)
	}
	timeout, err := time.ParseDuration(getEnv("SESSION_TIMEOUT", "5s"))
	if err != nil {
		return nil, fmt.Errorf("config: invalid SESSION_TIMEOUT: %w", err)
	}
	secure, err := strconv.ParseBool(getEnv("SECURE_COOKIE", "false"))
	if err != nil {
		return nil, fmt.Errorf("config: invalid SECURE_COOKIE: %w", err)
	}

	cfg := &Config{
		Port:   port,
		Env:    getEnv("APP_ENV", "development"),
		DBPath: getEnv("DB_PATH", "data/prmanager.db"),
		Session: SessionConfig{
			Endpoint: getEnv("SESSION_ENDPOINT", fmt.Sprintf("http://127.0.0.1:%d/api/user", port)),
			Timeout:  timeout,
		},
		Auth: AuthConfig{
			JWTSecret:    os.Getenv("JWT_SECRET"),
			TokenTTL:     ttl,
			SecureCookie: secure,
			GitHub: GitHubOAuthConfig{
				ClientID:     os.Getenv("GITHUB_CLIENT_ID"),
				ClientSecret: os.Getenv("GITHUB_CLIENT_SECRET"),
				CallbackURL:  getEnv("GITHUB_CALLBACK_URL", fmt.Sprintf("http://localhost:%d/callback/github", port)),
				APIURL:       getEnv("GITHUB_API_URL", "https://api.github.com"),
			},
		},
		CORS: CORSConfig{
			AllowedOrigins: parseCommaSeparatedList(getEnv("CORS_ALLOWED_ORIGINS", "")),
		},
		PurgeSchedule: getEnv("PURGE_SCHEDULE", "@every 1h"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Port <= 0 || c.Port > 65535:
		return fmt.Errorf("config: PORT %d out of range", c.Port)
	case c.DBPath == "":
		return errors.New("config: DB_PATH is empty")
	case len(c.Auth.JWTSecret) < minSecretLength:
		return fmt.Errorf("config: JWT_SECRET must be at least %d characters", minSecretLength)
	case c.Auth.TokenTTL <= 0:
		return errors.New("config: SESSION_TTL must be positive")
	case c.Auth.GitHub.ClientID == "" || c.Auth.GitHub.ClientSecret == "":
		return errors.New("config: GITHUB_CLIENT_ID and GITHUB_CLIENT_SECRET are required")
	case c.Session.Timeout <= 0:
		return errors.New("config: SESSION_TIMEOUT must be positive")
	}
	if u, err := url.Parse(c.Session.Endpoint); err != nil || !u.IsAbs() {
		return fmt.Errorf("config: SESSION_ENDPOINT %q is not an absolute URL", c.Session.Endpoint)
	}
	if u, err := url.Parse(c.Auth.GitHub.APIURL); err != nil || !u.IsAbs() {
		return fmt.Errorf("config: GITHUB_API_URL %q is not an absolute URL", c.Auth.GitHub.APIURL)
	}
	return nil
}

// IsDevelopment reports whether the server runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// parseCommaSeparatedList splits a comma-separated string into a slice,
// dropping blanks.
func parseCommaSeparatedList(s string) []string {
	if s == "" {
		return []string{}
	}

	items := strings.Split(s, ",")
	result := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item != "" {
			result = append(result, item)
		}
	}
	return result
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
