package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/alexjbarnes/ghost-sync/internal/state"
)

const (
	minExportConcurrency = 1
	maxExportConcurrency = 32
)

// ErrNoBlogURL is returned by RequireBlogURL when neither the
// environment nor the saved state names a blog.
var ErrNoBlogURL = errors.New("GHOST_BLOG_URL is required")

// Config holds all environment-based configuration for ghost-sync.
type Config struct {
	// Blog to operate on. May be left empty when a blog was logged in
	// to before; the state database remembers the current blog.
	BlogURL string `env:"GHOST_BLOG_URL"`

	// Non-interactive credentials. When set they are used before
	// falling back to a terminal prompt.
	Email    string `env:"GHOST_EMAIL"`
	Password string `env:"GHOST_PASSWORD"`
	AuthCode string `env:"GHOST_AUTH_CODE"`

	// State database location and the passphrase that seals credentials.
	// An empty passphrase falls back to a random key kept in the
	// database itself.
	StatePath       string `env:"STATE_PATH"`
	StatePassphrase string `env:"STATE_PASSPHRASE"`

	// Directory holding one markdown file per post.
	PostsDir string `env:"POSTS_DIR" envDefault:"./posts"`

	ExportConcurrency int           `env:"EXPORT_CONCURRENCY" envDefault:"4"`
	HTTPTimeout       time.Duration `env:"HTTP_TIMEOUT" envDefault:"30s"`

	// Zero retries rejected credentials until the user gives up.
	MaxLoginAttempts int `env:"MAX_LOGIN_ATTEMPTS" envDefault:"0"`

	// Environment controls log format
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL"`
}

// warnInsecureEnvFile checks whether the .env file (if present) has
// overly permissive permissions. On Unix systems, group or world
// readable files risk exposing credentials to other users.
func warnInsecureEnvFile() {
	if runtime.GOOS == "windows" {
		return
	}

	info, err := os.Stat(".env")
	if err != nil {
		return // file does not exist, nothing to check
	}

	mode := info.Mode().Perm()
	if mode&0o077 != 0 {
		log.Printf("WARNING: .env file has insecure permissions %04o; recommended 0600", mode)
	}
}

// Load reads configuration from environment variables.
// It first attempts to load a .env file if present, then parses env vars.
func Load() (*Config, error) {
	_ = godotenv.Load()

	warnInsecureEnvFile()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	if cfg.StatePath == "" {
		p, err := state.DefaultPath()
		if err != nil {
			return nil, err
		}

		cfg.StatePath = p
	}

	// Post paths are compared against records in the state database, so
	// they must not depend on the working directory.
	absDir, err := filepath.Abs(cfg.PostsDir)
	if err != nil {
		return nil, fmt.Errorf("resolving posts dir to absolute path: %w", err)
	}

	cfg.PostsDir = absDir

	return cfg, nil
}

func (c *Config) validate() error {
	if c.ExportConcurrency < minExportConcurrency || c.ExportConcurrency > maxExportConcurrency {
		return fmt.Errorf("EXPORT_CONCURRENCY must be between %d and %d, got %d",
			minExportConcurrency, maxExportConcurrency, c.ExportConcurrency)
	}

	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive, got %s", c.HTTPTimeout)
	}

	if c.MaxLoginAttempts < 0 {
		return fmt.Errorf("MAX_LOGIN_ATTEMPTS must not be negative, got %d", c.MaxLoginAttempts)
	}

	if (c.Email == "") != (c.Password == "") {
		return fmt.Errorf("GHOST_EMAIL and GHOST_PASSWORD must be set together")
	}

	return nil
}

// RequireBlogURL returns the configured blog, or fallback when none is
// configured. fallback is normally the state database's current blog.
func (c *Config) RequireBlogURL(fallback string) (string, error) {
	if c.BlogURL != "" {
		return c.BlogURL, nil
	}

	if fallback != "" {
		return fallback, nil
	}

	return "", ErrNoBlogURL
}

// HasPasswordCredentials reports whether GHOST_EMAIL and GHOST_PASSWORD
// are both set.
func (c *Config) HasPasswordCredentials() bool {
	return c.Email != "" && c.Password != ""
}

// IsProduction returns true when the environment is set to production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
