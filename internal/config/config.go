// Package config handles application configuration from environment variables
// and the source group file.
package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the application configuration.
type Config struct {
	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN,required,notEmpty"`
	DatabasePath     string `env:"DATABASE_PATH" envDefault:"./data/bot.db"`
	LogLevel         string `env:"LOG_LEVEL" envDefault:"info"`
	AllowedUsers     []int64
	AdminUsers       []int64

	SourcesPath      string        `env:"SOURCES_PATH" envDefault:"./subs.json"`
	SourceFormat     string        `env:"SOURCE_FORMAT" envDefault:"json"`
	SourceBaseURL    string        `env:"SOURCE_BASE_URL" envDefault:"https://www.reddit.com"`
	SourceLimit      int           `env:"SOURCE_LIMIT" envDefault:"100"`
	FetchTimeout     time.Duration `env:"FETCH_TIMEOUT" envDefault:"30s"`
	FetchConcurrency int           `env:"FETCH_CONCURRENCY" envDefault:"0"`
	RefreshSchedule  string        `env:"REFRESH_SCHEDULE" envDefault:"@every 1h"`

	RateLimit  int           `env:"RATE_LIMIT" envDefault:"10"`
	RatePeriod time.Duration `env:"RATE_PERIOD" envDefault:"1m"`
	RateBurst  int           `env:"RATE_BURST" envDefault:"10"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	return parse(env.ToMap(os.Environ()))
}

func parse(environ map[string]string) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Environment: environ}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	var err error
	if cfg.AllowedUsers, err = parseUserIDs(environ, "ALLOWED_USERS"); err != nil {
		return nil, err
	}
	if cfg.AdminUsers, err = parseUserIDs(environ, "ADMIN_USERS"); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseUserIDs reads a comma-separated ID list, tolerating blanks around and
// between IDs.
func parseUserIDs(environ map[string]string, key string) ([]int64, error) {
	var ids []int64
	for _, s := range strings.Split(environ[key], ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		uid, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid user ID %q in %s: %w", s, key, err)
		}
		ids = append(ids, uid)
	}
	return ids, nil
}

func (c *Config) validate() error {
	switch c.SourceFormat {
	case "json", "rss":
	default:
		return fmt.Errorf("SOURCE_FORMAT must be json or rss, got %q", c.SourceFormat)
	}
	if c.SourceLimit < 1 || c.SourceLimit > 100 {
		return fmt.Errorf("SOURCE_LIMIT must be between 1 and 100, got %d", c.SourceLimit)
	}
	if c.FetchConcurrency < 0 {
		return fmt.Errorf("FETCH_CONCURRENCY must not be negative, got %d", c.FetchConcurrency)
	}
	if c.RateLimit <= 0 || c.RateBurst <= 0 || c.RatePeriod <= 0 {
		return fmt.Errorf("rate limit settings must be positive")
	}
	return nil
}

// IsUserAllowed checks whether a user ID is in the allow list.
// Returns true if the allow list is empty (all users permitted).
func (c *Config) IsUserAllowed(userID int64) bool {
	if len(c.AllowedUsers) == 0 {
		return true
	}
	for _, id := range c.AllowedUsers {
		if id == userID {
			return true
		}
	}
	return false
}

// IsAdmin reports whether a user may run admin commands. Unlike
// IsUserAllowed, an empty admin list permits nobody.
func (c *Config) IsAdmin(userID int64) bool {
	return slices.Contains(c.AdminUsers, userID)
}
