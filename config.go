package studyblog

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// MinSessionSecretLength is the minimum accepted length for the session
// secret. Shorter cookie-store keys are trivially brute-forceable.
const MinSessionSecretLength = 32

// Config holds all service configuration, loaded from environment variables.
type Config struct {
	Addr         string `env:"BLOG_ADDR" envDefault:":3000"`
	SiteURL      string `env:"BLOG_SITE_URL" envDefault:"http://localhost:3000"`
	DatabasePath string `env:"BLOG_DB_PATH" envDefault:"data/blog.db"`

	SessionSecret string `env:"BLOG_SESSION_SECRET,required"`
	CookieSecure  bool   `env:"BLOG_COOKIE_SECURE" envDefault:"false"`

	// StaticDir is served under /public; uploaded images land in
	// StaticDir/uploads/<user id>/.
	StaticDir string `env:"BLOG_STATIC_DIR" envDefault:"public"`

	// RedisURL enables the post detail cache when set
	// (e.g. redis://localhost:6379/0).
	RedisURL string `env:"BLOG_REDIS_URL"`

	FeedCacheTTL time.Duration `env:"BLOG_FEED_CACHE_TTL" envDefault:"5m"`

	// Failed logins allowed per IP within LoginWindow before further
	// attempts are rejected.
	LoginMaxAttempts int           `env:"BLOG_LOGIN_MAX_ATTEMPTS" envDefault:"5"`
	LoginWindow      time.Duration `env:"BLOG_LOGIN_WINDOW" envDefault:"1m"`

	// SeedSubjects inserts a default subject set on startup when the
	// subjects table is empty.
	SeedSubjects bool `env:"BLOG_SEED_SUBJECTS" envDefault:"false"`
}

// LoadConfig parses environment variables and validates the result.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	if len(cfg.SessionSecret) < MinSessionSecretLength {
		return Config{}, fmt.Errorf("BLOG_SESSION_SECRET must be at least %d bytes, got %d; "+
			"generate one with: openssl rand -base64 32",
			MinSessionSecretLength, len(cfg.SessionSecret))
	}
	return cfg, nil
}

// UseRedisCache reports whether the optional Redis detail cache is configured.
func (c Config) UseRedisCache() bool {
	return c.RedisURL != ""
}
