package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config stores all configuration for the application.
type Config struct {
	BaseURL    string `mapstructure:"BASE_URL"`
	ListingURL string `mapstructure:"LISTING_URL"`
	UserAgent  string `mapstructure:"USER_AGENT"`
	ProxyURLs  string `mapstructure:"PROXY_URLS"`

	FetchMode           string  `mapstructure:"FETCH_MODE"`
	FetchConcurrency    int     `mapstructure:"FETCH_CONCURRENCY"`
	FetchTimeoutSeconds int     `mapstructure:"FETCH_TIMEOUT_SECONDS"`
	ContentionDelayMS   int     `mapstructure:"CONTENTION_DELAY_MS"`
	RateLimitRPS        float64 `mapstructure:"RATE_LIMIT_RPS"`

	StoreDriver string `mapstructure:"STORE_DRIVER"`
	SQLitePath  string `mapstructure:"SQLITE_PATH"`
	PostgresURL string `mapstructure:"POSTGRES_URL"`

	RedisAddr       string `mapstructure:"REDIS_ADDR"`
	RedisPassword   string `mapstructure:"REDIS_PASSWORD"`
	RedisDB         int    `mapstructure:"REDIS_DB"`
	VisitedTTLHours int    `mapstructure:"VISITED_TTL_HOURS"`

	VariantDedupeColumnsFile string `mapstructure:"VARIANT_DEDUPE_COLUMNS_FILE"`
	ImageDedupeColumnsFile   string `mapstructure:"IMAGE_DEDUPE_COLUMNS_FILE"`
	OutputPath               string `mapstructure:"OUTPUT_PATH"`
	CustomLabel              string `mapstructure:"CUSTOM_LABEL"`
	DropDescription          bool   `mapstructure:"DROP_DESCRIPTION"`

	ServerPort     string `mapstructure:"SERVER_PORT"`
	RunPollSeconds int    `mapstructure:"RUN_POLL_SECONDS"`
	LogLevel       string `mapstructure:"LOG_LEVEL"`
}

const (
	FetchModeHTTP    = "http"
	FetchModeBrowser = "browser"

	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"

	minFetchTimeoutSeconds = 120
)

// flagKeys maps command-line flags onto configuration keys.
var flagKeys = map[string]string{
	"listing-url": "LISTING_URL",
	"base-url":    "BASE_URL",
	"concurrency": "FETCH_CONCURRENCY",
	"fetch-mode":  "FETCH_MODE",
	"store":       "STORE_DRIVER",
	"sqlite-path": "SQLITE_PATH",
	"output":      "OUTPUT_PATH",
	"log-level":   "LOG_LEVEL",
}

// RegisterFlags declares the flags understood by Load on fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("listing-url", "", "listing (collection/search) URL to crawl")
	fs.String("base-url", "", "site base URL used to resolve relative links")
	fs.Int("concurrency", 0, "maximum number of in-flight fetches")
	fs.String("fetch-mode", "", "page fetch backend: http or browser")
	fs.String("store", "", "document store driver: sqlite or postgres")
	fs.String("sqlite-path", "", "path of the embedded document store file")
	fs.String("output", "", "export path (.csv or .xlsx)")
	fs.String("log-level", "", "log level (debug, info, warn, error)")
}

// Load reads configuration from the .env file, environment variables and,
// when fs is non-nil, any flags that were explicitly set.
func Load(envFile string, fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(envFile)
	v.SetConfigType("env")
	v.AutomaticEnv()

	// Attempt to read the .env file, but don't fail if it's not present
	// This allows configuration purely through environment variables in production
	_ = v.ReadInConfig()

	// Set default values
	v.SetDefault("BASE_URL", "https://thelashop.com")
	v.SetDefault("LISTING_URL", "")
	v.SetDefault("USER_AGENT", "Mozilla/5.0 (X11; Linux x86_64)")
	v.SetDefault("PROXY_URLS", "")
	v.SetDefault("FETCH_MODE", FetchModeHTTP)
	v.SetDefault("FETCH_CONCURRENCY", 10)
	v.SetDefault("FETCH_TIMEOUT_SECONDS", minFetchTimeoutSeconds)
	v.SetDefault("CONTENTION_DELAY_MS", 1000)
	v.SetDefault("RATE_LIMIT_RPS", 0)
	v.SetDefault("STORE_DRIVER", StoreSQLite)
	v.SetDefault("SQLITE_PATH", "catalog.db")
	v.SetDefault("POSTGRES_URL", "")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("VISITED_TTL_HOURS", 48)
	v.SetDefault("VARIANT_DEDUPE_COLUMNS_FILE", "")
	v.SetDefault("IMAGE_DEDUPE_COLUMNS_FILE", "")
	v.SetDefault("OUTPUT_PATH", "products.csv")
	v.SetDefault("CUSTOM_LABEL", "TLS")
	v.SetDefault("DROP_DESCRIPTION", true)
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("RUN_POLL_SECONDS", 5)
	v.SetDefault("LOG_LEVEL", "info")

	if fs != nil {
		for name, key := range flagKeys {
			f := fs.Lookup(name)
			if f == nil || !f.Changed {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	if _, err := c.Base(); err != nil {
		return err
	}
	if c.FetchConcurrency < 1 {
		return errors.New("FETCH_CONCURRENCY must be at least 1")
	}
	if c.FetchTimeoutSeconds < minFetchTimeoutSeconds {
		return fmt.Errorf("FETCH_TIMEOUT_SECONDS must be at least %d", minFetchTimeoutSeconds)
	}
	if c.RunPollSeconds < 1 {
		return errors.New("RUN_POLL_SECONDS must be at least 1")
	}
	if c.ContentionDelayMS < 0 || c.RateLimitRPS < 0 {
		return errors.New("CONTENTION_DELAY_MS and RATE_LIMIT_RPS must not be negative")
	}
	switch c.FetchMode {
	case FetchModeHTTP, FetchModeBrowser:
	default:
		return fmt.Errorf("unknown FETCH_MODE %q", c.FetchMode)
	}
	switch c.StoreDriver {
	case StoreSQLite:
		if c.SQLitePath == "" {
			return errors.New("SQLITE_PATH is required for the sqlite store")
		}
	case StorePostgres:
		if c.PostgresURL == "" {
			return errors.New("POSTGRES_URL is required for the postgres store")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	return nil
}

// Base returns the parsed site base URL.
func (c *Config) Base() (*url.URL, error) {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("BASE_URL %q must be an absolute URL", c.BaseURL)
	}
	return u, nil
}

// Proxies splits PROXY_URLS into its comma separated entries.
func (c *Config) Proxies() []string {
	var out []string
	for _, p := range strings.Split(c.ProxyURLs, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSeconds) * time.Second
}

func (c *Config) ContentionDelay() time.Duration {
	return time.Duration(c.ContentionDelayMS) * time.Millisecond
}

func (c *Config) VisitedTTL() time.Duration {
	return time.Duration(c.VisitedTTLHours) * time.Hour
}

func (c *Config) RunPollInterval() time.Duration {
	return time.Duration(c.RunPollSeconds) * time.Second
}
