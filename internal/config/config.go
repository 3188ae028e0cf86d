// Package config assembles the run configuration from defaults, an optional
// config file, the environment and command-line flags.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/jmylchreest/realty/internal/browser"
	"github.com/jmylchreest/realty/internal/crawler"
	"github.com/jmylchreest/realty/internal/extractor"
	"github.com/jmylchreest/realty/pkg/fetcher"
)

// EnvPrefix prefixes every environment variable, e.g. REALTY_LIMIT.
const EnvPrefix = "REALTY"

// Config is the full run configuration.
type Config struct {
	// Discovery
	StartURL      string `mapstructure:"start_url" validate:"required,url"`
	AllowedDomain string `mapstructure:"allowed_domain" validate:"omitempty,hostname"`
	Limit         int    `mapstructure:"limit" validate:"required,gt=0"`
	LinkSelector  string `mapstructure:"link_selector" validate:"required"`
	ReadySelector string `mapstructure:"ready_selector"`
	NextSelector  string `mapstructure:"next_selector" validate:"required"`

	MaxEmptyPages    int           `mapstructure:"max_empty_pages" validate:"gte=1"`
	MaxPages         int           `mapstructure:"max_pages" validate:"gte=0"`
	RenderTimeout    time.Duration `mapstructure:"render_timeout" validate:"gt=0"`
	PageDelay        time.Duration `mapstructure:"page_delay" validate:"gt=0"`
	DiscoveryTimeout time.Duration `mapstructure:"discovery_timeout" validate:"gt=0"`

	// Browser
	ChromePath string `mapstructure:"chrome_path"`
	Headless   bool   `mapstructure:"headless"`

	// Detail fetching
	UserAgent      string        `mapstructure:"user_agent"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"gt=0"`
	MaxBodySize    string        `mapstructure:"max_body_size" validate:"required"`
	Concurrency    int           `mapstructure:"concurrency" validate:"gte=1"`
	Delay          time.Duration `mapstructure:"delay" validate:"gte=0"`
	MaxRetries     int           `mapstructure:"max_retries" validate:"gte=0"`
	RetryBackoff   time.Duration `mapstructure:"retry_backoff" validate:"gt=0"`

	// Extraction
	Selectors extractor.Selectors `mapstructure:"selectors"`

	// Output
	Output      string `mapstructure:"output"`
	Format      string `mapstructure:"format" validate:"oneof=json jsonl yaml csv"`
	PostgresDSN string `mapstructure:"postgres_dsn"`
}

// SetDefaults registers the default for every key on v.
func SetDefaults(v *viper.Viper) {
	c := crawler.DefaultConfig()
	s := fetcher.DefaultStaticConfig()
	sel := extractor.DefaultSelectors()

	v.SetDefault("start_url", c.StartURL)
	v.SetDefault("allowed_domain", "realtylink.org")
	v.SetDefault("limit", 0)
	v.SetDefault("link_selector", c.LinkSelector)
	v.SetDefault("ready_selector", c.ReadySelector)
	v.SetDefault("next_selector", c.NextSelector)
	v.SetDefault("max_empty_pages", c.MaxEmptyPages)
	v.SetDefault("max_pages", c.MaxPages)
	v.SetDefault("render_timeout", c.RenderTimeout)
	v.SetDefault("page_delay", c.PageDelay)
	v.SetDefault("discovery_timeout", c.DiscoveryTimeout)

	v.SetDefault("chrome_path", "")
	v.SetDefault("headless", true)

	v.SetDefault("user_agent", s.UserAgent)
	v.SetDefault("request_timeout", s.Timeout)
	v.SetDefault("max_body_size", s.MaxBodySize)
	v.SetDefault("concurrency", c.Concurrency)
	v.SetDefault("delay", c.Delay)
	v.SetDefault("max_retries", c.MaxRetries)
	v.SetDefault("retry_backoff", c.RetryBackoff)

	v.SetDefault("selectors.title", sel.Title)
	v.SetDefault("selectors.location", sel.Location)
	v.SetDefault("selectors.description", sel.Description)
	v.SetDefault("selectors.photos", sel.Photos)
	v.SetDefault("selectors.price", sel.Price)
	v.SetDefault("selectors.bedrooms", sel.Bedrooms)
	v.SetDefault("selectors.floor_area", sel.FloorArea)

	v.SetDefault("output", "")
	v.SetDefault("format", "json")
	v.SetDefault("postgres_dsn", "")
}

// BindEnv maps environment variables onto v. Every key is read from
// REALTY_<KEY>; a few also accept legacy unprefixed names.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("limit", EnvPrefix+"_LIMIT", "LIMIT", "APARTMENT_SCRAPE_LIMIT")
	_ = v.BindEnv("start_url", EnvPrefix+"_START_URL", "START_URL")
	_ = v.BindEnv("allowed_domain", EnvPrefix+"_ALLOWED_DOMAIN", "ALLOWED_DOMAIN")
	_ = v.BindEnv("postgres_dsn", EnvPrefix+"_POSTGRES_DSN", "DATABASE_URL")
}

// LoadDotEnv loads variables from the given .env files (default ".env")
// without overriding the existing environment. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// Load decodes and validates the configuration held by v. Defaults and env
// bindings are applied first, so v only needs flags and a config file.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)
	BindEnv(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = newValidator()

// newValidator reports fields by their config key.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s %s", e.Field(), formatValidationError(e)))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

// formatValidationError creates a human-readable error message.
func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "gt":
		return fmt.Sprintf("must be greater than %s", e.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", e.Param())
	case "url":
		return "must be a valid URL"
	case "hostname":
		return "must be a host name"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", e.Param())
	default:
		return fmt.Sprintf("failed validation '%s'", e.Tag())
	}
}

// Crawler returns the crawler settings.
func (c *Config) Crawler() crawler.Config {
	return crawler.Config{
		StartURL:         c.StartURL,
		AllowedDomain:    c.AllowedDomain,
		Limit:            c.Limit,
		LinkSelector:     c.LinkSelector,
		ReadySelector:    c.ReadySelector,
		NextSelector:     c.NextSelector,
		MaxEmptyPages:    c.MaxEmptyPages,
		MaxPages:         c.MaxPages,
		RenderTimeout:    c.RenderTimeout,
		PageDelay:        c.PageDelay,
		DiscoveryTimeout: c.DiscoveryTimeout,
		Concurrency:      c.Concurrency,
		Delay:            c.Delay,
		MaxRetries:       c.MaxRetries,
		RetryBackoff:     c.RetryBackoff,
	}
}

// Static returns the detail fetcher settings.
func (c *Config) Static() fetcher.StaticConfig {
	return fetcher.StaticConfig{
		UserAgent:   c.UserAgent,
		Timeout:     c.RequestTimeout,
		MaxBodySize: c.MaxBodySize,
	}
}

// Browser returns the rendering session settings.
func (c *Config) Browser() browser.Options {
	opts := browser.DefaultOptions()
	opts.ExecPath = c.ChromePath
	opts.Headless = c.Headless
	if c.UserAgent != "" {
		opts.UserAgent = c.UserAgent
	}
	return opts
}
