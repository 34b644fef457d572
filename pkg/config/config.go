package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Spree         SpreeConfig
	Redis         RedisConfig
	Listing       ListingConfig
	Coupon        CouponConfig
	Checkout      CheckoutConfig
	Observability ObservabilityConfig
	SEO           SEOConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"STOREFRONT_APP_ENV" required:"true"`
	Port         string   `envconfig:"STOREFRONT_APP_PORT" default:"8080"`
	LogLevel     string   `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`
	PublicURL    string   `envconfig:"STOREFRONT_PUBLIC_URL" required:"true"`
	CORSOrigins  []string `envconfig:"STOREFRONT_CORS_ORIGINS" default:"http://localhost:3000"`

	// Reverse proxies that append to X-Forwarded-For, e.g. 1 behind a single load balancer.
	TrustedProxyHops int `envconfig:"STOREFRONT_TRUSTED_PROXY_HOPS" default:"0"`
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// SpreeConfig keeps the NEXT_PUBLIC_* names so the storefront and this service share one env file.
type SpreeConfig struct {
	APIURL  string        `envconfig:"NEXT_PUBLIC_SPREE_API_URL" required:"true"`
	APIKey  string        `envconfig:"NEXT_PUBLIC_SPREE_API_KEY" required:"true"`
	Timeout time.Duration `envconfig:"SPREE_TIMEOUT" default:"10s"`

	BreakerConsecutiveFailures uint32        `envconfig:"SPREE_BREAKER_CONSECUTIVE_FAILURES" default:"5"`
	BreakerErrorRatePercent    int           `envconfig:"SPREE_BREAKER_ERROR_RATE_PERCENT" default:"50"`
	BreakerOpenTimeout         time.Duration `envconfig:"SPREE_BREAKER_OPEN_TIMEOUT" default:"30s"`

	MaxRequestsPerSecond float64 `envconfig:"SPREE_MAX_RPS" default:"0"`
	RequestBurst         int     `envconfig:"SPREE_RPS_BURST" default:"10"`
}

type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL" required:"true"`
	Address      string        `envconfig:"STOREFRONT_REDIS_ADDR"`
	Password     string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type ListingConfig struct {
	PageSize int           `envconfig:"STOREFRONT_LISTING_PAGE_SIZE" default:"12"`
	CacheTTL time.Duration `envconfig:"STOREFRONT_LISTING_CACHE_TTL" default:"60s"`
}

type CouponConfig struct {
	RateLimit  int           `envconfig:"STOREFRONT_COUPON_RATE_LIMIT" default:"10"`
	RateWindow time.Duration `envconfig:"STOREFRONT_COUPON_RATE_WINDOW" default:"10m"`
}

// CheckoutConfig throttles checkout writes per client IP and per cart.
type CheckoutConfig struct {
	RateWindow    time.Duration `envconfig:"STOREFRONT_CHECKOUT_RATE_WINDOW" default:"1m"`
	RateIPLimit   int           `envconfig:"STOREFRONT_CHECKOUT_RATE_IP_LIMIT" default:"60"`
	RateCartLimit int           `envconfig:"STOREFRONT_CHECKOUT_RATE_CART_LIMIT" default:"20"`
}

type ObservabilityConfig struct {
	SentryDSN string `envconfig:"SENTRY_DSN"`
	GTMID     string `envconfig:"GTM_ID"`
}

type SEOConfig struct {
	SitemapLocaleMode string   `envconfig:"SITEMAP_LOCALE_MODE" default:"default"`
	SitemapCountries  []string `envconfig:"SITEMAP_COUNTRIES" default:"us:en"`
	RobotsDisallowAI  bool     `envconfig:"ROBOTS_DISALLOW_AI" default:"false"`

	SitemapWarmInterval time.Duration `envconfig:"SITEMAP_WARM_INTERVAL" default:"0"`
}

// CountryLocale is one storefront path prefix, e.g. /us/en.
type CountryLocale struct {
	Country string
	Locale  string
}

// Markets parses SitemapCountries into country/locale pairs.
func (s SEOConfig) Markets() ([]CountryLocale, error) {
	out := make([]CountryLocale, 0, len(s.SitemapCountries))
	for _, raw := range s.SitemapCountries {
		pair := strings.TrimSpace(raw)
		if pair == "" {
			continue
		}
		country, locale, ok := strings.Cut(pair, ":")
		country = strings.ToLower(strings.TrimSpace(country))
		locale = strings.ToLower(strings.TrimSpace(locale))
		if !ok || country == "" || locale == "" {
			return nil, fmt.Errorf("%s: invalid entry %q, expected country:locale", EnvSitemapCountries, raw)
		}
		out = append(out, CountryLocale{Country: country, Locale: locale})
	}
	return out, nil
}

func (c *Config) validate() error {
	if _, err := parseAbsoluteURL(c.Spree.APIURL); err != nil {
		return fmt.Errorf("%s: %w", EnvSpreeAPIURL, err)
	}
	if _, err := parseAbsoluteURL(c.App.PublicURL); err != nil {
		return fmt.Errorf("%s: %w", EnvPublicURL, err)
	}

	mode := strings.ToLower(strings.TrimSpace(c.SEO.SitemapLocaleMode))
	switch mode {
	case SitemapLocaleModeDefault, SitemapLocaleModeAll:
		c.SEO.SitemapLocaleMode = mode
	default:
		return fmt.Errorf("%s must be %q or %q", EnvSitemapLocaleMode, SitemapLocaleModeDefault, SitemapLocaleModeAll)
	}

	if _, err := c.SEO.Markets(); err != nil {
		return err
	}
	if c.Listing.PageSize <= 0 {
		return fmt.Errorf("%s must be greater than 0", EnvListingPageSize)
	}
	if c.Spree.BreakerErrorRatePercent < 0 || c.Spree.BreakerErrorRatePercent > 100 {
		return fmt.Errorf("%s must be between 0 and 100", EnvBreakerErrorRate)
	}
	return nil
}

func parseAbsoluteURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("absolute url required, got %q", raw)
	}
	return u, nil
}
