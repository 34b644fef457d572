package config

// EnvPrefix is empty because every field declares its full variable name.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	SitemapLocaleModeDefault = "default"
	SitemapLocaleModeAll     = "all"
)

const (
	EnvAppEnv            = "STOREFRONT_APP_ENV"
	EnvPort              = "STOREFRONT_APP_PORT"
	EnvPublicURL         = "STOREFRONT_PUBLIC_URL"
	EnvSpreeAPIURL       = "NEXT_PUBLIC_SPREE_API_URL"
	EnvSpreeAPIKey       = "NEXT_PUBLIC_SPREE_API_KEY"
	EnvBreakerErrorRate  = "SPREE_BREAKER_ERROR_RATE_PERCENT"
	EnvRedisURL          = "STOREFRONT_REDIS_URL"
	EnvListingPageSize   = "STOREFRONT_LISTING_PAGE_SIZE"
	EnvSentryDSN         = "SENTRY_DSN"
	EnvGTMID             = "GTM_ID"
	EnvSitemapLocaleMode = "SITEMAP_LOCALE_MODE"
	EnvSitemapCountries  = "SITEMAP_COUNTRIES"
	EnvRobotsDisallowAI  = "ROBOTS_DISALLOW_AI"
)
