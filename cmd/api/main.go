package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/spree-storefront/api/routes"
	"github.com/angelmondragon/spree-storefront/internal/account"
	"github.com/angelmondragon/spree-storefront/internal/cart"
	"github.com/angelmondragon/spree-storefront/internal/checkout"
	"github.com/angelmondragon/spree-storefront/internal/listing"
	"github.com/angelmondragon/spree-storefront/internal/seo"
	"github.com/angelmondragon/spree-storefront/pkg/config"
	"github.com/angelmondragon/spree-storefront/pkg/env"
	"github.com/angelmondragon/spree-storefront/pkg/logger"
	"github.com/angelmondragon/spree-storefront/pkg/metrics"
	"github.com/angelmondragon/spree-storefront/pkg/redis"
	"github.com/angelmondragon/spree-storefront/pkg/spree"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(context.Background(), logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	markets, err := cfg.SEO.Markets()
	requireResource(context.Background(), logg, "markets", err)
	if len(markets) == 0 {
		requireResource(context.Background(), logg, "markets", fmt.Errorf("%s must list at least one market", config.EnvSitemapCountries))
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	requireResource(context.Background(), logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	spreeClient, err := spree.NewClient(cfg.Spree,
		spree.WithObserver(metrics.NewUpstreamMetrics(registry)),
		spree.WithLogger(logg),
	)
	requireResource(context.Background(), logg, "spree client", err)

	listingService, err := listing.NewService(listing.ServiceParams{
		Catalog:  spreeClient,
		Cache:    redisClient,
		CacheTTL: cfg.Listing.CacheTTL,
		PageSize: cfg.Listing.PageSize,
		Logger:   logg,
	})
	requireResource(context.Background(), logg, "listing service", err)

	cartService, err := cart.NewService(spreeClient, redisClient, cart.CouponPolicy{
		Limit:  cfg.Coupon.RateLimit,
		Window: cfg.Coupon.RateWindow,
	}, logg)
	requireResource(context.Background(), logg, "cart service", err)

	checkoutService, err := checkout.NewService(spreeClient, markets[0], logg)
	requireResource(context.Background(), logg, "checkout service", err)

	accountService, err := account.NewService(spreeClient)
	requireResource(context.Background(), logg, "account service", err)

	seoService, err := seo.NewService(spreeClient, redisClient, seo.Settings{
		PublicURL:  cfg.App.PublicURL,
		Markets:    markets,
		LocaleMode: cfg.SEO.SitemapLocaleMode,
		DisallowAI: cfg.SEO.RobotsDisallowAI,
		CacheTTL:   time.Hour,
	}, logg)
	requireResource(context.Background(), logg, "seo service", err)

	addr := ":" + env.Get("PORT", cfg.App.Port)
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": env.InstanceID(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		ReadHeaderTimeout: 10 * time.Second,
		Handler: routes.NewRouter(cfg, logg, redisClient, registry, routes.Services{
			Listing:  listingService,
			Cart:     cartService,
			Checkout: checkoutService,
			Account:  accountService,
			SEO:      seoService,
		}),
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if cfg.SEO.SitemapWarmInterval > 0 {
		lock, err := seo.NewRedisLock(redisClient, redisClient.CacheKey("lock", "sitemap"), cfg.SEO.SitemapWarmInterval)
		requireResource(ctx, logg, "sitemap lock", err)
		warmer, err := seo.NewWarmer(seo.WarmerParams{
			Service:  seoService,
			Lock:     lock,
			Interval: cfg.SEO.SitemapWarmInterval,
			Logger:   logg,
		})
		requireResource(ctx, logg, "sitemap warmer", err)
		go func() {
			_ = warmer.Run(runCtx)
		}()
	}

	go func() {
		<-runCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server stopped")
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
