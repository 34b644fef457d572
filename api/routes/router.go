package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/spree-storefront/api/controllers"
	"github.com/angelmondragon/spree-storefront/api/middleware"
	"github.com/angelmondragon/spree-storefront/internal/account"
	"github.com/angelmondragon/spree-storefront/internal/cart"
	checkoutsvc "github.com/angelmondragon/spree-storefront/internal/checkout"
	"github.com/angelmondragon/spree-storefront/internal/listing"
	"github.com/angelmondragon/spree-storefront/internal/seo"
	"github.com/angelmondragon/spree-storefront/pkg/config"
	"github.com/angelmondragon/spree-storefront/pkg/logger"
	"github.com/angelmondragon/spree-storefront/pkg/redis"
)

// redisStore is the slice of the redis client the HTTP layer needs.
type redisStore interface {
	redis.IdempotencyStore
	redis.Pinger
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// Services groups the domain services mounted by the router.
type Services struct {
	Listing  listing.Service
	Cart     cart.Service
	Checkout checkoutsvc.Service
	Account  account.Service
	SEO      seo.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	redisClient redisStore,
	gatherer prometheus.Gatherer,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	secureCookies := cfg.App.IsProd()
	checkoutPolicy := middleware.NewRateLimitPolicy(
		"checkout",
		cfg.Checkout.RateWindow,
		cfg.Checkout.RateIPLimit,
		cfg.Checkout.RateCartLimit,
	).WithTrustedProxyHops(cfg.App.TrustedProxyHops)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, redisClient, logg))
	})
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	if svcs.SEO != nil {
		r.Get("/robots.txt", controllers.RobotsTxt(svcs.SEO))
		r.Get("/sitemap.xml", controllers.SitemapXML(svcs.SEO, logg))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Session(logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Get("/storefront", controllers.StorefrontConfig(cfg, logg))

		r.Get("/products", controllers.ListProducts(svcs.Listing, logg))
		r.Get("/products/{slug}", controllers.GetProduct(svcs.Listing, logg))
		r.Get("/taxons", controllers.ListTaxons(svcs.Listing, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartGet(svcs.Cart, logg))
			r.Post("/", controllers.CartCreate(svcs.Cart, secureCookies, logg))
			r.Post("/items", controllers.CartAddItem(svcs.Cart, secureCookies, logg))
			r.Patch("/items/{lineItemID}", controllers.CartUpdateItem(svcs.Cart, logg))
			r.Delete("/items/{lineItemID}", controllers.CartRemoveItem(svcs.Cart, logg))
			r.Post("/coupons", controllers.CartApplyCoupon(svcs.Cart, logg))
			r.Delete("/coupons/{code}", controllers.CartRemoveCoupon(svcs.Cart, logg))
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Get("/", controllers.CheckoutView(svcs.Checkout, logg))
			r.Group(func(r chi.Router) {
				r.Use(middleware.RateLimit(checkoutPolicy, redisClient, logg))
				r.Post("/address", controllers.CheckoutAddress(svcs.Checkout, logg))
				r.Patch("/shipments/{shipmentID}/rate", controllers.CheckoutShippingRate(svcs.Checkout, logg))
				r.Post("/delivery", controllers.CheckoutDelivery(svcs.Checkout, logg))
				r.Post("/payment", controllers.CheckoutPayment(svcs.Checkout, secureCookies, logg))
			})
		})

		r.Route("/account", func(r chi.Router) {
			r.Get("/", controllers.AccountProfile(svcs.Account, logg))
			r.Get("/addresses", controllers.AccountAddresses(svcs.Account, logg))
			r.Get("/orders", controllers.AccountOrders(svcs.Account, logg))
			r.Get("/orders/{number}", controllers.AccountOrder(svcs.Account, logg))
		})
	})

	return r
}
