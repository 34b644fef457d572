package controllers

import (
	"net/http"

	"github.com/angelmondragon/spree-storefront/api/responses"
	"github.com/angelmondragon/spree-storefront/internal/seo"
	"github.com/angelmondragon/spree-storefront/pkg/config"
	pkgerrors "github.com/angelmondragon/spree-storefront/pkg/errors"
	"github.com/angelmondragon/spree-storefront/pkg/logger"
)

type marketResponse struct {
	Country string `json:"country"`
	Locale  string `json:"locale"`
}

type storefrontConfigResponse struct {
	GTMID         string           `json:"gtm_id,omitempty"`
	SentryDSN     string           `json:"sentry_dsn,omitempty"`
	Markets       []marketResponse `json:"markets"`
	DefaultMarket marketResponse   `json:"default_market"`
}

// StorefrontConfig exposes the public settings the browser bundle needs.
func StorefrontConfig(cfg *config.Config, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		markets, err := cfg.SEO.Markets()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "invalid market configuration"))
			return
		}
		resp := storefrontConfigResponse{
			GTMID:     cfg.Observability.GTMID,
			SentryDSN: cfg.Observability.SentryDSN,
			Markets:   make([]marketResponse, 0, len(markets)),
		}
		for _, m := range markets {
			resp.Markets = append(resp.Markets, marketResponse{Country: m.Country, Locale: m.Locale})
		}
		if len(resp.Markets) > 0 {
			resp.DefaultMarket = resp.Markets[0]
		}
		responses.WriteSuccess(w, resp)
	}
}

func RobotsTxt(svc seo.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteText(w, "text/plain; charset=utf-8", []byte(svc.Robots()))
	}
}

func SitemapXML(svc seo.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := svc.Sitemap(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteText(w, "application/xml; charset=utf-8", body)
	}
}
