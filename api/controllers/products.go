package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/spree-storefront/api/middleware"
	"github.com/angelmondragon/spree-storefront/api/responses"
	"github.com/angelmondragon/spree-storefront/api/validators"
	"github.com/angelmondragon/spree-storefront/internal/listing"
	pkgerrors "github.com/angelmondragon/spree-storefront/pkg/errors"
	"github.com/angelmondragon/spree-storefront/pkg/logger"
	"github.com/angelmondragon/spree-storefront/pkg/pagination"
)

const maxSearchLength = 200

// ListProducts returns one listing page for the filters, search text and page in the query string.
func ListProducts(svc listing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "listing service unavailable"))
			return
		}

		query := r.URL.Query()
		filters, err := listing.ParseFilters(query)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := pagination.ParsePage(query.Get("page"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var limit int
		if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
			if limit, err = pagination.ParseLimit(raw); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		result, err := svc.Page(r.Context(), middleware.SessionFromContext(r.Context()), listing.PageRequest{
			Filters: filters,
			Search:  validators.SanitizeString(query.Get("q"), maxSearchLength),
			Page:    page,
			Limit:   limit,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func GetProduct(svc listing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "listing service unavailable"))
			return
		}
		slug := strings.TrimSpace(chi.URLParam(r, "slug"))
		if slug == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "product slug is required"))
			return
		}
		product, err := svc.Product(r.Context(), middleware.SessionFromContext(r.Context()), slug)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

func ListTaxons(svc listing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "listing service unavailable"))
			return
		}
		taxons, err := svc.Taxons(r.Context(), middleware.SessionFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, taxons)
	}
}
