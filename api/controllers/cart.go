package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/spree-storefront/api/middleware"
	"github.com/angelmondragon/spree-storefront/api/responses"
	"github.com/angelmondragon/spree-storefront/api/validators"
	cartsvc "github.com/angelmondragon/spree-storefront/internal/cart"
	pkgerrors "github.com/angelmondragon/spree-storefront/pkg/errors"
	"github.com/angelmondragon/spree-storefront/pkg/logger"
)

// CartGet returns the visitor's cart with its item count.
func CartGet(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		summary, err := svc.Get(r.Context(), middleware.SessionFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

func CartCreate(svc cartsvc.Service, secureCookies bool, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		summary, err := svc.Create(r.Context(), middleware.SessionFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeCart(w, summary, secureCookies, http.StatusCreated)
	}
}

// CartAddItem adds a variant; a cart is created on the fly when the visitor has none.
func CartAddItem(svc cartsvc.Service, secureCookies bool, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		var payload validators.CartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		summary, err := svc.AddItem(r.Context(), middleware.SessionFromContext(r.Context()), payload.VariantID, payload.Quantity)
		if err != nil {
			if summary != nil && summary.Token != "" {
				middleware.SetCartCookie(w, summary.Token, secureCookies)
			}
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeCart(w, summary, secureCookies, http.StatusOK)
	}
}

func CartUpdateItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		var payload validators.UpdateItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		summary, err := svc.UpdateItem(r.Context(), middleware.SessionFromContext(r.Context()), chi.URLParam(r, "lineItemID"), payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

func CartRemoveItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		summary, err := svc.RemoveItem(r.Context(), middleware.SessionFromContext(r.Context()), chi.URLParam(r, "lineItemID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

func CartApplyCoupon(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		var payload validators.CouponRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		summary, err := svc.ApplyCoupon(r.Context(), middleware.SessionFromContext(r.Context()), payload.Code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

func CartRemoveCoupon(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		summary, err := svc.RemoveCoupon(r.Context(), middleware.SessionFromContext(r.Context()), strings.TrimSpace(chi.URLParam(r, "code")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

func writeCart(w http.ResponseWriter, summary *cartsvc.Summary, secureCookies bool, status int) {
	if summary.Token != "" {
		middleware.SetCartCookie(w, summary.Token, secureCookies)
	}
	responses.WriteSuccessStatus(w, status, summary)
}
