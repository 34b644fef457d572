package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/spree-storefront/api/middleware"
	"github.com/angelmondragon/spree-storefront/api/responses"
	"github.com/angelmondragon/spree-storefront/api/validators"
	checkoutsvc "github.com/angelmondragon/spree-storefront/internal/checkout"
	pkgerrors "github.com/angelmondragon/spree-storefront/pkg/errors"
	"github.com/angelmondragon/spree-storefront/pkg/logger"
)

// CheckoutView loads the order and everything the wizard renders alongside it.
func CheckoutView(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		view, err := svc.Load(r.Context(), middleware.SessionFromContext(r.Context()))
		if err != nil {
			writeCheckoutError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func CheckoutAddress(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		var payload validators.AddressRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			writeCheckoutError(r.Context(), logg, w, err)
			return
		}
		progress, err := svc.SubmitAddress(r.Context(), middleware.SessionFromContext(r.Context()), checkoutsvc.AddressInput{
			Email:         payload.Email,
			ShipAddress:   payload.ShipAddress,
			ShipAddressID: payload.ShipAddressID,
		})
		if err != nil {
			writeCheckoutError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, progress)
	}
}

func CheckoutShippingRate(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		var payload validators.ShippingRateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			writeCheckoutError(r.Context(), logg, w, err)
			return
		}
		progress, err := svc.SelectShippingRate(r.Context(), middleware.SessionFromContext(r.Context()),
			chi.URLParam(r, "shipmentID"), payload.RateID)
		if err != nil {
			writeCheckoutError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, progress)
	}
}

func CheckoutDelivery(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		progress, err := svc.ConfirmDelivery(r.Context(), middleware.SessionFromContext(r.Context()))
		if err != nil {
			writeCheckoutError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, progress)
	}
}

// CheckoutPayment places the order and drops the cart cookie.
func CheckoutPayment(svc checkoutsvc.Service, secureCookies bool, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		var payload validators.PaymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			writeCheckoutError(r.Context(), logg, w, err)
			return
		}
		confirmation, err := svc.SubmitPayment(r.Context(), middleware.SessionFromContext(r.Context()), checkoutsvc.PaymentInput{
			UseShippingAddress: payload.UseShippingAddress,
			BillAddress:        payload.BillAddress,
			BillAddressID:      payload.BillAddressID,
		})
		if err != nil {
			writeCheckoutError(r.Context(), logg, w, err)
			return
		}
		middleware.ClearCartCookie(w, secureCookies)
		responses.WriteSuccess(w, confirmation)
	}
}

func writeCheckoutError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	responses.WriteErrorWithUserMessage(ctx, logg, w, err, checkoutsvc.UserMessage(err))
}
