package checkout

import (
	"errors"
	"fmt"
	"testing"

	pkgerrors "github.com/angelmondragon/spree-storefront/pkg/errors"
	"github.com/angelmondragon/spree-storefront/pkg/spree"
)

func TestDeriveStep(t *testing.T) {
	t.Parallel()

	cases := map[string]Step{
		"cart":     StepAddress,
		"address":  StepAddress,
		"delivery": StepDelivery,
		"payment":  StepPayment,
		"confirm":  StepPayment,
		"complete": StepAddress,
		"":         StepAddress,
		"awaiting": StepAddress,
		"DELIVERY": StepAddress,
		"returned": StepAddress,
	}
	for state, want := range cases {
		if got := DeriveStep(state); got != want {
			t.Fatalf("DeriveStep(%q) = %s, want %s", state, got, want)
		}
	}
}

func TestCanContinueDelivery(t *testing.T) {
	t.Parallel()

	selected := spree.ShippingRate{ID: "r1", Selected: true}
	unselected := spree.ShippingRate{ID: "r2"}

	cases := []struct {
		name      string
		shipments []spree.Shipment
		want      bool
	}{
		{name: "empty list", shipments: nil, want: true},
		{name: "all selected", shipments: []spree.Shipment{
			{ID: "a", ShippingRates: []spree.ShippingRate{selected, unselected}},
			{ID: "b", ShippingRates: []spree.ShippingRate{selected}},
		}, want: true},
		{name: "one missing", shipments: []spree.Shipment{
			{ID: "a", ShippingRates: []spree.ShippingRate{selected}},
			{ID: "b", ShippingRates: []spree.ShippingRate{unselected}},
		}, want: false},
		{name: "no rates", shipments: []spree.Shipment{{ID: "a"}}, want: false},
	}
	for _, tc := range cases {
		if got := CanContinueDelivery(tc.shipments); got != tc.want {
			t.Fatalf("%s: got %v want %v", tc.name, got, tc.want)
		}
	}
}

func TestUserMessage(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		want string
	}{
		{err: nil, want: ""},
		{err: errors.New("dial tcp: timeout"), want: GenericErrorMessage},
		{err: pkgerrors.New(pkgerrors.CodeUpstreamRejected, "Coupon code is invalid"), want: "Coupon code is invalid"},
		{err: fmt.Errorf("wrapped: %w", pkgerrors.New(pkgerrors.CodeValidation, "email is required")), want: "email is required"},
		{err: pkgerrors.New(pkgerrors.CodeDependency, "checkout.next request failed"), want: GenericErrorMessage},
		{err: pkgerrors.New(pkgerrors.CodeUpstreamRejected, ""), want: GenericErrorMessage},
	}
	for _, tc := range cases {
		if got := UserMessage(tc.err); got != tc.want {
			t.Fatalf("UserMessage(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
