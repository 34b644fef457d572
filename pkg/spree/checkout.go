package spree

import (
	"context"
	"net/http"
	"strings"

	pkgerrors "github.com/angelmondragon/spree-storefront/pkg/errors"
	"github.com/angelmondragon/spree-storefront/pkg/types"
)

// AddressUpdate sets the checkout email and addresses. A saved address is referenced
// by id; a new one is sent in full. Nil/empty fields are left untouched upstream.
type AddressUpdate struct {
	Email         string   `json:"email,omitempty"`
	ShipAddress   *Address `json:"ship_address,omitempty"`
	ShipAddressID string   `json:"ship_address_id,omitempty"`
	BillAddress   *Address `json:"bill_address,omitempty"`
	BillAddressID string   `json:"bill_address_id,omitempty"`
}

func (u AddressUpdate) empty() bool {
	return u.Email == "" && u.ShipAddress == nil && u.ShipAddressID == "" &&
		u.BillAddress == nil && u.BillAddressID == ""
}

type updateCheckoutRequest struct {
	Order AddressUpdate `json:"order"`
}

type selectRateRequest struct {
	ShipmentID     string `json:"shipment_id"`
	ShippingRateID string `json:"shipping_rate_id"`
}

// UpdateOrderAddresses writes email and addresses onto the current order.
func (c *Client) UpdateOrderAddresses(ctx context.Context, session types.Session, update AddressUpdate) (*Order, error) {
	if update.empty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "nothing to update")
	}
	return c.orderCall(ctx, call{
		operation: "checkout.update",
		method:    http.MethodPatch,
		path:      "checkout",
		session:   session,
		body:      updateCheckoutRequest{Order: update},
	})
}

// AdvanceCheckout moves the order to its next state.
func (c *Client) AdvanceCheckout(ctx context.Context, session types.Session) (*Order, error) {
	return c.orderCall(ctx, call{
		operation: "checkout.next",
		method:    http.MethodPatch,
		path:      "checkout/next",
		session:   session,
	})
}

// SelectShippingRate picks one rate for one shipment.
func (c *Client) SelectShippingRate(ctx context.Context, session types.Session, shipmentID, rateID string) (*Order, error) {
	if strings.TrimSpace(shipmentID) == "" || strings.TrimSpace(rateID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipment id and shipping rate id are required")
	}
	return c.orderCall(ctx, call{
		operation: "checkout.select_shipping_rate",
		method:    http.MethodPatch,
		path:      "checkout/select_shipping_rate",
		session:   session,
		body:      selectRateRequest{ShipmentID: shipmentID, ShippingRateID: rateID},
	})
}

// CompleteCheckout places the order.
func (c *Client) CompleteCheckout(ctx context.Context, session types.Session) (*Order, error) {
	return c.orderCall(ctx, call{
		operation: "checkout.complete",
		method:    http.MethodPatch,
		path:      "checkout/complete",
		session:   session,
	})
}
