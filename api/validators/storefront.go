package validators

import (
	"github.com/angelmondragon/spree-storefront/pkg/spree"
)

// AddressRequest is the checkout address step body.
type AddressRequest struct {
	Email         string         `json:"email" validate:"required,email,max=255"`
	ShipAddress   *spree.Address `json:"ship_address" validate:"required_without=ShipAddressID"`
	ShipAddressID string         `json:"ship_address_id" validate:"max=64"`
}

// PaymentRequest is the checkout payment step body.
type PaymentRequest struct {
	UseShippingAddress bool           `json:"use_shipping_address"`
	BillAddress        *spree.Address `json:"bill_address"`
	BillAddressID      string         `json:"bill_address_id" validate:"max=64"`
}

type CartItemRequest struct {
	VariantID string `json:"variant_id" validate:"required,max=64"`
	Quantity  int    `json:"quantity" validate:"min=1,max=999"`
}

type UpdateItemRequest struct {
	Quantity int `json:"quantity" validate:"min=0,max=999"`
}

type CouponRequest struct {
	Code string `json:"code" validate:"required,max=64"`
}

type ShippingRateRequest struct {
	RateID string `json:"rate_id" validate:"required,max=64"`
}
