package spree

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/spree-storefront/pkg/enums"
)

// Order is the cart/checkout entity owned by Spree. Clients only read it or advance it.
type Order struct {
	ID          string          `json:"id"`
	Number      string          `json:"number"`
	Token       string          `json:"token,omitempty"`
	State       string          `json:"state"`
	Email       string          `json:"email,omitempty"`
	Currency    string          `json:"currency"`
	ItemTotal   decimal.Decimal `json:"item_total"`
	ShipTotal   decimal.Decimal `json:"ship_total"`
	PromoTotal  decimal.Decimal `json:"promo_total"`
	TaxTotal    decimal.Decimal `json:"tax_total"`
	Total       decimal.Decimal `json:"total"`
	LineItems   []LineItem      `json:"line_items"`
	Shipments   []Shipment      `json:"shipments"`
	ShipAddress *Address        `json:"ship_address,omitempty"`
	BillAddress *Address        `json:"bill_address,omitempty"`
	Promotions  []Promotion     `json:"promotions,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// OrderState parses State; unknown values are returned as-is with ok=false.
func (o *Order) OrderState() (enums.OrderState, bool) {
	if o == nil {
		return "", false
	}
	state, err := enums.ParseOrderState(o.State)
	if err != nil {
		return enums.OrderState(o.State), false
	}
	return state, true
}

type LineItem struct {
	ID        string          `json:"id"`
	VariantID string          `json:"variant_id"`
	Name      string          `json:"name"`
	Slug      string          `json:"slug,omitempty"`
	Options   string          `json:"options_text,omitempty"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Total     decimal.Decimal `json:"total"`
	ImageURL  string          `json:"image_url,omitempty"`
}

// Shipment groups line items that ship together and carries the candidate rates.
type Shipment struct {
	ID            string         `json:"id"`
	Number        string         `json:"number"`
	State         string         `json:"state,omitempty"`
	ShippingRates []ShippingRate `json:"shipping_rates"`
}

// SelectedRate returns the selected shipping rate, if any.
func (s Shipment) SelectedRate() (ShippingRate, bool) {
	for _, rate := range s.ShippingRates {
		if rate.Selected {
			return rate, true
		}
	}
	return ShippingRate{}, false
}

// HasRate reports whether rateID is one of the shipment's candidate rates.
func (s Shipment) HasRate(rateID string) bool {
	for _, rate := range s.ShippingRates {
		if rate.ID == rateID {
			return true
		}
	}
	return false
}

type ShippingRate struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Cost     decimal.Decimal `json:"cost"`
	Selected bool            `json:"selected"`
}

type Address struct {
	ID         string `json:"id,omitempty"`
	FirstName  string `json:"firstname" validate:"required,max=100"`
	LastName   string `json:"lastname" validate:"required,max=100"`
	Address1   string `json:"address1" validate:"required,max=255"`
	Address2   string `json:"address2,omitempty" validate:"max=255"`
	City       string `json:"city" validate:"required,max=100"`
	Zipcode    string `json:"zipcode" validate:"required,max=20"`
	Phone      string `json:"phone,omitempty" validate:"max=30"`
	StateName  string `json:"state_name,omitempty" validate:"max=100"`
	CountryISO string `json:"country_iso" validate:"required,len=2"`
}

type Promotion struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Code   string          `json:"code,omitempty"`
	Amount decimal.Decimal `json:"amount"`
}

type Product struct {
	ID           string              `json:"id"`
	Name         string              `json:"name"`
	Slug         string              `json:"slug"`
	Description  string              `json:"description,omitempty"`
	Price        decimal.Decimal     `json:"price"`
	ComparePrice decimal.NullDecimal `json:"compare_at_price"`
	Currency     string              `json:"currency"`
	InStock      bool                `json:"in_stock"`
	ImageURL     string              `json:"image_url,omitempty"`
	TaxonIDs     []string            `json:"taxon_ids,omitempty"`
	Variants     []Variant           `json:"variants,omitempty"`
	UpdatedAt    *time.Time          `json:"updated_at,omitempty"`
}

type Variant struct {
	ID           string          `json:"id"`
	SKU          string          `json:"sku"`
	Price        decimal.Decimal `json:"price"`
	InStock      bool            `json:"in_stock"`
	OptionValues []OptionValue   `json:"option_values,omitempty"`
}

type OptionValue struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Presentation   string `json:"presentation"`
	OptionTypeName string `json:"option_type_name"`
}

type Taxon struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Permalink  string     `json:"permalink"`
	PrettyName string     `json:"pretty_name,omitempty"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty"`
}

type Country struct {
	ISO             string  `json:"iso"`
	ISO3            string  `json:"iso3"`
	Name            string  `json:"name"`
	StatesRequired  bool    `json:"states_required"`
	ZipcodeRequired bool    `json:"zipcode_required"`
	States          []State `json:"states,omitempty"`
}

type State struct {
	Abbr string `json:"abbr"`
	Name string `json:"name"`
}

type Account struct {
	ID          string   `json:"id"`
	Email       string   `json:"email"`
	FirstName   string   `json:"first_name,omitempty"`
	LastName    string   `json:"last_name,omitempty"`
	ShipAddress *Address `json:"ship_address,omitempty"`
	BillAddress *Address `json:"bill_address,omitempty"`
}

// ListMeta is the pagination block returned with every collection.
type ListMeta struct {
	Count int `json:"count"`
	Page  int `json:"page"`
	Pages int `json:"pages"`
	Limit int `json:"limit"`
}

type ProductPage struct {
	Products []Product `json:"data"`
	Meta     ListMeta  `json:"meta"`
}

type OrderPage struct {
	Orders []Order  `json:"data"`
	Meta   ListMeta `json:"meta"`
}
