package enums

import "fmt"

// OrderState is the checkout state machine value owned by the commerce backend.
type OrderState string

const (
	OrderStateCart     OrderState = "cart"
	OrderStateAddress  OrderState = "address"
	OrderStateDelivery OrderState = "delivery"
	OrderStatePayment  OrderState = "payment"
	OrderStateConfirm  OrderState = "confirm"
	OrderStateComplete OrderState = "complete"
)

var validOrderStates = []OrderState{
	OrderStateCart,
	OrderStateAddress,
	OrderStateDelivery,
	OrderStatePayment,
	OrderStateConfirm,
	OrderStateComplete,
}

// String implements fmt.Stringer.
func (s OrderState) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderState.
func (s OrderState) IsValid() bool {
	for _, candidate := range validOrderStates {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseOrderState converts raw input into an OrderState.
func ParseOrderState(value string) (OrderState, error) {
	for _, candidate := range validOrderStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order state %q", value)
}
