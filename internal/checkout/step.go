package checkout

import (
	"github.com/angelmondragon/spree-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/spree-storefront/pkg/errors"
	"github.com/angelmondragon/spree-storefront/pkg/spree"
)

// Step is one page of the checkout wizard.
type Step string

const (
	StepAddress  Step = "address"
	StepDelivery Step = "delivery"
	StepPayment  Step = "payment"
)

// GenericErrorMessage is shown when a failure carries no message meant for the shopper.
const GenericErrorMessage = "An error occurred"

// DeriveStep maps an order state to the wizard step. Unknown states fall back to the address step.
func DeriveStep(state string) Step {
	switch enums.OrderState(state) {
	case enums.OrderStateCart, enums.OrderStateAddress:
		return StepAddress
	case enums.OrderStateDelivery:
		return StepDelivery
	case enums.OrderStatePayment, enums.OrderStateConfirm:
		return StepPayment
	default:
		return StepAddress
	}
}

// CanContinueDelivery reports whether every shipment has a selected rate.
// An empty shipment list is accepted.
func CanContinueDelivery(shipments []spree.Shipment) bool {
	for _, shipment := range shipments {
		if _, ok := shipment.SelectedRate(); !ok {
			return false
		}
	}
	return true
}

// UserMessage returns the text to show for a failed checkout call: the commerce
// API's or validator's own message when there is one, otherwise a generic message.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	typed := pkgerrors.As(err)
	if typed == nil {
		return GenericErrorMessage
	}
	switch typed.Code() {
	case pkgerrors.CodeUpstreamRejected, pkgerrors.CodeValidation, pkgerrors.CodeStateConflict:
		if msg := typed.Message(); msg != "" {
			return msg
		}
	}
	return GenericErrorMessage
}
