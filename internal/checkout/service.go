package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/spree-storefront/pkg/config"
	"github.com/angelmondragon/spree-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/spree-storefront/pkg/errors"
	"github.com/angelmondragon/spree-storefront/pkg/logger"
	"github.com/angelmondragon/spree-storefront/pkg/spree"
	"github.com/angelmondragon/spree-storefront/pkg/types"
)

type commerce interface {
	GetCart(ctx context.Context, session types.Session) (*spree.Order, error)
	ListCountries(ctx context.Context, session types.Session) ([]spree.Country, error)
	GetAccount(ctx context.Context, session types.Session) (*spree.Account, error)
	ListAddresses(ctx context.Context, session types.Session) ([]spree.Address, error)
	UpdateOrderAddresses(ctx context.Context, session types.Session, update spree.AddressUpdate) (*spree.Order, error)
	AdvanceCheckout(ctx context.Context, session types.Session) (*spree.Order, error)
	SelectShippingRate(ctx context.Context, session types.Session, shipmentID, rateID string) (*spree.Order, error)
	CompleteCheckout(ctx context.Context, session types.Session) (*spree.Order, error)
}

// View is everything the checkout page needs on first render.
type View struct {
	Order       *spree.Order    `json:"order"`
	Step        Step            `json:"step"`
	Countries   []spree.Country `json:"countries"`
	Addresses   []spree.Address `json:"addresses"`
	SignedIn    bool            `json:"signed_in"`
	CanContinue bool            `json:"can_continue"`
}

// Progress is the order after a step action, with its derived step.
type Progress struct {
	Order       *spree.Order `json:"order"`
	Step        Step         `json:"step"`
	CanContinue bool         `json:"can_continue"`
}

// AddressInput is the address step submission. Exactly one of ShipAddress and
// ShipAddressID is expected; a saved id requires a signed-in session.
type AddressInput struct {
	Email         string
	ShipAddress   *spree.Address
	ShipAddressID string
}

// PaymentInput is the payment step submission.
type PaymentInput struct {
	UseShippingAddress bool
	BillAddress        *spree.Address
	BillAddressID      string
}

// Confirmation identifies a placed order and where the shopper goes next.
type Confirmation struct {
	OrderNumber  string `json:"order_number"`
	RedirectPath string `json:"redirect_path"`
}

// Service sequences checkout calls against the commerce API.
type Service interface {
	Load(ctx context.Context, session types.Session) (*View, error)
	SubmitAddress(ctx context.Context, session types.Session, input AddressInput) (*Progress, error)
	SelectShippingRate(ctx context.Context, session types.Session, shipmentID, rateID string) (*Progress, error)
	ConfirmDelivery(ctx context.Context, session types.Session) (*Progress, error)
	SubmitPayment(ctx context.Context, session types.Session, input PaymentInput) (*Confirmation, error)
}

type service struct {
	api           commerce
	defaultMarket config.CountryLocale
	logg          *logger.Logger
}

// NewService builds the checkout service. defaultMarket fills the confirmation
// path when the session carries no country or locale.
func NewService(api commerce, defaultMarket config.CountryLocale, logg *logger.Logger) (Service, error) {
	if api == nil {
		return nil, fmt.Errorf("commerce client required")
	}
	if defaultMarket.Country == "" || defaultMarket.Locale == "" {
		return nil, fmt.Errorf("default market required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{api: api, defaultMarket: defaultMarket, logg: logg}, nil
}

// Load fetches the order, countries, saved addresses and auth status concurrently.
func (s *service) Load(ctx context.Context, session types.Session) (*View, error) {
	var (
		order     *spree.Order
		countries []spree.Country
		addresses []spree.Address
		signedIn  bool
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		order, err = s.api.GetCart(gctx, session)
		return err
	})
	g.Go(func() error {
		var err error
		countries, err = s.api.ListCountries(gctx, session)
		return err
	})
	if session.SignedIn() {
		g.Go(func() error {
			list, err := s.api.ListAddresses(gctx, session)
			if pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
				return nil
			}
			addresses = list
			return err
		})
		g.Go(func() error {
			_, err := s.api.GetAccount(gctx, session)
			if pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
				return nil
			}
			if err != nil {
				return err
			}
			signedIn = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := checkoutable(order); err != nil {
		return nil, err
	}
	if !signedIn {
		addresses = nil
	}

	return &View{
		Order:       order,
		Step:        DeriveStep(order.State),
		Countries:   countries,
		Addresses:   addresses,
		SignedIn:    signedIn,
		CanContinue: CanContinueDelivery(order.Shipments),
	}, nil
}

// SubmitAddress stores email and shipping address, advances the order and reloads it.
// A failure after the address update leaves the order as the commerce API left it.
func (s *service) SubmitAddress(ctx context.Context, session types.Session, input AddressInput) (*Progress, error) {
	email := strings.TrimSpace(input.Email)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}

	update := spree.AddressUpdate{Email: email}
	switch {
	case input.ShipAddressID != "":
		saved, err := s.savedAddress(ctx, session, input.ShipAddressID)
		if err != nil {
			return nil, err
		}
		update.ShipAddressID = saved.ID
	case input.ShipAddress != nil:
		address := *input.ShipAddress
		address.ID = ""
		update.ShipAddress = &address
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping address is required")
	}

	if _, err := s.api.UpdateOrderAddresses(ctx, session, update); err != nil {
		return nil, s.stepFailed(ctx, "address", err)
	}
	if _, err := s.api.AdvanceCheckout(ctx, session); err != nil {
		return nil, s.stepFailed(ctx, "address", err)
	}
	return s.reload(ctx, session)
}

func (s *service) SelectShippingRate(ctx context.Context, session types.Session, shipmentID, rateID string) (*Progress, error) {
	shipmentID = strings.TrimSpace(shipmentID)
	rateID = strings.TrimSpace(rateID)
	if shipmentID == "" || rateID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipment and shipping rate are required")
	}
	order, err := s.api.SelectShippingRate(ctx, session, shipmentID, rateID)
	if err != nil {
		return nil, s.stepFailed(ctx, "delivery", err)
	}
	return newProgress(order), nil
}

// ConfirmDelivery advances past the delivery step once every shipment has a rate.
func (s *service) ConfirmDelivery(ctx context.Context, session types.Session) (*Progress, error) {
	order, err := s.api.GetCart(ctx, session)
	if err != nil {
		return nil, err
	}
	if !CanContinueDelivery(order.Shipments) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "select a shipping rate for every shipment")
	}
	if _, err := s.api.AdvanceCheckout(ctx, session); err != nil {
		return nil, s.stepFailed(ctx, "delivery", err)
	}
	return s.reload(ctx, session)
}

// SubmitPayment sets the billing address and completes the order.
func (s *service) SubmitPayment(ctx context.Context, session types.Session, input PaymentInput) (*Confirmation, error) {
	update, err := s.billingUpdate(ctx, session, input)
	if err != nil {
		return nil, err
	}

	if _, err := s.api.UpdateOrderAddresses(ctx, session, update); err != nil {
		return nil, s.stepFailed(ctx, "payment", err)
	}
	order, err := s.api.CompleteCheckout(ctx, session)
	if err != nil {
		return nil, s.stepFailed(ctx, "payment", err)
	}

	s.logg.Info(s.logg.WithOrderNumber(ctx, order.Number), "checkout.order.placed")
	return &Confirmation{
		OrderNumber:  order.Number,
		RedirectPath: s.confirmationPath(session, order.Number),
	}, nil
}

func (s *service) billingUpdate(ctx context.Context, session types.Session, input PaymentInput) (spree.AddressUpdate, error) {
	switch {
	case input.UseShippingAddress:
		order, err := s.api.GetCart(ctx, session)
		if err != nil {
			return spree.AddressUpdate{}, err
		}
		if order.ShipAddress == nil {
			return spree.AddressUpdate{}, pkgerrors.New(pkgerrors.CodeStateConflict, "order has no shipping address")
		}
		bill := *order.ShipAddress
		bill.ID = ""
		return spree.AddressUpdate{BillAddress: &bill}, nil
	case input.BillAddressID != "":
		saved, err := s.savedAddress(ctx, session, input.BillAddressID)
		if err != nil {
			return spree.AddressUpdate{}, err
		}
		return spree.AddressUpdate{BillAddressID: saved.ID}, nil
	case input.BillAddress != nil:
		bill := *input.BillAddress
		bill.ID = ""
		return spree.AddressUpdate{BillAddress: &bill}, nil
	default:
		return spree.AddressUpdate{}, pkgerrors.New(pkgerrors.CodeValidation, "billing address is required")
	}
}

func (s *service) savedAddress(ctx context.Context, session types.Session, id string) (*spree.Address, error) {
	if !session.SignedIn() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in to use a saved address")
	}
	addresses, err := s.api.ListAddresses(ctx, session)
	if err != nil {
		return nil, err
	}
	for i := range addresses {
		if addresses[i].ID == id {
			return &addresses[i], nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeValidation, "saved address not found").
		WithDetails(map[string]string{"address_id": id})
}

func (s *service) reload(ctx context.Context, session types.Session) (*Progress, error) {
	order, err := s.api.GetCart(ctx, session)
	if err != nil {
		return nil, err
	}
	return newProgress(order), nil
}

func (s *service) stepFailed(ctx context.Context, step string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"checkout_step": step,
		"dump":          pkgerrors.Dump(err),
	})
	s.logg.Warn(logCtx, "checkout.step.failed")
	return err
}

func (s *service) confirmationPath(session types.Session, number string) string {
	country, locale := session.Country, session.Locale
	if country == "" {
		country = s.defaultMarket.Country
	}
	if locale == "" {
		locale = s.defaultMarket.Locale
	}
	return "/" + url.PathEscape(strings.ToLower(country)) +
		"/" + url.PathEscape(strings.ToLower(locale)) +
		"/order-placed/" + url.PathEscape(number)
}

func newProgress(order *spree.Order) *Progress {
	return &Progress{
		Order:       order,
		Step:        DeriveStep(order.State),
		CanContinue: CanContinueDelivery(order.Shipments),
	}
}

// checkoutable rejects orders that cannot be shown in the wizard.
func checkoutable(order *spree.Order) error {
	if order == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
	}
	if order.State == string(enums.OrderStateComplete) {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order already completed").
			WithDetails(map[string]string{"number": order.Number})
	}
	if len(order.LineItems) == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "cart is empty")
	}
	return nil
}
