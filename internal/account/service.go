package account

import (
	"context"
	"fmt"

	pkgerrors "github.com/angelmondragon/spree-storefront/pkg/errors"
	"github.com/angelmondragon/spree-storefront/pkg/pagination"
	"github.com/angelmondragon/spree-storefront/pkg/spree"
	"github.com/angelmondragon/spree-storefront/pkg/types"
)

type commerce interface {
	GetAccount(ctx context.Context, session types.Session) (*spree.Account, error)
	ListAddresses(ctx context.Context, session types.Session) ([]spree.Address, error)
	ListOrders(ctx context.Context, session types.Session, page, limit int) (*spree.OrderPage, error)
	GetOrder(ctx context.Context, session types.Session, number string) (*spree.Order, error)
}

// OrderHistory is one page of past orders.
type OrderHistory struct {
	Orders  []spree.Order `json:"orders"`
	Page    int           `json:"page"`
	Pages   int           `json:"pages"`
	Total   int           `json:"total"`
	HasMore bool          `json:"has_more"`
}

// Service exposes signed-in account reads.
type Service interface {
	Profile(ctx context.Context, session types.Session) (*spree.Account, error)
	Addresses(ctx context.Context, session types.Session) ([]spree.Address, error)
	Orders(ctx context.Context, session types.Session, params pagination.Params) (*OrderHistory, error)
	Order(ctx context.Context, session types.Session, number string) (*spree.Order, error)
}

type service struct {
	api commerce
}

// NewService builds the account service.
func NewService(api commerce) (Service, error) {
	if api == nil {
		return nil, fmt.Errorf("commerce client required")
	}
	return &service{api: api}, nil
}

func requireSignedIn(session types.Session) error {
	if !session.SignedIn() {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in required")
	}
	return nil
}

func (s *service) Profile(ctx context.Context, session types.Session) (*spree.Account, error) {
	if err := requireSignedIn(session); err != nil {
		return nil, err
	}
	return s.api.GetAccount(ctx, session)
}

func (s *service) Addresses(ctx context.Context, session types.Session) ([]spree.Address, error) {
	if err := requireSignedIn(session); err != nil {
		return nil, err
	}
	addresses, err := s.api.ListAddresses(ctx, session)
	if err != nil {
		return nil, err
	}
	if addresses == nil {
		addresses = []spree.Address{}
	}
	return addresses, nil
}

func (s *service) Orders(ctx context.Context, session types.Session, params pagination.Params) (*OrderHistory, error) {
	if err := requireSignedIn(session); err != nil {
		return nil, err
	}
	params = params.Normalize()
	page, err := s.api.ListOrders(ctx, session, params.Page, params.Limit)
	if err != nil {
		return nil, err
	}
	current := page.Meta.Page
	if current <= 0 {
		current = params.Page
	}
	orders := page.Orders
	if orders == nil {
		orders = []spree.Order{}
	}
	return &OrderHistory{
		Orders:  orders,
		Page:    current,
		Pages:   page.Meta.Pages,
		Total:   page.Meta.Count,
		HasMore: pagination.HasMore(current, page.Meta.Pages),
	}, nil
}

// Order returns a past order. Orders still in checkout are reported as not found.
func (s *service) Order(ctx context.Context, session types.Session, number string) (*spree.Order, error) {
	if err := requireSignedIn(session); err != nil {
		return nil, err
	}
	order, err := s.api.GetOrder(ctx, session, number)
	if err != nil {
		return nil, err
	}
	if order.CompletedAt == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}
