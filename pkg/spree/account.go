package spree

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	pkgerrors "github.com/angelmondragon/spree-storefront/pkg/errors"
	"github.com/angelmondragon/spree-storefront/pkg/types"
)

func requireAuth(session types.Session) error {
	if !session.SignedIn() {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in required")
	}
	return nil
}

// GetAccount returns the signed-in customer. It doubles as the auth status probe.
func (c *Client) GetAccount(ctx context.Context, session types.Session) (*Account, error) {
	if err := requireAuth(session); err != nil {
		return nil, err
	}
	var env dataEnvelope[Account]
	err := c.do(ctx, call{
		operation: "account.get",
		method:    http.MethodGet,
		path:      "account",
		session:   session,
	}, &env)
	if err != nil {
		return nil, err
	}
	return &env.Data, nil
}

// ListAddresses returns the customer's saved addresses.
func (c *Client) ListAddresses(ctx context.Context, session types.Session) ([]Address, error) {
	if err := requireAuth(session); err != nil {
		return nil, err
	}
	var env dataEnvelope[[]Address]
	err := c.do(ctx, call{
		operation: "account.addresses",
		method:    http.MethodGet,
		path:      "account/addresses",
		session:   session,
	}, &env)
	if err != nil {
		return nil, err
	}
	return env.Data, nil
}

// ListOrders returns one page of completed orders.
func (c *Client) ListOrders(ctx context.Context, session types.Session, page, limit int) (*OrderPage, error) {
	if err := requireAuth(session); err != nil {
		return nil, err
	}
	query := url.Values{}
	if page > 0 {
		query.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	var out OrderPage
	err := c.do(ctx, call{
		operation: "account.orders",
		method:    http.MethodGet,
		path:      "account/orders",
		query:     query,
		session:   session,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetOrder returns one of the customer's orders by number.
func (c *Client) GetOrder(ctx context.Context, session types.Session, number string) (*Order, error) {
	if err := requireAuth(session); err != nil {
		return nil, err
	}
	trimmed := strings.TrimSpace(number)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order number is required")
	}
	return c.orderCall(ctx, call{
		operation: "account.order",
		method:    http.MethodGet,
		path:      "account/orders/" + url.PathEscape(trimmed),
		session:   session,
	})
}
