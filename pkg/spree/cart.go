package spree

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	pkgerrors "github.com/angelmondragon/spree-storefront/pkg/errors"
	"github.com/angelmondragon/spree-storefront/pkg/types"
)

type addItemRequest struct {
	VariantID string `json:"variant_id"`
	Quantity  int    `json:"quantity"`
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

type couponRequest struct {
	CouponCode string `json:"coupon_code"`
}

// CreateCart opens a new cart; the returned order carries the cart token.
func (c *Client) CreateCart(ctx context.Context, session types.Session) (*Order, error) {
	return c.orderCall(ctx, call{
		operation: "cart.create",
		method:    http.MethodPost,
		path:      "cart",
		session:   session.WithCartToken(""),
	})
}

// GetCart loads the cart identified by the session's cart token (or the signed-in user's cart).
func (c *Client) GetCart(ctx context.Context, session types.Session) (*Order, error) {
	if !session.HasCart() && !session.SignedIn() {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
	}
	return c.orderCall(ctx, call{
		operation: "cart.get",
		method:    http.MethodGet,
		path:      "cart",
		session:   session,
	})
}

func (c *Client) AddItem(ctx context.Context, session types.Session, variantID string, quantity int) (*Order, error) {
	if strings.TrimSpace(variantID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant id is required")
	}
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	return c.orderCall(ctx, call{
		operation: "cart.add_item",
		method:    http.MethodPost,
		path:      "cart/line_items",
		session:   session,
		body:      addItemRequest{VariantID: variantID, Quantity: quantity},
	})
}

func (c *Client) UpdateItem(ctx context.Context, session types.Session, lineItemID string, quantity int) (*Order, error) {
	if strings.TrimSpace(lineItemID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "line item id is required")
	}
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	return c.orderCall(ctx, call{
		operation: "cart.update_item",
		method:    http.MethodPatch,
		path:      "cart/line_items/" + url.PathEscape(lineItemID),
		session:   session,
		body:      updateItemRequest{Quantity: quantity},
	})
}

func (c *Client) RemoveItem(ctx context.Context, session types.Session, lineItemID string) (*Order, error) {
	if strings.TrimSpace(lineItemID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "line item id is required")
	}
	return c.orderCall(ctx, call{
		operation: "cart.remove_item",
		method:    http.MethodDelete,
		path:      "cart/line_items/" + url.PathEscape(lineItemID),
		session:   session,
	})
}

func (c *Client) ApplyCoupon(ctx context.Context, session types.Session, code string) (*Order, error) {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required")
	}
	return c.orderCall(ctx, call{
		operation: "cart.apply_coupon",
		method:    http.MethodPost,
		path:      "cart/coupon_codes",
		session:   session,
		body:      couponRequest{CouponCode: trimmed},
	})
}

func (c *Client) RemoveCoupon(ctx context.Context, session types.Session, code string) (*Order, error) {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required")
	}
	return c.orderCall(ctx, call{
		operation: "cart.remove_coupon",
		method:    http.MethodDelete,
		path:      "cart/coupon_codes/" + url.PathEscape(trimmed),
		session:   session,
	})
}

func (c *Client) orderCall(ctx context.Context, req call) (*Order, error) {
	var env dataEnvelope[Order]
	if err := c.do(ctx, req, &env); err != nil {
		return nil, err
	}
	return &env.Data, nil
}
