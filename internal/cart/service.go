package cart

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/spree-storefront/pkg/errors"
	"github.com/angelmondragon/spree-storefront/pkg/logger"
	"github.com/angelmondragon/spree-storefront/pkg/redis"
	"github.com/angelmondragon/spree-storefront/pkg/spree"
	"github.com/angelmondragon/spree-storefront/pkg/types"
)

const maxLineQuantity = 999

type commerce interface {
	GetCart(ctx context.Context, session types.Session) (*spree.Order, error)
	CreateCart(ctx context.Context, session types.Session) (*spree.Order, error)
	AddItem(ctx context.Context, session types.Session, variantID string, quantity int) (*spree.Order, error)
	UpdateItem(ctx context.Context, session types.Session, lineItemID string, quantity int) (*spree.Order, error)
	RemoveItem(ctx context.Context, session types.Session, lineItemID string) (*spree.Order, error)
	ApplyCoupon(ctx context.Context, session types.Session, code string) (*spree.Order, error)
	RemoveCoupon(ctx context.Context, session types.Session, code string) (*spree.Order, error)
}

// Summary is the cart as returned to the storefront. Token is set when the
// cart was created by the call and the caller has to persist it.
type Summary struct {
	Order     *spree.Order `json:"order"`
	ItemCount int          `json:"item_count"`
	Token     string       `json:"-"`
}

// CouponPolicy bounds how many coupon attempts one cart may make per window.
type CouponPolicy struct {
	Limit  int
	Window time.Duration
}

func (p CouponPolicy) enabled() bool {
	return p.Limit > 0 && p.Window > 0
}

// Service exposes cart operations for one visitor session.
type Service interface {
	Get(ctx context.Context, session types.Session) (*Summary, error)
	Create(ctx context.Context, session types.Session) (*Summary, error)
	AddItem(ctx context.Context, session types.Session, variantID string, quantity int) (*Summary, error)
	UpdateItem(ctx context.Context, session types.Session, lineItemID string, quantity int) (*Summary, error)
	RemoveItem(ctx context.Context, session types.Session, lineItemID string) (*Summary, error)
	ApplyCoupon(ctx context.Context, session types.Session, code string) (*Summary, error)
	RemoveCoupon(ctx context.Context, session types.Session, code string) (*Summary, error)
}

type service struct {
	api     commerce
	limiter redis.RateLimiter
	coupons CouponPolicy
	logg    *logger.Logger
}

// NewService builds the cart service. limiter may be nil to disable coupon throttling.
func NewService(api commerce, limiter redis.RateLimiter, coupons CouponPolicy, logg *logger.Logger) (Service, error) {
	if api == nil {
		return nil, fmt.Errorf("commerce client required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{api: api, limiter: limiter, coupons: coupons, logg: logg}, nil
}

// ItemCount sums line item quantities. A nil order counts as empty.
func ItemCount(order *spree.Order) int {
	if order == nil {
		return 0
	}
	total := 0
	for _, item := range order.LineItems {
		total += item.Quantity
	}
	return total
}

func summarize(order *spree.Order) *Summary {
	return &Summary{Order: order, ItemCount: ItemCount(order)}
}

// Get returns the current cart, or an empty summary when the visitor has none.
func (s *service) Get(ctx context.Context, session types.Session) (*Summary, error) {
	order, err := s.api.GetCart(ctx, session)
	if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		return summarize(nil), nil
	}
	if err != nil {
		return nil, err
	}
	return summarize(order), nil
}

func (s *service) Create(ctx context.Context, session types.Session) (*Summary, error) {
	order, err := s.api.CreateCart(ctx, session)
	if err != nil {
		return nil, err
	}
	summary := summarize(order)
	summary.Token = order.Token
	return summary, nil
}

// AddItem adds a variant, creating a cart first when the session has none.
// When the cart was created but the add failed, the returned summary still
// carries the new token alongside the error so the caller can keep the cart.
func (s *service) AddItem(ctx context.Context, session types.Session, variantID string, quantity int) (*Summary, error) {
	variantID = strings.TrimSpace(variantID)
	if variantID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant id is required")
	}
	if err := validateQuantity(quantity, 1); err != nil {
		return nil, err
	}

	var created *spree.Order
	if !session.HasCart() {
		var err error
		created, err = s.api.CreateCart(ctx, session)
		if err != nil {
			return nil, err
		}
		session = session.WithCartToken(created.Token)
		s.logg.Info(s.logg.WithOrderNumber(ctx, created.Number), "cart.created")
	}

	order, err := s.api.AddItem(ctx, session, variantID, quantity)
	if err != nil {
		if created != nil {
			kept := summarize(created)
			kept.Token = created.Token
			return kept, err
		}
		return nil, err
	}
	summary := summarize(order)
	if created != nil {
		summary.Token = created.Token
	}
	return summary, nil
}

// UpdateItem sets a line item quantity; zero removes the line.
func (s *service) UpdateItem(ctx context.Context, session types.Session, lineItemID string, quantity int) (*Summary, error) {
	lineItemID = strings.TrimSpace(lineItemID)
	if lineItemID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "line item id is required")
	}
	if err := validateQuantity(quantity, 0); err != nil {
		return nil, err
	}
	if quantity == 0 {
		return s.RemoveItem(ctx, session, lineItemID)
	}
	order, err := s.api.UpdateItem(ctx, session, lineItemID, quantity)
	if err != nil {
		return nil, err
	}
	return summarize(order), nil
}

func (s *service) RemoveItem(ctx context.Context, session types.Session, lineItemID string) (*Summary, error) {
	lineItemID = strings.TrimSpace(lineItemID)
	if lineItemID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "line item id is required")
	}
	order, err := s.api.RemoveItem(ctx, session, lineItemID)
	if err != nil {
		return nil, err
	}
	return summarize(order), nil
}

// ApplyCoupon applies a promotion code, throttled per cart.
func (s *service) ApplyCoupon(ctx context.Context, session types.Session, code string) (*Summary, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required")
	}
	if !session.HasCart() {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
	}
	if err := s.allowCoupon(ctx, session.CartToken); err != nil {
		return nil, err
	}
	order, err := s.api.ApplyCoupon(ctx, session, code)
	if err != nil {
		return nil, err
	}
	return summarize(order), nil
}

func (s *service) RemoveCoupon(ctx context.Context, session types.Session, code string) (*Summary, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required")
	}
	order, err := s.api.RemoveCoupon(ctx, session, code)
	if err != nil {
		return nil, err
	}
	return summarize(order), nil
}

func (s *service) allowCoupon(ctx context.Context, cartToken string) error {
	if s.limiter == nil || !s.coupons.enabled() {
		return nil
	}
	allowed, count, err := s.limiter.FixedWindowAllow(ctx, "coupon:"+hashToken(cartToken), int64(s.coupons.Limit), s.coupons.Window)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting")
	}
	if !allowed {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"attempts":       count,
			"limit":          s.coupons.Limit,
			"window_seconds": int(s.coupons.Window.Seconds()),
		})
		s.logg.Warn(logCtx, "cart.coupon.rate_limited")
		return pkgerrors.New(pkgerrors.CodeRateLimit, "too many coupon attempts, try again later")
	}
	return nil
}

func validateQuantity(quantity, floor int) error {
	if quantity < floor || quantity > maxLineQuantity {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("quantity must be between %d and %d", floor, maxLineQuantity))
	}
	return nil
}

// hashToken keeps raw cart tokens out of redis keys.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:12])
}
