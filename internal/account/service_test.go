package account

import (
	"context"
	"testing"
	"time"

	pkgerrors "github.com/angelmondragon/spree-storefront/pkg/errors"
	"github.com/angelmondragon/spree-storefront/pkg/pagination"
	"github.com/angelmondragon/spree-storefront/pkg/spree"
	"github.com/angelmondragon/spree-storefront/pkg/types"
)

type stubCommerce struct {
	calls     int
	lastPage  int
	lastLimit int
	order     *spree.Order
}

func (s *stubCommerce) GetAccount(context.Context, types.Session) (*spree.Account, error) {
	s.calls++
	return &spree.Account{ID: "acct_1", Email: "jane@example.com"}, nil
}

func (s *stubCommerce) ListAddresses(context.Context, types.Session) ([]spree.Address, error) {
	s.calls++
	return nil, nil
}

func (s *stubCommerce) ListOrders(_ context.Context, _ types.Session, page, limit int) (*spree.OrderPage, error) {
	s.calls++
	s.lastPage, s.lastLimit = page, limit
	return &spree.OrderPage{
		Orders: []spree.Order{{Number: "R1"}},
		Meta:   spree.ListMeta{Count: 3, Page: page, Pages: 3, Limit: limit},
	}, nil
}

func (s *stubCommerce) GetOrder(context.Context, types.Session, string) (*spree.Order, error) {
	s.calls++
	return s.order, nil
}

func newTestService(t *testing.T, api *stubCommerce) Service {
	t.Helper()
	svc, err := NewService(api)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestGuestSessionRejectedWithoutUpstreamCall(t *testing.T) {
	t.Parallel()

	api := &stubCommerce{}
	svc := newTestService(t, api)
	ctx := context.Background()
	guest := types.Session{CartToken: "c"}

	checks := []error{}
	_, err := svc.Profile(ctx, guest)
	checks = append(checks, err)
	_, err = svc.Addresses(ctx, guest)
	checks = append(checks, err)
	_, err = svc.Orders(ctx, guest, pagination.Params{})
	checks = append(checks, err)
	_, err = svc.Order(ctx, guest, "R1")
	checks = append(checks, err)

	for i, err := range checks {
		if !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
			t.Fatalf("call %d: expected unauthorized, got %v", i, err)
		}
	}
	if api.calls != 0 {
		t.Fatalf("expected no upstream calls, got %d", api.calls)
	}
}

func TestOrdersPagination(t *testing.T) {
	t.Parallel()

	api := &stubCommerce{}
	svc := newTestService(t, api)
	history, err := svc.Orders(context.Background(), types.Session{AuthToken: "tok"}, pagination.Params{Page: 0, Limit: 0})
	if err != nil {
		t.Fatalf("orders: %v", err)
	}
	if api.lastPage != 1 || api.lastLimit != pagination.DefaultLimit {
		t.Fatalf("expected normalized params, got page=%d limit=%d", api.lastPage, api.lastLimit)
	}
	if !history.HasMore || history.Total != 3 {
		t.Fatalf("unexpected history %+v", history)
	}
}

func TestAddressesNeverNil(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, &stubCommerce{})
	addresses, err := svc.Addresses(context.Background(), types.Session{AuthToken: "tok"})
	if err != nil || addresses == nil {
		t.Fatalf("expected empty slice, got %v %v", addresses, err)
	}
}

func TestOrderHidesIncompleteOrders(t *testing.T) {
	t.Parallel()

	api := &stubCommerce{order: &spree.Order{Number: "R1", State: "cart"}}
	svc := newTestService(t, api)
	session := types.Session{AuthToken: "tok"}

	if _, err := svc.Order(context.Background(), session, "R1"); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found for incomplete order, got %v", err)
	}

	completed := time.Now()
	api.order = &spree.Order{Number: "R1", State: "complete", CompletedAt: &completed}
	order, err := svc.Order(context.Background(), session, "R1")
	if err != nil || order.Number != "R1" {
		t.Fatalf("expected completed order, got %v %v", order, err)
	}
}
