package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/angelmondragon/spree-storefront/pkg/types"
)

func captureSession(t *testing.T, req *http.Request) types.Session {
	t.Helper()
	var got types.Session
	handler := Session(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = SessionFromContext(r.Context())
	}))
	handler.ServeHTTP(httptest.NewRecorder(), req)
	return got
}

func TestSessionReadsCookies(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.AddCookie(&http.Cookie{Name: CookieAuthToken, Value: "auth-1"})
	req.AddCookie(&http.Cookie{Name: CookieCartToken, Value: "cart-1"})
	req.AddCookie(&http.Cookie{Name: CookieCountry, Value: "US"})
	req.AddCookie(&http.Cookie{Name: CookieLocale, Value: "EN"})
	req.Header.Set(HeaderOrderToken, "header-cart")

	got := captureSession(t, req)
	want := types.Session{AuthToken: "auth-1", CartToken: "cart-1", Country: "us", Locale: "en"}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestSessionFallsBackToHeaders(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("Authorization", "Bearer token-9")
	req.Header.Set(HeaderOrderToken, "cart-9")
	req.Header.Set(HeaderCountry, "de")
	req.Header.Set(HeaderLocale, "de")

	got := captureSession(t, req)
	if got.AuthToken != "token-9" || got.CartToken != "cart-9" || got.Country != "de" || got.Locale != "de" {
		t.Fatalf("unexpected session %+v", got)
	}
}

func TestSessionIgnoresNonBearerAuthorization(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	if got := captureSession(t, req); got.SignedIn() {
		t.Fatalf("basic auth must not sign the visitor in")
	}
}

func TestCartCookieHelpers(t *testing.T) {
	rec := httptest.NewRecorder()
	SetCartCookie(rec, "new-cart", true)
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Value != "new-cart" || !cookies[0].HttpOnly || !cookies[0].Secure {
		t.Fatalf("unexpected cookie %+v", cookies)
	}
	if rec.Header().Get(HeaderOrderToken) != "new-cart" {
		t.Fatalf("expected order token header")
	}

	rec = httptest.NewRecorder()
	ClearCartCookie(rec, false)
	cookies = rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge >= 0 {
		t.Fatalf("expected expired cookie, got %+v", cookies)
	}
}
