package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/spree-storefront/pkg/logger"
	"github.com/angelmondragon/spree-storefront/pkg/types"
)

// Cookie and header names shared with the storefront.
const (
	CookieAuthToken = "spree_auth_token"
	CookieCartToken = "spree_cart_token"
	CookieCountry   = "spree_country"
	CookieLocale    = "spree_locale"

	HeaderOrderToken = "X-Spree-Order-Token"
	HeaderCountry    = "X-Spree-Country"
	HeaderLocale     = "X-Spree-Locale"

	cartCookieMaxAge = 30 * 24 * time.Hour
)

// Session reads the visitor tokens from cookies, falling back to headers, and
// attaches them to the request context.
func Session(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := types.Session{
				AuthToken: firstNonEmpty(cookieValue(r, CookieAuthToken), bearerToken(r)),
				CartToken: firstNonEmpty(cookieValue(r, CookieCartToken), r.Header.Get(HeaderOrderToken)),
				Country:   strings.ToLower(firstNonEmpty(cookieValue(r, CookieCountry), r.Header.Get(HeaderCountry))),
				Locale:    strings.ToLower(firstNonEmpty(cookieValue(r, CookieLocale), r.Header.Get(HeaderLocale))),
			}

			ctx := WithSession(r.Context(), session)
			if logg != nil && (session.Country != "" || session.Locale != "") {
				ctx = logg.WithMarket(ctx, session.Country, session.Locale)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SetCartCookie persists a newly created cart token.
func SetCartCookie(w http.ResponseWriter, token string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieCartToken,
		Value:    token,
		Path:     "/",
		MaxAge:   int(cartCookieMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
	w.Header().Set(HeaderOrderToken, token)
}

// ClearCartCookie drops the cart token once its order is placed.
func ClearCartCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieCartToken,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(c.Value)
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
