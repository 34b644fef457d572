package types

import "strings"

// Session carries the opaque per-visitor tokens forwarded to the commerce API.
type Session struct {
	AuthToken string
	CartToken string
	Country   string
	Locale    string
}

// SignedIn reports whether the visitor presented an auth token.
func (s Session) SignedIn() bool {
	return strings.TrimSpace(s.AuthToken) != ""
}

// HasCart reports whether the visitor presented a cart token.
func (s Session) HasCart() bool {
	return strings.TrimSpace(s.CartToken) != ""
}

// WithCartToken returns a copy of the session bound to another cart.
func (s Session) WithCartToken(token string) Session {
	s.CartToken = token
	return s
}
