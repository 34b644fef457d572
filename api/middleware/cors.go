package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS returns middleware that allows the configured storefront origins.
func CORS(origins []string) func(http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", HeaderOrderToken, HeaderCountry, HeaderLocale, "Idempotency-Key", "X-Requested-With"},
		ExposedHeaders:   []string{HeaderOrderToken, requestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler
}
