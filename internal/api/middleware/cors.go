package middleware

import (
	"github.com/go-chi/cors"
)

// NewCORS creates the CORS middleware. The deployment serves a public
// dashboard, so the default configuration permits GET and OPTIONS from any
// origin; POST covers the manual refresh endpoint.
func NewCORS(allowedOrigins []string) *cors.Cors {
	return cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{
			"Content-Type",
		},
		ExposedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	})
}
