// Package cors answers cross origin requests from a fixed set of origins and
// makes the accepted origin available in the context.
package cors

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"
)

// Using an unexported type prevents key collisions from other packages.
type contextKey string

// OriginKey is the context key used to store the accepted origin.
const OriginKey contextKey = "origin"

const (
	allowMethods = "GET, POST, OPTIONS"
	allowHeaders = "Content-Type, Authorization"
)

// Middleware returns an http.Handler middleware that adds the
// Access-Control-Allow-* headers for requests whose Origin is in allowed.
// Preflight requests never reach next: an allowed origin gets 204 with the
// headers, any other origin gets 403 without them. "*" in allowed accepts
// any origin.
func Middleware(allowed []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := originFromRequest(r)
			if origin == "" || !isAllowed(allowed, origin) {
				if r.Method == http.MethodOptions {
					w.WriteHeader(http.StatusForbidden)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Methods", allowMethods)
			h.Set("Access-Control-Allow-Headers", allowHeaders)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Add("Vary", "Origin")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			ctx := context.WithValue(r.Context(), OriginKey, origin)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OriginFromContext retrieves the origin accepted by Middleware.
func OriginFromContext(ctx context.Context) (string, error) {
	origin, ok := ctx.Value(OriginKey).(string)
	if !ok {
		return "", errors.New("origin not found in context")
	}
	return origin, nil
}

func isAllowed(allowed []string, origin string) bool {
	return slices.ContainsFunc(allowed, func(a string) bool {
		return a == "*" || strings.EqualFold(strings.TrimSuffix(a, "/"), origin)
	})
}

func originFromRequest(r *http.Request) string {
	return strings.TrimSuffix(r.Header.Get("Origin"), "/")
}
