package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/CivicMesh-Labs/quietgrid/core/pkg/contracts"
)

type contextKey string

const principalKey contextKey = "principal"

// WithPrincipal attaches a caller principal to the context.
func WithPrincipal(ctx context.Context, p contracts.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// GetPrincipal retrieves the caller principal from the context.
func GetPrincipal(ctx context.Context) (contracts.Principal, error) {
	p, ok := ctx.Value(principalKey).(contracts.Principal)
	if !ok || !p.Valid() {
		return "", errors.New("no principal in context")
	}
	return p, nil
}

// JWTValidator validates HS256 bearer tokens; the subject claim is the
// caller principal.
type JWTValidator struct {
	secret []byte
}

// NewJWTValidator creates a validator. An empty secret yields nil, which
// makes the middleware fail closed.
func NewJWTValidator(secret string) *JWTValidator {
	if secret == "" {
		return nil
	}
	return &JWTValidator{secret: []byte(secret)}
}

// Validate parses the token and returns the subject principal.
func (v *JWTValidator) Validate(tokenStr string) (contracts.Principal, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("token validation failed: %w", err)
	}
	if !token.Valid || claims.Subject == "" {
		return "", errors.New("invalid token")
	}
	return contracts.Principal(claims.Subject), nil
}

// publicPaths are endpoints that do not require authentication.
var publicPaths = []string{"/health"}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return false
}

// AuthMiddleware authenticates bearer tokens and stores the principal in the
// request context. A nil validator rejects every non-public request.
func AuthMiddleware(validator *JWTValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublicPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			if validator == nil {
				WriteUnauthorized(w, r, "authentication not configured")
				return
			}

			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				WriteUnauthorized(w, r, "missing bearer token")
				return
			}
			principal, err := validator.Validate(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				WriteUnauthorized(w, r, err.Error())
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}
