package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/shoplink/shoplink-api/internal/domain/ledger"
	"github.com/shoplink/shoplink-api/internal/pkg/response"
	"github.com/shoplink/shoplink-api/internal/pkg/token"
)

type contextKey string

const OwnerKey contextKey = "owner"

// Auth returns middleware that resolves the calling owner from a bearer
// token. Authentication happens upstream; only identity extraction lives
// here.
func Auth(tokens *token.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				response.Unauthorized(w, "Missing authorization header")
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				response.Unauthorized(w, "Invalid authorization header format")
				return
			}

			claims, err := tokens.Validate(parts[1])
			if err != nil {
				if err == token.ErrExpiredToken {
					response.Unauthorized(w, "Token expired")
				} else {
					response.Unauthorized(w, "Invalid token")
				}
				return
			}

			ctx := context.WithValue(r.Context(), OwnerKey, claims.Owner())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetOwner extracts the calling owner from context
func GetOwner(ctx context.Context) ledger.Owner {
	if owner, ok := ctx.Value(OwnerKey).(ledger.Owner); ok {
		return owner
	}
	return ledger.Owner{}
}

// GetOwnerID extracts the calling owner's ID from context
func GetOwnerID(ctx context.Context) uuid.UUID {
	return GetOwner(ctx).ID
}

// RequireOwnerType returns middleware that checks the caller's owner type
func RequireOwnerType(types ...ledger.OwnerType) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			owner := GetOwner(r.Context())

			for _, t := range types {
				if owner.Type == t {
					next.ServeHTTP(w, r)
					return
				}
			}

			response.Forbidden(w, "Insufficient permissions")
		})
	}
}

// RequireMerchant requires a merchant caller
func RequireMerchant() func(http.Handler) http.Handler {
	return RequireOwnerType(ledger.OwnerMerchant)
}

// RequireAdmin requires an admin caller
func RequireAdmin() func(http.Handler) http.Handler {
	return RequireOwnerType(ledger.OwnerAdmin)
}

// RequirePlatform requires the platform operator
func RequirePlatform() func(http.Handler) http.Handler {
	return RequireOwnerType(ledger.OwnerPlatform)
}
