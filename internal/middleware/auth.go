package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/siocraft/finance-tracker-api/internal/auth"
	"github.com/siocraft/finance-tracker-api/internal/services"
)

type contextKey string

const identityKey contextKey = "identity"

// AuthMiddleware verifies the bearer token and stores the caller identity on
// the request context.
func AuthMiddleware(verifier auth.Verifier, log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				services.SendErrorResponse(w, "Authorization header missing", http.StatusUnauthorized, nil)
				return
			}

			// Bearer TOKEN
			parts := strings.Fields(authHeader)
			if len(parts) < 2 || parts[1] == "" {
				services.SendErrorResponse(w, "Token missing", http.StatusUnauthorized, nil)
				return
			}

			identity, err := verifier.VerifyToken(r.Context(), parts[1])
			if err != nil || identity == nil || identity.UserID == "" {
				log.WithFields(logrus.Fields{
					"request_id": RequestIDFromContext(r.Context()),
					"error":      errString(err),
				}).Warn("[AUTH] token rejected")
				services.SendErrorResponse(w, "Invalid or expired token", http.StatusUnauthorized, nil)
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFromContext returns the identity set by AuthMiddleware
func IdentityFromContext(ctx context.Context) (*auth.Identity, bool) {
	identity, ok := ctx.Value(identityKey).(*auth.Identity)
	return identity, ok && identity != nil
}

// UserIDFromContext returns the authenticated user id, or "" when the
// request did not pass through AuthMiddleware.
func UserIDFromContext(ctx context.Context) string {
	if identity, ok := IdentityFromContext(ctx); ok {
		return identity.UserID
	}
	return ""
}

// WithIdentity returns a copy of ctx carrying identity
func WithIdentity(ctx context.Context, identity *auth.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

func errString(err error) string {
	if err == nil {
		return "no identity"
	}
	return err.Error()
}
