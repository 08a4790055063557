package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/airtrace-systems/airtrace-telemetry/internal/httputil"
)

type contextKey string

const identityKey contextKey = "sender_identity"

// RequireAuth rejects requests without a valid bearer token and stores the
// authenticated sender identity on the request context.
func (ti *TokenIssuer) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			httputil.WriteError(w, http.StatusUnauthorized, "missing authorization header")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			httputil.WriteError(w, http.StatusUnauthorized, "invalid authorization header")
			return
		}

		identity, err := ti.Validate(parts[1])
		if err != nil {
			httputil.WriteError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), identityKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// Identity returns the authenticated sender identity stored by RequireAuth,
// or an empty string when the request was not authenticated.
func Identity(ctx context.Context) string {
	identity, _ := ctx.Value(identityKey).(string)
	return identity
}
