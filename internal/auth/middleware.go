package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/redmonkez12/account-service/internal/httputil"
)

// ContextKey is a type for context keys to avoid collisions
type ContextKey string

const BearerContextKey ContextKey = "bearer_token"

// RequireBearer extracts the bearer token into the request context. The token
// itself is verified by the service so every failure maps the same way.
func RequireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			w.Header().Set("WWW-Authenticate", "Bearer")
			httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
			return
		}

		scheme, token, ok := strings.Cut(authHeader, " ")
		token = strings.TrimSpace(token)
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			w.Header().Set("WWW-Authenticate", "Bearer")
			httputil.RespondErrorWithCode(w, "invalid authorization header format", httputil.CodeInvalidAuthHeader, http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), BearerContextKey, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// BearerFromContext returns the token stored by RequireBearer, or "".
func BearerFromContext(ctx context.Context) string {
	token, _ := ctx.Value(BearerContextKey).(string)
	return token
}
