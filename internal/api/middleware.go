package api

import (
	"context"
	"net/http"
	"strings"

	"shop-catalog-service/internal/auth"
)

type contextKey string

const identityContextKey contextKey = "identity"

const (
	msgNotAuthenticated = "Authentication credentials were not provided."
	msgInvalidToken     = "Given token not valid or expired."
	msgForbidden        = "You do not have permission to perform this action."
)

// IdentityFromContext returns the caller resolved by RequireAdminOrStaff.
func IdentityFromContext(ctx context.Context) (*auth.Identity, bool) {
	id, ok := ctx.Value(identityContextKey).(*auth.Identity)
	return id, ok
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// RequireAdminOrStaff rejects anonymous callers with 401 and authenticated
// callers lacking both roles with 403.
func (h *HTTPHandler) RequireAdminOrStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
			h.respondWithError(w, http.StatusUnauthorized, msgNotAuthenticated)
			return
		}

		identity, err := h.tokens.Parse(token)
		if err != nil {
			h.log.Debug("rejected bearer token: " + err.Error())
			w.Header().Set("WWW-Authenticate", `Bearer realm="api", error="invalid_token"`)
			h.respondWithError(w, http.StatusUnauthorized, msgInvalidToken)
			return
		}

		if !auth.IsAdminOrStaff(identity) {
			h.respondWithError(w, http.StatusForbidden, msgForbidden)
			return
		}

		ctx := context.WithValue(r.Context(), identityContextKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
