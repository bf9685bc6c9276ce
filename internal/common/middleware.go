package common

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

type contextKey string

const userContextKey contextKey = "user"

// WithUser stores the authenticated caller in ctx.
func WithUser(ctx context.Context, user *UserProjection) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFromContext returns the caller set by AuthMiddleware.
func UserFromContext(ctx context.Context) (*UserProjection, bool) {
	user, ok := ctx.Value(userContextKey).(*UserProjection)
	return user, ok && user != nil
}

// BearerToken extracts the token from "Authorization: Bearer <token>",
// falling back to the token query parameter used by websocket clients.
func BearerToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.Fields(header)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
		return ""
	}
	return r.URL.Query().Get("token")
}

// AuthMiddleware rejects requests without a valid bearer token and injects
// the caller's identity into the request context.
func AuthMiddleware(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				WriteError(w, UnauthenticatedError("authorization required"))
				return
			}

			user, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				WriteError(w, UnauthenticatedError("invalid or expired token"))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes {"message": ...} with the status mapped from err.
// Infrastructure errors are reported without their detail.
func WriteError(w http.ResponseWriter, err error) {
	status := HTTPStatus(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal server error"
	}
	WriteJSON(w, status, map[string]string{"message": message})
}
