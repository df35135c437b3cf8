package common

import (
	"context"
	"net/http"
	"strings"
)

type userIDKey struct{}

// WithUserID marks ctx as authenticated for the given user.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey{}, id)
}

// UserID returns the authenticated user, if any. Blank ids count as absent.
func UserID(ctx context.Context) (string, bool) {
	id, _ := ctx.Value(userIDKey{}).(string)
	id = strings.TrimSpace(id)
	return id, id != ""
}

// RequireUser writes a 401 and reports false when the request carries no user.
func RequireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := UserID(r.Context())
	if !ok {
		JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
	}
	return id, ok
}
