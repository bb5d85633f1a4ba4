package auth

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"ms-registration/internal/utils"
)

type contextKey string

const adminKey contextKey = "admin"

// HeaderAdminKey carries the operator key on manual endpoints.
const HeaderAdminKey = "X-Admin-Key"

// AdminKey guards operator endpoints with a static shared key. An empty
// key disables the check.
type AdminKey struct {
	Key string
}

func (a AdminKey) Enabled() bool {
	return a.Key != ""
}

// Authorized reports whether any candidate matches the configured key.
func (a AdminKey) Authorized(candidates ...string) bool {
	if !a.Enabled() {
		return true
	}
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c != "" && subtle.ConstantTimeCompare([]byte(c), []byte(a.Key)) == 1 {
			return true
		}
	}
	return false
}

// Middleware rejects requests whose X-Admin-Key header does not match.
// Handlers that also accept the key in the body call Authorized instead.
func (a AdminKey) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !a.Authorized(r.Header.Get(HeaderAdminKey)) {
				_ = utils.WriteError(w, http.StatusUnauthorized, utils.ErrorResponse("Unauthorized. Admin key required.", ""))
				return
			}
			ctx := context.WithValue(r.Context(), adminKey, a.Enabled())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IsAdmin reports whether the request passed an enabled admin check.
func IsAdmin(ctx context.Context) bool {
	v, _ := ctx.Value(adminKey).(bool)
	return v
}
