package middleware

import (
	"fmt"
	"net/http"

	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/settlement-backend-go/internal/handler/http/response"
)

// RequirePermission checks if the caller's role holds a capability. The
// services authorize again; this only rejects early.
func RequirePermission(c user.Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFromContext(r.Context())
			if !ok {
				response.Unauthorized(w, "Authentication required")
				return
			}

			if !user.HasCapability(actor.Role, c) {
				response.Forbidden(w, fmt.Sprintf("Insufficient permissions: required '%s', but user role is '%s'", c, actor.Role))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
