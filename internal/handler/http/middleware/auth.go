package middleware

import (
	"context"
	"net/http"

	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/settlement-backend-go/internal/handler/http/response"
	"github.com/go-chi/jwtauth/v5"
)

type actorKey struct{}

// AuthRequired accepts verified access tokens and puts the caller's actor on
// the request context.
func AuthRequired(ja *jwtauth.JWTAuth) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		hfn := func(w http.ResponseWriter, r *http.Request) {
			token, claims, err := jwtauth.FromContext(r.Context())
			if err != nil {
				response.Unauthorized(w, err.Error())
				return
			}
			if token == nil {
				response.Unauthorized(w, "Missing token")
				return
			}

			tokenType, ok := claims["type"].(string)
			if tokenType != "access" || !ok {
				response.Unauthorized(w, "Invalid token type")
				return
			}

			actor, err := actorFromClaims(claims)
			if err != nil {
				response.HandleError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		}
		return http.HandlerFunc(hfn)
	}
}

func actorFromClaims(claims map[string]interface{}) (user.Actor, error) {
	userID, _ := claims["user_id"].(string)
	businessID, _ := claims["business_id"].(string)
	role, _ := claims["role"].(string)

	switch {
	case userID == "":
		return user.Actor{}, user.ErrUserIDRequired
	case businessID == "":
		return user.Actor{}, user.ErrBusinessIDRequired
	case !user.Role(role).IsValid():
		return user.Actor{}, user.ErrInvalidRole
	}
	return user.Actor{UserID: userID, BusinessID: businessID, Role: user.Role(role)}, nil
}

// ActorFromContext returns the actor stored by AuthRequired.
func ActorFromContext(ctx context.Context) (user.Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(user.Actor)
	return actor, ok
}

// WithActor stores actor on ctx.
func WithActor(ctx context.Context, actor user.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}
