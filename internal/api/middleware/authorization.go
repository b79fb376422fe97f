package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	authsvc "chat-app/internal/service/auth"
)

type identityKey struct{}

// IdentityResolver turns an Authorization header into a caller identity.
type IdentityResolver interface {
	IdentityFromAuthorizationHeader(header string) (authsvc.Identity, error)
}

// RequireIdentity rejects requests without a valid bearer token and stores
// the resolved identity on the request context.
func RequireIdentity(resolver IdentityResolver) Middleware {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			identity, err := resolver.IdentityFromAuthorizationHeader(r.Header.Get("Authorization"))
			if err != nil {
				message := "Unauthorized"
				if svcErr, ok := err.(*authsvc.Error); ok {
					message = svcErr.Message
				}
				writeUnauthorized(w, message)
				return
			}

			next(w, r.WithContext(WithIdentity(r.Context(), identity)))
		}
	}
}

func WithIdentity(ctx context.Context, identity authsvc.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

func IdentityFromContext(ctx context.Context) (authsvc.Identity, bool) {
	identity, ok := ctx.Value(identityKey{}).(authsvc.Identity)
	return identity, ok
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": message})
}
