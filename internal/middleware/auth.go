package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/timevault/timevault-go/internal/crypto"
	"github.com/timevault/timevault-go/internal/model"
)

type contextKey string

const actorKey contextKey = "actor"

// Actor is the authenticated identity performing a request. It is threaded
// explicitly through the context by JWTAuth; the core never consults ambient
// session state.
type Actor struct {
	ID   int64
	Role string
}

// JWTAuth returns middleware that validates a Bearer token from the
// Authorization header and injects the actor into the request context.
func JWTAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeJSONError(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			token, found := strings.CutPrefix(authHeader, "Bearer ")
			if !found || token == "" {
				writeJSONError(w, http.StatusUnauthorized, "invalid authorization format")
				return
			}

			claims, err := crypto.ValidateToken(token, secret)
			if err != nil {
				writeJSONError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			actor := Actor{ID: claims.UserID, Role: claims.Role}
			ctx := context.WithValue(r.Context(), actorKey, actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin returns middleware that rejects non-admin tokens. The service
// layer still re-checks the user directory, so a stale token role can gate a
// route but never authorize a moderation write on its own.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFromContext(r.Context())
		if !ok || actor.Role != model.RoleAdmin {
			writeJSONError(w, http.StatusForbidden, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ActorFromContext extracts the authenticated actor from the request context.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorKey).(Actor)
	return actor, ok
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
