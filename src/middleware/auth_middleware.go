package middleware

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"pocketbook-server/src/db"
	"pocketbook-server/src/models"
	"pocketbook-server/src/util"
)

type contextKey string

const (
	ownerKey contextKey = "owner"
	userKey  contextKey = "user"
)

// WithOwner returns a copy of ctx carrying the owner of the request.
func WithOwner(ctx context.Context, owner models.Owner) context.Context {
	return context.WithValue(ctx, ownerKey, owner)
}

// OwnerFromContext returns the request owner, or models.AnyOwner when the
// request went through no authentication.
func OwnerFromContext(ctx context.Context) models.Owner {
	owner, ok := ctx.Value(ownerKey).(models.Owner)
	if !ok {
		return models.AnyOwner
	}
	return owner
}

func UserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(userKey).(*models.User)
	return user, ok
}

// BearerToken extracts the token of an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// JWTAuthMiddleware authenticates the bearer token and loads its user, through
// the cache when possible. Deleted users are rejected like bad tokens and
// locked users get 403.
func JWTAuthMiddleware(users db.UserStore, cache *db.UserCache, secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := BearerToken(r)
			if !ok {
				http.Error(w, "missing token", http.StatusUnauthorized)
				return
			}

			claims, err := util.ParseToken(secret, raw)
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			user, ok := cache.Get(claims.UserID)
			if !ok {
				user, err = users.GetUserByID(r.Context(), claims.UserID)
				if err != nil {
					if errors.Is(err, db.ErrNotFound) {
						http.Error(w, "invalid token", http.StatusUnauthorized)
						return
					}
					log.Printf("ERROR: Failed to load user %d for token: %v", claims.UserID, err)
					http.Error(w, "internal error", http.StatusInternalServerError)
					return
				}
				cache.Set(user)
			}

			if user.Locked {
				log.Printf("ERROR: Locked user %d attempted access to %s", user.ID, r.URL.Path)
				http.Error(w, "User account is locked", http.StatusForbidden)
				return
			}

			ctx := WithOwner(r.Context(), models.Owner(user.ID))
			ctx = context.WithValue(ctx, userKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
