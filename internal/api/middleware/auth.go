package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/stratumhq/stratum/internal/api"
)

type contextKey string

const APIKeyNameKey contextKey = "api_key_name"

type AuthValidator interface {
	ValidateAPIKey(ctx context.Context, token string) (string, error)
}

func APIKeyAuth(validator AuthValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				api.Error(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			if !strings.HasPrefix(authHeader, "Bearer ") {
				api.Error(w, http.StatusUnauthorized, "invalid authorization format")
				return
			}

			token := strings.TrimPrefix(authHeader, "Bearer ")

			keyName, err := validator.ValidateAPIKey(r.Context(), token)
			if err != nil {
				api.Error(w, http.StatusUnauthorized, "invalid api key")
				return
			}

			ctx := context.WithValue(r.Context(), APIKeyNameKey, keyName)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetAPIKeyName returns the authenticated key's name from context.
func GetAPIKeyName(ctx context.Context) string {
	keyName, _ := ctx.Value(APIKeyNameKey).(string)
	return keyName
}
