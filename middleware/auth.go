package middleware

import (
	"apparel-studio/handlers/auth"
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/render"
)

type contextKey string

const (
	ClaimsContextKey = contextKey("claims")
	TokenContextKey  = contextKey("token")
)

func AuthJWT(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, map[string]string{"error": "Authorization header is required"})
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, map[string]string{"error": "Authorization header format must be Bearer {token}"})
			return
		}

		tokenString := parts[1]
		claims, err := auth.ParseJWT(tokenString)
		if err != nil {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, map[string]string{"error": "Invalid token"})
			return
		}

		ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
		ctx = context.WithValue(ctx, TokenContextKey, tokenString)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Claims returns the verified claims AuthJWT stored on the request.
func Claims(r *http.Request) (*auth.AppClaims, bool) {
	claims, ok := r.Context().Value(ClaimsContextKey).(*auth.AppClaims)
	return claims, ok
}

// Token returns the raw bearer token, for forwarding to the order service.
func Token(r *http.Request) string {
	token, _ := r.Context().Value(TokenContextKey).(string)
	return token
}
