// Package auth signs and verifies the bearer tokens that scope drafts and
// order submissions to a customer.
package auth

import (
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

var jwtSecret []byte

// TokenLifetime is how long an issued token stays valid.
const TokenLifetime = 7 * 24 * time.Hour

// AppClaims represents the custom claims for the JWT.
type AppClaims struct {
	jwt.RegisteredClaims
	Login string `json:"login"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name"`
}

// User identifies the customer a token is issued for.
type User struct {
	Subject string
	Login   string
	Email   string
	Name    string
}

// InitAuth reads the signing secret from JWT_SECRET.
func InitAuth() {
	SetSecret(os.Getenv("JWT_SECRET"))
	if len(jwtSecret) == 0 {
		logrus.Warn("JWT_SECRET is not set. Authentication will not work.")
	}
}

func SetSecret(secret string) {
	jwtSecret = []byte(secret)
}

func CreateJWT(user User) (string, error) {
	if len(jwtSecret) == 0 {
		return "", fmt.Errorf("JWT secret is not configured")
	}
	now := time.Now()
	claims := AppClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenLifetime)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Login: user.Login,
		Email: user.Email,
		Name:  user.Name,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret)
}

func ParseJWT(tokenString string) (*AppClaims, error) {
	if len(jwtSecret) == 0 {
		return nil, fmt.Errorf("JWT secret is not configured")
	}
	token, err := jwt.ParseWithClaims(tokenString, &AppClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return jwtSecret, nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*AppClaims); ok && token.Valid {
		if claims.Subject == "" {
			return nil, fmt.Errorf("token has no subject")
		}
		return claims, nil
	}

	return nil, fmt.Errorf("invalid token")
}
