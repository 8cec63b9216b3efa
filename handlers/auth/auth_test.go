package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestCreateAndParseJWT(t *testing.T) {
	SetSecret("test-secret")

	token, err := CreateJWT(User{Subject: "github:42", Login: "octo", Name: "Octo Cat"})
	if err != nil {
		t.Fatalf("CreateJWT failed: %v", err)
	}
	claims, err := ParseJWT(token)
	if err != nil {
		t.Fatalf("ParseJWT failed: %v", err)
	}
	if claims.Subject != "github:42" || claims.Login != "octo" {
		t.Errorf("unexpected claims %+v", claims)
	}
	if exp := claims.ExpiresAt.Time; time.Until(exp) < TokenLifetime-time.Minute {
		t.Errorf("token expires too early: %v", exp)
	}
}

func TestParseJWTRejects(t *testing.T) {
	SetSecret("test-secret")

	signed := func(secret string, method jwt.SigningMethod, claims AppClaims) string {
		s, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
		if err != nil {
			t.Fatal(err)
		}
		return s
	}
	valid := AppClaims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "github:1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	expired := AppClaims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "github:1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}}

	cases := map[string]string{
		"garbage":      "not-a-token",
		"wrong secret": signed("other", jwt.SigningMethodHS256, valid),
		"expired":      signed("test-secret", jwt.SigningMethodHS256, expired),
		"no subject":   signed("test-secret", jwt.SigningMethodHS256, AppClaims{}),
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseJWT(token); err == nil {
				t.Error("expected token to be rejected")
			}
		})
	}
}

func TestUnconfiguredSecret(t *testing.T) {
	SetSecret("")
	if _, err := CreateJWT(User{Subject: "x"}); err == nil {
		t.Error("CreateJWT must fail without a secret")
	}
	if _, err := ParseJWT("a.b.c"); err == nil {
		t.Error("ParseJWT must fail without a secret")
	}
}
