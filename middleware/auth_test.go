package middleware

import (
	"apparel-studio/handlers/auth"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAuthJWT(t *testing.T) {
	auth.SetSecret("middleware-secret")
	token, err := auth.CreateJWT(auth.User{Subject: "github:7", Login: "seven"})
	if err != nil {
		t.Fatal(err)
	}

	var (
		gotSubject string
		gotToken   string
	)
	handler := AuthJWT(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := Claims(r)
		if !ok {
			t.Fatal("claims missing from context")
		}
		gotSubject = claims.Subject
		gotToken = Token(r)
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + token, http.StatusUnauthorized},
		{"malformed", "Bearer", http.StatusUnauthorized},
		{"invalid token", "Bearer nope", http.StatusUnauthorized},
		{"valid", "Bearer " + token, http.StatusNoContent},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			if rr.Code != tc.want {
				t.Errorf("status = %d, want %d", rr.Code, tc.want)
			}
		})
	}

	if gotSubject != "github:7" || gotToken != token {
		t.Errorf("handler saw subject %q token %q", gotSubject, gotToken)
	}
}
