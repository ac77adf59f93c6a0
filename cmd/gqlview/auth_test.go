package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/andrewwphillips/gqlview/example/notes"
	"github.com/andrewwphillips/gqlview/settings"
)

func TestAuthHandler(t *testing.T) {
	auth := settings.Auth{JWTSecret: "s3cret", Issuer: "gqlview-test"}
	valid, err := newToken(auth, "al", time.Hour)
	require.NoError(t, err)
	otherIssuer, err := newToken(settings.Auth{JWTSecret: "s3cret", Issuer: "other"}, "al", time.Hour)
	require.NoError(t, err)
	otherSecret, err := newToken(settings.Auth{JWTSecret: "wrong", Issuer: "gqlview-test"}, "al", time.Hour)
	require.NoError(t, err)
	expired, err := newToken(auth, "al", -time.Minute)
	require.NoError(t, err)
	noSubject, err := newToken(auth, "", time.Hour)
	require.NoError(t, err)
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "al"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := map[string]struct {
		header string
		status int
		user   string
	}{
		"NoHeader":    {"", http.StatusOK, ""},
		"Basic":       {"Basic YWw6cHc=", http.StatusOK, ""},
		"Valid":       {"Bearer " + valid, http.StatusOK, "al"},
		"OtherIssuer": {"Bearer " + otherIssuer, http.StatusUnauthorized, ""},
		"OtherSecret": {"Bearer " + otherSecret, http.StatusUnauthorized, ""},
		"Expired":     {"Bearer " + expired, http.StatusUnauthorized, ""},
		"NoSubject":   {"Bearer " + noSubject, http.StatusUnauthorized, ""},
		"NoneAlg":     {"Bearer " + none, http.StatusUnauthorized, ""},
		"Garbage":     {"Bearer abc", http.StatusUnauthorized, ""},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			var user string
			inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				user = notes.User(r.Context())
			})
			r := httptest.NewRequest(http.MethodGet, "/graphql", nil)
			if test.header != "" {
				r.Header.Set("Authorization", test.header)
			}
			w := httptest.NewRecorder()
			newAuthHandler(inner, auth, zap.NewNop()).ServeHTTP(w, r)

			assert.Equal(t, test.status, w.Code)
			assert.Equal(t, test.user, user)
		})
	}
}

func TestAuthDisabled(t *testing.T) {
	inner := http.NewServeMux()
	assert.Same(t, inner, newAuthHandler(inner, settings.Auth{}, zap.NewNop()))

	_, err := newToken(settings.Auth{}, "al", time.Hour)
	assert.Error(t, err)
}
