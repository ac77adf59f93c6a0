package main

// auth.go authenticates requests that carry a JWT bearer token

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/andrewwphillips/gqlview/example/notes"
	"github.com/andrewwphillips/gqlview/settings"
)

const bearerPrefix = "Bearer "

// authHandler gets the user from the JWT in the Authorization header and adds it to the request
// context so resolvers can check who is logged in.  Requests without a token are anonymous but a token
// that is not valid is rejected.
type authHandler struct {
	inner  http.Handler
	secret []byte
	issuer string
	log    *zap.Logger
}

func newAuthHandler(inner http.Handler, auth settings.Auth, log *zap.Logger) http.Handler {
	if auth.JWTSecret == "" {
		return inner
	}
	return &authHandler{inner: inner, secret: []byte(auth.JWTSecret), issuer: auth.Issuer, log: log}
}

func (h *authHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	hdr := r.Header.Get("Authorization")
	if !strings.HasPrefix(hdr, bearerPrefix) {
		h.inner.ServeHTTP(w, r) // no token
		return
	}
	user, err := h.user(hdr[len(bearerPrefix):])
	if err != nil {
		h.log.Info("bearer token rejected", zap.Error(err))
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"errors":[{"message":"invalid bearer token"}]}`))
		return
	}
	h.inner.ServeHTTP(w, r.WithContext(notes.WithUser(r.Context(), user)))
}

// user validates the token returning its subject
func (h *authHandler) user(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return h.secret, nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", errors.New("token not valid")
	}
	if h.issuer != "" && !claims.VerifyIssuer(h.issuer, true) {
		return "", errors.Errorf("unexpected issuer %q", claims.Issuer)
	}
	if claims.Subject == "" {
		return "", errors.New("token has no subject")
	}
	return claims.Subject, nil
}

// newToken returns a signed token for the user that expires after ttl
func newToken(auth settings.Auth, user string, ttl time.Duration) (string, error) {
	if auth.JWTSecret == "" {
		return "", errors.New("a JWT secret is required to sign tokens")
	}
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   user,
		Issuer:    auth.Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	})
	return token.SignedString([]byte(auth.JWTSecret))
}
