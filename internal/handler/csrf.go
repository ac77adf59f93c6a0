package handler

// csrf.go makes sure every response sets a CSRF cookie (used by the GraphiQL page and browser clients)

import (
	"crypto/rand"
	"math/big"
	"net/http"
)

const (
	csrfTokenLength = 32
	csrfCookieAge   = 60 * 60 * 24 * 7 * 52 // one year
	csrfChars       = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// ensureCSRFCookie sets the CSRF cookie, keeping the client's token if it has a valid one
func (h *Handler) ensureCSRFCookie(w http.ResponseWriter, r *http.Request) {
	token := ""
	if c, err := r.Cookie(h.csrfCookie); err == nil && validCSRFToken(c.Value) {
		token = c.Value
	} else {
		token = newCSRFToken()
	}
	http.SetCookie(w, &http.Cookie{
		Name:     h.csrfCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   csrfCookieAge,
		SameSite: http.SameSiteLaxMode,
	})
	w.Header().Add("Vary", "Cookie")
}

// validCSRFToken checks the token is a secret (32 chars) or masked secret (64 chars) of allowed characters
func validCSRFToken(token string) bool {
	if len(token) != csrfTokenLength && len(token) != 2*csrfTokenLength {
		return false
	}
	for _, c := range token {
		if !('a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9') {
			return false
		}
	}
	return true
}

func newCSRFToken() string {
	max := big.NewInt(int64(len(csrfChars)))
	b := make([]byte, csrfTokenLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic("gqlview: unable to generate CSRF token: " + err.Error())
		}
		b[i] = csrfChars[n.Int64()]
	}
	return string(b)
}
