// Package auth guards the HTTP facade with a single API key stored as a
// bcrypt hash.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrMissingKey   = errors.New("missing API key")
)

type APIKeyAuthenticator struct {
	hash []byte
}

// NewAPIKeyAuthenticator checks that hash is a usable bcrypt hash.
func NewAPIKeyAuthenticator(hash string) (*APIKeyAuthenticator, error) {
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return nil, fmt.Errorf("invalid API key hash: %w", err)
	}
	return &APIKeyAuthenticator{hash: []byte(hash)}, nil
}

func (a *APIKeyAuthenticator) Authenticate(key string) error {
	if key == "" {
		return ErrMissingKey
	}
	if err := bcrypt.CompareHashAndPassword(a.hash, []byte(key)); err != nil {
		return ErrUnauthorized
	}
	return nil
}

// RequireAPIKey rejects requests without a matching bearer token.
func (a *APIKeyAuthenticator) RequireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := a.Authenticate(ExtractBearerToken(r)); err != nil {
			w.Header().Set("WWW-Authenticate", `Bearer realm="bigboost-gateway"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func HashKey(key string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func ExtractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}
