package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// bearerAuths maps a token key to the expected token. An empty token disables the authentication.
var bearerAuths map[string]string

const (
	// AuthorizationHeader is the header key to get the authorization token
	AuthorizationHeader = "authorization"
	tokenPrefix         = "Bearer "
)

// BearerAuthenticate rejects the requests on the api routes without a valid bearer token.
// The root path stays public as a health check.
func BearerAuthenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "" && r.URL.Path != "/" && r.Method != http.MethodOptions {
			if err := authenticate("default", r.Header.Get(AuthorizationHeader)); err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

func authenticate(tokenKey string, header string) error {
	if bearerAuths == nil {
		return fmt.Errorf("fatal error: no auth info found")
	}
	expected := bearerAuths[tokenKey]
	if expected == "" {
		return nil
	}
	switch {
	case header == "":
		return fmt.Errorf("token not found")
	case !strings.HasPrefix(header, tokenPrefix):
		return fmt.Errorf(`missing "%s" prefix`, strings.TrimSpace(tokenPrefix))
	case strings.TrimPrefix(header, tokenPrefix) != expected:
		return fmt.Errorf("invalid token")
	}
	return nil
}
