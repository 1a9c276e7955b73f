package daemon

import (
	"crypto/subtle"
	"io"
	"net/http"
	"strings"
)

const bearerPrefix = "Bearer "

// requireToken guards a mutating handler behind bearer-token auth. With an
// empty token the control surface stays open and the handler is returned
// unwrapped.
func requireToken(token string, next http.HandlerFunc) http.HandlerFunc {
	if token == "" {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		presented, ok := strings.CutPrefix(r.Header.Get("Authorization"), bearerPrefix)
		if !ok || subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			io.WriteString(w, `{"error":"unauthorized"}`+"\n") //nolint:errcheck
			return
		}
		next(w, r)
	}
}
