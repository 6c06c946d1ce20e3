package web

import (
	"context"
	"net/http"
	"strings"
)

type ownerKey struct{}

// bearer extracts the token from the Authorization header, or from the
// "token" query parameter for websocket clients that cannot set headers.
func bearer(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

// requireAuth rejects requests without a valid token and stores the owner in
// the request context.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner, ok := s.arena.Tokens().Owner(bearer(r))
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing or invalid token")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ownerKey{}, owner)))
	})
}

func ownerFrom(r *http.Request) string {
	o, _ := r.Context().Value(ownerKey{}).(string)
	return o
}
