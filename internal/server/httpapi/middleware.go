package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	nanoid "github.com/matoous/go-nanoid/v2"
)

type ctxKey string

const (
	identityKeyCtx ctxKey = "identityKey"
	requestIDCtx   ctxKey = "requestID"
)

// withRequestID tags every request with a short random id, echoed in the
// X-Request-Id response header and attached to the request context for logs.
func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := nanoid.New(10)
		if err != nil {
			id = "unknown"
		}
		w.Header().Set("X-Request-Id", id)
		ctx := context.WithValue(r.Context(), requestIDCtx, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAuth validates the bearer token and stores the authenticated
// identity key in the request context. Missing, malformed, expired, and
// tampered tokens all produce the same generic 401.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeUnauthorized(w)
			return
		}

		key, err := s.identities.ValidateToken(token)
		if err != nil {
			writeUnauthorized(w)
			return
		}

		ctx := context.WithValue(r.Context(), identityKeyCtx, key)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// identityKeyFrom returns the authenticated identity key stored by requireAuth.
func identityKeyFrom(ctx context.Context) (string, bool) {
	key, ok := ctx.Value(identityKeyCtx).(string)
	return key, ok
}

// requestIDFrom returns the request id assigned by withRequestID.
func requestIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDCtx).(string); ok {
		return id
	}
	return ""
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeUnauthorized writes the uniform authentication failure: a generic
// message plus the bearer challenge header. The cause is never distinguished.
func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeError(w, http.StatusUnauthorized, "could not validate credentials")
}
