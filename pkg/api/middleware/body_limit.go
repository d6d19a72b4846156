package middleware

import (
	"net/http"
)

// DefaultMaxBodyBytes bounds GraphQL request bodies
const DefaultMaxBodyBytes int64 = 1 << 20

// BodySizeLimit rejects bodies larger than maxBytes. Declared lengths are
// rejected up front; chunked bodies fail when the handler reads past the limit.
func BodySizeLimit(maxBytes int64) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				http.Error(w, "Request body too large", http.StatusRequestEntityTooLarge)
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
