// Package middleware provides the HTTP middleware of the query server.
//
// Every middleware has the shape func(http.Handler) http.Handler and is
// applied outermost first:
//
//	handler := middleware.Chain(mux,
//		middleware.PanicRecovery(logger),
//		middleware.RequestID(),
//		middleware.Logging(logger),
//		middleware.Metrics(registry),
//		middleware.CORS(middleware.DefaultCORSConfig()),
//	)
package middleware

import "net/http"

// Middleware wraps a handler
type Middleware func(http.Handler) http.Handler

// Chain applies middlewares to h so that the first one runs first
func Chain(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}
