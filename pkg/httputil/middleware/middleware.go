package middleware

import (
	"net/http"

	"github.com/edgeflare/replica/pkg/httputil"
)

// Chain wraps h with the given middlewares. The first middleware is the outermost wrapper.
func Chain(h http.Handler, middlewares ...httputil.Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}
