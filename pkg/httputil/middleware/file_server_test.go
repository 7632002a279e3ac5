package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
)

func TestStatic(t *testing.T) {
	fsys := fstest.MapFS{
		"index.html":    {Data: []byte("<html>console</html>")},
		"assets/app.js": {Data: []byte("console.log(1)")},
	}

	tests := []struct {
		name        string
		path        string
		spa         bool
		status      int
		body        string
		contentType string
	}{
		{"root", "/", false, http.StatusOK, "<html>console</html>", "text/html"},
		{"asset", "/assets/app.js", false, http.StatusOK, "console.log(1)", ""},
		{"missing without fallback", "/configuration/KC_SNK/", false, http.StatusNotFound, "", ""},
		{"missing with fallback", "/configuration/KC_SNK/", true, http.StatusOK, "<html>console</html>", "text/html"},
		{"directory with fallback", "/assets", true, http.StatusOK, "<html>console</html>", "text/html"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serve(Static(fsys, tt.spa), httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.status, rr.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, rr.Body.String())
				assert.Contains(t, rr.Header().Get("Content-Type"), tt.contentType)
			}
		})
	}
}

func TestChainOrder(t *testing.T) {
	var order []string
	mark := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { order = append(order, "handler") }), mark("a"), mark("b"))
	serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"a", "b", "handler"}, order)
}
