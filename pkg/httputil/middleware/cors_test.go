package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCORSWithOptions(t *testing.T) {
	tests := []struct {
		options         *CORSOptions
		expectedHeaders map[string]string
		name            string
		method          string
		origin          string
		expectedStatus  int
	}{
		{
			name:    "default options",
			method:  http.MethodGet,
			options: nil,
			expectedHeaders: map[string]string{
				"Access-Control-Allow-Origin":  "*",
				"Access-Control-Allow-Methods": "GET,POST,PUT,DELETE,OPTIONS",
				"Access-Control-Allow-Headers": "Content-Type,Accept,Origin,Cache-Control,X-Request-Id",
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:   "matching origin is echoed",
			method: http.MethodGet,
			origin: "http://console.local",
			options: &CORSOptions{
				AllowedOrigins:   []string{"http://console.local"},
				AllowedMethods:   []string{"GET"},
				AllowCredentials: true,
			},
			expectedHeaders: map[string]string{
				"Access-Control-Allow-Origin":      "http://console.local",
				"Access-Control-Allow-Credentials": "true",
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:   "other origin is not allowed",
			method: http.MethodGet,
			origin: "http://evil.local",
			options: &CORSOptions{
				AllowedOrigins: []string{"http://console.local"},
			},
			expectedHeaders: map[string]string{
				"Access-Control-Allow-Origin": "",
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:    "empty options",
			method:  http.MethodGet,
			options: &CORSOptions{},
			expectedHeaders: map[string]string{
				"Access-Control-Allow-Origin":  "",
				"Access-Control-Allow-Methods": "",
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "preflight request",
			method:         http.MethodOptions,
			options:        nil,
			expectedStatus: http.StatusNoContent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "http://example.com", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			handler := CORSWithOptions(tt.options)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			rr := serve(handler, req)
			for header, expected := range tt.expectedHeaders {
				assert.Equal(t, expected, rr.Header().Get(header), header)
			}
			assert.Equal(t, tt.expectedStatus, rr.Code)
		})
	}
}
