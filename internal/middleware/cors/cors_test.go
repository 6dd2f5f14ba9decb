package cors

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddleware(t *testing.T) {
	tests := []struct {
		name        string
		allowed     []string
		method      string
		origin      string
		wantOrigin  string
		wantStatus  int
		wantHandler bool
	}{
		{
			name:        "allowed origin",
			allowed:     []string{"http://localhost:3000"},
			method:      http.MethodGet,
			origin:      "http://localhost:3000",
			wantOrigin:  "http://localhost:3000",
			wantStatus:  http.StatusOK,
			wantHandler: true,
		},
		{
			name:        "allowed origin with trailing slash in config",
			allowed:     []string{"http://localhost:3000/"},
			method:      http.MethodGet,
			origin:      "http://localhost:3000",
			wantOrigin:  "http://localhost:3000",
			wantStatus:  http.StatusOK,
			wantHandler: true,
		},
		{
			name:        "wildcard",
			allowed:     []string{"*"},
			method:      http.MethodGet,
			origin:      "https://rp.example.com",
			wantOrigin:  "https://rp.example.com",
			wantStatus:  http.StatusOK,
			wantHandler: true,
		},
		{
			name:        "foreign origin gets no headers",
			allowed:     []string{"http://localhost:3000"},
			method:      http.MethodGet,
			origin:      "https://evil.example.com",
			wantStatus:  http.StatusOK,
			wantHandler: true,
		},
		{
			name:        "no origin",
			allowed:     []string{"http://localhost:3000"},
			method:      http.MethodGet,
			wantStatus:  http.StatusOK,
			wantHandler: true,
		},
		{
			name:       "preflight from allowed origin",
			allowed:    []string{"http://localhost:3000"},
			method:     http.MethodOptions,
			origin:     "http://localhost:3000",
			wantOrigin: "http://localhost:3000",
			wantStatus: http.StatusNoContent,
		},
		{
			name:       "preflight from foreign origin",
			allowed:    []string{"http://localhost:3000"},
			method:     http.MethodOptions,
			origin:     "https://evil.example.com",
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "preflight without origin",
			allowed:    []string{"*"},
			method:     http.MethodOptions,
			wantStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var called bool
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				origin, err := OriginFromContext(r.Context())
				if tt.wantOrigin != "" {
					require.NoError(t, err)
					assert.Equal(t, tt.wantOrigin, origin)
				} else {
					assert.Error(t, err)
				}
			})

			req := httptest.NewRequest(tt.method, "/api/auth/init", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			rec := httptest.NewRecorder()

			Middleware(tt.allowed)(next).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantHandler, called)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
			if tt.wantOrigin != "" {
				assert.Equal(t, allowMethods, rec.Header().Get("Access-Control-Allow-Methods"))
			}
		})
	}
}
