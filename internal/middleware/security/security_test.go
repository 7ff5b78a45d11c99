package security

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientIP_Extract(t *testing.T) {
	c := NewClientIP()

	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{"direct public peer", "203.0.113.7:4242", map[string]string{"X-Forwarded-For": "198.51.100.1"}, "203.0.113.7"},
		{"trusted proxy forwards", "10.0.0.2:80", map[string]string{"X-Forwarded-For": "198.51.100.1, 10.0.0.9"}, "198.51.100.1"},
		{"trusted proxy real ip", "127.0.0.1:80", map[string]string{"X-Real-IP": "198.51.100.2"}, "198.51.100.2"},
		{"garbage forwarded header", "127.0.0.1:80", map[string]string{"X-Forwarded-For": "not-an-ip"}, "127.0.0.1"},
		{"no port", "198.51.100.3", nil, "198.51.100.3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, c.Extract(req))
		})
	}

	assert.Error(t, c.AddTrustedProxy("nope"))
	assert.NoError(t, c.AddTrustedProxy("203.0.113.0/24"))
}

func TestHeaders(t *testing.T) {
	h := Headers(DefaultHeadersConfig())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))
}
