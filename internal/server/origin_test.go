package server

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOriginPolicy(t *testing.T) {
	policy := newOriginPolicy([]string{"http://localhost:8080", "HTTPS://App.Example.com", "not a url"}, newTestLogger())

	tests := []struct {
		name   string
		origin string
		want   bool
	}{
		{"Allowed origin", "http://localhost:8080", true},
		{"Case insensitive", "https://app.example.com", true},
		{"Path is ignored", "https://app.example.com/chat", true},
		{"Different port", "http://localhost:3000", false},
		{"Different scheme", "https://localhost:8080", false},
		{"Missing origin", "", false},
		{"Malformed origin", "localhost", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/ws", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			require.Equal(t, tt.want, policy.checkOrigin(r))
		})
	}
}

func TestOriginPolicyWildcard(t *testing.T) {
	req := require.New(t)
	policy := newOriginPolicy([]string{"*"}, newTestLogger())

	r := httptest.NewRequest("GET", "/ws", nil)
	r.Header.Set("Origin", "https://anywhere.example")
	req.True(policy.allows(r))

	r.Header.Del("Origin")
	req.False(policy.allows(r))
}
