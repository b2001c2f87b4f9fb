package httpclient

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAuthConfig_Apply(t *testing.T) {
	tests := []struct {
		name   string
		auth   *AuthConfig
		header string
		value  string
		query  string
	}{
		{name: "bearer", auth: BearerAuth("sk-test"), header: "Authorization", value: "Bearer sk-test"},
		{name: "header key", auth: APIKeyAuthHeader("ak", "x-api-key"), header: "X-Api-Key", value: "ak"},
		{name: "default header name", auth: &AuthConfig{Token: "ak"}, header: "X-API-Key", value: "ak"},
		{name: "custom scheme", auth: &AuthConfig{Token: "t", Header: "Authorization", Scheme: "Token"}, header: "Authorization", value: "Token t"},
		{name: "query key", auth: APIKeyAuthQuery("gk", "key"), query: "key=gk"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "http://backend.local/v1/models", http.NoBody)
			tt.auth.apply(req)
			if tt.header != "" {
				assert.Equal(t, tt.value, req.Header.Get(tt.header))
			}
			assert.Equal(t, tt.query, req.URL.RawQuery)
		})
	}
}

func TestAuthConfig_NoCredentials(t *testing.T) {
	for name, auth := range map[string]*AuthConfig{
		"nil":         nil,
		"empty key":   APIKeyAuthQuery("", "key"),
		"empty token": BearerAuth(""),
	} {
		req := httptest.NewRequest(http.MethodGet, "http://backend.local/health", http.NoBody)
		auth.apply(req)
		assert.Empty(t, req.Header, name)
		assert.Empty(t, req.URL.RawQuery, name)
	}
}
