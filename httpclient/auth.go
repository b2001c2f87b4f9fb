package httpclient

import "net/http"

// AuthConfig places a credential on each request: in a header, optionally
// behind a scheme prefix, or in a query parameter.
type AuthConfig struct {
	Token string
	// Header defaults to X-API-Key when Query is empty.
	Header string
	// Scheme is written before the token, e.g. "Bearer".
	Scheme string
	// Query sends the token as this query parameter instead of a header.
	Query string
}

// BearerAuth sends "Authorization: Bearer <token>" (OpenAI, Groq, SambaNova).
func BearerAuth(token string) *AuthConfig {
	return &AuthConfig{Token: token, Header: "Authorization", Scheme: "Bearer"}
}

// APIKeyAuthHeader sends key as the value of header.
func APIKeyAuthHeader(key, header string) *AuthConfig {
	return &AuthConfig{Token: key, Header: header}
}

// APIKeyAuthQuery sends key as a query parameter, e.g. Gemini's ?key=.
func APIKeyAuthQuery(key, param string) *AuthConfig {
	return &AuthConfig{Token: key, Query: param}
}

// apply is a no-op for a nil config or an empty token.
func (a *AuthConfig) apply(req *http.Request) {
	if a == nil || a.Token == "" {
		return
	}
	if a.Query != "" {
		q := req.URL.Query()
		q.Set(a.Query, a.Token)
		req.URL.RawQuery = q.Encode()
		return
	}
	value := a.Token
	if a.Scheme != "" {
		value = a.Scheme + " " + value
	}
	header := a.Header
	if header == "" {
		header = "X-API-Key"
	}
	req.Header.Set(header, value)
}
