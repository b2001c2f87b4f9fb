// Package httpclient is the transport underneath every HTTP model backend.
//
// A Client carries one backend's base URL, credentials, TLS settings and
// resilience policy (retry, circuit breaker, rate limiter). Errors are
// classified by status code so callers can tell a rejected prompt (4xx)
// from an overloaded backend (429, 5xx):
//
//	client, err := httpclient.New(httpclient.Config{
//	    Name:    "groq",
//	    BaseURL: "https://api.groq.com/openai/v1",
//	    Auth:    httpclient.BearerAuth(os.Getenv("GROQ_API_KEY")),
//	    Retry:   httpclient.RateLimitRetryConfig(5, 12*time.Second),
//	})
//
// Subpackages:
//
//   - rest: typed JSON helpers (rest.Post[T]) over a Client
//   - sse: Server-Sent Events reader for streamed completions
package httpclient
