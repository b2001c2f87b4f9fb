// Package rest adds typed JSON calls on top of httpclient.Client.
//
//	client, _ := rest.New(httpclient.Config{BaseURL: "http://localhost:8080"})
//	resp, err := rest.Post[tgiResponse](ctx, client, "/generate", body)
//
// Every dialect in llm decodes backend responses through Post[json.RawMessage].
package rest
