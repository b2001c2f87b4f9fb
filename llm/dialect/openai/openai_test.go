package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kbukum/modelkit/httpclient"
	"github.com/kbukum/modelkit/llm"
)

func TestDialect_Registered(t *testing.T) {
	d, err := llm.GetDialect(Name)
	if err != nil {
		t.Fatalf("GetDialect() error: %v", err)
	}
	if d.Name() != Name {
		t.Errorf("Name() = %q", d.Name())
	}
	if d.Path(llm.CompletionRequest{}) != "/chat/completions" {
		t.Errorf("Path() = %q", d.Path(llm.CompletionRequest{}))
	}
	if d.StreamFormat() != llm.StreamSSE {
		t.Error("expected SSE stream format")
	}
}

func TestDialect_BuildRequest(t *testing.T) {
	d := &Dialect{}
	body, err := d.BuildRequest(llm.CompletionRequest{
		Model:        "llama3-70b-8192",
		SystemPrompt: "You are a helpful AI assistant.",
		Prompt:       "hello",
		Temperature:  0.7,
		TopP:         0.8,
		MaxTokens:    256,
	})
	if err != nil {
		t.Fatalf("BuildRequest() error: %v", err)
	}
	raw, _ := json.Marshal(body)
	var got map[string]any
	_ = json.Unmarshal(raw, &got)

	if got["model"] != "llama3-70b-8192" {
		t.Errorf("model = %v", got["model"])
	}
	if got["top_p"] != 0.8 || got["max_tokens"] != float64(256) {
		t.Errorf("sampling = %v / %v", got["top_p"], got["max_tokens"])
	}
	msgs := got["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("messages = %d, want 2", len(msgs))
	}
	if msgs[0].(map[string]any)["role"] != "system" || msgs[1].(map[string]any)["content"] != "hello" {
		t.Errorf("messages = %v", msgs)
	}
	if got["stream"] != false {
		t.Errorf("stream = %v", got["stream"])
	}
}

func TestDialect_BuildRequest_Empty(t *testing.T) {
	if _, err := (&Dialect{}).BuildRequest(llm.CompletionRequest{}); err == nil {
		t.Error("expected error for empty request")
	}
}

func TestDialect_ParseResponse(t *testing.T) {
	d := &Dialect{}
	resp, err := d.ParseResponse([]byte(`{
		"model": "gpt-3.5-turbo",
		"choices": [{"message": {"role": "assistant", "content": "Paris"}, "finish_reason": "stop"}],
		"usage": {"prompt_tokens": 5, "completion_tokens": 1, "total_tokens": 6}
	}`))
	if err != nil {
		t.Fatalf("ParseResponse() error: %v", err)
	}
	if resp.Content != "Paris" || resp.FinishReason != "stop" || resp.Usage.TotalTokens != 6 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestDialect_ParseResponse_NoChoices(t *testing.T) {
	_, err := (&Dialect{}).ParseResponse([]byte(`{"error": {"message": "bad"}}`))
	if !errors.Is(err, ErrNoChoices) {
		t.Errorf("expected ErrNoChoices, got %v", err)
	}
}

func TestDialect_ParseStreamChunk(t *testing.T) {
	d := &Dialect{}
	tests := []struct {
		name    string
		data    string
		content string
		done    bool
		skip    bool
	}{
		{"delta", `{"choices":[{"delta":{"content":"Hi"}}]}`, "Hi", false, false},
		{"done", `[DONE]`, "", true, false},
		{"malformed", `{not json`, "", false, true},
		{"no choices", `{"id":"x"}`, "", false, true},
		{"blank", ` `, "", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content, done, err := d.ParseStreamChunk([]byte(tt.data))
			if tt.skip {
				if !errors.Is(err, llm.ErrSkipChunk) {
					t.Errorf("expected ErrSkipChunk, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if content != tt.content || done != tt.done {
				t.Errorf("got (%q, %v), want (%q, %v)", content, done, tt.content, tt.done)
			}
		})
	}
}

func TestAdapter_EndToEnd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("auth = %q", r.Header.Get("Authorization"))
		}
		var body chatRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		if !body.Stream {
			fmt.Fprint(w, `{"choices":[{"message":{"content":"pong"}}]}`)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"po\"}}]}\n\n")
		fmt.Fprint(w, "data: oops\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"ng\"}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	a, err := llm.New(llm.Config{
		Dialect: Name,
		BaseURL: srv.URL + "/v1",
		Model:   "qwen-2.5-32b",
		Auth:    httpclient.BearerAuth("sk-test"),
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	req := llm.CompletionRequest{Prompt: "ping"}
	resp, err := a.Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if resp.Content != "pong" || resp.Model != "qwen-2.5-32b" {
		t.Errorf("resp = %+v", resp)
	}

	ch, err := a.Stream(context.Background(), req)
	if err != nil {
		t.Fatalf("Stream() error: %v", err)
	}
	text, err := llm.Collect(context.Background(), ch)
	if err != nil {
		t.Fatalf("Collect() error: %v", err)
	}
	if text != "pong" {
		t.Errorf("streamed = %q, want pong", text)
	}
}
