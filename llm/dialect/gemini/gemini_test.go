package gemini

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

func TestDialect_Path(t *testing.T) {
	d := &Dialect{}
	if got := d.Path(llm.CompletionRequest{Model: "gemini-2.0-flash"}); got != "/v1beta/models/gemini-2.0-flash:generateContent" {
		t.Errorf("Path() = %q", got)
	}
	if got := d.Path(llm.CompletionRequest{Model: "models/gemini-2.0-flash", Stream: true}); got != "/v1beta/models/gemini-2.0-flash:streamGenerateContent?alt=sse" {
		t.Errorf("Path(stream) = %q", got)
	}
}

func TestDialect_BuildRequest(t *testing.T) {
	body, err := (&Dialect{}).BuildRequest(llm.CompletionRequest{
		Model:        "gemini-2.0-flash",
		SystemPrompt: "be terse",
		Prompt:       "what is go?",
		Temperature:  0.1,
		TopP:         1,
		TopK:         5,
		MaxTokens:    500,
		Candidates:   5,
	})
	if err != nil {
		t.Fatalf("BuildRequest() error: %v", err)
	}
	raw, _ := json.Marshal(body)
	var got map[string]any
	_ = json.Unmarshal(raw, &got)

	gc := got["generationConfig"].(map[string]any)
	if gc["maxOutputTokens"] != float64(500) || gc["candidateCount"] != float64(5) ||
		gc["topK"] != float64(5) || gc["topP"] != float64(1) || gc["temperature"] != 0.1 {
		t.Errorf("generationConfig = %v", gc)
	}
	if _, ok := got["systemInstruction"]; !ok {
		t.Error("expected systemInstruction")
	}
	contents := got["contents"].([]any)
	if len(contents) != 1 || contents[0].(map[string]any)["role"] != "user" {
		t.Errorf("contents = %v", contents)
	}
}

func TestDialect_BuildRequest_History(t *testing.T) {
	body, err := (&Dialect{}).BuildRequest(llm.CompletionRequest{
		Model: "m",
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: "ignored"},
			{Role: llm.RoleUser, Content: "a"},
			{Role: llm.RoleAssistant, Content: "b"},
			{Role: llm.RoleUser, Content: "c"},
		},
	})
	if err != nil {
		t.Fatalf("BuildRequest() error: %v", err)
	}
	req := body.(generateRequest)
	if len(req.Contents) != 3 || req.Contents[1].Role != "model" {
		t.Errorf("contents = %+v", req.Contents)
	}
	if req.GenerationConfig != nil {
		t.Errorf("generationConfig = %+v, want nil", req.GenerationConfig)
	}
}

func TestDialect_BuildRequest_Errors(t *testing.T) {
	if _, err := (&Dialect{}).BuildRequest(llm.CompletionRequest{Prompt: "x"}); err == nil {
		t.Error("expected error without model")
	}
	if _, err := (&Dialect{}).BuildRequest(llm.CompletionRequest{Model: "m"}); err == nil {
		t.Error("expected error without contents")
	}
}

func TestDialect_ParseResponse_JoinsCandidates(t *testing.T) {
	resp, err := (&Dialect{}).ParseResponse([]byte(`{
		"candidates": [
			{"content": {"parts": [{"text": "one"}, {"text": "two"}]}, "finishReason": "STOP"},
			{"content": {"parts": [{"text": "three"}]}},
			{"content": {"parts": []}}
		],
		"usageMetadata": {"promptTokenCount": 4, "candidatesTokenCount": 6, "totalTokenCount": 10},
		"modelVersion": "gemini-2.0-flash"
	}`))
	if err != nil {
		t.Fatalf("ParseResponse() error: %v", err)
	}
	if resp.Content != "one\ntwo\nthree" {
		t.Errorf("Content = %q", resp.Content)
	}
	if resp.FinishReason != "STOP" || resp.Usage.TotalTokens != 10 || resp.Model != "gemini-2.0-flash" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestDialect_ParseResponse_Empty(t *testing.T) {
	d := &Dialect{}
	for _, body := range []string{
		`{}`,
		`{"candidates": [{"content": {"parts": [{"text": "  "}]}}]}`,
		`{"promptFeedback": {"blockReason": "SAFETY"}}`,
	} {
		if _, err := d.ParseResponse([]byte(body)); !errors.Is(err, llm.ErrEmptyResponse) {
			t.Errorf("ParseResponse(%s) error = %v, want ErrEmptyResponse", body, err)
		}
	}
}

func TestAdapter_QueryKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "g-key" {
			t.Errorf("key = %q", r.URL.Query().Get("key"))
		}
		if r.URL.Path == "/v1beta/models/gemini-2.0-flash:streamGenerateContent" {
			if r.URL.Query().Get("alt") != "sse" {
				t.Errorf("alt = %q", r.URL.Query().Get("alt"))
			}
			w.Header().Set("Content-Type", "text/event-stream")
			fmt.Fprint(w, "data: {\"candidates\":[{\"content\":{\"parts\":[{\"text\":\"Hel\"}]}}]}\n\n")
			fmt.Fprint(w, "data: {\"candidates\":[{\"content\":{\"parts\":[{\"text\":\"lo\"}]},\"finishReason\":\"STOP\"}]}\n\n")
			return
		}
		fmt.Fprint(w, `{"candidates":[{"content":{"parts":[{"text":"Hello\n"}]}}]}`)
	}))
	defer srv.Close()

	a, err := llm.New(llm.Config{
		Dialect: Name,
		BaseURL: srv.URL,
		Model:   "gemini-2.0-flash",
		Auth:    httpclient.APIKeyAuthQuery("g-key", "key"),
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	resp, err := a.Execute(context.Background(), llm.CompletionRequest{Prompt: "hi"})
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if resp.Content != "Hello" {
		t.Errorf("Content = %q", resp.Content)
	}

	ch, err := a.Stream(context.Background(), llm.CompletionRequest{Prompt: "hi"})
	if err != nil {
		t.Fatalf("Stream() error: %v", err)
	}
	text, err := llm.Collect(context.Background(), ch)
	if err != nil || text != "Hello" {
		t.Errorf("Collect() = %q, %v", text, err)
	}
}
