package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// jsonOnly is appended to the system prompt by CompleteStructured.
const jsonOnly = "\n\nIMPORTANT: Respond with ONLY the JSON value. " +
	"No markdown, no code blocks, no explanations."

// Complete sends one user turn under system and returns the reply text.
// p may be any wrapped or composed provider.
func Complete(ctx context.Context, p Provider, system, user string) (string, error) {
	resp, err := p.Execute(ctx, CompletionRequest{
		SystemPrompt: system,
		Messages:     []Message{{Role: RoleUser, Content: user}},
	})
	return resp.Content, err
}

// CompleteStructured asks for JSON and decodes the reply into result. Code
// fences and prose around the JSON value are tolerated.
func CompleteStructured(ctx context.Context, p Provider, system, user string, result any) error {
	text, err := Complete(ctx, p, system+jsonOnly, user)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(extractJSON(text)), result); err != nil {
		return fmt.Errorf("llm: decode structured reply: %w", err)
	}
	return nil
}

// extractJSON returns the span from the first '{' or '[' to its last
// matching closer, after dropping a surrounding markdown fence. Text with
// no such span comes back trimmed.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(s, "```"); ok {
		if _, body, found := strings.Cut(rest, "\n"); found {
			rest = body
		}
		if i := strings.LastIndex(rest, "```"); i >= 0 {
			rest = rest[:i]
		}
		s = strings.TrimSpace(rest)
	}

	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return s
	}
	closer := byte('}')
	if s[start] == '[' {
		closer = ']'
	}
	if end := strings.LastIndexByte(s, closer); end > start {
		return s[start : end+1]
	}
	return s
}
