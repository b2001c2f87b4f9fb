// Package tokenizer counts prompt tokens with tiktoken. Vocabularies of
// locally hosted models differ from OpenAI's, so counts for them are
// estimates good enough for length budgeting.
package tokenizer

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// FallbackEncoding is used for models tiktoken does not know.
const FallbackEncoding = "cl100k_base"

// EstimateEncoding names the character heuristic used when no BPE ranks
// can be loaded (e.g. offline).
const EstimateEncoding = "estimate"

// ErrPromptTooLong is returned by Budget when the prompt alone fills the
// context window.
var ErrPromptTooLong = errors.New("tokenizer: prompt exceeds max length")

// Counter counts tokens for one model.
type Counter struct {
	enc      *tiktoken.Tiktoken
	encoding string
}

var (
	cacheMu sync.Mutex
	cache   = map[string]*Counter{}
)

// ForModel returns a Counter for model. Unknown models use cl100k_base;
// if that cannot be loaded either, the Counter estimates.
func ForModel(model string) *Counter {
	cacheMu.Lock()
	defer cacheMu.Unlock()
	if c, ok := cache[model]; ok {
		return c
	}
	c := newCounter(model)
	cache[model] = c
	return c
}

func newCounter(model string) *Counter {
	if enc, err := tiktoken.EncodingForModel(model); err == nil {
		return &Counter{enc: enc, encoding: encodingName(model)}
	}
	enc, err := tiktoken.GetEncoding(FallbackEncoding)
	if err != nil {
		return &Counter{encoding: EstimateEncoding}
	}
	return &Counter{enc: enc, encoding: FallbackEncoding}
}

func encodingName(model string) string {
	if name, ok := tiktoken.MODEL_TO_ENCODING[model]; ok {
		return name
	}
	for prefix, name := range tiktoken.MODEL_PREFIX_TO_ENCODING {
		if strings.HasPrefix(model, prefix) {
			return name
		}
	}
	return FallbackEncoding
}

// Encoding returns the encoding name in use.
func (c *Counter) Encoding() string {
	if c.encoding == "" {
		return FallbackEncoding
	}
	return c.encoding
}

// Count returns the number of tokens in text.
func (c *Counter) Count(text string) int {
	if text == "" {
		return 0
	}
	if c.enc == nil {
		return Estimate(text)
	}
	return len(c.enc.Encode(text, nil, nil))
}

// Estimate approximates a token count as one token per four bytes, and
// never less than one token per two runes of non-ASCII text.
func Estimate(text string) int {
	if text == "" {
		return 0
	}
	n := (len(text) + 3) / 4
	runes := utf8.RuneCountInString(text)
	if runes != len(text) {
		if alt := (runes + 1) / 2; alt > n {
			n = alt
		}
	}
	return n
}

// Budget returns the number of new tokens that fit in maxLength after
// prompt. A positive maxNew caps the result. maxLength <= 0 means no limit.
func (c *Counter) Budget(prompt string, maxLength, maxNew int) (int, error) {
	if maxLength <= 0 {
		return maxNew, nil
	}
	used := c.Count(prompt)
	remaining := maxLength - used
	if remaining <= 0 {
		return 0, fmt.Errorf("%w: %d prompt tokens, max length %d", ErrPromptTooLong, used, maxLength)
	}
	if maxNew > 0 && maxNew < remaining {
		return maxNew, nil
	}
	return remaining, nil
}
