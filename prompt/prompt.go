// Package prompt renders the chat formats that locally hosted model
// families expect. A Template turns a system prompt, the user text and an
// optional conversation history into the single string a completion
// backend receives.
package prompt

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"sync"
	"text/template"
)

// Turn is one completed exchange of a conversation.
type Turn struct {
	User      string `json:"user" yaml:"user"`
	Assistant string `json:"assistant" yaml:"assistant"`
}

// Input is what a Template renders.
type Input struct {
	System string
	// SystemSet marks System as chosen by the caller, so an empty System
	// renders without the template's default.
	SystemSet bool
	Text      string
	History   []Turn
}

// Template is a named prompt format.
type Template struct {
	name string
	// defaultSystem applies when Input.System is empty and not set.
	defaultSystem string
	render        func(Input) (string, error)
}

// New creates a Template from a render function that cannot fail.
func New(name, defaultSystem string, render func(Input) string) *Template {
	return &Template{name: name, defaultSystem: defaultSystem, render: func(in Input) (string, error) {
		return render(in), nil
	}}
}

// Name returns the registry name.
func (t *Template) Name() string { return t.name }

// DefaultSystem returns the system prompt used when none is given.
func (t *Template) DefaultSystem() string { return t.defaultSystem }

// Render formats in. It is pure: the same input always yields the same
// text. Only parsed templates can fail, when their source does not fit in.
func (t *Template) Render(in Input) (string, error) {
	if in.System == "" && !in.SystemSet {
		in.System = t.defaultSystem
	}
	return t.render(in)
}

// Parse builds a Template from a text/template source. The template sees
// .System, .Text and .History (each with .User and .Assistant).
func Parse(name, defaultSystem, src string) (*Template, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(src)
	if err != nil {
		return nil, fmt.Errorf("prompt: parse %q: %w", name, err)
	}
	// Execute once so field errors surface at parse time.
	if err := tmpl.Execute(&bytes.Buffer{}, Input{}); err != nil {
		return nil, fmt.Errorf("prompt: parse %q: %w", name, err)
	}
	render := func(in Input) (string, error) {
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, in); err != nil {
			return "", fmt.Errorf("prompt: render %q: %w", name, err)
		}
		return buf.String(), nil
	}
	return &Template{name: name, defaultSystem: defaultSystem, render: render}, nil
}

var (
	registryMu sync.RWMutex
	registry   = map[string]*Template{}
)

// Register adds t to the registry, replacing any template of the same name.
func Register(t *Template) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[t.name] = t
}

// Get returns the registered template called name.
func Get(name string) (*Template, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	t, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("prompt: unknown template %q", name)
	}
	return t, nil
}

// Names returns the sorted names of all registered templates.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// joinSystem prefixes text with system and sep when system is set.
func joinSystem(system, sep, text string) string {
	if system == "" {
		return text
	}
	return system + sep + text
}

func trim(s string) string { return strings.TrimSpace(s) }
