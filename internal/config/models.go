package config

import "fmt"

// ModelEntry pairs a short alias with its backend model identifier.
type ModelEntry struct {
	Alias string
	ID    string
}

// Models maps short aliases to backend model identifiers. The table is
// immutable after construction and passed by value into session setup.
type Models struct {
	entries []ModelEntry
	byAlias map[string]string
}

// DefaultModels returns the models the backend currently serves.
func DefaultModels() Models {
	return NewModels([]ModelEntry{
		{Alias: "gpt-4o-mini", ID: "gpt-4o-mini"},
		{Alias: "claude-3-haiku", ID: "claude-3-haiku-20240307"},
		{Alias: "llama", ID: "meta-llama/Meta-Llama-3.1-70B-Instruct-Turbo"},
		{Alias: "mixtral", ID: "mistralai/Mixtral-8x7B-Instruct-v0.1"},
	})
}

// NewModels builds a table from entries, preserving their order for
// display.
func NewModels(entries []ModelEntry) Models {
	byAlias := make(map[string]string, len(entries))
	for _, e := range entries {
		byAlias[e.Alias] = e.ID
	}
	return Models{entries: entries, byAlias: byAlias}
}

// Resolve maps an alias to its backend identifier. Unknown aliases are
// rejected before any network call is made.
func (m Models) Resolve(alias string) (string, error) {
	id, ok := m.byAlias[alias]
	if !ok {
		return "", fmt.Errorf("model %q is not available, list models with --list-models", alias)
	}
	return id, nil
}

// List returns the table entries in display order.
func (m Models) List() []ModelEntry {
	out := make([]ModelEntry, len(m.entries))
	copy(out, m.entries)
	return out
}
