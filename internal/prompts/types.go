// Package prompts manages the prompt texts sent to vision and interaction
// models.
//
// Embedded .tmpl files are the source of truth for defaults. An operator
// can drop a file named <key>.tmpl into the prompt override directory to
// replace a default without rebuilding.
//
// Resolution order:
//  1. Override file (if the store is configured and the file exists)
//  2. Embedded default
package prompts

import "time"

// EmbeddedPrompt is a prompt compiled into the binary.
type EmbeddedPrompt struct {
	Key         string   // Hierarchical key: analysis.system
	Text        string   // The prompt text (Go template)
	Description string   // Human-readable description
	Variables   []string // Extracted template variables
	Hash        string   // SHA256 of Text
}

// Override is an operator-supplied replacement for an embedded prompt.
type Override struct {
	Key       string    `json:"key"`
	Text      string    `json:"text"`
	Path      string    `json:"path"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ResolvedPrompt is the text chosen for a key after applying overrides.
type ResolvedPrompt struct {
	Key        string   `json:"key"`
	Text       string   `json:"text"`
	Variables  []string `json:"variables,omitempty"`
	IsOverride bool     `json:"is_override"`
	Hash       string   `json:"hash"`
}
