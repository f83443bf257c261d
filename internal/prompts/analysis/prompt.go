// Package analysis holds the prompts for tablet image analysis and drug
// interaction checks.
package analysis

import (
	"bytes"
	_ "embed"
	"strings"
	"text/template"

	"github.com/jackzampolin/mediscan/internal/prompts"
)

//go:embed system.tmpl
var systemPrompt string

//go:embed instructions.tmpl
var instructions string

//go:embed analyze_user.tmpl
var userPrompt string

//go:embed interaction_system.tmpl
var interactionSystemPrompt string

//go:embed interaction_query.tmpl
var interactionQueryTmpl string

var interactionTemplate = template.Must(template.New("interaction_query").Parse(interactionQueryTmpl))

// UnknownComposition stands in for a report with no Composition section.
const UnknownComposition = "Unknown composition"

// Prompt keys
const (
	SystemPromptKey            = "analysis.system"
	InstructionsKey            = "analysis.instructions"
	UserPromptKey              = "analysis.user"
	InteractionSystemPromptKey = "interaction.system"
	InteractionQueryKey        = "interaction.query"
)

// InteractionData is the template input for the interaction query.
type InteractionData struct {
	Composition string
	Medications string
}

// NewInteractionData trims both inputs and substitutes UnknownComposition
// for a blank composition.
func NewInteractionData(composition, medications string) InteractionData {
	composition = strings.TrimSpace(composition)
	if composition == "" {
		composition = UnknownComposition
	}
	return InteractionData{Composition: composition, Medications: strings.TrimSpace(medications)}
}

// SystemPrompt returns the system prompt for tablet analysis.
func SystemPrompt() string {
	return systemPrompt
}

// Instructions returns the labelled output format the analysis model must follow.
func Instructions() string {
	return instructions
}

// UserPrompt returns the user message sent alongside the tablet image.
func UserPrompt() string {
	return strings.TrimSpace(userPrompt)
}

// InteractionSystemPrompt returns the system prompt for interaction analysis.
func InteractionSystemPrompt() string {
	return interactionSystemPrompt
}

// InteractionQuery builds the interaction query for composition and medications.
func InteractionQuery(composition, medications string) string {
	var buf bytes.Buffer
	if err := interactionTemplate.Execute(&buf, NewInteractionData(composition, medications)); err != nil {
		// Fallback to raw template on error
		return interactionQueryTmpl
	}
	return buf.String()
}

// RegisterPrompts registers the analysis prompts with the resolver.
func RegisterPrompts(r *prompts.Resolver) {
	r.Register(prompts.EmbeddedPrompt{
		Key:         SystemPromptKey,
		Text:        systemPrompt,
		Description: "Tablet analysis system prompt",
	})
	r.Register(prompts.EmbeddedPrompt{
		Key:         InstructionsKey,
		Text:        instructions,
		Description: "Labelled section format for the analysis report",
	})
	r.Register(prompts.EmbeddedPrompt{
		Key:         UserPromptKey,
		Text:        userPrompt,
		Description: "User message accompanying the tablet image",
	})
	r.Register(prompts.EmbeddedPrompt{
		Key:         InteractionSystemPromptKey,
		Text:        interactionSystemPrompt,
		Description: "Drug interaction system prompt",
	})
	r.Register(prompts.EmbeddedPrompt{
		Key:         InteractionQueryKey,
		Text:        interactionQueryTmpl,
		Description: "Drug interaction query template",
	})
}
