package report

import "strings"

// Mode selects the rule table used by Classify.
type Mode string

const (
	ModeSafety      Mode = "safety"
	ModeInteraction Mode = "interaction"
)

// SafetyTag is the tier assigned to safety field content.
type SafetyTag string

const (
	Safe         SafetyTag = "safe"
	Caution      SafetyTag = "caution"
	Avoid        SafetyTag = "avoid"
	Unclassified SafetyTag = "unclassified"
)

// InteractionTier is the tier assigned to an interaction narrative.
type InteractionTier string

const (
	InteractionNoneLow  InteractionTier = "none_low"
	InteractionMinor    InteractionTier = "minor"
	InteractionModerate InteractionTier = "moderate"
	InteractionSevere   InteractionTier = "severe"
)

// Rule assigns Tag when the content contains any of Keywords.
type Rule[T ~string] struct {
	Tag      T
	Keywords []string
}

// SafetyRules are checked in order. Danger signals come first so they win
// over reassurance in the same sentence.
var SafetyRules = []Rule[SafetyTag]{
	{Tag: Avoid, Keywords: []string{"avoid", "contraindicated", "not recommended"}},
	{Tag: Caution, Keywords: []string{"caution", "monitor", "consult"}},
	{Tag: Safe, Keywords: []string{"safe", "no interaction"}},
}

// InteractionRules are checked in order, most severe first.
var InteractionRules = []Rule[InteractionTier]{
	{Tag: InteractionSevere, Keywords: []string{"severe", "major"}},
	{Tag: InteractionModerate, Keywords: []string{"moderate"}},
	{Tag: InteractionMinor, Keywords: []string{"minor"}},
}

// Severity is the result of Classify. Exactly one of Safety or Interaction is
// set, according to Mode.
type Severity struct {
	Mode        Mode            `json:"mode"`
	Safety      SafetyTag       `json:"safety,omitempty"`
	Interaction InteractionTier `json:"interaction,omitempty"`
}

// String returns the tag name.
func (s Severity) String() string {
	if s.Mode == ModeInteraction {
		return string(s.Interaction)
	}
	return string(s.Safety)
}

// Classify tags content using the rules for mode. Unknown modes classify as safety.
func Classify(content string, mode Mode) Severity {
	if mode == ModeInteraction {
		return Severity{Mode: ModeInteraction, Interaction: ClassifyInteraction(content)}
	}
	return Severity{Mode: ModeSafety, Safety: ClassifySafety(content)}
}

// ClassifySafety applies SafetyRules with case-insensitive substring matching.
// Negation is not handled: "not unsafe" still matches "safe".
func ClassifySafety(content string) SafetyTag {
	return firstMatch(content, SafetyRules, Unclassified)
}

// ClassifyInteraction applies InteractionRules.
func ClassifyInteraction(content string) InteractionTier {
	return firstMatch(content, InteractionRules, InteractionNoneLow)
}

// ParseMode accepts "safety" or "interaction", case-insensitively.
func ParseMode(s string) (Mode, bool) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeSafety:
		return ModeSafety, true
	case ModeInteraction:
		return ModeInteraction, true
	}
	return "", false
}

func firstMatch[T ~string](content string, rules []Rule[T], fallback T) T {
	lower := strings.ToLower(content)
	for _, r := range rules {
		for _, kw := range r.Keywords {
			if strings.Contains(lower, kw) {
				return r.Tag
			}
		}
	}
	return fallback
}

// Badge is the display text for a safety tag.
func (t SafetyTag) Badge() string {
	switch t {
	case Avoid:
		return "AVOID"
	case Caution:
		return "USE WITH CAUTION"
	case Safe:
		return "GENERALLY SAFE"
	default:
		return "SEE DETAILS"
	}
}

// Badge is the display text for an interaction tier.
func (t InteractionTier) Badge() string {
	switch t {
	case InteractionSevere:
		return "SEVERE/MAJOR INTERACTION DETECTED"
	case InteractionModerate:
		return "MODERATE INTERACTION"
	case InteractionMinor:
		return "MINOR INTERACTION"
	default:
		return "LOW INTERACTION RISK"
	}
}

// Rank orders tiers from 0 (none/low) to 3 (severe).
func (t InteractionTier) Rank() int {
	switch t {
	case InteractionSevere:
		return 3
	case InteractionModerate:
		return 2
	case InteractionMinor:
		return 1
	default:
		return 0
	}
}
