package report

import "strings"

// Canonical labels requested from the analysis model.
const (
	LabelComposition         = "Composition"
	LabelUses                = "Uses"
	LabelTabletNames         = "Available Tablet Names"
	LabelHowToUse            = "How to Use"
	LabelSideEffects         = "Side Effects"
	LabelCost                = "Cost"
	LabelAlcoholSafety       = "Safety with Alcohol"
	LabelPregnancySafety     = "Pregnancy Safety"
	LabelBreastfeedingSafety = "Breastfeeding Safety"
	LabelDrivingSafety       = "Driving Safety"
	LabelGeneralSafety       = "General Safety Advice"
	LabelInteractionSummary  = "Interaction Summary"
)

// StandardLabels is the default vocabulary in the order the analysis prompt lists it.
var StandardLabels = []string{
	LabelComposition,
	LabelUses,
	LabelTabletNames,
	LabelHowToUse,
	LabelSideEffects,
	LabelCost,
	LabelAlcoholSafety,
	LabelPregnancySafety,
	LabelBreastfeedingSafety,
	LabelDrivingSafety,
	LabelGeneralSafety,
	LabelInteractionSummary,
}

var safetyLabels = map[string]struct{}{
	normalizeLabel(LabelAlcoholSafety):       {},
	normalizeLabel(LabelPregnancySafety):     {},
	normalizeLabel(LabelBreastfeedingSafety): {},
	normalizeLabel(LabelDrivingSafety):       {},
	normalizeLabel(LabelGeneralSafety):       {},
}

var listLabels = map[string]struct{}{
	normalizeLabel(LabelUses):        {},
	normalizeLabel(LabelTabletNames): {},
	normalizeLabel(LabelSideEffects): {},
}

// IsSafetyLabel reports whether content under label is classified in safety mode.
func IsSafetyLabel(label string) bool {
	_, ok := safetyLabels[normalizeLabel(label)]
	return ok
}

// IsListLabel reports whether content under label is presented as an item list.
func IsListLabel(label string) bool {
	_, ok := listLabels[normalizeLabel(label)]
	return ok
}

// Vocabulary maps marker text to canonical labels. Lookups ignore case and
// collapse runs of whitespace. The zero value is an empty vocabulary.
type Vocabulary struct {
	canonical map[string]string
}

// NewVocabulary builds a vocabulary from canonical labels.
func NewVocabulary(labels ...string) *Vocabulary {
	v := &Vocabulary{canonical: make(map[string]string, len(labels))}
	for _, l := range labels {
		v.WithLabel(l)
	}
	return v
}

// DefaultVocabulary returns the standard labels plus common aliases seen in
// model output.
func DefaultVocabulary() *Vocabulary {
	return NewVocabulary(StandardLabels...).
		WithAlias("Available Names", LabelTabletNames).
		WithAlias("Tablet Names", LabelTabletNames).
		WithAlias("Brand Names", LabelTabletNames).
		WithAlias("Usage", LabelHowToUse).
		WithAlias("Dosage", LabelHowToUse).
		WithAlias("Alcohol Safety", LabelAlcoholSafety).
		WithAlias("Safety-with-Alcohol", LabelAlcoholSafety).
		WithAlias("Interaction Analysis", LabelInteractionSummary)
}

// WithLabel adds a canonical label and returns v for chaining.
func (v *Vocabulary) WithLabel(label string) *Vocabulary {
	return v.WithAlias(label, label)
}

// WithAlias maps alias to canonical and returns v for chaining.
func (v *Vocabulary) WithAlias(alias, canonical string) *Vocabulary {
	if v.canonical == nil {
		v.canonical = make(map[string]string)
	}
	v.canonical[normalizeLabel(alias)] = canonical
	return v
}

// Lookup resolves marker text to its canonical label.
func (v *Vocabulary) Lookup(label string) (string, bool) {
	if v == nil || v.canonical == nil {
		return "", false
	}
	c, ok := v.canonical[normalizeLabel(label)]
	return c, ok
}

// Len returns the number of recognized spellings, aliases included.
func (v *Vocabulary) Len() int {
	if v == nil {
		return 0
	}
	return len(v.canonical)
}

func normalizeLabel(label string) string {
	return strings.ToLower(collapseSpace(label))
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
