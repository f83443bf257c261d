package report

import "testing"

func TestClassifySafety(t *testing.T) {
	tests := []struct {
		content string
		want    SafetyTag
	}{
		{"Avoid alcohol, though generally considered safe", Avoid},
		{"CONTRAINDICATED in the third trimester", Avoid},
		{"Not recommended while driving; otherwise safe", Avoid},
		{"Use with caution and consult your doctor", Caution},
		{"Monitor blood pressure. Safe for most adults.", Caution},
		{"Generally safe during breastfeeding", Safe},
		{"No interaction with alcohol reported", Safe},
		{"Category B", Unclassified},
		{"", Unclassified},
	}
	for _, tt := range tests {
		if got := ClassifySafety(tt.content); got != tt.want {
			t.Errorf("ClassifySafety(%q) = %s, want %s", tt.content, got, tt.want)
		}
	}
}

func TestClassifyInteraction(t *testing.T) {
	tests := []struct {
		content string
		want    InteractionTier
	}{
		{"This is a moderate interaction; monitor closely.", InteractionModerate},
		{"Major interaction: risk of bleeding. Minor nausea possible.", InteractionSevere},
		{"SEVERE serotonin syndrome risk", InteractionSevere},
		{"Only a minor interaction is expected", InteractionMinor},
		{"No known interaction.", InteractionNoneLow},
		{"", InteractionNoneLow},
	}
	for _, tt := range tests {
		if got := ClassifyInteraction(tt.content); got != tt.want {
			t.Errorf("ClassifyInteraction(%q) = %s, want %s", tt.content, got, tt.want)
		}
	}
}

func TestClassify_Modes(t *testing.T) {
	s := Classify("moderate risk, monitor", ModeInteraction)
	if s.Mode != ModeInteraction || s.Interaction != InteractionModerate || s.Safety != "" {
		t.Errorf("unexpected interaction severity: %#v", s)
	}
	if s.String() != "moderate" {
		t.Errorf("unexpected string: %q", s.String())
	}

	s = Classify("moderate risk, monitor", ModeSafety)
	if s.Mode != ModeSafety || s.Safety != Caution {
		t.Errorf("unexpected safety severity: %#v", s)
	}

	if _, ok := ParseMode("Interaction"); !ok {
		t.Error("expected interaction mode to parse")
	}
	if _, ok := ParseMode("dosage"); ok {
		t.Error("unexpected mode parsed")
	}
}

func TestClassify_DoesNotMutateField(t *testing.T) {
	f := Field{Label: LabelDrivingSafety, Content: "May cause drowsiness; avoid driving"}
	before := f
	if ClassifySafety(f.Content) != Avoid {
		t.Fatal("expected avoid")
	}
	if f != before {
		t.Error("field changed during classification")
	}
}

func TestInteractionTier_Badge(t *testing.T) {
	if InteractionSevere.Badge() != "SEVERE/MAJOR INTERACTION DETECTED" {
		t.Error("unexpected severe badge")
	}
	if InteractionNoneLow.Badge() != "LOW INTERACTION RISK" {
		t.Error("unexpected low badge")
	}
	if InteractionSevere.Rank() <= InteractionModerate.Rank() || InteractionMinor.Rank() <= InteractionNoneLow.Rank() {
		t.Error("ranks out of order")
	}
}

func TestSafetyLabels(t *testing.T) {
	if !IsSafetyLabel("pregnancy  safety") {
		t.Error("pregnancy safety should be a safety label")
	}
	if IsSafetyLabel(LabelCost) {
		t.Error("cost is not a safety label")
	}
	if !IsListLabel(LabelTabletNames) || IsListLabel(LabelHowToUse) {
		t.Error("unexpected list label classification")
	}
}
