package analysis

import (
	"strings"
	"testing"

	"github.com/jackzampolin/mediscan/internal/prompts"
)

func TestInteractionQuery(t *testing.T) {
	got := InteractionQuery("  Ibuprofen 400mg ", " Warfarin, Aspirin ")
	for _, want := range []string{
		"Primary Drug: Ibuprofen 400mg\n",
		"Additional Medications: Warfarin, Aspirin\n",
		"severity levels and safety recommendations",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("prompt missing %q:\n%s", want, got)
		}
	}

	if got := InteractionQuery("   ", "Warfarin"); !strings.Contains(got, "Primary Drug: "+UnknownComposition) {
		t.Errorf("blank composition not replaced:\n%s", got)
	}
}

func TestInstructionsListEveryLabel(t *testing.T) {
	for _, label := range []string{
		"Composition", "Uses", "Available Tablet Names", "How to Use", "Side Effects", "Cost",
		"Safety with Alcohol", "Pregnancy Safety", "Breastfeeding Safety", "Driving Safety",
		"General Safety Advice",
	} {
		if !strings.Contains(Instructions(), "*"+label+":*") {
			t.Errorf("instructions missing label %q", label)
		}
	}
}

func TestRegisterPrompts(t *testing.T) {
	r := prompts.NewResolver(nil, nil)
	RegisterPrompts(r)

	if n := len(r.AllEmbedded()); n != 5 {
		t.Fatalf("registered %d prompts, want 5", n)
	}
	p, ok := r.GetEmbedded(InteractionQueryKey)
	if !ok {
		t.Fatal("interaction prompt not registered")
	}
	if len(p.Variables) != 2 || p.Variables[0] != "Composition" || p.Variables[1] != "Medications" {
		t.Errorf("Variables = %v", p.Variables)
	}

	got, err := r.Execute(InteractionQueryKey, NewInteractionData("Paracetamol", "Warfarin"))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if got != InteractionQuery("Paracetamol", "Warfarin") {
		t.Errorf("resolver rendering differs from InteractionQuery:\n%s", got)
	}
}
