package render

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/jackzampolin/mediscan/internal/report"
)

var fixedTime = time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

const sampleReport = "*Composition:* Paracetamol 500mg\n*Side Effects:* Nausea, Headache\n*Cost:* $5"

func sampleDocument(t *testing.T) *Document {
	t.Helper()
	return NewDocument(DocumentInput{
		Fields:      report.Extract(sampleReport, report.ExtractOptions{}),
		GeneratedAt: fixedTime,
	})
}

func kinds(blocks []Block) []BlockKind {
	out := make([]BlockKind, len(blocks))
	for i, b := range blocks {
		out[i] = b.Kind
	}
	return out
}

func TestPlan_EndToEnd(t *testing.T) {
	layout := Plan(sampleDocument(t), DefaultStyle(), nil)

	want := []BlockKind{
		BlockTitle, BlockDisclaimer, BlockTimestamp,
		BlockHeading, BlockField, BlockField, BlockField,
		BlockFooter,
	}
	if got := kinds(layout.Blocks); !reflect.DeepEqual(got, want) {
		t.Fatalf("block kinds = %v, want %v", got, want)
	}
	if layout.FieldCount() != 3 {
		t.Errorf("expected 3 field blocks, got %d", layout.FieldCount())
	}

	var labels []string
	for _, b := range layout.Blocks {
		if b.Kind == BlockField {
			labels = append(labels, b.Label)
		}
	}
	if !reflect.DeepEqual(labels, []string{"Composition", "Side Effects", "Cost"}) {
		t.Errorf("unexpected field order: %v", labels)
	}
	if layout.Blocks[2].Text != "Generated on: 2025-03-14 09:26:53" {
		t.Errorf("unexpected timestamp line: %q", layout.Blocks[2].Text)
	}
}

func TestPlan_MissingPieces(t *testing.T) {
	t.Run("no cost field", func(t *testing.T) {
		fields := report.Extract("*Composition:* Ibuprofen\n*Uses:* Pain", report.ExtractOptions{})
		layout := Plan(NewDocument(DocumentInput{Fields: fields, GeneratedAt: fixedTime}), DefaultStyle(), nil)
		for _, b := range layout.Blocks {
			if b.Label == "Cost" {
				t.Fatal("cost block should be omitted")
			}
		}
		if layout.FieldCount() != 2 {
			t.Errorf("expected 2 fields, got %d", layout.FieldCount())
		}
	})

	t.Run("nothing at all", func(t *testing.T) {
		layout := Plan(NewDocument(DocumentInput{GeneratedAt: fixedTime}), DefaultStyle(), nil)
		want := []BlockKind{BlockTitle, BlockDisclaimer, BlockTimestamp, BlockFooter}
		if got := kinds(layout.Blocks); !reflect.DeepEqual(got, want) {
			t.Errorf("block kinds = %v, want %v", got, want)
		}
	})

	t.Run("unstructured text", func(t *testing.T) {
		raw := "The tablet appears to be paracetamol.\nNo further details."
		layout := Plan(NewDocument(DocumentInput{RawText: raw, GeneratedAt: fixedTime}), DefaultStyle(), nil)
		if layout.FieldCount() != 1 {
			t.Fatalf("expected one fallback field, got %d", layout.FieldCount())
		}
		f := layout.Blocks[4]
		if f.Label != "Report" || len(f.Lines) != 2 {
			t.Errorf("unexpected fallback block: %#v", f)
		}
	})

	t.Run("blank interaction", func(t *testing.T) {
		doc := NewDocument(DocumentInput{Interaction: &Interaction{Text: "   "}, GeneratedAt: fixedTime})
		if doc.Interaction() != nil {
			t.Error("blank interaction should be dropped")
		}
	})
}

func TestPlan_Interaction(t *testing.T) {
	doc := NewDocument(DocumentInput{
		Fields: report.Extract(sampleReport, report.ExtractOptions{}),
		Interaction: &Interaction{
			Medications: "Warfarin",
			Text:        "Moderate interaction.\nMonitor INR closely.",
		},
		GeneratedAt: fixedTime,
	})
	layout := Plan(doc, DefaultStyle(), nil)

	ia := layout.Blocks[len(layout.Blocks)-2]
	if ia.Kind != BlockInteraction {
		t.Fatalf("expected interaction block before footer, got %s", ia.Kind)
	}
	if ia.Badge == nil || ia.Badge.Text != "MODERATE INTERACTION" {
		t.Errorf("unexpected badge: %#v", ia.Badge)
	}
	if ia.Note != "Additional Medications: Warfarin" {
		t.Errorf("unexpected note: %q", ia.Note)
	}
	if len(ia.Lines) != 2 {
		t.Errorf("expected 2 lines, got %#v", ia.Lines)
	}
	if doc.Interaction().Tier != report.InteractionModerate {
		t.Errorf("tier not classified: %q", doc.Interaction().Tier)
	}
}

func TestPlan_StyleOptions(t *testing.T) {
	raw := "*Side Effects:* Nausea, Headache\n*Pregnancy Safety:* Consult your doctor\n*Composition:* Paracetamol"
	doc := NewDocument(DocumentInput{Fields: report.Extract(raw, report.ExtractOptions{}), GeneratedAt: fixedTime})

	style := DefaultStyle()
	style.LabelOrder = []string{"composition", "Side Effects"}
	style.SafetyBadges = true
	style.ItemizeLists = true

	var fields []Block
	for _, b := range Plan(doc, style, nil).Blocks {
		if b.Kind == BlockField {
			fields = append(fields, b)
		}
	}
	if fields[0].Label != "Composition" || fields[1].Label != "Side Effects" || fields[2].Label != "Pregnancy Safety" {
		t.Fatalf("unexpected order: %s, %s, %s", fields[0].Label, fields[1].Label, fields[2].Label)
	}
	if !reflect.DeepEqual(fields[1].Items, []string{"Nausea", "Headache"}) || fields[1].Lines != nil {
		t.Errorf("side effects not itemized: %#v", fields[1])
	}
	if fields[2].Badge == nil || fields[2].Badge.Tag != "caution" {
		t.Errorf("expected caution badge, got %#v", fields[2].Badge)
	}
	if fields[0].Badge != nil {
		t.Error("composition should not carry a badge")
	}
}

func TestDocument_Immutable(t *testing.T) {
	fields := report.Extract(sampleReport, report.ExtractOptions{})
	img := []byte{1, 2, 3}
	doc := NewDocument(DocumentInput{Fields: fields, Image: img, GeneratedAt: fixedTime})

	fields[0].Content = "changed"
	img[0] = 9
	if doc.Fields()[0].Content != "Paracetamol 500mg" {
		t.Error("document fields alias caller slice")
	}
	if doc.image[0] != 1 {
		t.Error("document image aliases caller slice")
	}

	got := doc.Fields()
	got[0].Content = "mutated"
	if strings.Contains(doc.Fields()[0].Content, "mutated") {
		t.Error("Fields returned internal slice")
	}
}
