package render

import (
	"sort"
	"strings"
	"time"

	"github.com/jackzampolin/mediscan/internal/report"
)

// BlockKind identifies a block in a planned document.
type BlockKind string

const (
	BlockTitle       BlockKind = "title"
	BlockDisclaimer  BlockKind = "disclaimer"
	BlockTimestamp   BlockKind = "timestamp"
	BlockHeading     BlockKind = "heading"
	BlockImage       BlockKind = "image"
	BlockField       BlockKind = "field"
	BlockInteraction BlockKind = "interaction"
	BlockFooter      BlockKind = "footer"
)

// Badge is a colored severity marker.
type Badge struct {
	Tag   string
	Text  string
	Color Color
}

// Block is one unit of layout. Which fields are set depends on Kind.
type Block struct {
	Kind  BlockKind
	Text  string
	Label string
	Note  string
	Lines []string
	Items []string
	Badge *Badge
	Image *PreparedImage
}

// Layout is a planned document.
type Layout struct {
	Blocks      []Block
	GeneratedAt time.Time
}

// FieldCount returns the number of field blocks.
func (l Layout) FieldCount() int {
	return countKind(l.Blocks, BlockField)
}

// Plan lays out doc as an ordered block list. img is the prepared image, or
// nil to omit the image block. The result depends only on its inputs.
func Plan(doc *Document, style Style, img *PreparedImage) Layout {
	style = style.withDefaults()

	blocks := []Block{
		{Kind: BlockTitle, Text: style.Title},
		{Kind: BlockDisclaimer, Text: style.Disclaimer},
		{Kind: BlockTimestamp, Text: "Generated on: " + doc.generatedAt.Format(style.TimestampLayout)},
	}

	if img != nil {
		blocks = append(blocks,
			Block{Kind: BlockHeading, Text: style.ImageHeading},
			Block{Kind: BlockImage, Image: img},
		)
	}

	fields := orderFields(doc.fields, style.LabelOrder)
	switch {
	case len(fields) > 0:
		blocks = append(blocks, Block{Kind: BlockHeading, Text: style.ResultsHeading})
		for _, f := range fields {
			blocks = append(blocks, fieldBlock(f, style))
		}
	case strings.TrimSpace(doc.rawText) != "":
		fallback := report.Field{Label: style.FallbackLabel, Content: strings.TrimSpace(doc.rawText)}
		blocks = append(blocks,
			Block{Kind: BlockHeading, Text: style.ResultsHeading},
			Block{Kind: BlockField, Label: fallback.Label, Lines: fallback.Lines()},
		)
	}

	if ia := doc.interaction; ia != nil {
		b := Block{
			Kind:  BlockInteraction,
			Text:  style.InteractionHeading,
			Lines: report.Field{Content: ia.Text}.Lines(),
			Badge: &Badge{Tag: string(ia.Tier), Text: ia.Tier.Badge(), Color: style.badgeColor(string(ia.Tier))},
		}
		if meds := strings.TrimSpace(ia.Medications); meds != "" {
			b.Note = "Additional Medications: " + meds
		}
		blocks = append(blocks, b)
	}

	blocks = append(blocks, Block{Kind: BlockFooter, Text: style.Footer})
	return Layout{Blocks: blocks, GeneratedAt: doc.generatedAt}
}

func fieldBlock(f report.Field, style Style) Block {
	b := Block{Kind: BlockField, Label: f.Label, Lines: f.Lines()}
	if style.ItemizeLists && report.IsListLabel(f.Label) && f.Content != "" {
		b.Items = report.Tokenize(f.Content)
		b.Lines = nil
	}
	if style.SafetyBadges && report.IsSafetyLabel(f.Label) {
		tag := report.ClassifySafety(f.Content)
		b.Badge = &Badge{Tag: string(tag), Text: tag.Badge(), Color: style.badgeColor(string(tag))}
	}
	return b
}

// orderFields moves labels named in order to the front. The sort is stable
// so remaining fields and duplicates keep extraction order.
func orderFields(fields report.Fields, order []string) report.Fields {
	out := append(report.Fields(nil), fields...)
	if len(order) == 0 {
		return out
	}
	rank := make(map[string]int, len(order))
	for i, l := range order {
		key := strings.ToLower(strings.Join(strings.Fields(l), " "))
		if _, dup := rank[key]; !dup {
			rank[key] = i
		}
	}
	pos := func(f report.Field) int {
		if r, ok := rank[strings.ToLower(strings.Join(strings.Fields(f.Label), " "))]; ok {
			return r
		}
		return len(order)
	}
	sort.SliceStable(out, func(i, j int) bool { return pos(out[i]) < pos(out[j]) })
	return out
}

// countKind returns how many blocks have kind k.
func countKind(blocks []Block, k BlockKind) int {
	n := 0
	for _, b := range blocks {
		if b.Kind == k {
			n++
		}
	}
	return n
}
