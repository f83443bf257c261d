// Package render synthesizes analysis reports into PDF, HTML or Markdown
// documents.
//
// A Document is planned into a fixed sequence of blocks (title, disclaimer,
// timestamp, image, fields, interaction, footer) which every backend renders
// in the same order.
package render

import (
	"strings"
	"time"

	"github.com/jackzampolin/mediscan/internal/report"
)

// Interaction is the interaction analysis attached to a report.
type Interaction struct {
	Medications string                 `json:"medications,omitempty"`
	Text        string                 `json:"text"`
	Tier        report.InteractionTier `json:"tier"`
}

// DocumentInput holds the parts of a document. RawText is only shown when
// Fields is empty.
type DocumentInput struct {
	Fields      report.Fields
	Image       []byte
	RawText     string
	Interaction *Interaction
	GeneratedAt time.Time
}

// Document is an immutable report ready for rendering.
type Document struct {
	fields      report.Fields
	image       []byte
	rawText     string
	interaction *Interaction
	generatedAt time.Time
}

// NewDocument copies in and fills defaults. A zero GeneratedAt becomes
// time.Now, and an interaction without a tier is classified from its text.
func NewDocument(in DocumentInput) *Document {
	d := &Document{
		fields:      append(report.Fields(nil), in.Fields...),
		rawText:     in.RawText,
		generatedAt: in.GeneratedAt,
	}
	if len(in.Image) > 0 {
		d.image = append([]byte(nil), in.Image...)
	}
	if d.generatedAt.IsZero() {
		d.generatedAt = time.Now()
	}
	if in.Interaction != nil && strings.TrimSpace(in.Interaction.Text) != "" {
		ia := *in.Interaction
		if ia.Tier == "" {
			ia.Tier = report.ClassifyInteraction(ia.Text)
		}
		d.interaction = &ia
	}
	return d
}

// Fields returns a copy of the document's fields.
func (d *Document) Fields() report.Fields {
	return append(report.Fields(nil), d.fields...)
}

// HasImage reports whether image bytes were supplied.
func (d *Document) HasImage() bool { return len(d.image) > 0 }

// Interaction returns the interaction block, or nil.
func (d *Document) Interaction() *Interaction {
	if d.interaction == nil {
		return nil
	}
	ia := *d.interaction
	return &ia
}

// GeneratedAt returns the document timestamp.
func (d *Document) GeneratedAt() time.Time { return d.generatedAt }
