package render

import "fmt"

// Color is an RGB color.
type Color struct {
	R, G, B uint8
}

// Hex returns the CSS form, e.g. #000080.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

var (
	navy      = Color{0, 0, 128}
	red       = Color{255, 0, 0}
	pink      = Color{255, 192, 203}
	gray      = Color{128, 128, 128}
	black     = Color{0, 0, 0}
	darkRed   = Color{185, 28, 28}
	orange    = Color{194, 65, 12}
	amber     = Color{161, 98, 7}
	green     = Color{21, 128, 61}
	slateBlue = Color{71, 85, 105}
)

// Style is the cosmetic configuration of a rendered report.
type Style struct {
	Title              string
	Disclaimer         string
	Footer             string
	ImageHeading       string
	ResultsHeading     string
	InteractionHeading string
	FallbackLabel      string
	// TimestampLayout is a Go time layout for the "Generated on" line.
	TimestampLayout string

	// LabelOrder moves the named labels to the front, in this order. Fields
	// not named keep their extraction order after them.
	LabelOrder []string
	// SafetyBadges adds a badge under safety field headings.
	SafetyBadges bool
	// ItemizeLists renders list-like fields as bulleted items.
	ItemizeLists bool
	// PageNumbers adds "Page N of M" at the bottom of each PDF page.
	PageNumbers bool

	// Image box limits in points.
	ImageMaxWidth  float64
	ImageMaxHeight float64

	TitleColor       Color
	DisclaimerColor  Color
	DisclaimerFill   Color
	DisclaimerBorder Color
	HeadingColor     Color
	FooterColor      Color
	BadgeColors      map[string]Color
}

// DefaultStyle returns the standard MediScan report style.
func DefaultStyle() Style {
	return Style{
		Title: "MediScan - Comprehensive Drug Analysis Report",
		Disclaimer: "MEDICAL DISCLAIMER: This information is provided for educational purposes only " +
			"and should not replace professional medical advice. Always consult with a healthcare " +
			"professional before making any medical decisions or changes to your medication regimen.",
		Footer:             "© 2025 MediScan - Comprehensive Drug Analyzer | Powered by Gemini AI + Tavily",
		ImageHeading:       "Analyzed Image",
		ResultsHeading:     "Drug Analysis Results",
		InteractionHeading: "Drug Interaction Analysis",
		FallbackLabel:      "Report",
		TimestampLayout:    "2006-01-02 15:04:05",
		PageNumbers:        true,
		ImageMaxWidth:      288,
		ImageMaxHeight:     360,
		TitleColor:         navy,
		DisclaimerColor:    red,
		DisclaimerFill:     pink,
		DisclaimerBorder:   red,
		HeadingColor:       black,
		FooterColor:        gray,
		BadgeColors: map[string]Color{
			"severe":       darkRed,
			"moderate":     orange,
			"minor":        amber,
			"none_low":     green,
			"avoid":        darkRed,
			"caution":      amber,
			"safe":         green,
			"unclassified": slateBlue,
		},
	}
}

// withDefaults fills unset fields from DefaultStyle.
func (s Style) withDefaults() Style {
	d := DefaultStyle()
	if s.Title == "" {
		s.Title = d.Title
	}
	if s.Disclaimer == "" {
		s.Disclaimer = d.Disclaimer
	}
	if s.Footer == "" {
		s.Footer = d.Footer
	}
	if s.ImageHeading == "" {
		s.ImageHeading = d.ImageHeading
	}
	if s.ResultsHeading == "" {
		s.ResultsHeading = d.ResultsHeading
	}
	if s.InteractionHeading == "" {
		s.InteractionHeading = d.InteractionHeading
	}
	if s.FallbackLabel == "" {
		s.FallbackLabel = d.FallbackLabel
	}
	if s.TimestampLayout == "" {
		s.TimestampLayout = d.TimestampLayout
	}
	if s.ImageMaxWidth <= 0 {
		s.ImageMaxWidth = d.ImageMaxWidth
	}
	if s.ImageMaxHeight <= 0 {
		s.ImageMaxHeight = d.ImageMaxHeight
	}
	if s.TitleColor == (Color{}) {
		s.TitleColor = d.TitleColor
	}
	if s.DisclaimerColor == (Color{}) {
		s.DisclaimerColor = d.DisclaimerColor
	}
	if s.DisclaimerFill == (Color{}) {
		s.DisclaimerFill = d.DisclaimerFill
	}
	if s.DisclaimerBorder == (Color{}) {
		s.DisclaimerBorder = d.DisclaimerBorder
	}
	if s.FooterColor == (Color{}) {
		s.FooterColor = d.FooterColor
	}
	if s.BadgeColors == nil {
		s.BadgeColors = d.BadgeColors
	}
	return s
}

func (s Style) badgeColor(tag string) Color {
	if c, ok := s.BadgeColors[tag]; ok {
		return c
	}
	return slateBlue
}
