package doctree

import "strings"

// Kind is the semantic role of a text block on a page.
type Kind string

const (
	KindParagraph Kind = "paragraph"
	KindHeading   Kind = "heading"
	KindListItem  Kind = "list_item"
	KindTableCell Kind = "table_cell"
)

// Classification describes how a page's text can be obtained.
type Classification string

const (
	NativeText Classification = "native_text" // Extractable text layer
	Scanned    Classification = "scanned"     // Image only, needs OCR
	Mixed      Classification = "mixed"       // Both text layer and images
)

// Valid reports whether c is one of the known classifications.
func (c Classification) Valid() bool {
	switch c {
	case NativeText, Scanned, Mixed:
		return true
	}
	return false
}

// BBox is a page-relative rectangle with the origin at the top-left corner.
type BBox struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

// TextBlock is a positioned piece of text with a semantic kind.
type TextBlock struct {
	Text string `json:"text"`
	BBox BBox   `json:"bbox"`
	Kind Kind   `json:"kind"`
}

// Table is a grid of cell strings. Build with NewTable to keep rows rectangular.
type Table struct {
	Rows [][]string `json:"rows"`
}

// ExtractedContent is everything pulled from one page by one extractor.
type ExtractedContent struct {
	BodyText string      `json:"body_text"`
	Headers  []string    `json:"headers,omitempty"`
	Footers  []string    `json:"footers,omitempty"`
	Tables   []Table     `json:"tables,omitempty"`
	Blocks   []TextBlock `json:"blocks,omitempty"` // Reading order
}

// PageContent is the final content of one physical page.
type PageContent struct {
	PageNumber     int              `json:"page_number"` // 0-based
	Classification Classification   `json:"classification"`
	Content        ExtractedContent `json:"content"`
	OCRConfidence  *float64         `json:"ocr_confidence,omitempty"`
}

// Section is a titled node of the document outline. Subsections are owned
// by value; there are no back-references.
type Section struct {
	Title       string    `json:"title"`
	Level       int       `json:"level"`
	Content     string    `json:"content"`
	PageStart   int       `json:"page_start"`
	PageEnd     int       `json:"page_end"`
	Subsections []Section `json:"subsections,omitempty"`
}

// Document is the root of a converted document.
type Document struct {
	Sections []Section     `json:"sections"`
	Pages    []PageContent `json:"pages"`
}

// Empty reports whether the document has neither pages nor sections.
func (d Document) Empty() bool {
	return len(d.Pages) == 0 && len(d.Sections) == 0
}

// CountSections returns the number of section nodes in the tree, nested included.
func CountSections(sections []Section) int {
	n := 0
	for _, s := range sections {
		n += 1 + CountSections(s.Subsections)
	}
	return n
}

// Walk visits sections in preorder. Returning false from fn skips the
// section's subsections.
func Walk(sections []Section, fn func(s *Section, depth int) bool) {
	var walk func(secs []Section, depth int)
	walk = func(secs []Section, depth int) {
		for i := range secs {
			if fn(&secs[i], depth) {
				walk(secs[i].Subsections, depth+1)
			}
		}
	}
	walk(sections, 0)
}

// BodyText joins block texts into the page body, one blank line apart.
func BodyText(blocks []TextBlock) string {
	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		if t := strings.TrimSpace(b.Text); t != "" {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, "\n\n")
}
