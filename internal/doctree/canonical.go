package doctree

import (
	"math"
	"strings"
)

// ListIndent is the horizontal offset of one list nesting level.
const ListIndent = 30.0

// BulletGlyphs are the leading characters that mark a bulleted list item.
const BulletGlyphs = "•◦▪▸–-*"

// Canonical projects doc onto the subset of information the structured text
// format carries. Decoding an encoded document yields exactly its canonical
// form, and Canonical is idempotent.
//
// The projection drops headers, footers, classifications, OCR confidence and
// geometry (list items keep their nesting depth as X0), normalizes block and
// cell whitespace, and rebuilds the body text from the blocks.
func Canonical(doc Document) Document {
	var out Document
	if len(doc.Pages) > 0 {
		out.Pages = make([]PageContent, len(doc.Pages))
		for i, p := range doc.Pages {
			out.Pages[i] = canonicalPage(p)
		}
	}
	out.Sections = canonicalSections(doc.Sections)
	return out
}

func canonicalPage(p PageContent) PageContent {
	blocks := p.Content.Blocks
	if len(blocks) == 0 && strings.TrimSpace(p.Content.BodyText) != "" {
		blocks = ParagraphBlocks(p.Content.BodyText)
	}
	blocks = CanonicalBlocks(blocks)

	var tables []Table
	for _, t := range p.Content.Tables {
		if ct, ok := canonicalTable(t); ok {
			tables = append(tables, ct)
		}
	}
	return PageContent{
		PageNumber:     p.PageNumber,
		Classification: NativeText,
		Content: ExtractedContent{
			BodyText: BodyText(blocks),
			Tables:   tables,
			Blocks:   blocks,
		},
	}
}

// ParagraphBlocks splits text on blank lines into paragraph blocks.
func ParagraphBlocks(text string) []TextBlock {
	var out []TextBlock
	var cur []string
	flush := func() {
		if len(cur) > 0 {
			out = append(out, TextBlock{Text: strings.Join(cur, "\n"), Kind: KindParagraph})
			cur = cur[:0]
		}
	}
	for _, line := range strings.Split(NormalizeNewlines(text), "\n") {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		cur = append(cur, line)
	}
	flush()
	return out
}

// CanonicalBlocks normalizes block text per kind, drops empty blocks and
// lays out list runs by depth.
func CanonicalBlocks(blocks []TextBlock) []TextBlock {
	var out []TextBlock
	var rawX []float64
	for _, b := range blocks {
		kind := b.Kind
		var text string
		switch kind {
		case KindHeading:
			text = HeadingText(b.Text)
		case KindListItem:
			text = ListItemText(b.Text)
		default:
			kind = KindParagraph
			text = paragraphText(b.Text)
		}
		if text == "" {
			continue
		}
		out = append(out, TextBlock{Text: text, Kind: kind})
		rawX = append(rawX, b.BBox.X0)
	}

	for i := 0; i < len(out); {
		if out[i].Kind != KindListItem {
			i++
			continue
		}
		j := i
		minX := math.Inf(1)
		for j < len(out) && out[j].Kind == KindListItem {
			minX = math.Min(minX, rawX[j])
			j++
		}
		for k := i; k < j; k++ {
			depth := math.Round((rawX[k] - minX) / ListIndent)
			out[k].BBox = BBox{X0: depth * ListIndent}
		}
		i = j
	}
	return out
}

// ListDepth returns the nesting depth encoded in a canonical list item.
func ListDepth(b TextBlock) int {
	return int(math.Round(b.BBox.X0 / ListIndent))
}

// HeadingText strips markdown heading markers and collapses whitespace.
func HeadingText(s string) string {
	return strings.Join(strings.Fields(strings.TrimLeft(s, "# \t\r\n")), " ")
}

// ListItemText strips bullet glyphs and collapses whitespace. Numbered
// prefixes are kept.
func ListItemText(s string) string {
	return strings.Join(strings.Fields(strings.TrimLeft(s, BulletGlyphs+" \t\r\n")), " ")
}

func paragraphText(s string) string {
	var lines []string
	for _, line := range strings.Split(NormalizeNewlines(s), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

// CellText is the canonical form of a table cell: one trimmed line.
func CellText(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(NormalizeNewlines(s), "\n", " "))
}

func canonicalTable(t Table) (Table, bool) {
	rows := make([][]string, 0, len(t.Rows))
	for _, r := range t.Rows {
		row := make([]string, len(r))
		for i, c := range r {
			row[i] = CellText(c)
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return Table{}, false
	}
	return NewTable(rows), true
}

// TrimBlankLines drops leading and trailing whitespace-only lines.
func TrimBlankLines(s string) string {
	lines := strings.Split(NormalizeNewlines(s), "\n")
	start, end := 0, len(lines)
	for start < end && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	for end > start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	return strings.Join(lines[start:end], "\n")
}

// NormalizeNewlines converts CRLF and lone CR line endings to LF.
func NormalizeNewlines(s string) string {
	if !strings.Contains(s, "\r") {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

func canonicalSections(secs []Section) []Section {
	if len(secs) == 0 {
		return nil
	}
	out := make([]Section, len(secs))
	for i, s := range secs {
		out[i] = Section{
			Title:       s.Title,
			Level:       s.Level,
			Content:     TrimBlankLines(s.Content),
			PageStart:   s.PageStart,
			PageEnd:     s.PageEnd,
			Subsections: canonicalSections(s.Subsections),
		}
	}
	return out
}
