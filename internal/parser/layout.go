package parser

import (
	"slices"
	"sort"
	"strings"
	"unicode"

	"github.com/dgallion1/pdf2llm/internal/doctree"
)

// Layout thresholds for native PDF text.
const (
	HeaderZone       = 0.10 // Top fraction of the page treated as header
	FooterZone       = 0.90 // Lines below this fraction are footer
	HeadingSizeRatio = 1.25 // Font size over the median that marks a heading

	NativeCoverage  = 0.8 // Text coverage above this is native_text
	ScannedCoverage = 0.2 // Text coverage below this is scanned

	defaultFontSize = 12.0
)

// Glyph is one positioned run of text in top-left page coordinates.
type Glyph struct {
	Text     string
	X, Y     float64 // Top-left corner
	W        float64
	FontSize float64
	Bold     bool
}

type textLine struct {
	glyphs []Glyph
	text   string
	box    doctree.BBox
	size   float64
	bold   bool
}

// LayoutPage groups glyphs into header, footer and body blocks in reading
// order. Headings carry a "#" level prefix derived from their size relative
// to the median body size.
func LayoutPage(glyphs []Glyph, height float64) doctree.ExtractedContent {
	var out doctree.ExtractedContent
	lines := groupLines(glyphs)
	if len(lines) == 0 {
		return out
	}
	median := medianFontSize(glyphs)

	var prev *doctree.TextBlock
	var prevLine *textLine
	for i := range lines {
		l := &lines[i]
		mid := (l.box.Y0 + l.box.Y1) / 2
		switch {
		case mid < height*HeaderZone:
			out.Headers = append(out.Headers, l.text)
			continue
		case mid > height*FooterZone:
			out.Footers = append(out.Footers, l.text)
			continue
		}

		kind := classifyLine(l, median)
		if kind == doctree.KindHeading {
			out.Blocks = append(out.Blocks, doctree.TextBlock{
				Text: strings.Repeat("#", headingTier(l.size, median)) + " " + l.text,
				Kind: doctree.KindHeading,
				BBox: l.box,
			})
			prev, prevLine = nil, l
			continue
		}

		if prev != nil && continues(prev, prevLine, l, kind) {
			prev.Text += "\n" + l.text
			prev.BBox = prev.BBox.Union(l.box)
			prevLine = l
			continue
		}
		out.Blocks = append(out.Blocks, doctree.TextBlock{Text: l.text, Kind: kind, BBox: l.box})
		prev, prevLine = &out.Blocks[len(out.Blocks)-1], l
	}
	out.BodyText = doctree.BodyText(out.Blocks)
	return out
}

// continues reports whether line l extends block prev: a paragraph line
// directly below a paragraph or list item of the same size.
func continues(prev *doctree.TextBlock, prevLine, l *textLine, kind doctree.Kind) bool {
	if kind != doctree.KindParagraph || prev.Kind == doctree.KindHeading {
		return false
	}
	if abs(prevLine.size-l.size) > 0.5 {
		return false
	}
	gap := l.box.Y0 - prevLine.box.Y1
	if gap > l.size*0.8 {
		return false
	}
	if prev.Kind == doctree.KindListItem {
		return l.box.X0 > prev.BBox.X0
	}
	return true
}

func classifyLine(l *textLine, median float64) doctree.Kind {
	if l.size > median*HeadingSizeRatio {
		return doctree.KindHeading
	}
	if l.bold && l.size >= median && len([]rune(l.text)) <= 120 {
		return doctree.KindHeading
	}
	if IsListItem(l.text) {
		return doctree.KindListItem
	}
	return doctree.KindParagraph
}

// headingTier maps a heading font size onto a level: the larger the size
// relative to the body median, the shallower the level.
func headingTier(size, median float64) int {
	ratio := size / median
	switch {
	case ratio >= 2.0:
		return 1
	case ratio >= 1.6:
		return 2
	case ratio > HeadingSizeRatio:
		return 3
	default:
		return 4
	}
}

// IsListItem reports whether text starts with a bullet glyph or a numbered
// prefix such as "1." or "2)".
func IsListItem(text string) bool {
	text = strings.TrimLeft(text, " \t")
	if text == "" {
		return false
	}
	r := []rune(text)
	if strings.ContainsRune("•◦▪▸–-", r[0]) {
		return true
	}
	i := 0
	for i < len(r) && unicode.IsDigit(r[i]) {
		i++
	}
	return i > 0 && i < len(r) && (r[i] == '.' || r[i] == ')')
}

// TextCoverage is the summed area of text lines over the page area,
// capped at 1.
func TextCoverage(c doctree.ExtractedContent, width, height float64) float64 {
	area := width * height
	if area <= 0 {
		return 0
	}
	var text float64
	for _, b := range c.Blocks {
		text += b.BBox.Area()
	}
	return min(text/area, 1)
}

// Classify routes a page by text coverage. Pages without images always
// have everything in their text layer.
func Classify(coverage float64, hasImages bool) doctree.Classification {
	switch {
	case !hasImages || coverage > NativeCoverage:
		return doctree.NativeText
	case coverage < ScannedCoverage:
		return doctree.Scanned
	default:
		return doctree.Mixed
	}
}

func groupLines(glyphs []Glyph) []textLine {
	gs := make([]Glyph, 0, len(glyphs))
	for _, g := range glyphs {
		if g.Text != "" {
			gs = append(gs, g)
		}
	}
	sort.SliceStable(gs, func(i, j int) bool { return gs[i].Y < gs[j].Y })

	var lines []textLine
	for _, g := range gs {
		size := g.FontSize
		if size <= 0 {
			size = defaultFontSize
		}
		if n := len(lines); n > 0 && abs(lines[n-1].glyphs[0].Y-g.Y) <= size*0.5 {
			lines[n-1].glyphs = append(lines[n-1].glyphs, g)
			continue
		}
		lines = append(lines, textLine{glyphs: []Glyph{g}})
	}

	out := lines[:0]
	for _, l := range lines {
		finishLine(&l)
		if l.text != "" {
			out = append(out, l)
		}
	}
	return out
}

func finishLine(l *textLine) {
	slices.SortStableFunc(l.glyphs, func(a, b Glyph) int {
		switch {
		case a.X < b.X:
			return -1
		case a.X > b.X:
			return 1
		}
		return 0
	})

	var buf strings.Builder
	var boldRunes, runes int
	first := l.glyphs[0]
	l.box = doctree.BBox{X0: first.X, Y0: first.Y, X1: first.X + first.W, Y1: first.Y + first.FontSize}
	prevEnd := first.X
	for i, g := range l.glyphs {
		if i > 0 && g.X-prevEnd > g.FontSize*0.2 && !strings.HasSuffix(buf.String(), " ") && !strings.HasPrefix(g.Text, " ") {
			buf.WriteByte(' ')
		}
		buf.WriteString(g.Text)
		prevEnd = g.X + g.W
		l.box = l.box.Union(doctree.BBox{X0: g.X, Y0: g.Y, X1: g.X + g.W, Y1: g.Y + g.FontSize})
		n := len([]rune(g.Text))
		runes += n
		if g.Bold {
			boldRunes += n
		}
		l.size = max(l.size, g.FontSize)
	}
	l.text = strings.Join(strings.Fields(buf.String()), " ")
	l.bold = runes > 0 && boldRunes*2 > runes
	if l.size <= 0 {
		l.size = defaultFontSize
	}
}

func medianFontSize(glyphs []Glyph) float64 {
	var sizes []float64
	for _, g := range glyphs {
		if g.FontSize > 0 && strings.TrimSpace(g.Text) != "" {
			sizes = append(sizes, g.FontSize)
		}
	}
	if len(sizes) == 0 {
		return defaultFontSize
	}
	slices.Sort(sizes)
	return sizes[len(sizes)/2]
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
