package codec

import (
	"strings"

	"github.com/dgallion1/pdf2llm/internal/doctree"
)

// RenderBlocks renders blocks as markdown elements, to be separated by blank
// lines. Blocks are canonicalized first. A run of list items is one element.
// Heading blocks are written at headingLevel (clamped to 1..6).
func RenderBlocks(blocks []doctree.TextBlock, headingLevel int) []string {
	headingLevel = min(max(headingLevel, 1), doctree.MaxLevel)

	var out, list []string
	flushList := func() {
		if len(list) > 0 {
			out = append(out, strings.Join(list, "\n"))
			list = nil
		}
	}
	for _, b := range doctree.CanonicalBlocks(blocks) {
		switch b.Kind {
		case doctree.KindListItem:
			list = append(list, renderListItem(b))
		case doctree.KindHeading:
			flushList()
			out = append(out, strings.Repeat("#", headingLevel)+" "+b.Text)
		default:
			flushList()
			out = append(out, renderParagraph(b.Text))
		}
	}
	flushList()
	return out
}

// RenderContent renders blocks as one markdown string.
func RenderContent(blocks []doctree.TextBlock) string {
	return strings.Join(RenderBlocks(blocks, 1), "\n\n")
}

func renderListItem(b doctree.TextBlock) string {
	indent := strings.Repeat("  ", doctree.ListDepth(b))
	if listNumberRe.MatchString(b.Text) {
		return indent + b.Text
	}
	return indent + "- " + b.Text
}

func renderParagraph(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if needsEscape(line) {
			lines[i] = `\` + line
		}
	}
	return strings.Join(lines, "\n")
}

// needsEscape reports whether a paragraph line would otherwise be read as
// markup.
func needsEscape(line string) bool {
	if line == "" {
		return false
	}
	switch line[0] {
	case '\\', '#', '|', '<', '-', '*', '+', '>':
		return true
	}
	return numberedPrefix.MatchString(line)
}

// RenderTable renders t as a GFM table whose first row is the header.
func RenderTable(t doctree.Table) string {
	if len(t.Rows) == 0 {
		return ""
	}
	lines := make([]string, 0, len(t.Rows)+1)
	lines = append(lines, renderRow(t.Rows[0]))
	lines = append(lines, "|"+strings.Repeat(" --- |", len(t.Rows[0])))
	for _, r := range t.Rows[1:] {
		lines = append(lines, renderRow(r))
	}
	return strings.Join(lines, "\n")
}

var cellEscaper = strings.NewReplacer(`\`, `\\`, `|`, `\|`)

func renderRow(cells []string) string {
	var b strings.Builder
	b.WriteByte('|')
	for _, c := range cells {
		if c == "" {
			b.WriteString(" |")
			continue
		}
		b.WriteByte(' ')
		b.WriteString(cellEscaper.Replace(c))
		b.WriteString(" |")
	}
	return b.String()
}

// splitRow splits a table line into unescaped, trimmed cells.
func splitRow(line string) []string {
	s := strings.TrimSpace(line)
	s = strings.TrimPrefix(s, "|")

	var cells []string
	var cur strings.Builder
	escaped := false
	for _, r := range s {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == '|':
			cells = append(cells, strings.TrimSpace(cur.String()))
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	if escaped {
		cur.WriteByte('\\')
	}
	if rest := strings.TrimSpace(cur.String()); rest != "" {
		cells = append(cells, rest)
	}
	return cells
}

func isSeparatorRow(cells []string) bool {
	if len(cells) == 0 {
		return false
	}
	for _, c := range cells {
		if !separatorCellRe.MatchString(c) {
			return false
		}
	}
	return true
}

// parseLead turns the lines of a page's lead region into blocks and tables.
// first is the 1-based line number of lines[0].
func parseLead(lines []string, first int) ([]doctree.TextBlock, []doctree.Table, error) {
	var blocks []doctree.TextBlock
	var tables []doctree.Table
	var para []string

	flushPara := func() {
		if len(para) > 0 {
			blocks = append(blocks, doctree.TextBlock{Text: strings.Join(para, "\n"), Kind: doctree.KindParagraph})
			para = nil
		}
	}

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == "":
			flushPara()

		case strings.HasPrefix(trimmed, "|"):
			flushPara()
			start := i
			var rows [][]string
			for ; i < len(lines) && strings.HasPrefix(strings.TrimSpace(lines[i]), "|"); i++ {
				cells := splitRow(lines[i])
				if i == start+1 && isSeparatorRow(cells) {
					continue
				}
				if len(rows) > 0 && len(cells) != len(rows[0]) {
					return nil, nil, doctree.Malformed(first+i,
						"table row has %d columns, header has %d", len(cells), len(rows[0]))
				}
				rows = append(rows, cells)
			}
			i--
			if len(rows) > 0 && len(rows[0]) == 0 {
				return nil, nil, doctree.Malformed(first+start, "table row without cells")
			}
			tables = append(tables, doctree.NewTable(rows))

		case strings.HasPrefix(trimmed, "#") && headingRe.MatchString(trimmed):
			flushPara()
			m := headingRe.FindStringSubmatch(trimmed)
			if len(m[1]) > doctree.MaxLevel {
				para = append(para, trimmed)
				continue
			}
			blocks = append(blocks, doctree.TextBlock{Text: m[2], Kind: doctree.KindHeading})

		case listBulletRe.MatchString(line):
			flushPara()
			m := listBulletRe.FindStringSubmatch(line)
			blocks = append(blocks, listBlock(m[2], len(m[1])))

		case listNumberRe.MatchString(line):
			flushPara()
			m := listNumberRe.FindStringSubmatch(line)
			blocks = append(blocks, listBlock(m[2], len(m[1])))

		default:
			para = append(para, strings.TrimPrefix(trimmed, `\`))
		}
	}
	flushPara()
	return doctree.CanonicalBlocks(blocks), tables, nil
}

func listBlock(text string, indent int) doctree.TextBlock {
	return doctree.TextBlock{
		Text: text,
		Kind: doctree.KindListItem,
		BBox: doctree.BBox{X0: float64(indent/2) * doctree.ListIndent},
	}
}
