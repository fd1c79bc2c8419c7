package codec

import (
	"strconv"
	"strings"

	"github.com/dgallion1/pdf2llm/internal/doctree"
)

type tocEntry struct {
	line  int
	title string
	start int
	end   int
}

type decoder struct {
	lines   []string
	pos     int
	tocSeen bool
	tocLine int
	toc     []tocEntry
	tb      *doctree.TreeBuilder
	pages   []doctree.PageContent
}

// Decode parses structured text back into a Document. Any structural
// problem fails the whole decode with a *doctree.MalformedDocumentError.
// Blank input decodes to an empty Document.
func Decode(text string) (doctree.Document, error) {
	d := &decoder{
		lines: strings.Split(doctree.NormalizeNewlines(text), "\n"),
		tb:    doctree.NewTreeBuilder(),
	}
	if err := d.preamble(); err != nil {
		return doctree.Document{}, err
	}
	for d.pos < len(d.lines) {
		var err error
		switch kind, arg := classifyMarker(d.lines[d.pos]); kind {
		case markPage:
			err = d.page(arg)
		case markSection:
			err = d.section(arg)
		default:
			err = doctree.Malformed(d.pos+1, "table of contents marker after the first page")
		}
		if err != nil {
			return doctree.Document{}, err
		}
	}

	sections := d.tb.Finish()
	if err := d.checkTOC(sections); err != nil {
		return doctree.Document{}, err
	}
	return doctree.Document{Sections: sections, Pages: d.pages}, nil
}

// preamble consumes everything before the first page marker: blank lines
// and at most one table of contents.
func (d *decoder) preamble() error {
	for d.pos < len(d.lines) {
		line := d.lines[d.pos]
		if strings.TrimSpace(line) == "" {
			d.pos++
			continue
		}
		switch kind, _ := classifyMarker(line); kind {
		case markPage:
			return nil
		case markTOCOpen:
			if d.tocSeen {
				return doctree.Malformed(d.pos+1, "second table of contents")
			}
			if err := d.parseTOC(); err != nil {
				return err
			}
		case markTOCClose:
			return doctree.Malformed(d.pos+1, "table of contents closed without being opened")
		case markSection:
			return doctree.Malformed(d.pos+1, "section marker before the first page marker")
		default:
			return doctree.Malformed(d.pos+1, "content before the first page marker")
		}
	}
	return nil
}

func (d *decoder) parseTOC() error {
	d.tocSeen = true
	d.tocLine = d.pos + 1
	for d.pos++; d.pos < len(d.lines); d.pos++ {
		line := strings.TrimSpace(d.lines[d.pos])
		if line == "" {
			continue
		}
		if line == tocClose {
			d.pos++
			return nil
		}
		m := tocEntryRe.FindStringSubmatch(line)
		if m == nil {
			return doctree.Malformed(d.pos+1, "invalid table of contents entry %q", line)
		}
		start, err1 := strconv.Atoi(m[3])
		end, err2 := strconv.Atoi(m[4])
		if err1 != nil || err2 != nil {
			return doctree.Malformed(d.pos+1, "invalid page range in table of contents entry %q", line)
		}
		d.toc = append(d.toc, tocEntry{line: d.pos + 1, title: m[1], start: start, end: end})
	}
	return doctree.Malformed(d.tocLine, "table of contents is not closed")
}

// body returns the lines from the current position up to the next marker.
func (d *decoder) body() []string {
	start := d.pos
	for d.pos < len(d.lines) {
		if k, _ := classifyMarker(d.lines[d.pos]); k != notMarker {
			break
		}
		d.pos++
	}
	return d.lines[start:d.pos]
}

func (d *decoder) page(arg string) error {
	want := len(d.pages) + 1
	n, err := strconv.Atoi(arg)
	if err != nil || n != want {
		return doctree.Malformed(d.pos+1, "page marker %s out of sequence, expected %d", arg, want)
	}
	d.tb.Page(n - 1)

	d.pos++
	first := d.pos + 1
	blocks, tables, err := parseLead(d.body(), first)
	if err != nil {
		return err
	}
	d.pages = append(d.pages, doctree.PageContent{
		PageNumber:     n - 1,
		Classification: doctree.NativeText,
		Content: doctree.ExtractedContent{
			BodyText: doctree.BodyText(blocks),
			Tables:   tables,
			Blocks:   blocks,
		},
	})
	return nil
}

func (d *decoder) section(title string) error {
	markerLine := d.pos + 1
	if d.pos+1 >= len(d.lines) {
		return doctree.Malformed(markerLine, "section %q not followed by its heading", title)
	}
	m := headingRe.FindStringSubmatch(d.lines[d.pos+1])
	if m == nil || m[2] != title {
		return doctree.Malformed(markerLine+1, "section %q not followed by its heading", title)
	}
	level := len(m[1])
	if level > doctree.MaxLevel {
		return doctree.Malformed(markerLine+1, "heading level %d outside 1..%d", level, doctree.MaxLevel)
	}

	idx := d.tb.Open(level, title)
	d.pos += 2
	d.tb.SetContent(idx, doctree.TrimBlankLines(strings.Join(d.body(), "\n")))
	return nil
}

// checkTOC matches table of contents entries to the top-level sections.
// A document without a table of contents is accepted as is.
func (d *decoder) checkTOC(sections []doctree.Section) error {
	if !d.tocSeen {
		return nil
	}
	for i, e := range d.toc {
		if i >= len(sections) {
			return doctree.Malformed(e.line, "table of contents entry %q has no matching section", e.title)
		}
		s := sections[i]
		if e.title != s.Title {
			return doctree.Malformed(e.line, "table of contents entry %q does not match section %q", e.title, s.Title)
		}
		if e.start != s.PageStart+1 || e.end != s.PageEnd+1 {
			return doctree.Malformed(e.line, "table of contents lists %q on pages %d-%d, document has %d-%d",
				e.title, e.start, e.end, s.PageStart+1, s.PageEnd+1)
		}
	}
	if len(sections) > len(d.toc) {
		return doctree.Malformed(d.tocLine, "section %q missing from the table of contents", sections[len(d.toc)].Title)
	}
	return nil
}
