package codec

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dgallion1/pdf2llm/internal/doctree"
)

// Encode renders doc as structured text. The canonical projection of doc is
// what gets written. Documents whose structure the decoder could not
// reproduce are refused with an *doctree.InvariantViolationError.
func Encode(doc doctree.Document) (string, error) {
	if err := doctree.Validate(doc); err != nil {
		return "", err
	}
	doc = doctree.Canonical(doc)
	if err := checkEncodable(doc); err != nil {
		return "", err
	}

	var order []*doctree.Section
	doctree.Walk(doc.Sections, func(s *doctree.Section, _ int) bool {
		order = append(order, s)
		return true
	})

	elems := []string{renderTOC(doc.Sections)}
	tb := doctree.NewTreeBuilder()
	next := 0
	for _, p := range doc.Pages {
		tb.Page(p.PageNumber)
		elems = append(elems, pageMarker(p.PageNumber+1))

		headingLevel := tb.InnermostLevel() + 1
		elems = append(elems, RenderBlocks(p.Content.Blocks, headingLevel)...)
		for _, t := range p.Content.Tables {
			elems = append(elems, RenderTable(t))
		}

		for ; next < len(order) && order[next].PageStart == p.PageNumber; next++ {
			s := order[next]
			tb.Open(s.Level, s.Title)
			elems = append(elems, sectionMarker(s.Title)+"\n"+strings.Repeat("#", s.Level)+" "+s.Title)
			if s.Content != "" {
				elems = append(elems, s.Content)
			}
		}
	}
	if next != len(order) {
		return "", doctree.Violation("section %q was not reached by any page", order[next].Title)
	}
	if err := sameShape(tb.Finish(), doc.Sections); err != nil {
		return "", err
	}
	return strings.Join(elems, "\n\n") + "\n", nil
}

func renderTOC(sections []doctree.Section) string {
	var b strings.Builder
	b.WriteString(tocOpen)
	b.WriteByte('\n')
	slugs := newSlugger()
	for _, s := range sections {
		fmt.Fprintf(&b, "- [%s](#%s) (p. %d-%d)\n", s.Title, slugs.next(s.Title), s.PageStart+1, s.PageEnd+1)
	}
	b.WriteString(tocClose)
	return b.String()
}

// checkEncodable rejects canonical documents the format cannot carry.
func checkEncodable(doc doctree.Document) error {
	if len(doc.Pages) == 0 && len(doc.Sections) > 0 {
		return doctree.Violation("document has sections but no pages")
	}
	prevStart := 0
	var err error
	doctree.Walk(doc.Sections, func(s *doctree.Section, _ int) bool {
		if err != nil {
			return false
		}
		switch {
		case s.Title != strings.TrimSpace(s.Title):
			err = doctree.Violation("section title %q has surrounding whitespace", s.Title)
		case strings.ContainsAny(s.Title, "\r\n"):
			err = doctree.Violation("section title %q spans lines", s.Title)
		case strings.Contains(s.Title, "-->"):
			err = doctree.Violation("section title %q contains a comment terminator", s.Title)
		case s.PageStart < prevStart:
			err = doctree.Violation("section %q starts on page %d after a section starting on page %d",
				s.Title, s.PageStart, prevStart)
		case s.PageStart >= len(doc.Pages):
			err = doctree.Violation("section %q starts on page %d of %d", s.Title, s.PageStart, len(doc.Pages))
		default:
			if line, ok := markerLine(s.Content); ok {
				err = doctree.Violation("section %q content contains marker line %q", s.Title, line)
			}
		}
		prevStart = s.PageStart
		return true
	})
	return err
}

func markerLine(content string) (string, bool) {
	if !strings.Contains(content, "<!--") {
		return "", false
	}
	for _, line := range strings.Split(content, "\n") {
		if k, _ := classifyMarker(line); k != notMarker {
			return line, true
		}
	}
	return "", false
}

// sameShape compares the tree the decoder would rebuild with the input tree.
func sameShape(got, want []doctree.Section) error {
	if len(got) != len(want) {
		return doctree.Violation("section nesting cannot be reproduced: %d sections rebuilt where %d expected",
			len(got), len(want))
	}
	for i := range want {
		g, w := got[i], want[i]
		if g.Title != w.Title || g.Level != w.Level {
			return doctree.Violation("section %q (level %d) rebuilt as %q (level %d)",
				w.Title, w.Level, g.Title, g.Level)
		}
		if g.PageStart != w.PageStart || g.PageEnd != w.PageEnd {
			return doctree.Violation("section %q pages %s cannot be reproduced, decoding yields %s",
				w.Title, pageRange(w), pageRange(g))
		}
		if err := sameShape(g.Subsections, w.Subsections); err != nil {
			return err
		}
	}
	return nil
}

func pageRange(s doctree.Section) string {
	return strconv.Itoa(s.PageStart) + "-" + strconv.Itoa(s.PageEnd)
}
