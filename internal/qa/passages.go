package qa

import (
	"strconv"
	"strings"

	"github.com/dgallion1/pdf2llm/internal/codec"
	"github.com/dgallion1/pdf2llm/internal/doctree"
)

// Passages flattens an answers document into leaf sections. A leaf also
// collects the page text of later pages it spans while it is the innermost
// open section. A document without sections yields one passage per page
// with text.
func Passages(doc doctree.Document) []Passage {
	if len(doc.Sections) == 0 {
		var out []Passage
		for _, p := range doc.Pages {
			text := pageText(p)
			if text == "" {
				continue
			}
			out = append(out, Passage{
				Title:     "Page " + strconv.Itoa(p.PageNumber+1),
				PageStart: p.PageNumber,
				PageEnd:   p.PageNumber,
				Text:      text,
			})
		}
		return out
	}

	order := preorder(doc.Sections)
	parts := make([][]string, len(order))
	for i, s := range order {
		if c := strings.TrimSpace(s.Content); c != "" {
			parts[i] = append(parts[i], c)
		}
	}

	var stack []int
	next := 0
	for _, p := range doc.Pages {
		if len(stack) > 0 {
			top := stack[len(stack)-1]
			if len(order[top].Subsections) == 0 {
				if text := pageText(p); text != "" {
					parts[top] = append(parts[top], text)
				}
			}
		}
		for ; next < len(order) && order[next].PageStart == p.PageNumber; next++ {
			for len(stack) > 0 && order[stack[len(stack)-1]].Level >= order[next].Level {
				stack = stack[:len(stack)-1]
			}
			stack = append(stack, next)
		}
	}

	var out []Passage
	for i, s := range order {
		if len(s.Subsections) > 0 {
			continue
		}
		out = append(out, Passage{
			Title:     s.Title,
			PageStart: s.PageStart,
			PageEnd:   s.PageEnd,
			Text:      strings.Join(parts[i], "\n\n"),
		})
	}
	return out
}

// Questions extracts one question per page of a questions document: the
// page text followed by the title and content of every section starting
// on that page. Pages with nothing to ask are skipped.
func Questions(doc doctree.Document) []string {
	starts := make(map[int][]*doctree.Section)
	for _, s := range preorder(doc.Sections) {
		starts[s.PageStart] = append(starts[s.PageStart], s)
	}

	var out []string
	for _, p := range doc.Pages {
		var parts []string
		if text := pageText(p); text != "" {
			parts = append(parts, text)
		}
		for _, s := range starts[p.PageNumber] {
			parts = append(parts, s.Title)
			if c := strings.TrimSpace(s.Content); c != "" {
				parts = append(parts, c)
			}
		}
		if q := strings.TrimSpace(strings.Join(parts, "\n\n")); q != "" {
			out = append(out, q)
		}
	}
	return out
}

func preorder(sections []doctree.Section) []*doctree.Section {
	var out []*doctree.Section
	doctree.Walk(sections, func(s *doctree.Section, _ int) bool {
		out = append(out, s)
		return true
	})
	return out
}

// pageText is a page's body followed by its tables in markdown.
func pageText(p doctree.PageContent) string {
	parts := []string{strings.TrimSpace(p.Content.BodyText)}
	for _, t := range p.Content.Tables {
		parts = append(parts, codec.RenderTable(t))
	}
	return strings.TrimSpace(strings.Join(parts, "\n\n"))
}
