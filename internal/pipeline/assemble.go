package pipeline

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/dgallion1/pdf2llm/internal/codec"
	"github.com/dgallion1/pdf2llm/internal/doctree"
)

// Assemble builds the section tree from heading blocks. Each heading opens
// a section whose level is its "#" prefix (1 when absent); the blocks that
// follow it on the same page become its content. Blocks before a page's
// first heading stay on the page. Text is normalized to NFC.
func Assemble(pages []doctree.PageContent) doctree.Document {
	tb := doctree.NewTreeBuilder()
	out := make([]doctree.PageContent, len(pages))

	for i, p := range pages {
		tb.Page(p.PageNumber)

		var lead, body []doctree.TextBlock
		cur := -1
		flush := func() {
			if cur < 0 {
				return
			}
			content := codec.RenderContent(body)
			if prev := tb.Content(cur); prev != "" && content != "" {
				content = prev + "\n\n" + content
			}
			tb.SetContent(cur, content)
		}

		for _, b := range p.Content.Blocks {
			b.Text = norm.NFC.String(b.Text)
			if b.Kind == doctree.KindHeading {
				title := sectionTitle(b.Text)
				if title == "" {
					continue
				}
				flush()
				cur = tb.Open(headingLevel(b.Text), title)
				body = nil
				continue
			}
			if cur < 0 {
				lead = append(lead, b)
			} else {
				body = append(body, b)
			}
		}
		flush()

		p.Content.Blocks = lead
		p.Content.BodyText = doctree.BodyText(lead)
		p.Content.Headers = normalizeAll(p.Content.Headers)
		p.Content.Footers = normalizeAll(p.Content.Footers)
		out[i] = p
	}

	doc := doctree.Document{Sections: tb.Finish()}
	if len(out) > 0 {
		doc.Pages = out
	}
	return doc
}

// headingLevel reads the "#" prefix of a heading block.
func headingLevel(text string) int {
	t := strings.TrimSpace(text)
	n := len(t) - len(strings.TrimLeft(t, "#"))
	switch {
	case n <= 0:
		return 1
	case n > doctree.MaxLevel:
		return doctree.MaxLevel
	}
	return n
}

// sectionTitle strips the heading markers and anything that would read as
// a comment terminator in the structured text format.
func sectionTitle(text string) string {
	title := doctree.HeadingText(text)
	for strings.Contains(title, "-->") {
		title = strings.ReplaceAll(title, "-->", "->")
	}
	return title
}

func normalizeAll(ss []string) []string {
	if ss == nil {
		return nil
	}
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = norm.NFC.String(s)
	}
	return out
}
