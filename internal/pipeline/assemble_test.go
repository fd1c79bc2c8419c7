package pipeline

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/dgallion1/pdf2llm/internal/codec"
	"github.com/dgallion1/pdf2llm/internal/doctree"
)

func contentPage(n int, blocks ...doctree.TextBlock) doctree.PageContent {
	return doctree.PageContent{
		PageNumber:     n,
		Classification: doctree.NativeText,
		Content:        doctree.ExtractedContent{Blocks: blocks, BodyText: doctree.BodyText(blocks)},
	}
}

func TestAssemble_HeadingLevels(t *testing.T) {
	doc := Assemble([]doctree.PageContent{
		contentPage(0,
			block(doctree.KindParagraph, "Cover.", 40),
			block(doctree.KindHeading, "# One", 72),
			block(doctree.KindHeading, "### Deep", 100),
			block(doctree.KindParagraph, "Deep text.", 120),
			block(doctree.KindHeading, "Two", 160),
		),
	})

	want := []doctree.Section{
		{Title: "One", Level: 1, Subsections: []doctree.Section{
			{Title: "Deep", Level: 3, Content: "Deep text."},
		}},
		{Title: "Two", Level: 1},
	}
	if diff := cmp.Diff(want, doc.Sections); diff != "" {
		t.Errorf("section tree mismatch (-want +got):\n%s", diff)
	}
	if got := doc.Pages[0].Content.BodyText; got != "Cover." {
		t.Errorf("expected lead text %q, got %q", "Cover.", got)
	}
}

func TestAssemble_ContentAcrossPages(t *testing.T) {
	doc := Assemble([]doctree.PageContent{
		contentPage(0, block(doctree.KindHeading, "# A", 72), block(doctree.KindParagraph, "First.", 100)),
		contentPage(1, block(doctree.KindHeading, "## B", 72), block(doctree.KindListItem, "item", 100)),
		contentPage(2, block(doctree.KindHeading, "# A", 72), block(doctree.KindParagraph, "Again.", 100)),
	})

	// B is still open when page 2 begins, so both it and its parent reach
	// that page before the second A closes them.
	want := []doctree.Section{
		{Title: "A", Level: 1, Content: "First.", PageStart: 0, PageEnd: 2, Subsections: []doctree.Section{
			{Title: "B", Level: 2, Content: "- item", PageStart: 1, PageEnd: 2},
		}},
		{Title: "A", Level: 1, Content: "Again.", PageStart: 2, PageEnd: 2},
	}
	if diff := cmp.Diff(want, doc.Sections); diff != "" {
		t.Errorf("section tree mismatch (-want +got):\n%s", diff)
	}
}

func TestAssemble_TitlesAreEncodable(t *testing.T) {
	doc := Assemble([]doctree.PageContent{
		contentPage(0, block(doctree.KindHeading, "# a ---> b", 72), block(doctree.KindParagraph, "x", 100)),
		contentPage(1, block(doctree.KindHeading, "#   ", 72)),
	})
	if len(doc.Sections) != 1 {
		t.Fatalf("expected blank heading to be dropped, got %d sections", len(doc.Sections))
	}
	if doc.Sections[0].Title != "a -> b" {
		t.Errorf("expected comment terminator removed, got %q", doc.Sections[0].Title)
	}
	text, err := codec.Encode(doc)
	if err != nil {
		t.Fatalf("expected assembled document to encode, got %v", err)
	}
	back, err := codec.Decode(text)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if back.Sections[0].Title != "a -> b" || back.Sections[0].PageEnd != 1 {
		t.Errorf("unexpected decoded section %+v", back.Sections[0])
	}
}

func TestAssemble_NormalizesText(t *testing.T) {
	doc := Assemble([]doctree.PageContent{
		contentPage(0, block(doctree.KindParagraph, "cafe\u0301", 72)),
	})
	if got := doc.Pages[0].Content.BodyText; got != "caf\u00e9" {
		t.Errorf("expected NFC text, got %q", got)
	}
}

func TestHeadingLevel(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"Plain", 1},
		{"# One", 1},
		{"## Two", 2},
		{"######## Eight", doctree.MaxLevel},
	}
	for _, tt := range tests {
		if got := headingLevel(tt.in); got != tt.want {
			t.Errorf("headingLevel(%q): expected %d, got %d", tt.in, tt.want, got)
		}
	}
}
