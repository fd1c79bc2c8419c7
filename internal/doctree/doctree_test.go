package doctree

import (
	"errors"
	"testing"
)

func TestTreeBuilder_NestedRanges(t *testing.T) {
	b := NewTreeBuilder()
	b.Page(0)
	b.Open(1, "A")
	b.Page(1)
	b.Open(2, "B")
	b.Page(2)
	secs := b.Finish()

	if len(secs) != 1 {
		t.Fatalf("expected 1 top-level section, got %d", len(secs))
	}
	a := secs[0]
	if a.Title != "A" || a.PageStart != 0 || a.PageEnd != 2 {
		t.Errorf("expected A pages 0-2, got %q %d-%d", a.Title, a.PageStart, a.PageEnd)
	}
	if len(a.Subsections) != 1 {
		t.Fatalf("expected 1 subsection, got %d", len(a.Subsections))
	}
	bs := a.Subsections[0]
	if bs.Title != "B" || bs.Level != 2 || bs.PageStart != 1 || bs.PageEnd != 2 {
		t.Errorf("expected B level 2 pages 1-2, got %q level %d %d-%d", bs.Title, bs.Level, bs.PageStart, bs.PageEnd)
	}
}

func TestTreeBuilder_SiblingsCloseAtSameLevel(t *testing.T) {
	b := NewTreeBuilder()
	b.Page(0)
	b.Open(1, "One")
	b.Open(2, "One.a")
	b.Page(1)
	b.Open(2, "One.b")
	b.Open(1, "Two")
	b.Page(2)
	secs := b.Finish()

	if len(secs) != 2 {
		t.Fatalf("expected 2 top-level sections, got %d", len(secs))
	}
	one := secs[0]
	if len(one.Subsections) != 2 {
		t.Fatalf("expected 2 children of One, got %d", len(one.Subsections))
	}
	if one.PageEnd != 1 {
		t.Errorf("expected One to end on page 1, got %d", one.PageEnd)
	}
	if one.Subsections[0].PageEnd != 0 {
		t.Errorf("expected One.a to end on page 0, got %d", one.Subsections[0].PageEnd)
	}
	two := secs[1]
	if two.PageStart != 1 || two.PageEnd != 2 {
		t.Errorf("expected Two pages 1-2, got %d-%d", two.PageStart, two.PageEnd)
	}
}

func TestTreeBuilder_ShallowerHeadingAfterDeepOne(t *testing.T) {
	b := NewTreeBuilder()
	b.Page(0)
	b.Open(3, "Deep")
	b.Open(2, "Shallow")
	secs := b.Finish()
	if len(secs) != 2 {
		t.Fatalf("expected level 2 after level 3 to be a new top-level section, got %d roots", len(secs))
	}
}

func TestTreeBuilder_Content(t *testing.T) {
	b := NewTreeBuilder()
	b.Page(0)
	idx := b.Open(1, "A")
	b.SetContent(idx, "body")
	if b.Content(idx) != "body" {
		t.Errorf("expected content %q, got %q", "body", b.Content(idx))
	}
	if b.InnermostLevel() != 1 {
		t.Errorf("expected innermost level 1, got %d", b.InnermostLevel())
	}
	secs := b.Finish()
	if secs[0].Content != "body" {
		t.Errorf("expected materialized content %q, got %q", "body", secs[0].Content)
	}
}

func validDoc() Document {
	return Document{
		Pages: []PageContent{
			{PageNumber: 0, Classification: NativeText},
			{PageNumber: 1, Classification: Scanned},
			{PageNumber: 2, Classification: Mixed},
		},
		Sections: []Section{
			{Title: "A", Level: 1, PageStart: 0, PageEnd: 2, Subsections: []Section{
				{Title: "B", Level: 2, PageStart: 1, PageEnd: 2},
			}},
		},
	}
}

func TestValidate_Valid(t *testing.T) {
	if err := Validate(validDoc()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := Validate(Document{}); err != nil {
		t.Fatalf("expected empty document to be valid, got %v", err)
	}
}

func TestValidate_Violations(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(d *Document)
	}{
		{"page gap", func(d *Document) { d.Pages[2].PageNumber = 3 }},
		{"bad classification", func(d *Document) { d.Pages[0].Classification = "photo" }},
		{"confidence out of range", func(d *Document) { c := 1.5; d.Pages[1].OCRConfidence = &c }},
		{"ragged table", func(d *Document) {
			d.Pages[0].Content.Tables = []Table{{Rows: [][]string{{"a", "b"}, {"c"}}}}
		}},
		{"child level not deeper", func(d *Document) { d.Sections[0].Subsections[0].Level = 1 }},
		{"child starts outside parent", func(d *Document) {
			d.Sections[0].PageEnd = 0
			d.Sections[0].Subsections[0].PageStart = 1
		}},
		{"empty title", func(d *Document) { d.Sections[0].Title = "  " }},
		{"level too deep", func(d *Document) { d.Sections[0].Level = 7 }},
		{"start after end", func(d *Document) { d.Sections[0].PageStart = 2; d.Sections[0].PageEnd = 1 }},
		{"ends past last page", func(d *Document) { d.Sections[0].PageEnd = 3 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validDoc()
			tt.mutate(&d)
			err := Validate(d)
			var ive *InvariantViolationError
			if !errors.As(err, &ive) {
				t.Fatalf("expected InvariantViolationError, got %v", err)
			}
		})
	}
}

func TestNewTable_PadsRaggedRows(t *testing.T) {
	tbl := NewTable([][]string{{"a", "b", "c"}, {"d"}, {}})
	if tbl.Columns() != 3 {
		t.Fatalf("expected 3 columns, got %d", tbl.Columns())
	}
	for i, r := range tbl.Rows {
		if len(r) != 3 {
			t.Errorf("row %d: expected 3 cells, got %d", i, len(r))
		}
	}
	if tbl.Rows[1][0] != "d" || tbl.Rows[1][2] != "" {
		t.Errorf("expected padded row [d  ], got %q", tbl.Rows[1])
	}
}

func TestNewTable_AtLeastOneColumn(t *testing.T) {
	tbl := NewTable([][]string{{}})
	if tbl.Columns() != 1 {
		t.Errorf("expected 1 column, got %d", tbl.Columns())
	}
}

func TestBBox_OverlapRatio(t *testing.T) {
	ocr := BBox{X0: 0, Y0: 0, X1: 10, Y1: 10}
	native := BBox{X0: 5, Y0: 0, X1: 20, Y1: 10}
	if got := ocr.OverlapRatio(native); got != 0.5 {
		t.Errorf("expected ratio 0.5, got %v", got)
	}
	if got := ocr.OverlapRatio(BBox{X0: 50, Y0: 50, X1: 60, Y1: 60}); got != 0 {
		t.Errorf("expected ratio 0 for disjoint boxes, got %v", got)
	}
	if got := (BBox{}).OverlapRatio(native); got != 0 {
		t.Errorf("expected ratio 0 for empty box, got %v", got)
	}
}

func TestCountSectionsAndWalk(t *testing.T) {
	d := validDoc()
	if n := CountSections(d.Sections); n != 2 {
		t.Errorf("expected 2 sections, got %d", n)
	}
	var titles []string
	Walk(d.Sections, func(s *Section, depth int) bool {
		titles = append(titles, s.Title)
		return true
	})
	if len(titles) != 2 || titles[0] != "A" || titles[1] != "B" {
		t.Errorf("expected preorder [A B], got %v", titles)
	}
}
