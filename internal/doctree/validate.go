package doctree

import "strings"

// MaxLevel is the deepest heading level.
const MaxLevel = 6

// Validate checks the document invariants and returns the first breach as
// an *InvariantViolationError.
func Validate(doc Document) error {
	for i, p := range doc.Pages {
		if p.PageNumber != i {
			return Violation("page %d has page_number %d, expected %d", i, p.PageNumber, i)
		}
		if !p.Classification.Valid() {
			return Violation("page %d has unknown classification %q", i, p.Classification)
		}
		if c := p.OCRConfidence; c != nil && (*c < 0 || *c > 1) {
			return Violation("page %d ocr_confidence %v outside [0,1]", i, *c)
		}
		for j, t := range p.Content.Tables {
			if problem := tableProblem(t); problem != "" {
				return Violation("page %d table %d: %s", i, j, problem)
			}
		}
	}
	return validateSections(doc.Sections, nil, len(doc.Pages))
}

func tableProblem(t Table) string {
	width := t.Columns()
	if len(t.Rows) > 0 && width < 1 {
		return "rows have no columns"
	}
	for _, r := range t.Rows {
		if len(r) != width {
			return "ragged rows"
		}
	}
	return ""
}

func validateSections(secs []Section, parent *Section, pageCount int) error {
	prevStart := -1
	for i := range secs {
		s := &secs[i]
		if strings.TrimSpace(s.Title) == "" {
			return Violation("section with empty title")
		}
		if s.Level < 1 || s.Level > MaxLevel {
			return Violation("section %q level %d outside 1..%d", s.Title, s.Level, MaxLevel)
		}
		if s.PageStart < 0 || s.PageStart > s.PageEnd {
			return Violation("section %q page range %d-%d", s.Title, s.PageStart, s.PageEnd)
		}
		if pageCount > 0 && s.PageEnd >= pageCount {
			return Violation("section %q ends on page %d of %d", s.Title, s.PageEnd, pageCount)
		}
		if parent != nil {
			if s.Level <= parent.Level {
				return Violation("section %q level %d not deeper than parent %q level %d",
					s.Title, s.Level, parent.Title, parent.Level)
			}
			if s.PageStart < parent.PageStart || s.PageStart > parent.PageEnd {
				return Violation("section %q starts on page %d outside parent %q range %d-%d",
					s.Title, s.PageStart, parent.Title, parent.PageStart, parent.PageEnd)
			}
		}
		if s.PageStart < prevStart {
			return Violation("section %q starts on page %d before its previous sibling", s.Title, s.PageStart)
		}
		prevStart = s.PageStart
		if err := validateSections(s.Subsections, s, pageCount); err != nil {
			return err
		}
	}
	return nil
}
