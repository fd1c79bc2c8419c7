// Package codec converts a doctree.Document to the structured text format and
// back.
//
// The format is markdown with four comment markers:
//
//	<!-- toc -->             start of the table of contents
//	<!-- /toc -->            end of the table of contents
//	<!-- page: N -->         page N (1-based) begins
//	<!-- section: TITLE -->  a section begins; the next line is its heading
//
// Each page marker is followed by the page's own blocks (paragraphs,
// headings, list items, then tables) and then, in preorder, every section
// that starts on that page. A section is its marker, a heading with one '#'
// per level, and its content up to the next marker.
//
// Decode(Encode(d)) equals doctree.Canonical(d).
package codec

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	tocOpen  = "<!-- toc -->"
	tocClose = "<!-- /toc -->"
)

var (
	pageMarkerRe    = regexp.MustCompile(`^<!-- page: (\d+) -->$`)
	sectionMarkerRe = regexp.MustCompile(`^<!-- section: (.+) -->$`)
	tocEntryRe      = regexp.MustCompile(`^- \[(.*)\]\(#([^)]*)\) \(p\. (\d+)-(\d+)\)$`)
	headingRe       = regexp.MustCompile(`^(#+)(?:[ \t]+(.*))?$`)
	listBulletRe    = regexp.MustCompile(`^( *)- (.*)$`)
	listNumberRe    = regexp.MustCompile(`^( *)(\d+\.\s.*)$`)
	numberedPrefix  = regexp.MustCompile(`^\d+[.)]`)
	separatorCellRe = regexp.MustCompile(`^:?-+:?$`)
)

func pageMarker(n int) string {
	return "<!-- page: " + strconv.Itoa(n) + " -->"
}

func sectionMarker(title string) string {
	return "<!-- section: " + title + " -->"
}

// markerKind classifies a line as one of the format's markers.
type markerKind int

const (
	notMarker markerKind = iota
	markTOCOpen
	markTOCClose
	markPage
	markSection
)

func classifyMarker(line string) (markerKind, string) {
	s := strings.TrimSpace(line)
	if !strings.HasPrefix(s, "<!--") {
		return notMarker, ""
	}
	switch {
	case s == tocOpen:
		return markTOCOpen, ""
	case s == tocClose:
		return markTOCClose, ""
	}
	if m := pageMarkerRe.FindStringSubmatch(s); m != nil {
		return markPage, m[1]
	}
	if m := sectionMarkerRe.FindStringSubmatch(s); m != nil {
		return markSection, m[1]
	}
	return notMarker, ""
}

// IsStructured reports whether data looks like encoded structured text.
func IsStructured(data []byte) bool {
	for _, line := range strings.Split(string(data), "\n") {
		if k, _ := classifyMarker(line); k == markPage || k == markTOCOpen {
			return true
		}
	}
	return false
}
