// Package merge reconciles native text extraction and OCR output for pages
// that carry both a text layer and scanned images.
package merge

import (
	"sort"

	"github.com/dgallion1/pdf2llm/internal/doctree"
)

// OverlapThreshold is the fraction of an OCR block's area that must be
// covered by a native block for the OCR block to count as a duplicate.
const OverlapThreshold = 0.5

// Merge combines native and OCR content for one mixed page. Native blocks
// are always kept. An OCR block is dropped when its best-overlapping native
// block covers at least OverlapThreshold of its area; the rest are appended,
// the result is re-sorted into reading order and the body text is rebuilt
// from it. Headers, footers and tables are unioned.
func Merge(native, ocr doctree.ExtractedContent) doctree.ExtractedContent {
	blocks := make([]doctree.TextBlock, 0, len(native.Blocks)+len(ocr.Blocks))
	blocks = append(blocks, native.Blocks...)

	for _, ob := range ocr.Blocks {
		if bestOverlap(ob, native.Blocks) >= OverlapThreshold {
			continue
		}
		blocks = append(blocks, ob)
	}

	ordered := ReadingOrder(blocks)
	return doctree.ExtractedContent{
		BodyText: doctree.BodyText(ordered),
		Headers:  concat(native.Headers, ocr.Headers),
		Footers:  concat(native.Footers, ocr.Footers),
		Tables:   concat(native.Tables, ocr.Tables),
		Blocks:   ordered,
	}
}

// bestOverlap returns the highest share of b's area covered by any candidate.
func bestOverlap(b doctree.TextBlock, candidates []doctree.TextBlock) float64 {
	best := 0.0
	for _, c := range candidates {
		if r := b.BBox.OverlapRatio(c.BBox); r > best {
			best = r
		}
	}
	return best
}

// ReadingOrder sorts blocks top to bottom, then left to right within a row
// band. A band starts at the topmost remaining block and takes every block
// whose Y0 lies within that block's height of it. The input is not modified.
func ReadingOrder(blocks []doctree.TextBlock) []doctree.TextBlock {
	if len(blocks) == 0 {
		return nil
	}
	out := make([]doctree.TextBlock, len(blocks))
	copy(out, blocks)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].BBox.Y0 != out[j].BBox.Y0 {
			return out[i].BBox.Y0 < out[j].BBox.Y0
		}
		return out[i].BBox.X0 < out[j].BBox.X0
	})

	for start := 0; start < len(out); {
		anchor := out[start].BBox
		limit := anchor.Y0 + max(anchor.Height(), 0)
		end := start + 1
		for end < len(out) && out[end].BBox.Y0 <= limit {
			end++
		}
		band := out[start:end]
		sort.SliceStable(band, func(i, j int) bool {
			return band[i].BBox.X0 < band[j].BBox.X0
		})
		start = end
	}
	return out
}

func concat[T any](a, b []T) []T {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	out := make([]T, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}
