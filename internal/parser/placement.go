package parser

import (
	"math"

	pdflib "github.com/ledongthuc/pdf"

	"github.com/dgallion1/pdf2llm/internal/doctree"
)

// matrix is a PDF transformation matrix [a b c d e f].
type matrix [6]float64

var identity = matrix{1, 0, 0, 1, 0, 0}

// then returns the transform that applies m first and n second, which is
// how the cm operator concatenates onto the current matrix.
func (m matrix) then(n matrix) matrix {
	return matrix{
		m[0]*n[0] + m[1]*n[2],
		m[0]*n[1] + m[1]*n[3],
		m[2]*n[0] + m[3]*n[2],
		m[2]*n[1] + m[3]*n[3],
		m[4]*n[0] + m[5]*n[2] + n[4],
		m[4]*n[1] + m[5]*n[3] + n[5],
	}
}

func (m matrix) apply(x, y float64) (float64, float64) {
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}

// unitSquare maps the image space unit square through m and returns its
// bounds in top-left page coordinates, clipped to the page.
func (m matrix) unitSquare(width, height float64) doctree.BBox {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, c := range [4][2]float64{{0, 0}, {1, 0}, {0, 1}, {1, 1}} {
		x, y := m.apply(c[0], c[1])
		minX, maxX = min(minX, x), max(maxX, x)
		minY, maxY = min(minY, y), max(maxY, y)
	}
	return doctree.BBox{
		X0: clamp(minX, 0, width),
		Y0: clamp(height-maxY, 0, height),
		X1: clamp(maxX, 0, width),
		Y1: clamp(height-minY, 0, height),
	}
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(v, hi))
}

// placementTracker follows the graphics state of a content stream and
// records where each named image is first drawn.
type placementTracker struct {
	width, height float64
	ctm           matrix
	saved         []matrix
	placed        map[string]doctree.BBox
}

func newPlacementTracker(width, height float64) *placementTracker {
	return &placementTracker{width: width, height: height, ctm: identity, placed: map[string]doctree.BBox{}}
}

func (t *placementTracker) save() { t.saved = append(t.saved, t.ctm) }

func (t *placementTracker) restore() {
	if n := len(t.saved); n > 0 {
		t.ctm = t.saved[n-1]
		t.saved = t.saved[:n-1]
	}
}

func (t *placementTracker) concat(m matrix) { t.ctm = m.then(t.ctm) }

func (t *placementTracker) draw(name string) {
	if _, ok := t.placed[name]; ok {
		return
	}
	box := t.ctm.unitSquare(t.width, t.height)
	if box.Width() > 0 && box.Height() > 0 {
		t.placed[name] = box
	}
}

// imagePlacements walks the page content stream and returns the drawn
// bounds of each image XObject keyed by resource name. Images drawn inside
// form XObjects are not followed. A stream the interpreter cannot read
// yields whatever was found before the failure.
func imagePlacements(p pdflib.Page, width, height float64) (placed map[string]doctree.BBox) {
	t := newPlacementTracker(width, height)
	defer func() {
		if recover() != nil {
			placed = t.placed
		}
	}()

	contents := p.V.Key("Contents")
	if contents.IsNull() {
		return t.placed
	}
	xobjects := p.Resources().Key("XObject")
	pdflib.Interpret(contents, func(stk *pdflib.Stack, op string) {
		args := make([]pdflib.Value, stk.Len())
		for i := len(args) - 1; i >= 0; i-- {
			args[i] = stk.Pop()
		}
		switch op {
		case "q":
			t.save()
		case "Q":
			t.restore()
		case "cm":
			if len(args) != 6 {
				return
			}
			var m matrix
			for i, a := range args {
				m[i] = a.Float64()
			}
			t.concat(m)
		case "Do":
			if len(args) != 1 {
				return
			}
			name := args[0].Name()
			if xobjects.Key(name).Key("Subtype").Name() == "Image" {
				t.draw(name)
			}
		}
	})
	return t.placed
}
