package doctree

// Width returns the horizontal extent of the box.
func (b BBox) Width() float64 {
	return b.X1 - b.X0
}

// Height returns the vertical extent of the box.
func (b BBox) Height() float64 {
	return b.Y1 - b.Y0
}

// Area returns the box area; degenerate boxes have zero area.
func (b BBox) Area() float64 {
	w, h := b.Width(), b.Height()
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// Intersection returns the overlapping box and whether the boxes overlap.
func (b BBox) Intersection(other BBox) (BBox, bool) {
	r := BBox{
		X0: max(b.X0, other.X0),
		Y0: max(b.Y0, other.Y0),
		X1: min(b.X1, other.X1),
		Y1: min(b.Y1, other.Y1),
	}
	if r.X0 >= r.X1 || r.Y0 >= r.Y1 {
		return BBox{}, false
	}
	return r, true
}

// OverlapRatio returns the intersection area divided by b's own area.
func (b BBox) OverlapRatio(other BBox) float64 {
	area := b.Area()
	if area == 0 {
		return 0
	}
	inter, ok := b.Intersection(other)
	if !ok {
		return 0
	}
	return inter.Area() / area
}

// Union returns the smallest box containing both boxes.
func (b BBox) Union(other BBox) BBox {
	return BBox{
		X0: min(b.X0, other.X0),
		Y0: min(b.Y0, other.Y0),
		X1: max(b.X1, other.X1),
		Y1: max(b.Y1, other.Y1),
	}
}

// NewTable copies rows into a rectangular table, padding short rows with
// empty cells. Every table has at least one column.
func NewTable(rows [][]string) Table {
	width := 1
	for _, r := range rows {
		width = max(width, len(r))
	}
	out := make([][]string, len(rows))
	for i, r := range rows {
		row := make([]string, width)
		copy(row, r)
		out[i] = row
	}
	return Table{Rows: out}
}

// Columns returns the column count of a rectangular table.
func (t Table) Columns() int {
	if len(t.Rows) == 0 {
		return 0
	}
	return len(t.Rows[0])
}
