package doctree

// TreeBuilder assembles a section tree from a stream of page boundaries and
// headings. Sections live in an arena and refer to children by index; the
// open sections form a stack keyed by level.
//
// Page ranges follow the stream: the innermost open section's end tracks the
// current page, a new section starts and ends on the current page, and a
// closed section's end is folded into its parent.
type TreeBuilder struct {
	nodes []treeNode
	roots []int
	stack []int
	page  int
}

type treeNode struct {
	title    string
	level    int
	content  string
	start    int
	end      int
	children []int
}

// NewTreeBuilder returns a builder positioned before the first page.
func NewTreeBuilder() *TreeBuilder {
	return &TreeBuilder{page: -1}
}

// Page records that page p begins.
func (b *TreeBuilder) Page(p int) {
	b.page = p
	if top := b.Innermost(); top >= 0 && p > b.nodes[top].end {
		b.nodes[top].end = p
	}
}

// CurrentPage returns the last page passed to Page, or -1.
func (b *TreeBuilder) CurrentPage() int {
	return b.page
}

// Open closes every open section with level >= level and opens a new one
// as a child of the nearest remaining section. It returns the node index.
func (b *TreeBuilder) Open(level int, title string) int {
	for len(b.stack) > 0 && b.nodes[b.stack[len(b.stack)-1]].level >= level {
		b.pop()
	}
	page := max(b.page, 0)
	idx := len(b.nodes)
	b.nodes = append(b.nodes, treeNode{title: title, level: level, start: page, end: page})
	if parent := b.Innermost(); parent >= 0 {
		b.nodes[parent].children = append(b.nodes[parent].children, idx)
	} else {
		b.roots = append(b.roots, idx)
	}
	b.stack = append(b.stack, idx)
	return idx
}

// Innermost returns the index of the innermost open section, or -1.
func (b *TreeBuilder) Innermost() int {
	if len(b.stack) == 0 {
		return -1
	}
	return b.stack[len(b.stack)-1]
}

// InnermostLevel returns the level of the innermost open section, or 0.
func (b *TreeBuilder) InnermostLevel() int {
	if top := b.Innermost(); top >= 0 {
		return b.nodes[top].level
	}
	return 0
}

// SetContent replaces the content of node idx.
func (b *TreeBuilder) SetContent(idx int, content string) {
	b.nodes[idx].content = content
}

// Content returns the content of node idx.
func (b *TreeBuilder) Content(idx int) string {
	return b.nodes[idx].content
}

func (b *TreeBuilder) pop() {
	n := len(b.stack)
	child := b.stack[n-1]
	b.stack = b.stack[:n-1]
	if n > 1 {
		parent := b.stack[n-2]
		if b.nodes[child].end > b.nodes[parent].end {
			b.nodes[parent].end = b.nodes[child].end
		}
	}
}

// Finish closes all open sections and materializes the tree. The builder
// must not be used afterwards.
func (b *TreeBuilder) Finish() []Section {
	for len(b.stack) > 0 {
		b.pop()
	}
	return b.materialize(b.roots)
}

func (b *TreeBuilder) materialize(idxs []int) []Section {
	if len(idxs) == 0 {
		return nil
	}
	out := make([]Section, len(idxs))
	for i, idx := range idxs {
		n := b.nodes[idx]
		out[i] = Section{
			Title:       n.title,
			Level:       n.level,
			Content:     n.content,
			PageStart:   n.start,
			PageEnd:     n.end,
			Subsections: b.materialize(n.children),
		}
	}
	return out
}
