package embed

import (
	"context"
	"hash/fnv"
	"math"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
)

// Lexical embeds text as an L2-normalized bag of case-folded words hashed
// into a fixed number of buckets. It needs no network and is deterministic,
// so it is the default provider and the one used in tests.
type Lexical struct {
	dim int
}

// NewLexical returns a lexical embedder producing vectors of size dim.
func NewLexical(dim int) *Lexical {
	if dim <= 0 {
		dim = 512
	}
	return &Lexical{dim: dim}
}

func (l *Lexical) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = l.embed(t)
	}
	return out, nil
}

func (l *Lexical) Model() string {
	return "lexical-" + strconv.Itoa(l.dim)
}

func (l *Lexical) embed(text string) []float32 {
	vec := make([]float32, l.dim)
	for _, tok := range Tokenize(cases.Fold().String(text)) {
		h := fnv.New32a()
		h.Write([]byte(tok))
		vec[h.Sum32()%uint32(l.dim)]++
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec
}

// Tokenize splits text into runs of letters and digits.
func Tokenize(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
