package ocr

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"golang.org/x/image/bmp"

	"github.com/dgallion1/pdf2llm/internal/doctree"
)

func encodeImage(t *testing.T, w, h int, enc func(*bytes.Buffer, image.Image) error) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.Black)
	var buf bytes.Buffer
	if err := enc(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func TestImageSize(t *testing.T) {
	pngData := encodeImage(t, 40, 20, func(b *bytes.Buffer, m image.Image) error { return png.Encode(b, m) })
	bmpData := encodeImage(t, 7, 9, func(b *bytes.Buffer, m image.Image) error { return bmp.Encode(b, m) })

	if w, h, err := ImageSize(pngData); err != nil || w != 40 || h != 20 {
		t.Errorf("png: expected 40x20, got %dx%d (%v)", w, h, err)
	}
	if w, h, err := ImageSize(bmpData); err != nil || w != 7 || h != 9 {
		t.Errorf("bmp: expected 7x9, got %dx%d (%v)", w, h, err)
	}
	if _, _, err := ImageSize([]byte("not an image")); err == nil {
		t.Error("expected an error for garbage input")
	}
}

func TestToContent_ScalesIntoTarget(t *testing.T) {
	res := Result{
		Width:  200,
		Height: 100,
		Lines: []Line{
			{Text: " Hello ", Box: image.Rect(0, 0, 100, 10), Confidence: 0.9},
			{Text: "   ", Box: image.Rect(0, 20, 10, 30)},
			{Text: "World", Box: image.Rect(100, 50, 200, 100), Confidence: 0.7},
		},
	}
	got := ToContent(res, doctree.BBox{X0: 100, Y0: 200, X1: 200, Y1: 300})

	if len(got.Blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %+v", got.Blocks)
	}
	want := doctree.BBox{X0: 150, Y0: 250, X1: 200, Y1: 300}
	if got.Blocks[1].BBox != want {
		t.Errorf("expected %+v, got %+v", want, got.Blocks[1].BBox)
	}
	if got.Blocks[0].Text != "Hello" {
		t.Errorf("expected trimmed text, got %q", got.Blocks[0].Text)
	}
	if got.BodyText != "Hello\nWorld" {
		t.Errorf("unexpected body %q", got.BodyText)
	}
}

func TestToContent_FallsBackToPlainText(t *testing.T) {
	got := ToContent(Result{Text: "  raw text "}, doctree.BBox{X1: 10, Y1: 10})
	if got.BodyText != "raw text" || len(got.Blocks) != 0 {
		t.Errorf("expected plain text body without blocks, got %+v", got)
	}
}

func TestMeanConfidence(t *testing.T) {
	if c := MeanConfidence(nil); c != 0 {
		t.Errorf("expected 0 for no lines, got %f", c)
	}
	c := MeanConfidence([]Line{{Confidence: 0.5}, {Confidence: 1}})
	if c != 0.75 {
		t.Errorf("expected 0.75, got %f", c)
	}
}
