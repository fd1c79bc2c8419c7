// Package ocr recognizes text in page images.
//
// Recognition wraps the Tesseract engine via gosseract and is only compiled
// with the "ocr" build tag:
//
//	go build -tags ocr
//
// Without the tag New returns ErrOCRNotEnabled. Tesseract must be installed
// (apt-get install tesseract-ocr, or brew install tesseract).
package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"github.com/dgallion1/pdf2llm/internal/doctree"
)

// ErrOCRNotEnabled is returned when OCR support was not compiled in.
var ErrOCRNotEnabled = errors.New("OCR support not enabled; rebuild with -tags ocr")

// Recognizer runs OCR on one encoded image.
type Recognizer interface {
	Recognize(ctx context.Context, img []byte) (Result, error)
}

// Line is one recognized text line in image pixel coordinates.
type Line struct {
	Text       string
	Box        image.Rectangle
	Confidence float64 // 0..1
}

// Result is the recognized content of one image.
type Result struct {
	Text       string
	Lines      []Line
	Confidence float64 // Mean line confidence, 0..1
	Width      int     // Image size in pixels
	Height     int
}

// Options configure the engine.
type Options struct {
	Language string // Tesseract language(s), e.g. "eng" or "eng+fra"
}

// ImageSize reads the pixel dimensions of an encoded PNG, JPEG, TIFF or BMP
// image without decoding it.
func ImageSize(img []byte) (int, int, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(img))
	if err != nil {
		return 0, 0, fmt.Errorf("ocr: read image header: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}

// MeanConfidence averages line confidences; no lines gives zero.
func MeanConfidence(lines []Line) float64 {
	if len(lines) == 0 {
		return 0
	}
	var sum float64
	for _, l := range lines {
		sum += l.Confidence
	}
	return sum / float64(len(lines))
}

// ToContent places the recognized lines inside target, a rectangle in page
// coordinates where the image is drawn, scaling from image pixels.
func ToContent(res Result, target doctree.BBox) doctree.ExtractedContent {
	sx, sy := 1.0, 1.0
	if res.Width > 0 && res.Height > 0 {
		sx = target.Width() / float64(res.Width)
		sy = target.Height() / float64(res.Height)
	}

	var out doctree.ExtractedContent
	var texts []string
	for _, l := range res.Lines {
		text := strings.TrimSpace(l.Text)
		if text == "" {
			continue
		}
		texts = append(texts, text)
		out.Blocks = append(out.Blocks, doctree.TextBlock{
			Text: text,
			Kind: doctree.KindParagraph,
			BBox: doctree.BBox{
				X0: target.X0 + float64(l.Box.Min.X)*sx,
				Y0: target.Y0 + float64(l.Box.Min.Y)*sy,
				X1: target.X0 + float64(l.Box.Max.X)*sx,
				Y1: target.Y0 + float64(l.Box.Max.Y)*sy,
			},
		})
	}
	out.BodyText = strings.Join(texts, "\n")
	if out.BodyText == "" {
		out.BodyText = strings.TrimSpace(res.Text)
	}
	return out
}
