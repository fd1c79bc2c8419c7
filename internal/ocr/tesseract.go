//go:build ocr

package ocr

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"
)

// Engine wraps a Tesseract client. Calls are serialized; the underlying
// client holds per-image state.
type Engine struct {
	mu     sync.Mutex
	client *gosseract.Client
}

// New creates an engine. Close it to release Tesseract resources.
func New(opts Options) (*Engine, error) {
	client := gosseract.NewClient()
	lang := opts.Language
	if lang == "" {
		lang = "eng"
	}
	if err := client.SetLanguage(strings.Split(lang, "+")...); err != nil {
		client.Close()
		return nil, fmt.Errorf("ocr: set language %q: %w", lang, err)
	}
	return &Engine{client: client}, nil
}

// Close releases OCR resources. It is safe to call on a nil engine.
func (e *Engine) Close() error {
	if e == nil || e.client == nil {
		return nil
	}
	return e.client.Close()
}

// Recognize performs OCR on image data (PNG, TIFF, JPEG, BMP).
func (e *Engine) Recognize(ctx context.Context, img []byte) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	w, h, err := ImageSize(img)
	if err != nil {
		return Result{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.client.SetImageFromBytes(img); err != nil {
		return Result{}, fmt.Errorf("ocr: set image: %w", err)
	}
	text, err := e.client.Text()
	if err != nil {
		return Result{}, fmt.Errorf("ocr: recognize: %w", err)
	}
	boxes, err := e.client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return Result{}, fmt.Errorf("ocr: line boxes: %w", err)
	}

	lines := make([]Line, 0, len(boxes))
	for _, b := range boxes {
		if strings.TrimSpace(b.Word) == "" {
			continue
		}
		lines = append(lines, Line{
			Text:       strings.TrimSpace(b.Word),
			Box:        b.Box,
			Confidence: min(max(b.Confidence/100, 0), 1),
		})
	}
	return Result{
		Text:       strings.TrimSpace(text),
		Lines:      lines,
		Confidence: MeanConfidence(lines),
		Width:      w,
		Height:     h,
	}, nil
}
