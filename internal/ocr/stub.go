//go:build !ocr

package ocr

import "context"

// Engine is a stub used when the "ocr" build tag is not set.
type Engine struct{}

// New returns ErrOCRNotEnabled. Rebuild with -tags ocr to enable OCR.
func New(Options) (*Engine, error) {
	return nil, ErrOCRNotEnabled
}

// Close is a no-op. It is safe to call on a nil engine.
func (e *Engine) Close() error {
	return nil
}

// Recognize returns ErrOCRNotEnabled.
func (e *Engine) Recognize(context.Context, []byte) (Result, error) {
	return Result{}, ErrOCRNotEnabled
}
