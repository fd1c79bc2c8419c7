package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/dgallion1/pdf2llm/internal/codec"
	"github.com/dgallion1/pdf2llm/internal/doctree"
)

// handleDecode parses structured text from the request body and returns the
// Document as JSON.
func (s *Server) handleDecode(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read body", http.StatusBadRequest)
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, "body exceeds max size", http.StatusRequestEntityTooLarge)
		return
	}

	doc, err := codec.Decode(string(data))
	if err != nil {
		var malformed *doctree.MalformedDocumentError
		if errors.As(err, &malformed) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnprocessableEntity)
			json.NewEncoder(w).Encode(map[string]any{
				"error":  malformed.Error(),
				"line":   malformed.Line,
				"reason": malformed.Reason,
			})
			return
		}
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"sections": doctree.CountSections(doc.Sections),
		"pages":    len(doc.Pages),
		"document": doc,
	})
}
