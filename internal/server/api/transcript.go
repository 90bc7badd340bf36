package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/ayusman/signspeak/internal/app"
	"github.com/ayusman/signspeak/internal/predictor"
	"github.com/ayusman/signspeak/internal/transcript"
)

// TranscriptHandler serves the running transcript.
type TranscriptHandler struct {
	app *app.App
}

// NewTranscriptHandler creates a TranscriptHandler.
func NewTranscriptHandler(a *app.App) *TranscriptHandler {
	return &TranscriptHandler{app: a}
}

// Register adds the transcript routes to r.
func (h *TranscriptHandler) Register(r *mux.Router) {
	r.HandleFunc("/api/transcript", h.list).Methods(http.MethodGet)
	r.HandleFunc("/api/transcript", h.clear).Methods(http.MethodDelete)
}

type entryResponse struct {
	ID         string  `json:"id"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Band       string  `json:"band"`
	Timestamp  string  `json:"timestamp"`
}

type transcriptResponse struct {
	Entries []entryResponse `json:"entries"`
	Count   int             `json:"count"`
}

func toEntryResponse(e transcript.Entry) entryResponse {
	p := predictor.Prediction{Label: e.Text, Confidence: e.Confidence}
	return entryResponse{
		ID:         e.ID,
		Text:       e.Text,
		Confidence: e.Confidence,
		Band:       p.Band(),
		Timestamp:  e.Timestamp.Format(time.RFC3339Nano),
	}
}

// list handles GET /api/transcript.
func (h *TranscriptHandler) list(w http.ResponseWriter, r *http.Request) {
	entries := h.app.Transcript().Entries()
	resp := transcriptResponse{Entries: make([]entryResponse, 0, len(entries)), Count: len(entries)}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, toEntryResponse(e))
	}
	writeJSON(w, http.StatusOK, resp)
}

// clear handles DELETE /api/transcript.
func (h *TranscriptHandler) clear(w http.ResponseWriter, r *http.Request) {
	h.app.ClearTranscript()
	w.WriteHeader(http.StatusNoContent)
}
