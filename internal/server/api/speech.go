package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/ayusman/signspeak/internal/app"
)

// SpeechHandler serves mute and voice settings.
type SpeechHandler struct {
	app *app.App
}

// NewSpeechHandler creates a SpeechHandler.
func NewSpeechHandler(a *app.App) *SpeechHandler {
	return &SpeechHandler{app: a}
}

// Register adds the speech routes to r.
func (h *SpeechHandler) Register(r *mux.Router) {
	r.HandleFunc("/api/speech", h.get).Methods(http.MethodGet)
	r.HandleFunc("/api/speech", h.update).Methods(http.MethodPut)
}

type speechRequest struct {
	Muted *bool   `json:"muted"`
	Voice *string `json:"voice"`
}

// get handles GET /api/speech.
func (h *SpeechHandler) get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.app.SpeechStatus())
}

// update handles PUT /api/speech. Omitted fields are left unchanged.
func (h *SpeechHandler) update(w http.ResponseWriter, r *http.Request) {
	var req speechRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Voice != nil {
		if err := h.app.SetVoice(*req.Voice); err != nil {
			writeErr(w, err)
			return
		}
	}
	if req.Muted != nil {
		h.app.SetMuted(*req.Muted)
	}
	writeJSON(w, http.StatusOK, h.app.SpeechStatus())
}
