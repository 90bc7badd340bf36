package api

import (
	"fmt"
	"net/http"
	"os"

	"github.com/gorilla/mux"

	"github.com/ayusman/signspeak/internal/app"
	"github.com/ayusman/signspeak/internal/recorder"
	"github.com/ayusman/signspeak/internal/store"
)

// RecordingHandler controls session recording and uploaded recordings.
type RecordingHandler struct {
	app *app.App
}

// NewRecordingHandler creates a RecordingHandler.
func NewRecordingHandler(a *app.App) *RecordingHandler {
	return &RecordingHandler{app: a}
}

// Register adds the recording routes to r.
func (h *RecordingHandler) Register(r *mux.Router) {
	r.HandleFunc("/api/recording", h.status).Methods(http.MethodGet)
	r.HandleFunc("/api/recording", h.discard).Methods(http.MethodDelete)
	r.HandleFunc("/api/recording/start", h.start).Methods(http.MethodPost)
	r.HandleFunc("/api/recording/stop", h.stop).Methods(http.MethodPost)
	r.HandleFunc("/api/recording/download", h.download).Methods(http.MethodGet)
	r.HandleFunc("/api/recording/upload", h.upload).Methods(http.MethodPost)

	r.HandleFunc("/api/recordings", h.list).Methods(http.MethodGet)
	r.HandleFunc("/api/recordings/{id}", h.delete).Methods(http.MethodDelete)
}

// status handles GET /api/recording.
func (h *RecordingHandler) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.app.Recorder().Status())
}

// discard handles DELETE /api/recording.
func (h *RecordingHandler) discard(w http.ResponseWriter, r *http.Request) {
	h.app.Recorder().Clear()
	w.WriteHeader(http.StatusNoContent)
}

// start handles POST /api/recording/start.
func (h *RecordingHandler) start(w http.ResponseWriter, r *http.Request) {
	if err := h.app.StartRecording(); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.app.Recorder().Status())
}

// stop handles POST /api/recording/stop. It answers 204 when no frames were
// captured.
func (h *RecordingHandler) stop(w http.ResponseWriter, r *http.Request) {
	clip, err := h.app.StopRecording()
	if err != nil {
		writeErr(w, err)
		return
	}
	if clip == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, clip)
}

// download handles GET /api/recording/download. The clip stays buffered.
func (h *RecordingHandler) download(w http.ResponseWriter, r *http.Request) {
	clip, err := h.app.Recorder().Download()
	if err != nil {
		writeErr(w, err)
		return
	}

	f, err := os.Open(clip.Path)
	if err != nil {
		writeErr(w, &recorder.RecordingError{Op: "download", Err: err})
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", recorder.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", clip.Filename))
	http.ServeContent(w, r, clip.Filename, clip.CreatedAt, f)
}

// upload handles POST /api/recording/upload.
func (h *RecordingHandler) upload(w http.ResponseWriter, r *http.Request) {
	rec, err := h.app.UploadRecording(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// list handles GET /api/recordings.
func (h *RecordingHandler) list(w http.ResponseWriter, r *http.Request) {
	recs, err := h.app.Recordings()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list recordings")
		return
	}
	if recs == nil {
		recs = []*store.Recording{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"recordings": recs})
}

// delete handles DELETE /api/recordings/{id}.
func (h *RecordingHandler) delete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.app.DeleteRecording(r.Context(), id); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
