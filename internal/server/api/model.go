package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/ayusman/signspeak/internal/app"
	"github.com/ayusman/signspeak/internal/predictor"
)

// ModelHandler serves prediction mode and neural model management.
type ModelHandler struct {
	app *app.App
}

// NewModelHandler creates a ModelHandler.
func NewModelHandler(a *app.App) *ModelHandler {
	return &ModelHandler{app: a}
}

// Register adds the mode and model routes to r.
func (h *ModelHandler) Register(r *mux.Router) {
	r.HandleFunc("/api/mode", h.getMode).Methods(http.MethodGet)
	r.HandleFunc("/api/mode", h.setMode).Methods(http.MethodPut)
	r.HandleFunc("/api/model", h.status).Methods(http.MethodGet)
	r.HandleFunc("/api/model", h.load).Methods(http.MethodPost)
	r.HandleFunc("/api/model", h.reset).Methods(http.MethodDelete)
}

type modeRequest struct {
	Mode string `json:"mode"`
}

type modeResponse struct {
	Mode  string `json:"mode"`
	Ready bool   `json:"ready"`
}

type loadModelRequest struct {
	Path string `json:"path"`
}

type modelErrorResponse struct {
	Error  string          `json:"error"`
	Model  app.ModelStatus `json:"model"`
	Weight string          `json:"weightsPath,omitempty"`
}

func (h *ModelHandler) modeResponse() modeResponse {
	sel := h.app.Selector()
	return modeResponse{Mode: string(sel.Mode()), Ready: sel.IsReady()}
}

// getMode handles GET /api/mode.
func (h *ModelHandler) getMode(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.modeResponse())
}

// setMode handles PUT /api/mode.
func (h *ModelHandler) setMode(w http.ResponseWriter, r *http.Request) {
	var req modeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	mode, err := predictor.ParseMode(req.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.app.SetMode(mode); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.modeResponse())
}

// status handles GET /api/model.
func (h *ModelHandler) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.app.ModelStatus())
}

// load handles POST /api/model. The request blocks until the model is
// loaded or the load fails.
func (h *ModelHandler) load(w http.ResponseWriter, r *http.Request) {
	var req loadModelRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Path = strings.TrimSpace(req.Path)
	if req.Path == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}

	if err := h.app.LoadModel(r.Context(), req.Path); err != nil {
		resp := modelErrorResponse{Error: err.Error(), Model: h.app.ModelStatus()}
		var loadErr *predictor.ModelLoadError
		if errors.As(err, &loadErr) {
			resp.Weight = loadErr.WeightsPath
		}
		writeJSON(w, statusFor(err), resp)
		return
	}
	writeJSON(w, http.StatusOK, h.app.ModelStatus())
}

// reset handles DELETE /api/model.
func (h *ModelHandler) reset(w http.ResponseWriter, r *http.Request) {
	h.app.ResetModel()
	writeJSON(w, http.StatusOK, h.app.ModelStatus())
}
