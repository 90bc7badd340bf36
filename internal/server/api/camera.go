package api

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/ayusman/signspeak/internal/app"
	"github.com/ayusman/signspeak/internal/capture"
)

// maxDevices is how many device indices are probed when listing cameras.
const maxDevices = 5

// listDevices is replaced in tests.
var listDevices = capture.ListDevices

// CameraHandler controls the local camera and IP camera streams.
type CameraHandler struct {
	app *app.App
}

// NewCameraHandler creates a CameraHandler.
func NewCameraHandler(a *app.App) *CameraHandler {
	return &CameraHandler{app: a}
}

// Register adds the camera routes to r.
func (h *CameraHandler) Register(r *mux.Router) {
	r.HandleFunc("/api/camera", h.status).Methods(http.MethodGet)
	r.HandleFunc("/api/camera/start", h.start).Methods(http.MethodPost)
	r.HandleFunc("/api/camera/stop", h.stop).Methods(http.MethodPost)
	r.HandleFunc("/api/camera/devices", h.devices).Methods(http.MethodGet)
	r.HandleFunc("/api/detection", h.detection).Methods(http.MethodPut)

	r.HandleFunc("/api/ipcamera", h.ipStatus).Methods(http.MethodGet)
	r.HandleFunc("/api/ipcamera", h.connect).Methods(http.MethodPost)
	r.HandleFunc("/api/ipcamera", h.disconnect).Methods(http.MethodDelete)
	r.HandleFunc("/api/ipcamera/help", h.help).Methods(http.MethodGet)
}

type cameraResponse struct {
	Streaming bool   `json:"streaming"`
	Source    string `json:"source,omitempty"`
	Enabled   bool   `json:"enabled"`
}

type startCameraRequest struct {
	Device *int `json:"device"`
}

type detectionRequest struct {
	Enabled bool `json:"enabled"`
}

type ipCameraRequest struct {
	URL string `json:"url"`
}

type ipCameraResponse struct {
	Connected bool   `json:"connected"`
	URL       string `json:"url,omitempty"`
}

func (h *CameraHandler) cameraResponse() cameraResponse {
	resp := cameraResponse{Enabled: h.app.IsEnabled()}
	if cam := h.app.Camera(); cam != nil {
		resp.Streaming = true
		resp.Source = cam.Source()
	}
	return resp
}

// status handles GET /api/camera.
func (h *CameraHandler) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.cameraResponse())
}

// start handles POST /api/camera/start. A device index in the body switches
// to that camera.
func (h *CameraHandler) start(w http.ResponseWriter, r *http.Request) {
	var req startCameraRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var err error
	if req.Device != nil {
		err = h.app.SwitchCamera(*req.Device)
	} else {
		err = h.app.StartCamera()
	}
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.cameraResponse())
}

// stop handles POST /api/camera/stop.
func (h *CameraHandler) stop(w http.ResponseWriter, r *http.Request) {
	h.app.StopCamera()
	writeJSON(w, http.StatusOK, h.cameraResponse())
}

// devices handles GET /api/camera/devices.
func (h *CameraHandler) devices(w http.ResponseWriter, r *http.Request) {
	devices, err := listDevices(maxDevices)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"devices": devices})
}

// detection handles PUT /api/detection.
func (h *CameraHandler) detection(w http.ResponseWriter, r *http.Request) {
	var req detectionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.app.SetEnabled(req.Enabled)
	writeJSON(w, http.StatusOK, h.cameraResponse())
}

func (h *CameraHandler) ipResponse() ipCameraResponse {
	ip := h.app.IPCamera()
	return ipCameraResponse{Connected: ip.IsConnected(), URL: ip.URL()}
}

// ipStatus handles GET /api/ipcamera.
func (h *CameraHandler) ipStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.ipResponse())
}

// connect handles POST /api/ipcamera.
func (h *CameraHandler) connect(w http.ResponseWriter, r *http.Request) {
	var req ipCameraRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	if err := h.app.ConnectIPCamera(r.Context(), req.URL); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.ipResponse())
}

// disconnect handles DELETE /api/ipcamera.
func (h *CameraHandler) disconnect(w http.ResponseWriter, r *http.Request) {
	h.app.DisconnectIPCamera()
	writeJSON(w, http.StatusOK, h.ipResponse())
}

// help handles GET /api/ipcamera/help.
func (h *CameraHandler) help(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, capture.IPCameraHelp())
}
