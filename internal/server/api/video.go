package api

import (
	"errors"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gorilla/mux"

	"github.com/ayusman/signspeak/internal/app"
	"github.com/ayusman/signspeak/internal/capture"
)

// maxVideo bounds uploaded video size.
const maxVideo = 512 << 20

// videoField is the multipart form field carrying the file.
const videoField = "video"

// VideoHandler plays uploaded videos through the recognition pipeline.
type VideoHandler struct {
	app *app.App
}

// NewVideoHandler creates a VideoHandler.
func NewVideoHandler(a *app.App) *VideoHandler {
	return &VideoHandler{app: a}
}

// Register adds the video routes to r.
func (h *VideoHandler) Register(r *mux.Router) {
	r.HandleFunc("/api/video", h.upload).Methods(http.MethodPost)
}

type videoResponse struct {
	Streaming bool   `json:"streaming"`
	Video     bool   `json:"video"`
	Name      string `json:"name"`
}

// upload handles POST /api/video as multipart/form-data with a "video" file.
// Parts that are not video/* are rejected.
func (h *VideoHandler) upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxVideo)
	reader, err := r.MultipartReader()
	if err != nil {
		writeError(w, http.StatusBadRequest, "Expected multipart/form-data")
		return
	}

	for {
		part, err := reader.NextPart()
		if err != nil {
			writeError(w, http.StatusBadRequest, "Missing video file")
			return
		}
		if part.FormName() != videoField {
			part.Close()
			continue
		}

		name := part.FileName()
		if !isVideo(part.Header.Get("Content-Type"), name) {
			part.Close()
			writeError(w, http.StatusUnsupportedMediaType, "Please upload a video file")
			return
		}

		err = h.app.StartVideo(name, part)
		part.Close()
		if err != nil {
			var de *capture.DeviceError
			var tooLarge *http.MaxBytesError
			switch {
			case errors.As(err, &tooLarge):
				writeError(w, http.StatusRequestEntityTooLarge, "Video is too large")
			case errors.As(err, &de):
				writeError(w, http.StatusUnprocessableEntity, err.Error())
			default:
				writeErr(w, err)
			}
			return
		}

		writeJSON(w, http.StatusOK, videoResponse{
			Streaming: h.app.IsStreaming(),
			Video:     h.app.IsVideo(),
			Name:      name,
		})
		return
	}
}

// videoTypes covers common containers missing from minimal mime tables.
var videoTypes = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/x-m4v",
	".webm": "video/webm",
	".mov":  "video/quicktime",
	".avi":  "video/x-msvideo",
	".mkv":  "video/x-matroska",
}

// isVideo checks the declared part type, falling back to the file extension
// when the client sent a generic type.
func isVideo(contentType, name string) bool {
	if contentType == "" || contentType == "application/octet-stream" {
		ext := strings.ToLower(filepath.Ext(name))
		contentType = mime.TypeByExtension(ext)
		if contentType == "" {
			contentType = videoTypes[ext]
		}
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return strings.HasPrefix(mediaType, "video/")
}
