package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/disintegration/imaging"

	"github.com/ayusman/signspeak/internal/app"
)

// streamPoll is how often the MJPEG stream checks for a new frame.
const streamPoll = 33 * time.Millisecond

// Snapshot size limits.
const (
	defaultSnapshotWidth = 320
	maxSnapshotWidth     = 1920
)

// StreamHandler serves annotated frames as MJPEG.
type StreamHandler struct {
	app *app.App
}

// NewStreamHandler creates a new StreamHandler for the app's frames.
func NewStreamHandler(a *app.App) *StreamHandler {
	return &StreamHandler{app: a}
}

// ServeHTTP streams MJPEG frames until the client goes away.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ticker := time.NewTicker(streamPoll)
	defer ticker.Stop()

	var last uint64
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}

		frame, seq := h.app.Frame()
		if frame == nil || seq == last {
			continue
		}
		last = seq

		fmt.Fprintf(w, "--frame\r\n")
		fmt.Fprintf(w, "Content-Type: image/jpeg\r\n")
		fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", len(frame))
		if _, err := w.Write(frame); err != nil {
			return
		}
		fmt.Fprintf(w, "\r\n")

		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	}
}

// SnapshotHandler serves the latest annotated frame resized to ?width=.
type SnapshotHandler struct {
	app *app.App
}

// NewSnapshotHandler creates a SnapshotHandler.
func NewSnapshotHandler(a *app.App) *SnapshotHandler {
	return &SnapshotHandler{app: a}
}

func (h *SnapshotHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	width := defaultSnapshotWidth
	if v := r.URL.Query().Get("width"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > maxSnapshotWidth {
			writeError(w, http.StatusBadRequest, "width must be between 1 and "+strconv.Itoa(maxSnapshotWidth))
			return
		}
		width = n
	}

	frame, err := h.app.Snapshot()
	if err != nil {
		if errors.Is(err, app.ErrNotStreaming) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	img, err := imaging.Decode(bytes.NewReader(frame))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "decode frame: "+err.Error())
		return
	}
	if img.Bounds().Dx() > width {
		img = imaging.Resize(img, width, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		writeError(w, http.StatusInternalServerError, "encode snapshot: "+err.Error())
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(buf.Bytes())
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
