// Package api provides the JSON HTTP handlers for the sign-to-speech
// pipeline.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/ayusman/signspeak/internal/app"
	"github.com/ayusman/signspeak/internal/capture"
	"github.com/ayusman/signspeak/internal/predictor"
	"github.com/ayusman/signspeak/internal/recorder"
	"github.com/ayusman/signspeak/internal/speech"
	"github.com/ayusman/signspeak/internal/storage"
	"github.com/ayusman/signspeak/internal/store"
)

// maxBody bounds JSON request bodies.
const maxBody = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeErr maps err to a status code and writes it.
func writeErr(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error())
}

// decodeJSON reads a JSON body into v. An empty body leaves v untouched.
func decodeJSON(r *http.Request, v any) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(v)
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func statusFor(err error) int {
	var (
		devErr     *capture.DeviceError
		connErr    *capture.ConnectError
		loadErr    *predictor.ModelLoadError
		storageErr *storage.StorageError
	)
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, recorder.ErrNoRecording):
		return http.StatusNotFound
	case errors.Is(err, recorder.ErrNoStream), errors.Is(err, app.ErrNotStreaming),
		errors.Is(err, recorder.ErrAlreadyRecording), errors.Is(err, recorder.ErrNotRecording),
		errors.Is(err, recorder.ErrUploadInProgress),
		errors.Is(err, predictor.ErrLoadInProgress):
		return http.StatusConflict
	case errors.Is(err, speech.ErrUnknownVoice):
		return http.StatusBadRequest
	case errors.Is(err, app.ErrNoObjectStore):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &connErr), errors.As(err, &storageErr):
		return http.StatusBadGateway
	case errors.As(err, &devErr):
		return http.StatusServiceUnavailable
	case errors.As(err, &loadErr):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
