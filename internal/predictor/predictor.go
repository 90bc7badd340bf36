// Package predictor turns one hand's landmarks into a sign label.
//
// Two strategies implement Predictor: Demo cycles a fixed catalog and Neural
// runs a loaded ONNX model. Selector switches between them so callers never
// branch on the active mode.
package predictor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ayusman/signspeak/internal/detector"
)

// Prediction is a label with a confidence in [0,1].
type Prediction struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Band returns the display band of the confidence: "high", "medium" or "low".
func (p Prediction) Band() string {
	switch {
	case p.Confidence >= 0.8:
		return "high"
	case p.Confidence >= 0.6:
		return "medium"
	default:
		return "low"
	}
}

// Predictor turns a hand into a prediction. A nil prediction with a nil
// error means the strategy has nothing to say for this hand.
type Predictor interface {
	Predict(ctx context.Context, hand *detector.Hand) (*Prediction, error)
	IsReady() bool
}

// Paced is implemented by strategies that prefer a specific sampling interval.
type Paced interface {
	Interval() time.Duration
}

var (
	// ErrNoSession is returned when inference is requested without a loaded model.
	ErrNoSession = errors.New("no model session loaded")
	// ErrModelLoaded is returned when loading while a session is already live.
	ErrModelLoaded = errors.New("model already loaded")
	// ErrLoadInProgress is returned when a load is requested during another load.
	ErrLoadInProgress = errors.New("model load already in progress")
	// ErrIneligibleHand is returned for hands without exactly 21 landmarks.
	ErrIneligibleHand = errors.New("hand does not have 21 landmarks")
	// ErrNoCompatibleShape is returned when every input shape was rejected.
	ErrNoCompatibleShape = errors.New("no compatible input shape")
)

// ModelLoadError reports a model artifact that could not be loaded.
// WeightsPath is set when the sibling external weights file is the cause.
type ModelLoadError struct {
	Path        string
	WeightsPath string
	Err         error
}

func (e *ModelLoadError) Error() string {
	if e.WeightsPath != "" {
		return fmt.Sprintf("load model %s: external weights %s unavailable: %v", e.Path, e.WeightsPath, e.Err)
	}
	return fmt.Sprintf("load model %s: %v", e.Path, e.Err)
}

func (e *ModelLoadError) Unwrap() error {
	return e.Err
}

// InferenceError reports a failed prediction. The scheduler treats it as
// "no prediction".
type InferenceError struct {
	Err error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("inference: %v", e.Err)
}

func (e *InferenceError) Unwrap() error {
	return e.Err
}
