package predictor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ayusman/signspeak/internal/detector"
)

// DefaultInterval is the sampling cadence for model-backed prediction.
const DefaultInterval = 500 * time.Millisecond

// NeuralConfig configures a Neural strategy.
type NeuralConfig struct {
	Labels    []string
	Shapes    []Shape
	Normalize bool // normalize landmarks relative to the wrist before inference
	Interval  time.Duration
	Loader    *Loader
	Open      OpenFunc
}

// Neural predicts with a loaded model session. At most one session is live.
type Neural struct {
	loader    *Loader
	open      OpenFunc
	labels    []string
	shapes    []Shape
	normalize bool
	interval  time.Duration

	mu        sync.RWMutex
	session   Session
	modelPath string
	shape     string
	loading   bool
	lastErr   error
}

// NewNeural creates a neural strategy with no session loaded.
func NewNeural(config NeuralConfig) *Neural {
	n := &Neural{
		loader:    config.Loader,
		open:      config.Open,
		labels:    config.Labels,
		shapes:    config.Shapes,
		normalize: config.Normalize,
		interval:  config.Interval,
	}
	if n.loader == nil {
		n.loader = NewLoader(LoaderConfig{})
	}
	if n.open == nil {
		n.open = OpenONNXSession
	}
	if len(n.labels) == 0 {
		n.labels = DefaultLabels
	}
	if len(n.shapes) == 0 {
		n.shapes = DefaultShapes
	}
	if n.interval <= 0 {
		n.interval = DefaultInterval
	}
	return n
}

// LoadModel resolves and opens the model at path. It fails with
// ErrModelLoaded when a session is already live; call Reset first.
func (n *Neural) LoadModel(ctx context.Context, path string) error {
	n.mu.Lock()
	if n.session != nil {
		n.mu.Unlock()
		return ErrModelLoaded
	}
	if n.loading {
		n.mu.Unlock()
		return ErrLoadInProgress
	}
	n.loading = true
	n.lastErr = nil
	n.mu.Unlock()

	session, err := n.load(ctx, path)

	n.mu.Lock()
	defer n.mu.Unlock()
	n.loading = false
	if err != nil {
		n.lastErr = err
		slog.Warn("Model load failed", "path", path, "error", err)
		return err
	}
	n.session = session
	n.modelPath = path
	n.shape = ""
	slog.Info("Model loaded", "path", path)
	return nil
}

func (n *Neural) load(ctx context.Context, path string) (Session, error) {
	artifact, err := n.loader.Fetch(ctx, path)
	if err != nil {
		return nil, err
	}

	session, err := n.open(artifact.ModelPath)
	if err != nil {
		loadErr := &ModelLoadError{Path: path, Err: err}
		if mentionsWeights(err, artifact.ModelPath) {
			loadErr.WeightsPath = WeightsPath(path)
		}
		return nil, loadErr
	}
	return session, nil
}

// mentionsWeights reports whether a runtime error points at missing
// external weight data.
func mentionsWeights(err error, modelPath string) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "external data") ||
		strings.Contains(msg, "external_data") ||
		strings.Contains(msg, strings.ToLower(filepath.Base(WeightsPath(modelPath))))
}

// Reload drops the current session and loads path again.
func (n *Neural) Reload(ctx context.Context, path string) error {
	n.Reset()
	return n.LoadModel(ctx, path)
}

// Reset releases the live session, if any.
func (n *Neural) Reset() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.session == nil {
		return
	}
	if err := n.session.Close(); err != nil {
		slog.Warn("Close model session", "error", err)
	}
	n.session = nil
	n.modelPath = ""
	n.shape = ""
}

// Close releases the session.
func (n *Neural) Close() error {
	n.Reset()
	return nil
}

// IsReady reports whether a session is loaded.
func (n *Neural) IsReady() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.session != nil
}

// Loading reports whether a load is in progress.
func (n *Neural) Loading() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.loading
}

// LastError returns the error of the most recent failed load.
func (n *Neural) LastError() error {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.lastErr
}

// ModelPath returns the path of the loaded model, or "".
func (n *Neural) ModelPath() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.modelPath
}

// Shape returns the name of the input shape the last successful inference used.
func (n *Neural) Shape() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.shape
}

// Labels returns the label catalog.
func (n *Neural) Labels() []string {
	return n.labels
}

// Interval returns the sampling cadence.
func (n *Neural) Interval() time.Duration {
	return n.interval
}

// Predict runs inference on one hand. Candidate input shapes are tried in
// order; the first accepted one produces the result.
func (n *Neural) Predict(ctx context.Context, hand *detector.Hand) (*Prediction, error) {
	if !hand.Eligible() {
		return nil, &InferenceError{Err: ErrIneligibleHand}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	n.mu.RLock()
	session := n.session
	if session == nil {
		n.mu.RUnlock()
		return nil, &InferenceError{Err: ErrNoSession}
	}

	if n.normalize {
		hand = hand.Normalize()
	}
	input := hand.Flatten()

	var (
		output []float32
		used   string
		errs   []error
	)
	for _, shape := range n.shapes {
		if shape.Elements() != len(input) {
			errs = append(errs, fmt.Errorf("%s %v: size mismatch", shape.Name, shape.Dims))
			continue
		}
		out, err := session.Run(shape.Dims, input)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s %v: %w", shape.Name, shape.Dims, err))
			continue
		}
		output, used = out, shape.Name
		break
	}
	n.mu.RUnlock()

	if output == nil {
		errs = append([]error{ErrNoCompatibleShape}, errs...)
		return nil, &InferenceError{Err: errors.Join(errs...)}
	}

	n.mu.Lock()
	n.shape = used
	n.mu.Unlock()

	idx, confidence, err := Postprocess(output)
	if err != nil {
		return nil, &InferenceError{Err: err}
	}

	return &Prediction{Label: labelAt(n.labels, idx), Confidence: confidence}, nil
}
