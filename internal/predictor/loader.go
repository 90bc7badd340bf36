package predictor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// WeightsSuffix is appended to a model's filename to address its external
// weights file.
const WeightsSuffix = ".data"

// WeightsPath returns the sibling weights location for a model path or URL.
func WeightsPath(modelPath string) string {
	return modelPath + WeightsSuffix
}

// Artifact is a model resolved to local files.
type Artifact struct {
	Source      string // original path or URL
	ModelPath   string // local model file
	WeightsPath string // local weights file, empty when the model has none
}

// Loader resolves model paths and URLs to local files.
type Loader struct {
	client         *http.Client
	cacheDir       string
	requireWeights bool
}

// LoaderConfig configures a Loader.
type LoaderConfig struct {
	// CacheDir receives downloaded remote artifacts.
	CacheDir string
	// RequireWeights fails the load when the external weights file is absent.
	RequireWeights bool
	// Timeout bounds each HTTP request. Zero means 60 seconds.
	Timeout time.Duration
}

// NewLoader creates a loader.
func NewLoader(config LoaderConfig) *Loader {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	cacheDir := config.CacheDir
	if cacheDir == "" {
		cacheDir = filepath.Join(os.TempDir(), "signspeak-models")
	}
	return &Loader{
		client:         &http.Client{Timeout: timeout},
		cacheDir:       cacheDir,
		requireWeights: config.RequireWeights,
	}
}

// IsRemote reports whether the model path is an http(s) URL.
func IsRemote(modelPath string) bool {
	return strings.HasPrefix(modelPath, "http://") || strings.HasPrefix(modelPath, "https://")
}

// Fetch resolves the model and probes its weights file. Failures are
// returned as *ModelLoadError.
func (l *Loader) Fetch(ctx context.Context, modelPath string) (*Artifact, error) {
	if modelPath == "" {
		return nil, &ModelLoadError{Path: modelPath, Err: errors.New("empty model path")}
	}
	if IsRemote(modelPath) {
		return l.fetchRemote(ctx, modelPath)
	}
	return l.fetchLocal(modelPath)
}

func (l *Loader) fetchLocal(modelPath string) (*Artifact, error) {
	info, err := os.Stat(modelPath)
	if err != nil {
		return nil, &ModelLoadError{Path: modelPath, Err: err}
	}
	if info.IsDir() {
		return nil, &ModelLoadError{Path: modelPath, Err: errors.New("model path is a directory")}
	}

	artifact := &Artifact{Source: modelPath, ModelPath: modelPath}

	weights := WeightsPath(modelPath)
	if _, err := os.Stat(weights); err == nil {
		artifact.WeightsPath = weights
	} else if l.requireWeights {
		return nil, &ModelLoadError{Path: modelPath, WeightsPath: weights, Err: err}
	}
	return artifact, nil
}

func (l *Loader) fetchRemote(ctx context.Context, modelURL string) (*Artifact, error) {
	u, err := url.Parse(modelURL)
	if err != nil {
		return nil, &ModelLoadError{Path: modelURL, Err: err}
	}
	name := path.Base(u.Path)
	if name == "" || name == "/" || name == "." {
		name = "model.onnx"
	}

	weightsURL := WeightsPath(modelURL)
	weightsStatus, err := l.probe(ctx, weightsURL)
	if err != nil {
		if l.requireWeights {
			return nil, &ModelLoadError{Path: modelURL, WeightsPath: weightsURL, Err: err}
		}
		slog.Debug("Weights probe failed", "url", weightsURL, "error", err)
	}
	hasWeights := weightsStatus >= 200 && weightsStatus < 300
	if !hasWeights && l.requireWeights {
		return nil, &ModelLoadError{
			Path:        modelURL,
			WeightsPath: weightsURL,
			Err:         fmt.Errorf("HTTP %d", weightsStatus),
		}
	}

	if err := os.MkdirAll(l.cacheDir, 0755); err != nil {
		return nil, &ModelLoadError{Path: modelURL, Err: fmt.Errorf("create cache dir: %w", err)}
	}

	artifact := &Artifact{
		Source:    modelURL,
		ModelPath: filepath.Join(l.cacheDir, name),
	}
	if err := l.download(ctx, modelURL, artifact.ModelPath); err != nil {
		return nil, &ModelLoadError{Path: modelURL, Err: err}
	}

	if hasWeights {
		artifact.WeightsPath = WeightsPath(artifact.ModelPath)
		if err := l.download(ctx, weightsURL, artifact.WeightsPath); err != nil {
			return nil, &ModelLoadError{Path: modelURL, WeightsPath: weightsURL, Err: err}
		}
	}

	slog.Info("Model fetched", "url", modelURL, "path", artifact.ModelPath, "weights", hasWeights)
	return artifact, nil
}

// probe issues a HEAD request and returns the status code.
func (l *Loader) probe(ctx context.Context, target string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, target, nil)
	if err != nil {
		return 0, err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}

func (l *Loader) download(ctx context.Context, source, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", source, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("download %s: HTTP %d", source, resp.StatusCode)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), filepath.Base(dest)+".*.part")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("download %s: %w", source, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dest)
}
