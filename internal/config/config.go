// Package config loads signspeak settings from defaults, a .env file,
// SIGNSPEAK_* environment variables and command-line flags, in that order
// of increasing precedence.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment variable.
const EnvPrefix = "SIGNSPEAK_"

// Storage backends.
const (
	StorageLocal = "local"
	StorageS3    = "s3"
)

// Config holds all runtime settings.
type Config struct {
	Addr     string
	DataDir  string
	WebDir   string
	LogLevel string
	Tray     bool

	Camera          int
	IPCameraURL     string
	MotionThreshold float64
	PythonPath      string
	LandmarkScript  string

	Mode           string
	ModelPath      string
	RequireWeights bool
	WatchModel     bool
	LabelsPath     string
	Normalize      bool
	MinConfidence  float64
	SampleInterval time.Duration
	DemoInterval   time.Duration

	Speech       bool
	SpeechBinary string
	Voice        string

	RecordCodec string
	RecordFPS   float64

	StorageBackend string
	StorageDir     string
	PublicBaseURL  string
	S3Bucket       string
	S3Region       string
	S3Endpoint     string
	S3AccessKey    string
	S3SecretKey    string
	S3PathStyle    bool
	S3PublicURL    string
}

// Default returns the built-in defaults.
func Default() Config {
	dataDir := ".signspeak"
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, ".signspeak")
	}
	return Config{
		Addr:            ":8080",
		DataDir:         dataDir,
		LogLevel:        "info",
		Tray:            false,
		Camera:          0,
		MotionThreshold: 1.0,
		Mode:            "demo",
		RequireWeights:  true,
		WatchModel:      true,
		MinConfidence:   0.5,
		SampleInterval:  500 * time.Millisecond,
		DemoInterval:    3 * time.Second,
		Speech:          true,
		SpeechBinary:    "espeak-ng",
		RecordCodec:     "MJPG",
		RecordFPS:       15,
		StorageBackend:  StorageLocal,
		PublicBaseURL:   "http://localhost:8080/files",
		S3Region:        "us-east-1",
	}
}

// Load builds the configuration. envFile is loaded when it exists; variables
// already present in the environment win over it.
func Load(envFile string, args []string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return Config{}, fmt.Errorf("load %s: %w", envFile, err)
			}
		} else {
			slog.Debug("Loaded environment file", "path", envFile)
		}
	}

	cfg := Default()
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}

	fs := flag.NewFlagSet("signspeak", flag.ContinueOnError)
	cfg.bindFlags(fs)
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type lookupFunc func(string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	var errs []error
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(EnvPrefix + key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = b
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := lookup(EnvPrefix + key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = n
		}
	}
	float := func(key string, dst *float64) {
		if v, ok := lookup(EnvPrefix + key); ok {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = f
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v, ok := lookup(EnvPrefix + key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = d
		}
	}

	str("ADDR", &c.Addr)
	str("DATA_DIR", &c.DataDir)
	str("WEB_DIR", &c.WebDir)
	str("LOG_LEVEL", &c.LogLevel)
	boolean("TRAY", &c.Tray)

	integer("CAMERA", &c.Camera)
	str("IP_CAMERA_URL", &c.IPCameraURL)
	float("MOTION_THRESHOLD", &c.MotionThreshold)
	str("PYTHON", &c.PythonPath)
	str("LANDMARK_SCRIPT", &c.LandmarkScript)

	str("MODE", &c.Mode)
	str("MODEL_PATH", &c.ModelPath)
	boolean("REQUIRE_WEIGHTS", &c.RequireWeights)
	boolean("WATCH_MODEL", &c.WatchModel)
	str("LABELS_PATH", &c.LabelsPath)
	boolean("NORMALIZE", &c.Normalize)
	float("MIN_CONFIDENCE", &c.MinConfidence)
	duration("SAMPLE_INTERVAL", &c.SampleInterval)
	duration("DEMO_INTERVAL", &c.DemoInterval)

	boolean("SPEECH", &c.Speech)
	str("SPEECH_BINARY", &c.SpeechBinary)
	str("VOICE", &c.Voice)

	str("RECORD_CODEC", &c.RecordCodec)
	float("RECORD_FPS", &c.RecordFPS)

	str("STORAGE", &c.StorageBackend)
	str("STORAGE_DIR", &c.StorageDir)
	str("PUBLIC_BASE_URL", &c.PublicBaseURL)
	str("S3_BUCKET", &c.S3Bucket)
	str("S3_REGION", &c.S3Region)
	str("S3_ENDPOINT", &c.S3Endpoint)
	str("S3_ACCESS_KEY", &c.S3AccessKey)
	str("S3_SECRET_KEY", &c.S3SecretKey)
	boolean("S3_PATH_STYLE", &c.S3PathStyle)
	str("S3_PUBLIC_URL", &c.S3PublicURL)

	return errors.Join(errs...)
}

func (c *Config) bindFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.Addr, "addr", c.Addr, "HTTP listen address")
	fs.StringVar(&c.DataDir, "data-dir", c.DataDir, "directory for the database, cache and recordings")
	fs.StringVar(&c.WebDir, "web-dir", c.WebDir, "directory with static UI files")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "debug, info, warn or error")
	fs.BoolVar(&c.Tray, "tray", c.Tray, "show a system tray icon")

	fs.IntVar(&c.Camera, "camera", c.Camera, "local camera device index")
	fs.StringVar(&c.IPCameraURL, "ip-camera", c.IPCameraURL, "connect to this IP camera URL on start")
	fs.Float64Var(&c.MotionThreshold, "motion-threshold", c.MotionThreshold, "percent of changed pixels that counts as motion")

	fs.StringVar(&c.Mode, "mode", c.Mode, "prediction mode: demo or neural")
	fs.StringVar(&c.ModelPath, "model", c.ModelPath, "ONNX model path or URL")
	fs.BoolVar(&c.RequireWeights, "require-weights", c.RequireWeights, "fail model loads whose external weights file is missing")
	fs.BoolVar(&c.WatchModel, "watch-model", c.WatchModel, "reload a local model when the file changes")
	fs.StringVar(&c.LabelsPath, "labels", c.LabelsPath, "label catalog file, one label per line")
	fs.BoolVar(&c.Normalize, "normalize", c.Normalize, "normalize landmarks relative to the wrist before inference")
	fs.Float64Var(&c.MinConfidence, "min-confidence", c.MinConfidence, "discard predictions below this confidence")
	fs.DurationVar(&c.SampleInterval, "sample-interval", c.SampleInterval, "sampling period for model predictions")
	fs.DurationVar(&c.DemoInterval, "demo-interval", c.DemoInterval, "sampling period for demo predictions")

	fs.BoolVar(&c.Speech, "speech", c.Speech, "speak accepted signs")
	fs.StringVar(&c.SpeechBinary, "speech-binary", c.SpeechBinary, "espeak-compatible synthesizer")
	fs.StringVar(&c.Voice, "voice", c.Voice, "preferred voice")

	fs.StringVar(&c.RecordCodec, "record-codec", c.RecordCodec, "FourCC codec for recordings")
	fs.Float64Var(&c.RecordFPS, "record-fps", c.RecordFPS, "recording frame rate")

	fs.StringVar(&c.StorageBackend, "storage", c.StorageBackend, "upload backend: local or s3")
	fs.StringVar(&c.StorageDir, "storage-dir", c.StorageDir, "local upload directory (default <data-dir>/uploads)")
	fs.StringVar(&c.PublicBaseURL, "public-base-url", c.PublicBaseURL, "base URL for uploaded objects")
	fs.StringVar(&c.S3Bucket, "s3-bucket", c.S3Bucket, "S3 bucket")
	fs.StringVar(&c.S3Region, "s3-region", c.S3Region, "S3 region")
	fs.StringVar(&c.S3Endpoint, "s3-endpoint", c.S3Endpoint, "S3-compatible endpoint URL")
	fs.BoolVar(&c.S3PathStyle, "s3-path-style", c.S3PathStyle, "use path-style S3 addressing")
	fs.StringVar(&c.S3PublicURL, "s3-public-url", c.S3PublicURL, "base URL uploaded S3 objects are served from")
}

// Validate checks the settings for consistency.
func (c *Config) Validate() error {
	var errs []error
	if c.Mode != "demo" && c.Mode != "neural" {
		errs = append(errs, fmt.Errorf("mode must be demo or neural, got %q", c.Mode))
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		errs = append(errs, fmt.Errorf("min confidence must be in [0,1], got %v", c.MinConfidence))
	}
	if c.SampleInterval <= 0 || c.DemoInterval <= 0 {
		errs = append(errs, errors.New("sample intervals must be positive"))
	}
	if c.RecordFPS <= 0 {
		errs = append(errs, errors.New("record fps must be positive"))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	switch c.StorageBackend {
	case StorageLocal:
	case StorageS3:
		if c.S3Bucket == "" {
			errs = append(errs, errors.New("s3 storage requires a bucket"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage must be local or s3, got %q", c.StorageBackend))
	}
	return errors.Join(errs...)
}

// DBPath returns the SQLite database path.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "signspeak.db")
}

// ModelCacheDir returns where downloaded models are kept.
func (c *Config) ModelCacheDir() string {
	return filepath.Join(c.DataDir, "models")
}

// RecordingsDir returns the working directory for clips being encoded.
func (c *Config) RecordingsDir() string {
	return filepath.Join(c.DataDir, "recordings")
}

// VideosDir returns where uploaded videos are kept while they play.
func (c *Config) VideosDir() string {
	return filepath.Join(c.DataDir, "videos")
}

// UploadsDir returns the local storage directory.
func (c *Config) UploadsDir() string {
	if c.StorageDir != "" {
		return c.StorageDir
	}
	return filepath.Join(c.DataDir, "uploads")
}

// ParseLevel converts a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}
