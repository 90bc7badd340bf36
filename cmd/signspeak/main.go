package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ayusman/signspeak/internal/app"
	"github.com/ayusman/signspeak/internal/config"
	"github.com/ayusman/signspeak/internal/detector"
	"github.com/ayusman/signspeak/internal/predictor"
	"github.com/ayusman/signspeak/internal/recorder"
	"github.com/ayusman/signspeak/internal/server"
	"github.com/ayusman/signspeak/internal/speech"
	"github.com/ayusman/signspeak/internal/storage"
	"github.com/ayusman/signspeak/internal/store"
	"github.com/ayusman/signspeak/internal/tray"
)

func main() {
	if err := run(); err != nil {
		slog.Error("SignSpeak exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(".env", os.Args[1:])
	if err != nil {
		return err
	}

	level, _ := config.ParseLevel(cfg.LogLevel)
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	slog.Info("SignSpeak - sign language to speech", "addr", cfg.Addr, "data", cfg.DataDir)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	st, err := store.New(cfg.DBPath())
	if err != nil {
		return fmt.Errorf("initialize store: %w", err)
	}
	defer st.Close()

	objects, err := newObjectStore(ctx, cfg)
	if err != nil {
		return err
	}

	selector, err := newSelector(cfg)
	if err != nil {
		return err
	}

	engine, player := newSpeech(cfg)
	if closer, ok := player.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	detectorConfig := detector.DefaultConfig()
	detectorConfig.PythonPath = cfg.PythonPath
	detectorConfig.ScriptPath = cfg.LandmarkScript

	a, err := app.New(app.Config{
		Store:          st,
		Objects:        objects,
		DetectorConfig: detectorConfig,
		Selector:       selector,
		MinConfidence:  cfg.MinConfidence,
		WatchModel:     cfg.WatchModel,
		CameraID:       cfg.Camera,
		MotionThresh:   cfg.MotionThreshold,
		Engine:         engine,
		Player:         player,
		Voice:          cfg.Voice,
		VideoDir:       cfg.VideosDir(),
		Recorder: recorder.Config{
			Dir:   cfg.RecordingsDir(),
			FPS:   cfg.RecordFPS,
			Codec: cfg.RecordCodec,
		},
	})
	if err != nil {
		return fmt.Errorf("initialize app: %w", err)
	}
	defer a.Close()

	savedModel, err := a.Restore(ctx)
	if err != nil {
		slog.Warn("Failed to restore session", "error", err)
	}

	modelPath := cfg.ModelPath
	if modelPath == "" {
		modelPath = savedModel
	}
	if modelPath != "" {
		go func() {
			loadCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
			defer cancel()
			if err := a.LoadModel(loadCtx, modelPath); err != nil {
				slog.Warn("Model not loaded, demo mode stays available", "path", modelPath, "error", err)
			}
		}()
	}

	if cfg.IPCameraURL != "" {
		if err := a.ConnectIPCamera(ctx, cfg.IPCameraURL); err != nil {
			slog.Warn("IP camera not connected", "url", cfg.IPCameraURL, "error", err)
		}
	}

	a.Start()

	webDir := cfg.WebDir
	if webDir == "" {
		webDir = findWebDir()
	}
	if webDir != "" {
		slog.Info("Serving static files", "dir", webDir)
	}

	srvConfig := server.Config{
		StaticDir: webDir,
		App:       a,
	}
	if local, ok := objects.(*storage.LocalStore); ok {
		srvConfig.FilesDir = local.Dir()
	}
	srv := server.New(srvConfig)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting server", "addr", cfg.Addr)
		errCh <- srv.ListenAndServe(cfg.Addr)
	}()

	if cfg.Tray {
		go runTray(ctx, stop, a, cfg.Addr)
	}

	select {
	case <-ctx.Done():
		slog.Info("Shutting down")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("Server shutdown", "error", err)
	}
	a.StopCamera()
	return nil
}

func newObjectStore(ctx context.Context, cfg config.Config) (storage.ObjectStore, error) {
	switch cfg.StorageBackend {
	case config.StorageS3:
		s3, err := storage.NewS3Store(ctx, storage.S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			PathStyle: cfg.S3PathStyle,
			PublicURL: cfg.S3PublicURL,
		})
		if err != nil {
			return nil, fmt.Errorf("initialize s3 storage: %w", err)
		}
		slog.Info("Uploading recordings to S3", "bucket", cfg.S3Bucket)
		return s3, nil
	default:
		local, err := storage.NewLocalStore(cfg.UploadsDir(), cfg.PublicBaseURL)
		if err != nil {
			return nil, fmt.Errorf("initialize local storage: %w", err)
		}
		return local, nil
	}
}

func newSelector(cfg config.Config) (*predictor.Selector, error) {
	var labels []string
	if cfg.LabelsPath != "" {
		var err error
		labels, err = predictor.LoadLabels(cfg.LabelsPath)
		if err != nil {
			return nil, fmt.Errorf("load labels: %w", err)
		}
	}

	neural := predictor.NewNeural(predictor.NeuralConfig{
		Labels:    labels,
		Normalize: cfg.Normalize,
		Interval:  cfg.SampleInterval,
		Loader: predictor.NewLoader(predictor.LoaderConfig{
			CacheDir:       cfg.ModelCacheDir(),
			RequireWeights: cfg.RequireWeights,
		}),
	})
	selector := predictor.NewSelector(predictor.NewDemoWithCatalog(predictor.DemoCatalog, cfg.DemoInterval), neural)

	// Saved settings restored later take precedence over this.
	mode, err := predictor.ParseMode(cfg.Mode)
	if err != nil {
		return nil, err
	}
	if err := selector.SetMode(mode); err != nil {
		return nil, err
	}
	return selector, nil
}

func newSpeech(cfg config.Config) (speech.Engine, speech.Player) {
	if !cfg.Speech {
		slog.Info("Speech output disabled")
		return speech.NopEngine{}, speech.NopPlayer{}
	}
	player, err := speech.NewPortAudioPlayer()
	if err != nil {
		slog.Warn("Audio output unavailable, speech disabled", "error", err)
		return speech.NopEngine{}, speech.NopPlayer{}
	}
	return speech.NewCommandEngine(cfg.SpeechBinary, 0), player
}

func runTray(ctx context.Context, quit context.CancelFunc, a *app.App, addr string) {
	t := tray.New()
	t.OnToggle(a.SetEnabled)
	t.OnMute(a.SetMuted)
	t.OnSettings(func() {
		url := settingsURL(addr)
		if err := openBrowser(url); err != nil {
			slog.Warn("Failed to open browser", "url", url, "error", err)
		}
	})
	t.OnQuit(quit)
	a.OnPrediction(func(p predictor.Prediction) {
		t.SetLastSign(p.Label)
	})

	go func() {
		<-ctx.Done()
		t.Quit()
	}()
	t.Run()
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.signspeak/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	// Check relative paths from current working directory
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	homeWebDir := filepath.Join(homeDir, ".signspeak", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}
