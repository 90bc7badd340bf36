// Package app wires the camera, hand detector, predictors, transcript,
// speech and recorder into the sign-to-speech pipeline.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ayusman/signspeak/internal/capture"
	"github.com/ayusman/signspeak/internal/detector"
	"github.com/ayusman/signspeak/internal/predictor"
	"github.com/ayusman/signspeak/internal/recorder"
	"github.com/ayusman/signspeak/internal/scheduler"
	"github.com/ayusman/signspeak/internal/speech"
	"github.com/ayusman/signspeak/internal/storage"
	"github.com/ayusman/signspeak/internal/store"
	"github.com/ayusman/signspeak/internal/transcript"
)

var (
	// ErrNoObjectStore is returned when uploading without a configured backend.
	ErrNoObjectStore = errors.New("no object storage configured")
	// ErrNotStreaming is returned when an operation needs an active camera.
	ErrNotStreaming = errors.New("camera is not streaming")
)

// Config holds configuration options for the application.
type Config struct {
	Store   *store.Store        // optional persistence
	Objects storage.ObjectStore // upload target for recordings

	// Detector overrides hand detection. When nil MediaPipe is used if
	// available, otherwise a mock detector that reports no hands.
	Detector       detector.Detector
	DetectorConfig detector.Config

	// Selector overrides the prediction strategies.
	Selector      *predictor.Selector
	MinConfidence float64
	WatchModel    bool

	CameraID     int
	MotionThresh float64
	// NewCamera and StreamCamera override camera construction for local
	// devices and IP camera URLs.
	NewCamera    func(device int) capture.Camera
	StreamCamera func(url string) capture.Camera
	HTTPClient   *http.Client
	ProbeTimeout time.Duration

	// VideoDir holds uploaded videos while they play. VideoCamera overrides
	// how an uploaded file is opened.
	VideoDir    string
	VideoCamera func(path string) capture.Camera

	Engine speech.Engine
	Player speech.Player
	Voice  string

	Recorder recorder.Config
}

// App is the main application that orchestrates the detection pipeline.
type App struct {
	config     Config
	motion     *capture.MotionDetector
	ipcam      *capture.IPCamera
	selector   *predictor.Selector
	scheduler  *scheduler.Scheduler
	transcript *transcript.Log
	announcer  *speech.Announcer
	recorder   *recorder.Recorder
	events     *hub

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// camMu serializes camera start, stop and switch.
	camMu sync.Mutex

	mu         sync.RWMutex
	detector   detector.Detector
	enabled    bool
	cameraID   int
	camera     capture.Camera
	stopStream context.CancelFunc
	streamDone chan struct{}
	video      string // uploaded file backing the current stream
	frame      []byte
	frameSeq   uint64
	last       string
	watcher    *predictor.Watcher
	watchStop  context.CancelFunc

	onPrediction []func(predictor.Prediction)
}

// New creates a new App instance with the given configuration. Call Start
// to run the sampling loop and Close to release everything.
func New(config Config) (*App, error) {
	motionThreshold := config.MotionThresh
	if motionThreshold <= 0 {
		motionThreshold = 1.0 // 1% pixel change
	}
	if config.NewCamera == nil {
		config.NewCamera = capture.NewCamera
	}
	if config.VideoCamera == nil {
		config.VideoCamera = func(path string) capture.Camera { return capture.NewFileCamera(path) }
	}
	if config.VideoDir == "" {
		config.VideoDir = filepath.Join(os.TempDir(), "signspeak-videos")
	}
	if config.Engine == nil {
		config.Engine = speech.NopEngine{}
	}
	if config.Player == nil {
		config.Player = speech.NopPlayer{}
	}

	rec, err := recorder.New(config.Recorder)
	if err != nil {
		return nil, err
	}

	selector := config.Selector
	if selector == nil {
		selector = predictor.NewSelector(predictor.NewDemo(), predictor.NewNeural(predictor.NeuralConfig{}))
	}

	var sink transcript.Sink
	if config.Store != nil {
		sink = config.Store.Transcripts()
	}

	ctx, cancel := context.WithCancel(context.Background())
	a := &App{
		config:     config,
		motion:     capture.NewMotionDetector(motionThreshold),
		ipcam:      capture.NewIPCamera(config.HTTPClient, config.ProbeTimeout),
		selector:   selector,
		transcript: transcript.NewLog(sink),
		announcer:  speech.NewAnnouncer(ctx, config.Engine, config.Player, config.Voice),
		recorder:   rec,
		events:     newHub(),
		ctx:        ctx,
		cancel:     cancel,
		enabled:    true,
		cameraID:   config.CameraID,
	}
	a.scheduler = scheduler.New(scheduler.Config{
		Predictor:     selector,
		MinConfidence: config.MinConfidence,
	})

	a.detector = config.Detector
	if a.detector == nil {
		if mp, err := detector.NewMediaPipeDetector(config.DetectorConfig); err == nil {
			a.detector = mp
			slog.Info("Using MediaPipe hand detection")
		} else {
			slog.Warn("MediaPipe not available, using mock detector", "error", err)
			a.detector = detector.NewMockDetector()
		}
	}

	a.scheduler.OnPrediction(a.accept)
	a.scheduler.OnStateChange(func(s scheduler.State) {
		a.publish(EventState, map[string]string{"state": s.String()})
	})
	a.transcript.OnAppend(func(e transcript.Entry) {
		a.publish(EventTranscript, e)
	})
	a.transcript.OnClear(func() {
		a.publish(EventTranscriptCleared, nil)
	})

	return a, nil
}

// Start runs the sampling loop in the background.
func (a *App) Start() {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.scheduler.Run(a.ctx)
	}()
	slog.Info("Sampling loop started")
}

// Close stops the stream and background work and releases all resources.
func (a *App) Close() error {
	a.StopCamera()
	a.cancel()
	a.wg.Wait()
	a.stopWatcher()

	var errs []error
	errs = append(errs, a.recorder.Close())
	errs = append(errs, a.announcer.Close())
	errs = append(errs, a.selector.Neural().Close())
	a.mu.Lock()
	if a.detector != nil {
		errs = append(errs, a.detector.Close())
	}
	a.mu.Unlock()
	a.motion.Close()
	a.events.close()
	return errors.Join(errs...)
}

// accept receives predictions from the scheduler in acceptance order.
func (a *App) accept(p predictor.Prediction) {
	a.mu.Lock()
	a.last = p.Label
	callbacks := append([]func(predictor.Prediction){}, a.onPrediction...)
	a.mu.Unlock()

	a.publish(EventPrediction, NewPredictionView(p))
	a.transcript.Append(p.Label, p.Confidence)
	a.announcer.Speak(p.Label)
	for _, fn := range callbacks {
		fn(p)
	}
}

// OnPrediction registers a callback run for every accepted prediction.
func (a *App) OnPrediction(fn func(predictor.Prediction)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onPrediction = append(a.onPrediction, fn)
}

// Subscribe returns a channel of events and a func that ends the
// subscription.
func (a *App) Subscribe(buffer int) (<-chan Event, func()) {
	return a.events.subscribe(buffer)
}

func (a *App) publish(t EventType, data any) {
	a.events.publish(Event{Type: t, Data: data})
}

// SetEnabled enables or disables hand detection. Frames keep flowing while
// disabled but no hands are reported.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	a.enabled = enabled
	a.mu.Unlock()
	slog.Info("Detection toggled", "enabled", enabled)
}

// IsEnabled returns whether hand detection is currently enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// SetDetector sets the hand detector implementation to use.
func (a *App) SetDetector(d detector.Detector) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.detector = d
}

// Detector returns the hand detector.
func (a *App) Detector() detector.Detector {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.detector
}

// StartCamera opens the local camera and starts the frame loop. It is a
// no-op when a stream is already running.
func (a *App) StartCamera() error {
	a.camMu.Lock()
	defer a.camMu.Unlock()
	return a.startCamera()
}

func (a *App) startCamera() error {
	a.mu.RLock()
	running := a.camera != nil
	id := a.cameraID
	a.mu.RUnlock()
	if running {
		return nil
	}

	cam := a.config.NewCamera(id)
	if err := cam.Open(); err != nil {
		a.publish(EventCamera, map[string]any{"streaming": false, "error": err.Error()})
		return err
	}
	a.startStream(cam)
	return nil
}

// SwitchCamera restarts the stream on another local device.
func (a *App) SwitchCamera(id int) error {
	a.camMu.Lock()
	defer a.camMu.Unlock()

	a.stopCamera()
	a.mu.Lock()
	a.cameraID = id
	a.mu.Unlock()
	return a.startCamera()
}

// StopCamera stops the frame loop and releases the camera. An active
// recording is finalized so its clip stays available.
func (a *App) StopCamera() {
	a.camMu.Lock()
	defer a.camMu.Unlock()
	a.stopCamera()
}

func (a *App) stopCamera() {
	a.mu.Lock()
	cam := a.camera
	stop := a.stopStream
	done := a.streamDone
	video := a.video
	a.camera = nil
	a.stopStream = nil
	a.streamDone = nil
	a.video = ""
	a.frame = nil
	a.mu.Unlock()

	if cam == nil {
		return
	}

	stop()
	<-done

	if a.recorder.IsRecording() {
		if _, err := a.recorder.Stop(); err != nil {
			slog.Warn("Finalize recording", "error", err)
		}
		a.publish(EventRecording, a.recorder.Status())
	}

	a.scheduler.SetStreaming(false)
	if err := cam.Close(); err != nil {
		slog.Warn("Error closing camera", "error", err)
	}
	a.motion.Reset()
	if a.ipcam.IsConnected() && cam.Source() == a.ipcam.URL() {
		a.ipcam.Disconnect()
	}
	if video != "" {
		if err := os.Remove(video); err != nil && !errors.Is(err, os.ErrNotExist) {
			slog.Warn("Remove uploaded video", "path", video, "error", err)
		}
	}

	a.publish(EventCamera, map[string]any{"streaming": false})
	slog.Info("Camera stopped", "source", cam.Source())
}

// ConnectIPCamera probes rawURL and switches the stream to it. On failure
// the current stream is left stopped and the IP camera disconnected.
func (a *App) ConnectIPCamera(ctx context.Context, rawURL string) error {
	a.camMu.Lock()
	defer a.camMu.Unlock()

	a.stopCamera()

	cam, err := a.ipcam.Connect(ctx, rawURL)
	if err != nil {
		a.publish(EventCamera, map[string]any{"streaming": false, "error": err.Error()})
		return err
	}
	if a.config.StreamCamera != nil {
		cam = a.config.StreamCamera(rawURL)
	}
	if err := cam.Open(); err != nil {
		a.ipcam.Disconnect()
		connErr := &capture.ConnectError{URL: rawURL, Err: err}
		a.publish(EventCamera, map[string]any{"streaming": false, "error": connErr.Error()})
		return connErr
	}
	a.startStream(cam)
	return nil
}

// StartVideo saves an uploaded video and streams it through the pipeline in
// place of the camera. The stream stops by itself when the video ends and
// the file is removed.
func (a *App) StartVideo(name string, body io.Reader) error {
	a.camMu.Lock()
	defer a.camMu.Unlock()

	a.stopCamera()

	if err := os.MkdirAll(a.config.VideoDir, 0755); err != nil {
		return fmt.Errorf("create video dir: %w", err)
	}
	f, err := os.CreateTemp(a.config.VideoDir, "upload-*"+strings.ToLower(filepath.Ext(name)))
	if err != nil {
		return fmt.Errorf("save video: %w", err)
	}
	path := f.Name()
	_, err = io.Copy(f, body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return fmt.Errorf("save video: %w", err)
	}

	cam := a.config.VideoCamera(path)
	if err := cam.Open(); err != nil {
		os.Remove(path)
		a.publish(EventCamera, map[string]any{"streaming": false, "error": err.Error()})
		return err
	}

	a.mu.Lock()
	a.video = path
	a.mu.Unlock()
	a.startStream(cam)
	slog.Info("Playing uploaded video", "name", name)
	return nil
}

// IsVideo reports whether the stream is an uploaded video.
func (a *App) IsVideo() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.video != ""
}

// endStream stops cam if it is still the active stream.
func (a *App) endStream(cam capture.Camera) {
	a.camMu.Lock()
	defer a.camMu.Unlock()

	a.mu.RLock()
	current := a.camera
	a.mu.RUnlock()
	if current != cam {
		return
	}
	a.stopCamera()
}

// DisconnectIPCamera stops an IP camera stream.
func (a *App) DisconnectIPCamera() {
	a.camMu.Lock()
	defer a.camMu.Unlock()

	if !a.ipcam.IsConnected() {
		return
	}
	a.stopCamera()
	a.ipcam.Disconnect()
}

// IPCamera returns the IP camera connection state.
func (a *App) IPCamera() *capture.IPCamera {
	return a.ipcam
}

func (a *App) startStream(cam capture.Camera) {
	cam.SetFPS(capture.IdleFPS)
	ctx, cancel := context.WithCancel(a.ctx)
	done := make(chan struct{})

	a.mu.Lock()
	a.camera = cam
	a.stopStream = cancel
	a.streamDone = done
	a.mu.Unlock()

	a.scheduler.SetStreaming(true)
	go func() {
		defer close(done)
		a.runPipeline(ctx, cam)
	}()

	a.publish(EventCamera, map[string]any{"streaming": true, "source": cam.Source()})
	slog.Info("Camera started", "source", cam.Source())
}

// Camera returns the streaming camera, or nil.
func (a *App) Camera() capture.Camera {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.camera
}

// IsStreaming reports whether a camera stream is active.
func (a *App) IsStreaming() bool {
	return a.Camera() != nil
}

// Frame returns the latest annotated JPEG frame and its sequence number.
// The sequence increases with every published frame.
func (a *App) Frame() ([]byte, uint64) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.frame, a.frameSeq
}

func (a *App) setFrame(jpeg []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.camera == nil {
		return
	}
	a.frame = jpeg
	a.frameSeq++
}

// Scheduler returns the sampling scheduler.
func (a *App) Scheduler() *scheduler.Scheduler {
	return a.scheduler
}

// Selector returns the prediction strategies.
func (a *App) Selector() *predictor.Selector {
	return a.selector
}

// Transcript returns the transcript log.
func (a *App) Transcript() *transcript.Log {
	return a.transcript
}

// Announcer returns the speech announcer.
func (a *App) Announcer() *speech.Announcer {
	return a.announcer
}

// Recorder returns the session recorder.
func (a *App) Recorder() *recorder.Recorder {
	return a.recorder
}

// LastSign returns the label of the most recent accepted prediction.
func (a *App) LastSign() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.last
}

// ClearTranscript removes every transcript entry.
func (a *App) ClearTranscript() {
	a.transcript.Clear()
}

// SetMode switches between demo and neural prediction and persists it.
func (a *App) SetMode(mode predictor.Mode) error {
	if err := a.selector.SetMode(mode); err != nil {
		return err
	}
	a.saveSetting(store.SettingMode, string(mode))
	a.publish(EventMode, map[string]string{"mode": string(mode)})
	slog.Info("Prediction mode changed", "mode", mode)
	return nil
}

// LoadModel loads the neural model at path, replacing a live session for a
// different path. The path is persisted on success and a local model is
// watched for changes when enabled.
func (a *App) LoadModel(ctx context.Context, path string) error {
	neural := a.selector.Neural()
	if neural.IsReady() {
		if neural.ModelPath() == path {
			return nil
		}
		a.stopWatcher()
		neural.Reset()
	}

	err := neural.LoadModel(ctx, path)
	a.publish(EventModel, a.ModelStatus())
	if err != nil {
		return err
	}

	a.saveSetting(store.SettingModel, path)
	if a.config.WatchModel && !predictor.IsRemote(path) {
		a.startWatcher(path)
	}
	return nil
}

// ResetModel releases the neural session.
func (a *App) ResetModel() {
	a.stopWatcher()
	a.selector.Neural().Reset()
	a.saveSetting(store.SettingModel, "")
	a.publish(EventModel, a.ModelStatus())
}

// ModelStatus describes the neural strategy.
type ModelStatus struct {
	Mode    string `json:"mode"`
	Ready   bool   `json:"ready"`
	Loading bool   `json:"loading"`
	Path    string `json:"path,omitempty"`
	Shape   string `json:"shape,omitempty"`
	Labels  int    `json:"labels"`
	Error   string `json:"error,omitempty"`
}

// ModelStatus returns the current model state.
func (a *App) ModelStatus() ModelStatus {
	n := a.selector.Neural()
	st := ModelStatus{
		Mode:    string(a.selector.Mode()),
		Ready:   n.IsReady(),
		Loading: n.Loading(),
		Path:    n.ModelPath(),
		Shape:   n.Shape(),
		Labels:  len(n.Labels()),
	}
	if err := n.LastError(); err != nil {
		st.Error = err.Error()
	}
	return st
}

func (a *App) startWatcher(path string) {
	w, err := predictor.NewWatcher(a.selector.Neural(), path)
	if err != nil {
		slog.Warn("Model watch unavailable", "path", path, "error", err)
		return
	}
	ctx, cancel := context.WithCancel(a.ctx)

	a.mu.Lock()
	a.watcher = w
	a.watchStop = cancel
	a.mu.Unlock()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		w.Run(ctx)
	}()
}

func (a *App) stopWatcher() {
	a.mu.Lock()
	w, stop := a.watcher, a.watchStop
	a.watcher, a.watchStop = nil, nil
	a.mu.Unlock()

	if w == nil {
		return
	}
	stop()
	if err := w.Close(); err != nil {
		slog.Warn("Close model watcher", "error", err)
	}
}

// SetMuted sets and persists the speech mute state.
func (a *App) SetMuted(muted bool) {
	a.announcer.SetMuted(muted)
	a.saveBool(store.SettingMuted, muted)
	a.publish(EventSpeech, a.SpeechStatus())
}

// ToggleMute flips the mute state and returns the new value.
func (a *App) ToggleMute() bool {
	muted := a.announcer.ToggleMute()
	a.saveBool(store.SettingMuted, muted)
	a.publish(EventSpeech, a.SpeechStatus())
	return muted
}

// SetVoice selects and persists a speech voice.
func (a *App) SetVoice(id string) error {
	if err := a.announcer.SetVoice(id); err != nil {
		return err
	}
	a.saveSetting(store.SettingVoice, id)
	a.publish(EventSpeech, a.SpeechStatus())
	return nil
}

// SpeechStatus describes the announcer.
type SpeechStatus struct {
	Muted    bool           `json:"muted"`
	Speaking bool           `json:"speaking"`
	Voice    string         `json:"voice"`
	Voices   []speech.Voice `json:"voices"`
}

// SpeechStatus returns the announcer state.
func (a *App) SpeechStatus() SpeechStatus {
	return SpeechStatus{
		Muted:    a.announcer.IsMuted(),
		Speaking: a.announcer.IsSpeaking(),
		Voice:    a.announcer.Voice(),
		Voices:   a.announcer.Voices(),
	}
}

// StartRecording begins recording the current stream.
func (a *App) StartRecording() error {
	a.mu.RLock()
	var src recorder.Source
	if a.camera != nil {
		src = a.camera
	}
	a.mu.RUnlock()

	if err := a.recorder.Start(src); err != nil {
		return err
	}
	a.publish(EventRecording, a.recorder.Status())
	return nil
}

// StopRecording finalizes the recording and returns the buffered clip.
// It returns nil when no frames were captured.
func (a *App) StopRecording() (*recorder.Clip, error) {
	clip, err := a.recorder.Stop()
	a.publish(EventRecording, a.recorder.Status())
	return clip, err
}

// UploadRecording stores the buffered clip and records its metadata.
func (a *App) UploadRecording(ctx context.Context) (*store.Recording, error) {
	if a.config.Objects == nil {
		return nil, &recorder.RecordingError{Op: "upload", Err: ErrNoObjectStore}
	}
	var saver recorder.RecordingSaver
	if a.config.Store != nil {
		saver = a.config.Store.Recordings()
	}
	rec, err := a.recorder.Upload(ctx, a.config.Objects, saver)
	if err != nil {
		return nil, err
	}
	a.publish(EventRecording, a.recorder.Status())
	return rec, nil
}

// Recordings lists uploaded recordings, newest first.
func (a *App) Recordings() ([]*store.Recording, error) {
	if a.config.Store == nil {
		return nil, nil
	}
	return a.config.Store.Recordings().List()
}

// DeleteRecording removes an uploaded recording and its stored object.
func (a *App) DeleteRecording(ctx context.Context, id string) error {
	if a.config.Store == nil {
		return store.ErrNotFound
	}
	repo := a.config.Store.Recordings()
	rec, err := repo.GetByID(id)
	if err != nil {
		return err
	}
	if a.config.Objects != nil {
		if err := a.config.Objects.Delete(ctx, rec.StoragePath); err != nil {
			return err
		}
	}
	return repo.Delete(id)
}

// Restore reloads the persisted transcript and settings. It returns the
// saved model path, if any.
func (a *App) Restore(ctx context.Context) (string, error) {
	if a.config.Store == nil {
		return "", nil
	}

	entries, err := a.config.Store.Transcripts().List(ctx)
	if err != nil {
		return "", fmt.Errorf("restore transcript: %w", err)
	}
	a.transcript.Restore(entries)

	settings := a.config.Store.Settings()
	if v, err := settings.Get(store.SettingMode); err == nil {
		if mode, err := predictor.ParseMode(v); err == nil {
			a.selector.SetMode(mode)
		}
	}
	a.announcer.SetMuted(settings.GetBool(store.SettingMuted, false))
	if v, err := settings.Get(store.SettingVoice); err == nil && v != "" {
		if err := a.announcer.SetVoice(v); err != nil {
			slog.Warn("Saved voice unavailable", "voice", v, "error", err)
		}
	}

	model, err := settings.Get(store.SettingModel)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return "", fmt.Errorf("restore settings: %w", err)
	}

	slog.Info("Restored session", "entries", len(entries), "mode", a.selector.Mode(), "model", model)
	return model, nil
}

func (a *App) saveSetting(key, value string) {
	if a.config.Store == nil {
		return
	}
	if err := a.config.Store.Settings().Set(key, value); err != nil {
		slog.Warn("Persist setting", "key", key, "error", err)
	}
}

func (a *App) saveBool(key string, value bool) {
	if a.config.Store == nil {
		return
	}
	if err := a.config.Store.Settings().SetBool(key, value); err != nil {
		slog.Warn("Persist setting", "key", key, "error", err)
	}
}

// PredictionView is a prediction with its display band.
type PredictionView struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Band       string  `json:"band"`
}

// NewPredictionView wraps p for display.
func NewPredictionView(p predictor.Prediction) PredictionView {
	return PredictionView{Label: p.Label, Confidence: p.Confidence, Band: p.Band()}
}

// Status summarizes the whole application.
type Status struct {
	Streaming     bool            `json:"streaming"`
	Source        string          `json:"source,omitempty"`
	IPCamera      string          `json:"ipCamera,omitempty"`
	Enabled       bool            `json:"enabled"`
	State         string          `json:"state"`
	Mode          string          `json:"mode"`
	ModelReady    bool            `json:"modelReady"`
	Current       *PredictionView `json:"current,omitempty"`
	LastSign      string          `json:"lastSign,omitempty"`
	Transcript    int             `json:"transcript"`
	Recording     recorder.Status `json:"recording"`
	Speech        SpeechStatus    `json:"speech"`
	MinConfidence float64         `json:"minConfidence"`
}

// Status returns a snapshot of the application state.
func (a *App) Status() Status {
	st := Status{
		IPCamera:      a.ipcam.URL(),
		Enabled:       a.IsEnabled(),
		State:         a.scheduler.State().String(),
		Mode:          string(a.selector.Mode()),
		ModelReady:    a.selector.IsReady(),
		LastSign:      a.LastSign(),
		Transcript:    a.transcript.Len(),
		Recording:     a.recorder.Status(),
		Speech:        a.SpeechStatus(),
		MinConfidence: a.scheduler.MinConfidence(),
	}
	if cam := a.Camera(); cam != nil {
		st.Streaming = true
		st.Source = cam.Source()
	}
	if p := a.scheduler.Current(); p != nil {
		v := NewPredictionView(*p)
		st.Current = &v
	}
	return st
}
