package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/signspeak/internal/capture"
	"github.com/ayusman/signspeak/internal/detector"
	"github.com/ayusman/signspeak/internal/predictor"
	"github.com/ayusman/signspeak/internal/recorder"
	"github.com/ayusman/signspeak/internal/scheduler"
	"github.com/ayusman/signspeak/internal/store"
)

var testCatalog = []predictor.Prediction{
	{Label: "Hello", Confidence: 0.9},
	{Label: "Yes", Confidence: 0.85},
	{Label: "Low", Confidence: 0.2},
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestApp(t *testing.T, config Config) *App {
	t.Helper()
	if config.Detector == nil {
		config.Detector = detector.NewMockDetector()
	}
	if config.Selector == nil {
		config.Selector = predictor.NewSelector(
			predictor.NewDemoWithCatalog(testCatalog, 50*time.Millisecond),
			predictor.NewNeural(predictor.NeuralConfig{}),
		)
	}
	if config.Recorder.Dir == "" {
		config.Recorder.Dir = t.TempDir()
	}
	a, err := New(config)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func testFrames(t *testing.T, n int) []*gocv.Mat {
	t.Helper()
	frames := make([]*gocv.Mat, n)
	for i := range frames {
		m := gocv.NewMatWithSize(120, 160, gocv.MatTypeCV8UC3)
		frames[i] = &m
	}
	t.Cleanup(func() {
		for _, f := range frames {
			f.Close()
		}
	})
	return frames
}

func mockCameraFactory(cam *capture.MockCamera) func(int) capture.Camera {
	return func(int) capture.Camera { return cam }
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestApp_PipelineTranscribesSigns(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	s := newTestStore(t)
	mockDetector := detector.NewMockDetector()
	mockDetector.SetHands([]detector.Hand{detector.ThumbsUpHand()})
	cam := capture.NewMockCamera(testFrames(t, 3), true)

	a := newTestApp(t, Config{
		Store:     s,
		Detector:  mockDetector,
		NewCamera: mockCameraFactory(cam),
	})

	events, unsubscribe := a.Subscribe(256)
	defer unsubscribe()

	a.Start()
	if err := a.StartCamera(); err != nil {
		t.Fatalf("StartCamera() error = %v", err)
	}

	waitFor(t, 5*time.Second, func() bool { return a.Transcript().Len() >= 2 })

	entries := a.Transcript().Entries()
	if entries[0].Text != "Hello" || entries[1].Text != "Yes" {
		t.Errorf("transcript = %q, %q; want Hello, Yes", entries[0].Text, entries[1].Text)
	}
	for _, e := range entries {
		if e.Text == "Low" {
			t.Error("low confidence prediction reached the transcript")
		}
	}

	if _, seq := a.Frame(); seq == 0 {
		t.Error("no annotated frame published")
	}
	if a.LastSign() == "" {
		t.Error("LastSign() is empty")
	}

	a.StopCamera()
	if a.IsStreaming() {
		t.Error("still streaming after StopCamera")
	}
	if got := a.Scheduler().State(); got != scheduler.Idle {
		t.Errorf("state = %v, want idle", got)
	}
	if _, err := a.Snapshot(); !errors.Is(err, ErrNotStreaming) {
		t.Errorf("Snapshot() error = %v, want ErrNotStreaming", err)
	}

	n, err := s.Transcripts().Count(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n < 2 {
		t.Errorf("persisted entries = %d, want >= 2", n)
	}

	seen := map[EventType]bool{}
	for {
		select {
		case e := <-events:
			seen[e.Type] = true
			continue
		default:
		}
		break
	}
	for _, want := range []EventType{EventCamera, EventState, EventPrediction, EventTranscript} {
		if !seen[want] {
			t.Errorf("missing %s event", want)
		}
	}
}

func TestApp_DetectionDisabled(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	mockDetector := detector.NewMockDetector()
	mockDetector.SetHands([]detector.Hand{detector.OpenPalmHand()})
	cam := capture.NewMockCamera(testFrames(t, 1), true)

	a := newTestApp(t, Config{Detector: mockDetector, NewCamera: mockCameraFactory(cam)})
	a.SetEnabled(false)
	a.Start()
	if err := a.StartCamera(); err != nil {
		t.Fatal(err)
	}

	waitFor(t, 3*time.Second, func() bool { _, seq := a.Frame(); return seq >= 2 })
	if got := a.Scheduler().State(); got != scheduler.Armed {
		t.Errorf("state = %v, want armed", got)
	}
	if mockDetector.Calls() != 0 {
		t.Errorf("detector called %d times while disabled", mockDetector.Calls())
	}
}

func TestApp_StartCameraDeviceError(t *testing.T) {
	cam := capture.NewMockCamera(nil, false)
	cam.SetOpenError(errors.New("busy"))

	a := newTestApp(t, Config{NewCamera: mockCameraFactory(cam)})

	err := a.StartCamera()
	var devErr *capture.DeviceError
	if !errors.As(err, &devErr) {
		t.Fatalf("StartCamera() error = %v, want DeviceError", err)
	}
	if a.IsStreaming() {
		t.Error("streaming after failed open")
	}
}

func TestApp_SwitchCamera(t *testing.T) {
	var opened []int
	a := newTestApp(t, Config{NewCamera: func(id int) capture.Camera {
		opened = append(opened, id)
		return capture.NewMockCamera(testFrames(t, 1), true)
	}})

	if err := a.StartCamera(); err != nil {
		t.Fatal(err)
	}
	if err := a.SwitchCamera(2); err != nil {
		t.Fatal(err)
	}
	if len(opened) != 2 || opened[1] != 2 {
		t.Errorf("opened = %v, want [0 2]", opened)
	}
	if !a.IsStreaming() {
		t.Error("not streaming after switch")
	}
}

func TestApp_ConcurrentStartCamera(t *testing.T) {
	frames := testFrames(t, 1)
	var mu sync.Mutex
	var opened []*capture.MockCamera

	a := newTestApp(t, Config{
		NewCamera: func(int) capture.Camera {
			cam := capture.NewMockCamera(frames, true)
			mu.Lock()
			opened = append(opened, cam)
			mu.Unlock()
			return cam
		},
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := a.StartCamera(); err != nil {
				t.Errorf("StartCamera() error = %v", err)
			}
		}()
	}
	wg.Wait()

	mu.Lock()
	count := len(opened)
	mu.Unlock()
	if count != 1 {
		t.Fatalf("cameras opened = %d, want 1", count)
	}

	a.StopCamera()
	if opened[0].IsOpen() {
		t.Error("camera still open after StopCamera")
	}
}

func TestApp_StartVideo(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	mockDetector := detector.NewMockDetector()
	mockDetector.SetHands([]detector.Hand{detector.OpenPalmHand()})
	frames := testFrames(t, 4)

	var savedPath string
	var saved []byte
	a := newTestApp(t, Config{
		Detector: mockDetector,
		VideoDir: t.TempDir(),
		VideoCamera: func(path string) capture.Camera {
			savedPath = path
			saved, _ = os.ReadFile(path)
			return capture.NewMockCamera(frames, false)
		},
	})
	a.Start()

	if err := a.StartVideo("Clip.MP4", strings.NewReader("video bytes")); err != nil {
		t.Fatalf("StartVideo() error = %v", err)
	}
	if string(saved) != "video bytes" || filepath.Ext(savedPath) != ".mp4" {
		t.Errorf("saved %q at %s", saved, savedPath)
	}
	if !a.IsVideo() {
		t.Error("IsVideo() = false while playing")
	}

	waitFor(t, 5*time.Second, func() bool { return !a.IsStreaming() })

	if a.Transcript().Len() == 0 {
		t.Error("no signs transcribed from the video")
	}
	if a.IsVideo() {
		t.Error("IsVideo() = true after the video ended")
	}
	if _, err := os.Stat(savedPath); !os.IsNotExist(err) {
		t.Errorf("uploaded video not removed: %v", err)
	}
	if st := a.Scheduler().State(); st != scheduler.Idle {
		t.Errorf("scheduler state = %s, want idle", st)
	}
}

func TestApp_StartVideoUnreadable(t *testing.T) {
	dir := t.TempDir()
	a := newTestApp(t, Config{
		VideoDir: dir,
		VideoCamera: func(path string) capture.Camera {
			cam := capture.NewMockCamera(nil, false)
			cam.SetOpenError(errors.New("unsupported codec"))
			return cam
		},
	})

	err := a.StartVideo("clip.webm", strings.NewReader("garbage"))
	var de *capture.DeviceError
	if !errors.As(err, &de) {
		t.Fatalf("StartVideo() err = %v, want DeviceError", err)
	}
	if entries, _ := os.ReadDir(dir); len(entries) != 0 {
		t.Errorf("video dir not cleaned up: %d entries", len(entries))
	}
}

func TestApp_SettingsPersist(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := newTestApp(t, Config{Store: s})
	if err := first.SetMode(predictor.ModeNeural); err != nil {
		t.Fatal(err)
	}
	first.SetMuted(true)
	first.Transcript().Append("Hello", 0.9)

	if err := first.SetMode("gestures"); err == nil {
		t.Error("SetMode accepted an unknown mode")
	}

	second := newTestApp(t, Config{Store: s})
	model, err := second.Restore(ctx)
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if model != "" {
		t.Errorf("model = %q, want empty", model)
	}
	if second.Selector().Mode() != predictor.ModeNeural {
		t.Errorf("mode = %v, want neural", second.Selector().Mode())
	}
	if !second.Announcer().IsMuted() {
		t.Error("mute state not restored")
	}
	if second.Transcript().Len() != 1 {
		t.Errorf("transcript len = %d, want 1", second.Transcript().Len())
	}
}

func TestApp_LoadModel(t *testing.T) {
	s := newTestStore(t)
	dir := t.TempDir()
	modelPath := filepath.Join(dir, "model.onnx")
	if err := os.WriteFile(modelPath, []byte("onnx"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(predictor.WeightsPath(modelPath), []byte("weights"), 0644); err != nil {
		t.Fatal(err)
	}

	session := predictor.NewMockSession([]float32{0.1, 0.8, 0.1}, []int{1, 1, 63})
	selector := predictor.NewSelector(predictor.NewDemo(), predictor.NewNeural(predictor.NeuralConfig{
		Labels: []string{"A", "B", "C"},
		Open:   predictor.OpenMock(session),
	}))
	a := newTestApp(t, Config{Store: s, Selector: selector})

	if err := a.LoadModel(context.Background(), modelPath); err != nil {
		t.Fatalf("LoadModel() error = %v", err)
	}
	st := a.ModelStatus()
	if !st.Ready || st.Path != modelPath || st.Labels != 3 {
		t.Errorf("ModelStatus() = %+v", st)
	}
	if saved, _ := s.Settings().Get(store.SettingModel); saved != modelPath {
		t.Errorf("saved model = %q", saved)
	}

	// Loading the same path again keeps the session.
	if err := a.LoadModel(context.Background(), modelPath); err != nil {
		t.Errorf("reload same path: %v", err)
	}
	if session.Closed() {
		t.Error("session closed by a no-op load")
	}

	a.ResetModel()
	if a.ModelStatus().Ready {
		t.Error("model still ready after ResetModel")
	}
	if !session.Closed() {
		t.Error("session not released")
	}
}

func TestApp_LoadModelMissing(t *testing.T) {
	a := newTestApp(t, Config{})
	err := a.LoadModel(context.Background(), filepath.Join(t.TempDir(), "missing.onnx"))
	var loadErr *predictor.ModelLoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("LoadModel() error = %v, want ModelLoadError", err)
	}
	if st := a.ModelStatus(); st.Ready || st.Error == "" {
		t.Errorf("ModelStatus() = %+v, want error recorded", st)
	}
}

func TestApp_RecordingRequiresStream(t *testing.T) {
	a := newTestApp(t, Config{})
	if err := a.StartRecording(); !errors.Is(err, recorder.ErrNoStream) {
		t.Errorf("StartRecording() error = %v, want ErrNoStream", err)
	}
	if _, err := a.UploadRecording(context.Background()); !errors.Is(err, ErrNoObjectStore) {
		t.Errorf("UploadRecording() error = %v, want ErrNoObjectStore", err)
	}
}

func TestApp_IPCamera(t *testing.T) {
	image := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte{0xff, 0xd8, 0xff})
	}))
	defer image.Close()
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html></html>"))
	}))
	defer page.Close()

	a := newTestApp(t, Config{
		StreamCamera: func(string) capture.Camera {
			return capture.NewMockCamera(testFrames(t, 1), true)
		},
	})

	t.Run("rejects non-image response", func(t *testing.T) {
		err := a.ConnectIPCamera(context.Background(), page.URL)
		var connErr *capture.ConnectError
		if !errors.As(err, &connErr) {
			t.Fatalf("ConnectIPCamera() error = %v, want ConnectError", err)
		}
		if a.IsStreaming() || a.IPCamera().IsConnected() {
			t.Error("connected after failed probe")
		}
	})

	t.Run("connects and disconnects", func(t *testing.T) {
		if err := a.ConnectIPCamera(context.Background(), image.URL); err != nil {
			t.Fatalf("ConnectIPCamera() error = %v", err)
		}
		if !a.IsStreaming() {
			t.Fatal("not streaming")
		}
		if got := a.Status().IPCamera; got != image.URL {
			t.Errorf("Status().IPCamera = %q", got)
		}
		a.DisconnectIPCamera()
		if a.IsStreaming() || a.IPCamera().IsConnected() {
			t.Error("still connected after DisconnectIPCamera")
		}
	})
}

func TestApp_ClearTranscriptPublishes(t *testing.T) {
	a := newTestApp(t, Config{})
	events, unsubscribe := a.Subscribe(8)
	defer unsubscribe()

	a.Transcript().Append("Hello", 0.9)
	a.ClearTranscript()

	var got []EventType
	for len(got) < 2 {
		select {
		case e := <-events:
			got = append(got, e.Type)
		case <-time.After(time.Second):
			t.Fatalf("events = %v", got)
		}
	}
	if got[0] != EventTranscript || got[1] != EventTranscriptCleared {
		t.Errorf("events = %v", got)
	}
	if a.Transcript().Len() != 0 {
		t.Error("transcript not cleared")
	}
}

func TestHub_SlowSubscriberDoesNotBlock(t *testing.T) {
	h := newHub()
	_, unsubscribe := h.subscribe(1)
	defer unsubscribe()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			h.publish(Event{Type: EventHands})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}

	h.close()
	ch, _ := h.subscribe(1)
	if _, ok := <-ch; ok {
		t.Error("subscription after close should be closed")
	}
}
