// Package recorder encodes the annotated camera feed into a video clip that
// can be downloaded or uploaded to object storage.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"gocv.io/x/gocv"

	"github.com/ayusman/signspeak/internal/detector"
	"github.com/ayusman/signspeak/internal/storage"
	"github.com/ayusman/signspeak/internal/store"
)

// ChunkInterval is the granularity at which encoded output is accounted.
const ChunkInterval = time.Second

// ContentType is the MIME type of recorded clips.
const ContentType = "video/x-msvideo"

var (
	// ErrNoStream is returned when starting without a live video stream.
	ErrNoStream = errors.New("no video stream available")
	// ErrAlreadyRecording is returned when starting twice.
	ErrAlreadyRecording = errors.New("already recording")
	// ErrNotRecording is returned when stopping or writing while idle.
	ErrNotRecording = errors.New("not recording")
	// ErrNoRecording is returned when no finished clip is buffered.
	ErrNoRecording = errors.New("no recording available")
	// ErrUploadInProgress is returned when the buffered clip is already being uploaded.
	ErrUploadInProgress = errors.New("upload already in progress")
)

// RecordingError reports a failed recorder operation.
type RecordingError struct {
	Op  string
	Err error
}

func (e *RecordingError) Error() string {
	return fmt.Sprintf("recording %s: %v", e.Op, e.Err)
}

func (e *RecordingError) Unwrap() error {
	return e.Err
}

// Source is the video stream being recorded.
type Source interface {
	IsOpen() bool
}

// Encoder writes frames into a container file.
type Encoder interface {
	Write(frame gocv.Mat) error
	Close() error
}

// EncoderFactory opens an encoder for a clip of the given frame size.
type EncoderFactory func(path string, fps float64, width, height int) (Encoder, error)

// RecordingSaver persists uploaded recording metadata.
type RecordingSaver interface {
	Create(rec *store.Recording) error
}

// Config configures a Recorder.
type Config struct {
	Dir     string  // working directory for encoded clips
	FPS     float64 // container frame rate
	Codec   string  // FourCC, MJPG by default
	Encoder EncoderFactory
}

// Clip is a finished recording buffered on disk.
type Clip struct {
	Filename  string        `json:"filename"`
	Path      string        `json:"-"`
	Size      int64         `json:"size"`
	Duration  time.Duration `json:"duration"`
	Frames    int           `json:"frames"`
	Chunks    int           `json:"chunks"`
	CreatedAt time.Time     `json:"createdAt"`
}

// Status summarizes the recorder state.
type Status struct {
	Recording    bool          `json:"recording"`
	HasRecording bool          `json:"hasRecording"`
	Elapsed      time.Duration `json:"elapsed"`
	Frames       int           `json:"frames"`
	Chunks       int           `json:"chunks"`
}

// Recorder composites frames with the hand overlay and encodes them.
type Recorder struct {
	dir     string
	fps     float64
	encoder EncoderFactory
	now     func() time.Time

	mu        sync.Mutex
	recording bool
	writer    Encoder
	path      string
	started   time.Time
	frames    int
	chunks    int
	clip      *Clip
	uploading *Clip
}

// New creates a recorder.
func New(config Config) (*Recorder, error) {
	dir := config.Dir
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "signspeak-recordings")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create recording dir: %w", err)
	}

	fps := config.FPS
	if fps <= 0 {
		fps = 15
	}
	factory := config.Encoder
	if factory == nil {
		factory = GocvEncoder(config.Codec)
	}

	return &Recorder{
		dir:     dir,
		fps:     fps,
		encoder: factory,
		now:     time.Now,
	}, nil
}

// Start begins a recording of src. A previously buffered clip is discarded.
func (r *Recorder) Start(src Source) error {
	if src == nil || !src.IsOpen() {
		return &RecordingError{Op: "start", Err: ErrNoStream}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.recording {
		return &RecordingError{Op: "start", Err: ErrAlreadyRecording}
	}

	r.discardLocked()
	r.recording = true
	r.started = r.now()
	r.frames = 0
	r.chunks = 0
	r.path = filepath.Join(r.dir, fmt.Sprintf("rec-%d.avi", r.started.UnixNano()))

	slog.Info("Recording started", "path", r.path)
	return nil
}

// WriteFrame composites hands onto a copy of frame and encodes it. The
// encoder is opened on the first frame so its size matches the stream.
func (r *Recorder) WriteFrame(frame *gocv.Mat, hands []detector.Hand) error {
	if frame == nil || frame.Empty() {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.recording {
		return &RecordingError{Op: "write", Err: ErrNotRecording}
	}

	if r.writer == nil {
		w, err := r.encoder(r.path, r.fps, frame.Cols(), frame.Rows())
		if err != nil {
			r.abortLocked()
			return &RecordingError{Op: "write", Err: fmt.Errorf("encoder unavailable: %w", err)}
		}
		r.writer = w
	}

	composite := frame.Clone()
	defer composite.Close()
	detector.DrawHands(&composite, hands)

	if err := r.writer.Write(composite); err != nil {
		return &RecordingError{Op: "write", Err: err}
	}

	r.frames++
	if chunk := int(r.now().Sub(r.started)/ChunkInterval) + 1; chunk > r.chunks {
		r.chunks = chunk
	}
	return nil
}

// Stop finalizes the clip. With no frames written nothing is buffered.
func (r *Recorder) Stop() (*Clip, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.recording {
		return nil, &RecordingError{Op: "stop", Err: ErrNotRecording}
	}

	stopped := r.now()
	r.recording = false

	if r.writer == nil {
		slog.Info("Recording stopped with no frames")
		return nil, nil
	}

	err := r.writer.Close()
	r.writer = nil
	if err != nil {
		os.Remove(r.path)
		return nil, &RecordingError{Op: "stop", Err: err}
	}

	info, err := os.Stat(r.path)
	if err != nil {
		return nil, &RecordingError{Op: "stop", Err: err}
	}

	r.clip = &Clip{
		Filename:  fmt.Sprintf("sign-to-speech-%d.avi", stopped.UnixMilli()),
		Path:      r.path,
		Size:      info.Size(),
		Duration:  stopped.Sub(r.started),
		Frames:    r.frames,
		Chunks:    r.chunks,
		CreatedAt: stopped,
	}

	slog.Info("Recording stopped", "frames", r.frames, "duration", r.clip.Duration, "size", r.clip.Size)
	clip := *r.clip
	return &clip, nil
}

// IsRecording reports whether a recording is in progress.
func (r *Recorder) IsRecording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

// HasRecording reports whether a finished clip is buffered.
func (r *Recorder) HasRecording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.clip != nil
}

// Status returns the recorder state.
func (r *Recorder) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := Status{
		Recording:    r.recording,
		HasRecording: r.clip != nil,
		Frames:       r.frames,
		Chunks:       r.chunks,
	}
	if r.recording {
		s.Elapsed = r.now().Sub(r.started)
	}
	return s
}

// Download returns the buffered clip. The clip stays buffered.
func (r *Recorder) Download() (*Clip, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.clip == nil {
		return nil, &RecordingError{Op: "download", Err: ErrNoRecording}
	}
	clip := *r.clip
	return &clip, nil
}

// Upload stores the buffered clip in objects, persists its metadata and
// clears the buffer. On failure the clip stays buffered. The recorder stays
// usable while the object is written.
func (r *Recorder) Upload(ctx context.Context, objects storage.ObjectStore, saver RecordingSaver) (*store.Recording, error) {
	r.mu.Lock()
	if r.clip == nil {
		r.mu.Unlock()
		return nil, &RecordingError{Op: "upload", Err: ErrNoRecording}
	}
	if r.uploading == r.clip {
		r.mu.Unlock()
		return nil, &RecordingError{Op: "upload", Err: ErrUploadInProgress}
	}
	clip := r.clip
	r.uploading = clip
	f, err := os.Open(clip.Path)
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		if r.uploading == clip {
			r.uploading = nil
		}
		r.mu.Unlock()
	}()
	if err != nil {
		return nil, &RecordingError{Op: "upload", Err: err}
	}
	defer f.Close()

	id, err := uuid.NewV7()
	if err != nil {
		return nil, &RecordingError{Op: "upload", Err: err}
	}
	key := "recordings/" + id.String() + ".avi"

	if err := objects.Put(ctx, key, f, clip.Size, ContentType); err != nil {
		return nil, err
	}

	rec := &store.Recording{
		ID:          id.String(),
		Filename:    clip.Filename,
		StoragePath: key,
		URL:         objects.URL(key),
		Size:        clip.Size,
		Duration:    clip.Duration,
		CreatedAt:   clip.CreatedAt,
	}
	if saver != nil {
		if err := saver.Create(rec); err != nil {
			if derr := objects.Delete(ctx, key); derr != nil {
				slog.Warn("Remove orphaned upload", "key", key, "error", derr)
			}
			return nil, &RecordingError{Op: "upload", Err: fmt.Errorf("save metadata: %w", err)}
		}
	}

	slog.Info("Recording uploaded", "id", rec.ID, "url", rec.URL)
	r.mu.Lock()
	if r.clip == clip {
		r.discardLocked()
	}
	r.mu.Unlock()
	return rec, nil
}

// Clear discards the buffered clip.
func (r *Recorder) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.discardLocked()
}

// Close stops any recording and removes buffered output.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.abortLocked()
	r.discardLocked()
	return nil
}

func (r *Recorder) discardLocked() {
	if r.clip == nil {
		return
	}
	if err := os.Remove(r.clip.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Remove recording", "path", r.clip.Path, "error", err)
	}
	r.clip = nil
}

func (r *Recorder) abortLocked() {
	if r.writer != nil {
		r.writer.Close()
		r.writer = nil
	}
	if r.recording {
		os.Remove(r.path)
	}
	r.recording = false
}
