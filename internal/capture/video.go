package capture

import (
	"errors"
	"math"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// ErrEndOfStream is returned by ReadFrame once a finite source has no more frames.
var ErrEndOfStream = errors.New("end of video")

// defaultVideoFPS is used when a file does not report its frame rate.
const defaultVideoFPS = 30

// FileCamera plays a video file as a Camera. Playback follows the wall clock,
// so frames the caller does not read in time are skipped.
type FileCamera struct {
	path    string
	capture *gocv.VideoCapture
	mu      sync.Mutex
	running bool
	fps     int

	nativeFPS float64
	started   time.Time
	position  int
	now       func() time.Time
}

// NewFileCamera creates a Camera reading the video file at path.
func NewFileCamera(path string) *FileCamera {
	return &FileCamera{path: path, fps: DefaultFPS, now: time.Now}
}

// Source returns the file path.
func (c *FileCamera) Source() string { return c.path }

// Open opens the file and starts the playback clock.
func (c *FileCamera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}

	capture, err := gocv.VideoCaptureFile(c.path)
	if err != nil {
		return &DeviceError{Device: c.path, Err: err}
	}
	if !capture.IsOpened() {
		capture.Close()
		return &DeviceError{Device: c.path, Err: errors.New("unsupported or unreadable video")}
	}

	c.nativeFPS = capture.Get(gocv.VideoCaptureFPS)
	if c.nativeFPS <= 0 || math.IsNaN(c.nativeFPS) {
		c.nativeFPS = defaultVideoFPS
	}
	c.capture = capture
	c.running = true
	c.position = 0
	c.started = c.now()
	return nil
}

// Close releases the file.
func (c *FileCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.running = false
	if c.capture == nil {
		return nil
	}
	err := c.capture.Close()
	c.capture = nil
	return err
}

// ReadFrame returns the frame due at the current playback time.
func (c *FileCamera) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		return nil, ErrCameraNotOpen
	}

	due := int(c.now().Sub(c.started).Seconds() * c.nativeFPS)
	if skip := due - c.position; skip > 0 {
		c.capture.Grab(skip)
		c.position += skip
	}

	mat := gocv.NewMat()
	if ok := c.capture.Read(&mat); !ok || mat.Empty() {
		mat.Close()
		return nil, ErrEndOfStream
	}
	c.position++
	return &mat, nil
}

// SetFPS records the pacing rate. Playback speed does not depend on it.
func (c *FileCamera) SetFPS(fps int) {
	if fps <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fps = fps
}

func (c *FileCamera) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fps
}

func (c *FileCamera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}
