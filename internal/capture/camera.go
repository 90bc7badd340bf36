// Package capture provides camera capture using GoCV (OpenCV): local devices,
// phone IP cameras streaming MJPEG, and motion detection for frame pacing.
package capture

import (
	"errors"
	"fmt"
	"strconv"
	"sync"

	"gocv.io/x/gocv"
)

// Default camera settings
const (
	DefaultFPS    = 5
	DefaultWidth  = 640
	DefaultHeight = 480
)

var (
	// ErrCameraNotOpen is returned when trying to read from a camera that is not open.
	ErrCameraNotOpen = errors.New("camera is not open")
	// ErrNoDevices is returned when no camera device can be opened.
	ErrNoDevices = errors.New("no camera devices found")
)

// DeviceError reports a camera that is unavailable or denied.
type DeviceError struct {
	Device string
	Err    error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("camera %s: %v", e.Device, e.Err)
}

func (e *DeviceError) Unwrap() error {
	return e.Err
}

// Camera defines the interface for camera capture implementations.
type Camera interface {
	Open() error
	Close() error
	ReadFrame() (*gocv.Mat, error)
	SetFPS(fps int)
	FPS() int
	IsOpen() bool
	Source() string
}

// cameraImpl manages video capture from a device index or stream URL.
type cameraImpl struct {
	source  any // int device index or string URL
	capture *gocv.VideoCapture
	mu      sync.Mutex
	running bool
	fps     int
}

// NewCamera creates a Camera for a local device index.
func NewCamera(deviceID int) Camera {
	return &cameraImpl{source: deviceID, fps: DefaultFPS}
}

// NewStreamCamera creates a Camera reading an MJPEG or other stream URL.
func NewStreamCamera(url string) Camera {
	return &cameraImpl{source: url, fps: DefaultFPS}
}

// Source returns the device index or URL.
func (c *cameraImpl) Source() string {
	switch s := c.source.(type) {
	case int:
		return strconv.Itoa(s)
	case string:
		return s
	default:
		return fmt.Sprint(s)
	}
}

// Open opens the camera. Local devices are set to 640x480.
func (c *cameraImpl) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}

	capture, err := gocv.OpenVideoCapture(c.source)
	if err != nil {
		return &DeviceError{Device: c.Source(), Err: err}
	}
	if !capture.IsOpened() {
		capture.Close()
		return &DeviceError{Device: c.Source(), Err: errors.New("device unavailable or access denied")}
	}

	if _, local := c.source.(int); local {
		capture.Set(gocv.VideoCaptureFrameWidth, DefaultWidth)
		capture.Set(gocv.VideoCaptureFrameHeight, DefaultHeight)
		capture.Set(gocv.VideoCaptureFPS, float64(c.fps))
	}

	c.capture = capture
	c.running = true

	return nil
}

// Close closes the camera and releases resources.
func (c *cameraImpl) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		c.running = false
		return nil
	}

	err := c.capture.Close()
	c.capture = nil
	c.running = false

	return err
}

// ReadFrame reads a single frame from the camera.
// The caller is responsible for closing the returned Mat.
func (c *cameraImpl) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		return nil, ErrCameraNotOpen
	}

	mat := gocv.NewMat()
	if ok := c.capture.Read(&mat); !ok {
		mat.Close()
		return nil, errors.New("failed to read frame from camera")
	}

	if mat.Empty() {
		mat.Close()
		return nil, errors.New("captured frame is empty")
	}

	return &mat, nil
}

// SetFPS sets the frames per second for capture.
// Values less than or equal to 0 are ignored.
func (c *cameraImpl) SetFPS(fps int) {
	if fps <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.fps = fps

	if _, local := c.source.(int); local && c.capture != nil {
		c.capture.Set(gocv.VideoCaptureFPS, float64(fps))
	}
}

// FPS returns the current frames per second setting.
func (c *cameraImpl) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.fps
}

// IsOpen returns true if the camera is currently open and running.
func (c *cameraImpl) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.running
}

// Device is an openable local camera.
type Device struct {
	Index int    `json:"index"`
	Label string `json:"label"`
}

// ListDevices probes device indices [0, max) and returns those that open.
func ListDevices(max int) ([]Device, error) {
	var devices []Device
	for i := 0; i < max; i++ {
		capture, err := gocv.OpenVideoCapture(i)
		if err != nil {
			continue
		}
		if capture.IsOpened() {
			devices = append(devices, Device{Index: i, Label: fmt.Sprintf("Camera %d", i)})
		}
		capture.Close()
	}
	if len(devices) == 0 {
		return nil, &DeviceError{Device: "any", Err: ErrNoDevices}
	}
	return devices, nil
}
