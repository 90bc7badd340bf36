package capture

import (
	"image"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

const (
	// motionWidth is the width frames are shrunk to before differencing.
	// Hand movement is coarse, so full resolution buys nothing.
	motionWidth = 160
	motionBlur  = 7
	// pixelDelta is the grey-level change a pixel needs to count as moved.
	pixelDelta = 25
)

// MotionDetector reports how much of the scene changed since the last
// frame. It only drives frame pacing; landmarks are still extracted from
// every frame.
type MotionDetector struct {
	mu       sync.Mutex
	percent  float64 // changed share, in percent, that counts as motion
	baseline gocv.Mat
	hasBase  bool
}

// NewMotionDetector returns a detector that fires when more than percent
// of the pixels change between frames.
func NewMotionDetector(percent float64) *MotionDetector {
	return &MotionDetector{percent: percent, baseline: gocv.NewMat()}
}

// Detect reports whether frame moved past the threshold relative to the
// previous frame, along with the changed share in percent. The first frame
// after a reset only sets the baseline.
func (m *MotionDetector) Detect(frame *gocv.Mat) (bool, float64) {
	if frame == nil || frame.Empty() {
		return false, 0
	}

	small := shrinkGray(*frame)
	defer small.Close()

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.hasBase || m.baseline.Rows() != small.Rows() || m.baseline.Cols() != small.Cols() {
		small.CopyTo(&m.baseline)
		m.hasBase = true
		return false, 0
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(small, m.baseline, &diff)
	gocv.Threshold(diff, &diff, pixelDelta, 255, gocv.ThresholdBinary)

	changed := 100 * float64(gocv.CountNonZero(diff)) / float64(diff.Rows()*diff.Cols())
	small.CopyTo(&m.baseline)
	return changed > m.percent, changed
}

// shrinkGray converts frame to a blurred grey image motionWidth wide.
func shrinkGray(frame gocv.Mat) gocv.Mat {
	gray := gocv.NewMat()
	if frame.Channels() > 1 {
		gocv.CvtColor(frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	if gray.Cols() > motionWidth {
		h := gray.Rows() * motionWidth / gray.Cols()
		if h < 1 {
			h = 1
		}
		small := gocv.NewMat()
		gocv.Resize(gray, &small, image.Pt(motionWidth, h), 0, 0, gocv.InterpolationArea)
		gray.Close()
		gray = small
	}
	gocv.GaussianBlur(gray, &gray, image.Pt(motionBlur, motionBlur), 0, 0, gocv.BorderDefault)
	return gray
}

// Reset drops the baseline so the next frame starts fresh, e.g. after a
// source switch.
func (m *MotionDetector) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropBaseline()
}

// Close releases the baseline frame. The detector stays usable.
func (m *MotionDetector) Close() {
	m.Reset()
}

func (m *MotionDetector) dropBaseline() {
	m.baseline.Close()
	m.baseline = gocv.NewMat()
	m.hasBase = false
}

// Frame pacing defaults.
const (
	IdleFPS     = 5
	ActiveFPS   = 15
	IdleTimeout = 2 * time.Second
)

// Activity picks the sampling rate: idle until something moves, active
// while the signer keeps moving, idle again after a quiet timeout.
type Activity struct {
	idleFPS    int
	activeFPS  int
	timeout    time.Duration
	active     bool
	lastMotion time.Time
}

// NewActivity creates a tracker starting idle. Zero values take the
// package defaults.
func NewActivity(idleFPS, activeFPS int, timeout time.Duration) *Activity {
	if idleFPS <= 0 {
		idleFPS = IdleFPS
	}
	if activeFPS <= 0 {
		activeFPS = ActiveFPS
	}
	if timeout <= 0 {
		timeout = IdleTimeout
	}
	return &Activity{idleFPS: idleFPS, activeFPS: activeFPS, timeout: timeout}
}

// Update records whether motion was seen at now and returns the frame rate
// to use and whether it changed.
func (a *Activity) Update(motion bool, now time.Time) (fps int, changed bool) {
	switch {
	case motion:
		a.lastMotion = now
		if !a.active {
			a.active = true
			return a.activeFPS, true
		}
	case a.active && now.Sub(a.lastMotion) > a.timeout:
		a.active = false
		return a.idleFPS, true
	}
	return a.FPS(), false
}

// Active reports whether the tracker is in the active state.
func (a *Activity) Active() bool {
	return a.active
}

// FPS returns the frame rate for the current state.
func (a *Activity) FPS() int {
	if a.active {
		return a.activeFPS
	}
	return a.idleFPS
}
