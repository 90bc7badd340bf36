// Package detector provides hand landmark detection for the sign interpreter.
package detector

import "math"

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// Handedness labels reported by the detector.
const (
	Left  = "Left"
	Right = "Right"
)

// Point3D is one landmark. X and Y are normalized to [0,1] relative to the
// frame, Z is a relative depth.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Hand is one detected hand. A hand is only eligible for prediction when it
// carries exactly NumLandmarks points.
type Hand struct {
	Landmarks  []Point3D `json:"landmarks"`
	Handedness string    `json:"handedness"` // "Left" or "Right"
	Score      float64   `json:"score"`
}

// Eligible reports whether the hand has exactly NumLandmarks points.
func (h *Hand) Eligible() bool {
	return h != nil && len(h.Landmarks) == NumLandmarks
}

// Flatten returns the landmarks as [x0, y0, z0, x1, y1, z1, ...].
// Returns nil for hands that are not eligible.
func (h *Hand) Flatten() []float32 {
	if !h.Eligible() {
		return nil
	}

	features := make([]float32, 0, NumLandmarks*3)
	for _, p := range h.Landmarks {
		features = append(features, float32(p.X), float32(p.Y), float32(p.Z))
	}
	return features
}

// distance3D calculates the Euclidean distance between two 3D points.
func distance3D(a, b Point3D) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	dz := a.Z - b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Normalize returns a copy of the hand translated so the wrist sits at the
// origin and scaled so the wrist to middle finger MCP distance is 1.0.
// Hands that are not eligible are returned unchanged (copied).
func (h *Hand) Normalize() *Hand {
	if h == nil {
		return nil
	}

	normalized := &Hand{
		Landmarks:  make([]Point3D, len(h.Landmarks)),
		Handedness: h.Handedness,
		Score:      h.Score,
	}
	copy(normalized.Landmarks, h.Landmarks)

	if !h.Eligible() {
		return normalized
	}

	wrist := h.Landmarks[Wrist]
	for i := range normalized.Landmarks {
		normalized.Landmarks[i] = Point3D{
			X: h.Landmarks[i].X - wrist.X,
			Y: h.Landmarks[i].Y - wrist.Y,
			Z: h.Landmarks[i].Z - wrist.Z,
		}
	}

	scale := distance3D(Point3D{}, normalized.Landmarks[MiddleMCP])
	if scale < 1e-10 {
		return normalized
	}

	for i := range normalized.Landmarks {
		normalized.Landmarks[i].X /= scale
		normalized.Landmarks[i].Y /= scale
		normalized.Landmarks[i].Z /= scale
	}

	return normalized
}
