package capture

import (
	"image"
	"image/color"
	"testing"
	"time"

	"gocv.io/x/gocv"
)

// handFrame draws a bright hand-sized block at x on a dark 640x480 frame.
func handFrame(t *testing.T, x int) gocv.Mat {
	t.Helper()
	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	gocv.Rectangle(&frame, image.Rect(x, 160, x+160, 400), color.RGBA{R: 230, G: 200, B: 180, A: 255}, -1)
	return frame
}

func TestMotionDetector_Detect(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	tests := []struct {
		name       string
		from, to   int
		percent    float64
		wantMotion bool
	}{
		{"still hand", 100, 100, 1, false},
		{"hand moves across", 40, 420, 1, true},
		{"small shift under high threshold", 100, 110, 50, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			md := NewMotionDetector(tt.percent)
			defer md.Close()

			first := handFrame(t, tt.from)
			defer first.Close()
			second := handFrame(t, tt.to)
			defer second.Close()

			if moved, share := md.Detect(&first); moved || share != 0 {
				t.Fatalf("baseline frame reported motion %v (%.2f%%)", moved, share)
			}
			moved, share := md.Detect(&second)
			if moved != tt.wantMotion {
				t.Errorf("Detect() = %v (%.2f%%), want %v", moved, share, tt.wantMotion)
			}
		})
	}
}

func TestMotionDetector_ResetStartsNewBaseline(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	md := NewMotionDetector(1)
	defer md.Close()

	left := handFrame(t, 40)
	defer left.Close()
	right := handFrame(t, 420)
	defer right.Close()

	md.Detect(&left)
	md.Reset()
	if moved, _ := md.Detect(&right); moved {
		t.Error("first frame after Reset reported motion")
	}

	// A source with a different size also starts over.
	small := gocv.NewMatWithSize(120, 160, gocv.MatTypeCV8UC3)
	defer small.Close()
	if moved, _ := md.Detect(&small); moved {
		t.Error("resolution change reported motion")
	}
}

func TestMotionDetector_EmptyFrame(t *testing.T) {
	md := NewMotionDetector(1)
	defer md.Close()

	if moved, share := md.Detect(nil); moved || share != 0 {
		t.Errorf("Detect(nil) = %v, %v", moved, share)
	}
	empty := gocv.NewMat()
	defer empty.Close()
	if moved, _ := md.Detect(&empty); moved {
		t.Error("empty frame reported motion")
	}

	md.Close()
	md.Close()
}

func TestActivity_Pacing(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	at := func(ms int) time.Time { return start.Add(time.Duration(ms) * time.Millisecond) }

	type step struct {
		motion  bool
		at      time.Time
		fps     int
		changed bool
	}
	tests := []struct {
		name  string
		steps []step
	}{
		{
			name: "stays idle without motion",
			steps: []step{
				{false, at(0), IdleFPS, false},
				{false, at(5000), IdleFPS, false},
			},
		},
		{
			name: "goes active on first motion only",
			steps: []step{
				{true, at(0), ActiveFPS, true},
				{true, at(100), ActiveFPS, false},
				{false, at(200), ActiveFPS, false},
			},
		},
		{
			name: "drops back after quiet timeout",
			steps: []step{
				{true, at(0), ActiveFPS, true},
				{false, at(2000), ActiveFPS, false},
				{false, at(2001), IdleFPS, true},
				{false, at(3000), IdleFPS, false},
			},
		},
		{
			name: "motion extends the active window",
			steps: []step{
				{true, at(0), ActiveFPS, true},
				{true, at(1500), ActiveFPS, false},
				{false, at(3000), ActiveFPS, false},
				{false, at(3501), IdleFPS, true},
				{true, at(3600), ActiveFPS, true},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewActivity(0, 0, 0)
			if a.Active() || a.FPS() != IdleFPS {
				t.Fatalf("new tracker active=%v fps=%d", a.Active(), a.FPS())
			}
			for i, s := range tt.steps {
				fps, changed := a.Update(s.motion, s.at)
				if fps != s.fps || changed != s.changed {
					t.Fatalf("step %d: Update(%v) = %d, %v; want %d, %v", i, s.motion, fps, changed, s.fps, s.changed)
				}
				if a.Active() != (fps == ActiveFPS) {
					t.Errorf("step %d: Active() = %v at %d fps", i, a.Active(), fps)
				}
			}
		})
	}
}

func TestNewActivity_CustomRates(t *testing.T) {
	a := NewActivity(2, 30, 500*time.Millisecond)
	now := time.Now()

	if fps, _ := a.Update(true, now); fps != 30 {
		t.Errorf("active fps = %d, want 30", fps)
	}
	if fps, changed := a.Update(false, now.Add(600*time.Millisecond)); fps != 2 || !changed {
		t.Errorf("idle fps = %d changed=%v, want 2 true", fps, changed)
	}
}
