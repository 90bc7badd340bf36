package detector

import (
	"errors"
	"math"
	"testing"

	"gocv.io/x/gocv"
)

const epsilon = 1e-9

func TestHand_Normalize(t *testing.T) {
	t.Run("wrist at origin after normalization", func(t *testing.T) {
		// Create a hand with wrist at non-zero position
		hand := Hand{
			Landmarks:  make([]Point3D, NumLandmarks),
			Handedness: Right,
			Score:      0.9,
		}

		// Set wrist at arbitrary position
		hand.Landmarks[Wrist] = Point3D{X: 100.0, Y: 200.0, Z: 50.0}
		// Set middle MCP relative to wrist (distance of 50 units)
		hand.Landmarks[MiddleMCP] = Point3D{X: 130.0, Y: 240.0, Z: 50.0}

		// Fill other landmarks with some values
		for i := 1; i < NumLandmarks; i++ {
			if i != MiddleMCP {
				hand.Landmarks[i] = Point3D{
					X: 100.0 + float64(i)*10.0,
					Y: 200.0 + float64(i)*5.0,
					Z: 50.0 + float64(i)*2.0,
				}
			}
		}

		normalized := hand.Normalize()

		// Verify wrist is at origin
		if math.Abs(normalized.Landmarks[Wrist].X) > epsilon {
			t.Errorf("expected wrist X to be 0, got %f", normalized.Landmarks[Wrist].X)
		}
		if math.Abs(normalized.Landmarks[Wrist].Y) > epsilon {
			t.Errorf("expected wrist Y to be 0, got %f", normalized.Landmarks[Wrist].Y)
		}
		if math.Abs(normalized.Landmarks[Wrist].Z) > epsilon {
			t.Errorf("expected wrist Z to be 0, got %f", normalized.Landmarks[Wrist].Z)
		}

		// Verify handedness and score are preserved
		if normalized.Handedness != hand.Handedness {
			t.Errorf("expected handedness %s, got %s", hand.Handedness, normalized.Handedness)
		}
		if normalized.Score != hand.Score {
			t.Errorf("expected score %f, got %f", hand.Score, normalized.Score)
		}
	})

	t.Run("distance from wrist to middle MCP is 1.0", func(t *testing.T) {
		hand := Hand{Landmarks: make([]Point3D, NumLandmarks)}

		// Set wrist and middle MCP with known distance
		hand.Landmarks[Wrist] = Point3D{X: 10.0, Y: 20.0, Z: 5.0}
		hand.Landmarks[MiddleMCP] = Point3D{X: 13.0, Y: 24.0, Z: 5.0} // distance = 5.0

		// Fill other landmarks
		for i := 1; i < NumLandmarks; i++ {
			if i != MiddleMCP {
				hand.Landmarks[i] = Point3D{
					X: 10.0 + float64(i),
					Y: 20.0 + float64(i),
					Z: 5.0,
				}
			}
		}

		normalized := hand.Normalize()

		// Calculate distance from wrist (origin) to middle MCP
		middleMCP := normalized.Landmarks[MiddleMCP]
		distance := math.Sqrt(middleMCP.X*middleMCP.X + middleMCP.Y*middleMCP.Y + middleMCP.Z*middleMCP.Z)

		if math.Abs(distance-1.0) > epsilon {
			t.Errorf("expected distance from wrist to middle MCP to be 1.0, got %f", distance)
		}
	})

	t.Run("nil hand returns nil", func(t *testing.T) {
		var hand *Hand
		normalized := hand.Normalize()

		if normalized != nil {
			t.Error("expected nil result for nil input")
		}
	})

	t.Run("zero scale returns translated only", func(t *testing.T) {
		hand := Hand{Landmarks: make([]Point3D, NumLandmarks)}

		// Set wrist and middle MCP at same position (zero scale)
		hand.Landmarks[Wrist] = Point3D{X: 10.0, Y: 20.0, Z: 5.0}
		hand.Landmarks[MiddleMCP] = Point3D{X: 10.0, Y: 20.0, Z: 5.0}

		normalized := hand.Normalize()

		// Wrist should still be at origin
		if math.Abs(normalized.Landmarks[Wrist].X) > epsilon {
			t.Errorf("expected wrist X to be 0, got %f", normalized.Landmarks[Wrist].X)
		}
	})
}

func TestMockDetector(t *testing.T) {
	t.Run("returns empty hands by default", func(t *testing.T) {
		mock := NewMockDetector()

		hands, err := mock.Detect(nil)

		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if hands != nil {
			t.Errorf("expected nil hands, got %v", hands)
		}
	})

	t.Run("returns configured hands", func(t *testing.T) {
		mock := NewMockDetector()

		expectedHands := []Hand{
			ThumbsUpHand(),
			OpenPalmHand(),
		}
		mock.SetHands(expectedHands)

		hands, err := mock.Detect(nil)

		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if len(hands) != 2 {
			t.Errorf("expected 2 hands, got %d", len(hands))
		}
	})

	t.Run("returns configured error", func(t *testing.T) {
		mock := NewMockDetector()

		expectedErr := errors.New("detection failed")
		mock.SetError(expectedErr)

		hands, err := mock.Detect(nil)

		if err != expectedErr {
			t.Errorf("expected error %v, got %v", expectedErr, err)
		}
		if hands != nil {
			t.Errorf("expected nil hands when error is set, got %v", hands)
		}
	})

	t.Run("Close returns nil", func(t *testing.T) {
		mock := NewMockDetector()

		err := mock.Close()

		if err != nil {
			t.Errorf("expected Close to return nil, got %v", err)
		}
	})

	t.Run("implements Detector interface", func(t *testing.T) {
		var _ Detector = (*MockDetector)(nil)
	})
}

func TestThumbsUpHand(t *testing.T) {
	landmarks := ThumbsUpHand()

	t.Run("has correct handedness and score", func(t *testing.T) {
		if landmarks.Handedness != Right {
			t.Errorf("expected handedness Right, got %s", landmarks.Handedness)
		}
		if landmarks.Score < 0.9 {
			t.Errorf("expected score >= 0.9, got %f", landmarks.Score)
		}
	})

	t.Run("thumb is extended upward", func(t *testing.T) {
		// Thumb tip should be above (lower Y) than thumb MCP
		if landmarks.Landmarks[ThumbTip].Y >= landmarks.Landmarks[ThumbMCP].Y {
			t.Error("thumb tip should be above thumb MCP (lower Y value)")
		}

		// Thumb tip should be above thumb IP
		if landmarks.Landmarks[ThumbTip].Y >= landmarks.Landmarks[ThumbIP].Y {
			t.Error("thumb tip should be above thumb IP (lower Y value)")
		}
	})

	t.Run("other fingers are curled", func(t *testing.T) {
		// For curled fingers, the tip should be close to or below the MCP in Y
		// and generally curled back toward the palm

		// Index finger
		indexExtension := landmarks.Landmarks[IndexMCP].Y - landmarks.Landmarks[IndexTip].Y
		if indexExtension > 0.15 {
			t.Errorf("index finger appears extended (extension: %f), should be curled", indexExtension)
		}

		// Middle finger
		middleExtension := landmarks.Landmarks[MiddleMCP].Y - landmarks.Landmarks[MiddleTip].Y
		if middleExtension > 0.15 {
			t.Errorf("middle finger appears extended (extension: %f), should be curled", middleExtension)
		}

		// Ring finger
		ringExtension := landmarks.Landmarks[RingMCP].Y - landmarks.Landmarks[RingTip].Y
		if ringExtension > 0.15 {
			t.Errorf("ring finger appears extended (extension: %f), should be curled", ringExtension)
		}

		// Pinky finger
		pinkyExtension := landmarks.Landmarks[PinkyMCP].Y - landmarks.Landmarks[PinkyTip].Y
		if pinkyExtension > 0.15 {
			t.Errorf("pinky finger appears extended (extension: %f), should be curled", pinkyExtension)
		}
	})
}

func TestOpenPalmHand(t *testing.T) {
	landmarks := OpenPalmHand()

	t.Run("has correct handedness and score", func(t *testing.T) {
		if landmarks.Handedness != Right {
			t.Errorf("expected handedness Right, got %s", landmarks.Handedness)
		}
		if landmarks.Score < 0.9 {
			t.Errorf("expected score >= 0.9, got %f", landmarks.Score)
		}
	})

	t.Run("all fingers are extended", func(t *testing.T) {
		// For extended fingers, the tip should be significantly above (lower Y) the MCP
		minExtension := 0.2 // minimum expected extension

		// Index finger
		indexExtension := landmarks.Landmarks[IndexMCP].Y - landmarks.Landmarks[IndexTip].Y
		if indexExtension < minExtension {
			t.Errorf("index finger not extended enough (extension: %f), expected >= %f", indexExtension, minExtension)
		}

		// Middle finger
		middleExtension := landmarks.Landmarks[MiddleMCP].Y - landmarks.Landmarks[MiddleTip].Y
		if middleExtension < minExtension {
			t.Errorf("middle finger not extended enough (extension: %f), expected >= %f", middleExtension, minExtension)
		}

		// Ring finger
		ringExtension := landmarks.Landmarks[RingMCP].Y - landmarks.Landmarks[RingTip].Y
		if ringExtension < minExtension {
			t.Errorf("ring finger not extended enough (extension: %f), expected >= %f", ringExtension, minExtension)
		}

		// Pinky finger
		pinkyExtension := landmarks.Landmarks[PinkyMCP].Y - landmarks.Landmarks[PinkyTip].Y
		if pinkyExtension < minExtension {
			t.Errorf("pinky finger not extended enough (extension: %f), expected >= %f", pinkyExtension, minExtension)
		}
	})

	t.Run("thumb is extended to the side", func(t *testing.T) {
		// Thumb should be extended away from the palm (higher X for right hand)
		if landmarks.Landmarks[ThumbTip].X <= landmarks.Landmarks[ThumbMCP].X {
			t.Error("thumb tip should be to the right of thumb MCP (extended outward)")
		}
	})

	t.Run("fingers are properly ordered left to right", func(t *testing.T) {
		// For a right hand palm facing forward, fingers should be ordered
		// from left to right: pinky, ring, middle, index, thumb
		if landmarks.Landmarks[PinkyMCP].X >= landmarks.Landmarks[RingMCP].X {
			t.Error("pinky should be to the left of ring finger")
		}
		if landmarks.Landmarks[RingMCP].X >= landmarks.Landmarks[MiddleMCP].X {
			t.Error("ring should be to the left of middle finger")
		}
		if landmarks.Landmarks[MiddleMCP].X >= landmarks.Landmarks[IndexMCP].X {
			t.Error("middle should be to the left of index finger")
		}
	})
}

func TestHand_Eligible(t *testing.T) {
	tests := []struct {
		name string
		hand *Hand
		want bool
	}{
		{name: "nil hand", hand: nil, want: false},
		{name: "empty hand", hand: &Hand{}, want: false},
		{name: "20 landmarks", hand: ptr(PartialHand(20)), want: false},
		{name: "21 landmarks", hand: ptr(OpenPalmHand()), want: true},
		{name: "22 landmarks", hand: &Hand{Landmarks: make([]Point3D, 22)}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.hand.Eligible(); got != tt.want {
				t.Errorf("Eligible() = %v, want %v", got, tt.want)
			}
		})
	}
}

func ptr(h Hand) *Hand { return &h }

func TestHand_Flatten(t *testing.T) {
	t.Run("interleaves x y z per landmark", func(t *testing.T) {
		hand := OpenPalmHand()
		features := hand.Flatten()

		if len(features) != NumLandmarks*3 {
			t.Fatalf("expected %d features, got %d", NumLandmarks*3, len(features))
		}

		for i, p := range hand.Landmarks {
			if features[i*3] != float32(p.X) || features[i*3+1] != float32(p.Y) || features[i*3+2] != float32(p.Z) {
				t.Errorf("landmark %d flattened incorrectly: got (%f, %f, %f)", i, features[i*3], features[i*3+1], features[i*3+2])
			}
		}
	})

	t.Run("partial hand flattens to nil", func(t *testing.T) {
		hand := PartialHand(10)
		if features := hand.Flatten(); features != nil {
			t.Errorf("expected nil features, got %d values", len(features))
		}
	})
}

func TestParseResponse(t *testing.T) {
	t.Run("decodes hands in reported order", func(t *testing.T) {
		line := `{"hands":[{"points":[{"x":0.1,"y":0.2,"z":0.3}],"handedness":"Left","score":0.8},{"points":[],"handedness":"Right","score":0.7}]}`

		hands, err := parseResponse([]byte(line))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(hands) != 2 {
			t.Fatalf("expected 2 hands, got %d", len(hands))
		}
		if hands[0].Handedness != Left || hands[1].Handedness != Right {
			t.Errorf("unexpected handedness order: %s, %s", hands[0].Handedness, hands[1].Handedness)
		}
		if len(hands[0].Landmarks) != 1 || hands[0].Landmarks[0].Z != 0.3 {
			t.Errorf("landmarks not preserved: %+v", hands[0].Landmarks)
		}
		if hands[0].Eligible() {
			t.Error("partial hand must not be eligible")
		}
	})

	t.Run("service error is returned", func(t *testing.T) {
		_, err := parseResponse([]byte(`{"hands":[],"error":"model missing"}`))
		if err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("invalid JSON is an error", func(t *testing.T) {
		if _, err := parseResponse([]byte("not json")); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestNewMediaPipeDetector_MissingScript(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ScriptPath = "/nonexistent/hand_landmarks_service.py"

	if _, err := NewMediaPipeDetector(cfg); err == nil {
		t.Fatal("expected error for missing script")
	}
}

func TestHandColor(t *testing.T) {
	left := HandColor(Left)
	right := HandColor(Right)

	if left.R != 0 || left.G != 255 || left.B != 255 {
		t.Errorf("left hand should be cyan, got %+v", left)
	}
	if right.R != 255 || right.G != 0 || right.B != 255 {
		t.Errorf("right hand should be magenta, got %+v", right)
	}
}

func TestDrawHands(t *testing.T) {
	img := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer img.Close()

	DrawHands(&img, []Hand{OpenPalmHand()})

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(img, &gray, gocv.ColorBGRToGray)

	if gocv.CountNonZero(gray) == 0 {
		t.Error("expected overlay to draw onto the frame")
	}

	t.Run("empty mat is ignored", func(t *testing.T) {
		empty := gocv.NewMat()
		defer empty.Close()
		DrawHands(&empty, []Hand{OpenPalmHand()})
	})
}
