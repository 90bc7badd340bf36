package detector

import (
	"image"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
	"gocv.io/x/gocv"
)

// Connections lists the landmark pairs drawn as the hand skeleton.
var Connections = [][2]int{
	{Wrist, ThumbCMC}, {ThumbCMC, ThumbMCP}, {ThumbMCP, ThumbIP}, {ThumbIP, ThumbTip},
	{Wrist, IndexMCP}, {IndexMCP, IndexPIP}, {IndexPIP, IndexDIP}, {IndexDIP, IndexTip},
	{Wrist, MiddleMCP}, {MiddleMCP, MiddlePIP}, {MiddlePIP, MiddleDIP}, {MiddleDIP, MiddleTip},
	{Wrist, RingMCP}, {RingMCP, RingPIP}, {RingPIP, RingDIP}, {RingDIP, RingTip},
	{Wrist, PinkyMCP}, {PinkyMCP, PinkyPIP}, {PinkyPIP, PinkyDIP}, {PinkyDIP, PinkyTip},
	{IndexMCP, MiddleMCP}, {MiddleMCP, RingMCP}, {RingMCP, PinkyMCP},
}

var (
	skeletonColor = rgba(colorful.Color{R: 0, G: 1, B: 1}, 0x80)
	outlineColor  = rgba(colorful.Color{R: 1, G: 1, B: 1}, 0xcc)
	leftColor     = rgba(mustHex("#00ffff"), 0xcc)
	rightColor    = rgba(mustHex("#ff00ff"), 0xcc)
)

func mustHex(s string) colorful.Color {
	c, err := colorful.Hex(s)
	if err != nil {
		panic(err)
	}
	return c
}

func rgba(c colorful.Color, alpha uint8) color.RGBA {
	r, g, b := c.Clamped().RGB255()
	return color.RGBA{R: r, G: g, B: b, A: alpha}
}

// HandColor returns the landmark color used for the given handedness.
func HandColor(handedness string) color.RGBA {
	if handedness == Left {
		return leftColor
	}
	return rightColor
}

// landmarkRadius is larger for the wrist and the five fingertips.
func landmarkRadius(idx int) int {
	switch idx {
	case Wrist, ThumbTip, IndexTip, MiddleTip, RingTip, PinkyTip:
		return 8
	default:
		return 5
	}
}

// DrawHands draws the skeleton and landmark dots of every hand onto img.
// Landmark coordinates are scaled from [0,1] to the image size. Hands that
// are not eligible only get their dots drawn.
func DrawHands(img *gocv.Mat, hands []Hand) {
	if img == nil || img.Empty() {
		return
	}

	width, height := img.Cols(), img.Rows()
	toPixel := func(p Point3D) image.Point {
		return image.Pt(int(p.X*float64(width)), int(p.Y*float64(height)))
	}

	for i := range hands {
		hand := &hands[i]

		if hand.Eligible() {
			for _, c := range Connections {
				gocv.Line(img, toPixel(hand.Landmarks[c[0]]), toPixel(hand.Landmarks[c[1]]), skeletonColor, 3)
			}
		}

		fill := HandColor(hand.Handedness)
		for idx, p := range hand.Landmarks {
			center := toPixel(p)
			radius := landmarkRadius(idx)
			gocv.Circle(img, center, radius, fill, -1)
			gocv.Circle(img, center, radius, outlineColor, 2)
		}
	}
}
