// Package fixture draws synthetic dice frames for tests.
package fixture

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// Frame geometry used by the synthetic dice.
const (
	FrameWidth  = 640
	FrameHeight = 480
	DieSide     = 96
	PipRadius   = 8
	PipSpacing  = 26

	// Eps is a clustering radius that joins the pips of one synthetic die
	// (the two-pip diagonal is the longest link) without reaching a
	// neighbouring die placed at least MinDieDistance away.
	Eps            = 80.0
	MinDieDistance = 200
)

// Face describes one die drawn into a frame.
type Face struct {
	Center image.Point
	Pips   int
}

var (
	background = color.RGBA{R: 90, G: 90, B: 90, A: 0}
	dieColor   = color.RGBA{R: 245, G: 245, B: 245, A: 0}
	pipColor   = color.RGBA{R: 10, G: 10, B: 10, A: 0}
)

// pipOffsets holds the standard pip layout for faces 1 through 6,
// in units of PipSpacing.
var pipOffsets = map[int][]image.Point{
	1: {{0, 0}},
	2: {{-1, -1}, {1, 1}},
	3: {{-1, -1}, {0, 0}, {1, 1}},
	4: {{-1, -1}, {1, -1}, {-1, 1}, {1, 1}},
	5: {{-1, -1}, {1, -1}, {0, 0}, {-1, 1}, {1, 1}},
	6: {{-1, -1}, {1, -1}, {-1, 0}, {1, 0}, {-1, 1}, {1, 1}},
}

// DiceFrame returns a BGR frame showing the given faces as light dice with
// dark pips on a grey table. The caller must close the returned Mat.
func DiceFrame(faces ...Face) gocv.Mat {
	frame := gocv.NewMatWithSizeFromScalar(
		gocv.NewScalar(float64(background.B), float64(background.G), float64(background.R), 0),
		FrameHeight, FrameWidth, gocv.MatTypeCV8UC3,
	)

	for _, f := range faces {
		half := DieSide / 2
		body := image.Rect(f.Center.X-half, f.Center.Y-half, f.Center.X+half, f.Center.Y+half)
		gocv.Rectangle(&frame, body, dieColor, -1)

		for _, o := range pipOffsets[f.Pips] {
			center := image.Pt(f.Center.X+o.X*PipSpacing, f.Center.Y+o.Y*PipSpacing)
			gocv.Circle(&frame, center, PipRadius, pipColor, -1)
		}
	}

	return frame
}

// BlankFrame returns a frame with nothing but the table.
func BlankFrame() gocv.Mat {
	return DiceFrame()
}
