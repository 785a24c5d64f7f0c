// Package overlay draws detection markers and roll histograms with GoCV.
package overlay

import (
	"image"
	"image/color"
	"strconv"

	"gocv.io/x/gocv"

	"github.com/ayusman/dicecount/internal/detector"
	"github.com/ayusman/dicecount/internal/dice"
)

// Marker styling.
var (
	DotColor   = color.RGBA{R: 0, G: 0, B: 255, A: 0}
	LabelColor = color.RGBA{R: 0, G: 255, B: 0, A: 0}
)

const (
	dotThickness   = 2
	labelFont      = gocv.FontHersheyPlain
	labelScale     = 3.0
	labelThickness = 2
)

// Draw marks every dot with a circle of its apparent size and writes each
// die's pip count centred on its centroid. frame is modified in place.
func Draw(frame *gocv.Mat, dots []detector.Dot, found []dice.Die) {
	if frame == nil || frame.Empty() {
		return
	}

	for _, d := range dots {
		gocv.Circle(frame, toPoint(d.Position), int(d.Size/2), DotColor, dotThickness)
	}

	for _, die := range found {
		text := strconv.Itoa(die.PipCount)
		gocv.PutText(frame, text, LabelOrigin(die, textSize(text)), labelFont, labelScale, LabelColor, labelThickness)
	}
}

// LabelOrigin returns the baseline origin that centres a label of the given
// size on the die's centroid.
func LabelOrigin(die dice.Die, size image.Point) image.Point {
	return image.Point{
		X: int(die.Centroid.X - float64(size.X)/2),
		Y: int(die.Centroid.Y + float64(size.Y)/2),
	}
}

func textSize(text string) image.Point {
	return gocv.GetTextSize(text, labelFont, labelScale, labelThickness)
}

func toPoint(p detector.Point) image.Point {
	return image.Point{X: int(p.X), Y: int(p.Y)}
}
