package overlay

import (
	"fmt"
	"image"
	"image/color"
	"strconv"

	"github.com/lucasb-eyer/go-colorful"
	"gocv.io/x/gocv"

	"github.com/ayusman/dicecount/internal/roll"
)

// HistogramOptions controls the histogram canvas.
type HistogramOptions struct {
	Width  int
	Height int
	Title  string
	XLabel string
	YLabel string
}

// DefaultHistogramOptions returns the standard dice histogram layout.
func DefaultHistogramOptions() HistogramOptions {
	return HistogramOptions{
		Width:  640,
		Height: 480,
		Title:  "Dice Histogram",
		XLabel: "Dice number",
		YLabel: "Frequency",
	}
}

// Plot margins in pixels.
const (
	marginLeft   = 60
	marginRight  = 20
	marginTop    = 60
	marginBottom = 60
	barGap       = 8
)

var (
	black     = color.RGBA{R: 0, G: 0, B: 0, A: 0}
	outlierBG = color.RGBA{R: 150, G: 150, B: 150, A: 0}
)

// PlotArea returns the rectangle bars are drawn in.
func (o HistogramOptions) PlotArea() image.Rectangle {
	return image.Rect(marginLeft, marginTop, o.Width-marginRight, o.Height-marginBottom)
}

func (o HistogramOptions) withDefaults() HistogramOptions {
	d := DefaultHistogramOptions()
	if o.Width <= marginLeft+marginRight {
		o.Width = d.Width
	}
	if o.Height <= marginTop+marginBottom {
		o.Height = d.Height
	}
	return o
}

// BarRects lays out one bar per bucket of s.Sorted() inside the plot area.
// Bar heights are proportional to the bucket count; an empty bucket has a
// zero-height bar sitting on the axis.
func BarRects(s roll.Summary, opts HistogramOptions) []image.Rectangle {
	opts = opts.withDefaults()
	buckets := s.Sorted()
	if len(buckets) == 0 {
		return nil
	}

	area := opts.PlotArea()
	slot := area.Dx() / len(buckets)

	maxCount := 0
	for _, b := range buckets {
		if b.Count > maxCount {
			maxCount = b.Count
		}
	}

	rects := make([]image.Rectangle, len(buckets))
	for i, b := range buckets {
		x0 := area.Min.X + i*slot + barGap/2
		x1 := area.Min.X + (i+1)*slot - barGap/2
		h := 0
		if maxCount > 0 {
			h = b.Count * area.Dy() / maxCount
		}
		rects[i] = image.Rect(x0, area.Max.Y-h, x1, area.Max.Y)
	}
	return rects
}

// BarColor returns the fill colour for a bucket value. Die faces get evenly
// spaced hues; outliers are grey.
func BarColor(value int) color.RGBA {
	if value < roll.MinFace || value > roll.MaxFace {
		return outlierBG
	}
	hue := float64(value-roll.MinFace) * 360 / float64(roll.MaxFace-roll.MinFace+1)
	r, g, b := colorful.Hsv(hue, 0.55, 0.9).RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 0}
}

// Histogram renders s as a bar chart. The caller must close the returned Mat.
func Histogram(s roll.Summary, opts HistogramOptions) gocv.Mat {
	opts = opts.withDefaults()

	canvas := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 255, 255, 0), opts.Height, opts.Width, gocv.MatTypeCV8UC3)

	area := opts.PlotArea()
	buckets := s.Sorted()

	for i, r := range BarRects(s, opts) {
		b := buckets[i]
		if r.Dy() > 0 {
			gocv.Rectangle(&canvas, r, BarColor(b.Value), -1)
			gocv.Rectangle(&canvas, r, black, 1)
		}

		label := strconv.Itoa(b.Value)
		size := gocv.GetTextSize(label, gocv.FontHersheySimplex, 0.6, 1)
		centre := (r.Min.X + r.Max.X) / 2
		gocv.PutText(&canvas, label, image.Pt(centre-size.X/2, area.Max.Y+22), gocv.FontHersheySimplex, 0.6, black, 1)

		if b.Count > 0 {
			count := strconv.Itoa(b.Count)
			size = gocv.GetTextSize(count, gocv.FontHersheySimplex, 0.5, 1)
			gocv.PutText(&canvas, count, image.Pt(centre-size.X/2, r.Min.Y-6), gocv.FontHersheySimplex, 0.5, black, 1)
		}
	}

	// Axes
	gocv.Line(&canvas, image.Pt(area.Min.X, area.Max.Y), image.Pt(area.Max.X, area.Max.Y), black, 2)
	gocv.Line(&canvas, image.Pt(area.Min.X, area.Min.Y), image.Pt(area.Min.X, area.Max.Y), black, 2)

	putCentred(&canvas, opts.Title, opts.Width/2, 30, 0.9)
	putCentred(&canvas, opts.XLabel, opts.Width/2, opts.Height-15, 0.6)
	gocv.PutText(&canvas, opts.YLabel, image.Pt(8, area.Min.Y-12), gocv.FontHersheySimplex, 0.6, black, 1)
	gocv.PutText(&canvas, fmt.Sprintf("n=%d", s.Total), image.Pt(area.Max.X-70, area.Min.Y-12), gocv.FontHersheySimplex, 0.5, black, 1)

	return canvas
}

// HistogramImage renders s and converts it to an image.Image.
func HistogramImage(s roll.Summary, opts HistogramOptions) (image.Image, error) {
	canvas := Histogram(s, opts)
	defer canvas.Close()

	img, err := canvas.ToImage()
	if err != nil {
		return nil, fmt.Errorf("convert histogram: %w", err)
	}
	return img, nil
}

// HistogramPNG renders s and encodes it as PNG.
func HistogramPNG(s roll.Summary, opts HistogramOptions) ([]byte, error) {
	canvas := Histogram(s, opts)
	defer canvas.Close()

	buf, err := gocv.IMEncode(gocv.PNGFileExt, canvas)
	if err != nil {
		return nil, fmt.Errorf("encode histogram: %w", err)
	}
	defer buf.Close()

	// The native buffer is freed on Close.
	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}

func putCentred(img *gocv.Mat, text string, cx, y int, scale float64) {
	if text == "" {
		return
	}
	size := gocv.GetTextSize(text, gocv.FontHersheySimplex, scale, 1)
	gocv.PutText(img, text, image.Pt(cx-size.X/2, y), gocv.FontHersheySimplex, scale, black, 1)
}
