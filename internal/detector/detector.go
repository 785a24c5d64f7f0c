// Package detector finds candidate dice pips in video frames.
package detector

import (
	"errors"
	"fmt"
	"math"

	"gocv.io/x/gocv"
)

// ErrEmptyFrame is returned when Detect is given a nil or empty frame.
var ErrEmptyFrame = errors.New("frame is empty")

// Point is a 2D position in source pixel space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Dot is a single pip observation: the blob centre and its apparent diameter.
type Dot struct {
	Position Point   `json:"position"`
	Size     float64 `json:"size"`
}

// Valid reports whether the dot has a usable position.
func (d Dot) Valid() bool {
	return isFinite(d.Position.X) && isFinite(d.Position.Y)
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Blob is the raw output of a BlobFinder.
type Blob struct {
	X    float64
	Y    float64
	Size float64
}

// BlobFinder locates compact, roughly circular regions in a grayscale image.
type BlobFinder interface {
	// Find returns every blob that passes the finder's shape filters.
	// An image with no blobs yields an empty slice and a nil error.
	Find(gray gocv.Mat) ([]Blob, error)

	// Close releases any resources held by the finder.
	Close() error
}

// Config holds the immutable dot detection parameters.
type Config struct {
	// BlurSize is the median blur aperture. Must be odd and positive (default: 7).
	BlurSize int

	// FilterByInertia enables the elongation filter.
	FilterByInertia bool
	// MinInertiaRatio rejects blobs more elongated than this (0.0-1.0).
	MinInertiaRatio float64

	// FilterByCircularity enables the circularity filter.
	FilterByCircularity bool
	// MinCircularity is the minimum 4*pi*area/perimeter^2 (0.0-1.0).
	MinCircularity float64

	// FilterByArea enables the area filter.
	FilterByArea bool
	// MinArea and MaxArea bound the blob area in pixels.
	MinArea float64
	MaxArea float64
}

// DefaultConfig returns the parameters tuned for pips on standard dice.
func DefaultConfig() Config {
	return Config{
		BlurSize:        7,
		FilterByInertia: true,
		MinInertiaRatio: 0.6,
	}
}

// Validate checks that the configuration can be used to build a detector.
func (c Config) Validate() error {
	if c.BlurSize < 1 || c.BlurSize%2 == 0 {
		return fmt.Errorf("blur size must be a positive odd number, got %d", c.BlurSize)
	}
	if c.MinInertiaRatio < 0 || c.MinInertiaRatio > 1 {
		return fmt.Errorf("min inertia ratio must be within [0, 1], got %f", c.MinInertiaRatio)
	}
	if c.MinCircularity < 0 || c.MinCircularity > 1 {
		return fmt.Errorf("min circularity must be within [0, 1], got %f", c.MinCircularity)
	}
	if c.MinArea < 0 || c.MaxArea < 0 {
		return fmt.Errorf("blob area bounds must not be negative")
	}
	if c.FilterByArea && c.MaxArea > 0 && c.MaxArea < c.MinArea {
		return fmt.Errorf("max area %f is below min area %f", c.MaxArea, c.MinArea)
	}
	return nil
}

// Detector turns frames into dot observations.
// It holds no per-frame state and may be shared across frames.
type Detector struct {
	config Config
	finder BlobFinder
}

// New creates a Detector that smooths frames with config and delegates blob
// finding to finder.
func New(config Config, finder BlobFinder) (*Detector, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if finder == nil {
		return nil, errors.New("blob finder is required")
	}
	return &Detector{config: config, finder: finder}, nil
}

// NewSimpleBlob creates a Detector backed by OpenCV's SimpleBlobDetector.
func NewSimpleBlob(config Config) (*Detector, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return New(config, NewSimpleBlobFinder(config))
}

// Config returns the detector's configuration.
func (d *Detector) Config() Config {
	return d.config
}

// Detect returns the dots visible in frame.
//
// The frame is median blurred to suppress speckle noise and converted to a
// single channel before blob finding. Blobs with an unusable position are
// dropped. A frame without dots yields an empty slice and a nil error.
func (d *Detector) Detect(frame *gocv.Mat) ([]Dot, error) {
	if frame == nil || frame.Empty() {
		return nil, ErrEmptyFrame
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.MedianBlur(*frame, &blurred, d.config.BlurSize)

	gray := gocv.NewMat()
	defer gray.Close()

	if blurred.Channels() > 1 {
		gocv.CvtColor(blurred, &gray, gocv.ColorBGRToGray)
	} else {
		blurred.CopyTo(&gray)
	}

	blobs, err := d.finder.Find(gray)
	if err != nil {
		return nil, fmt.Errorf("find blobs: %w", err)
	}

	return toDots(blobs), nil
}

// Close releases the underlying blob finder.
func (d *Detector) Close() error {
	return d.finder.Close()
}

// toDots converts blobs to dots, skipping any with a non-finite position.
func toDots(blobs []Blob) []Dot {
	dots := make([]Dot, 0, len(blobs))
	for _, b := range blobs {
		dot := Dot{Position: Point{X: b.X, Y: b.Y}, Size: b.Size}
		if !dot.Valid() {
			continue
		}
		dots = append(dots, dot)
	}
	return dots
}
