package detector

import (
	"gocv.io/x/gocv"
)

// MockFinder is a test implementation of the BlobFinder interface.
// It returns pre-configured blobs regardless of the image.
type MockFinder struct {
	blobs []Blob
	err   error
	calls int
}

// NewMockFinder creates a new MockFinder instance.
func NewMockFinder() *MockFinder {
	return &MockFinder{}
}

// SetBlobs sets the blobs that will be returned by Find.
func (m *MockFinder) SetBlobs(blobs []Blob) {
	m.blobs = blobs
}

// SetError sets the error that will be returned by Find.
func (m *MockFinder) SetError(err error) {
	m.err = err
}

// Calls returns how many times Find has been called.
func (m *MockFinder) Calls() int {
	return m.calls
}

// Find returns the pre-configured blobs or error.
func (m *MockFinder) Find(gray gocv.Mat) ([]Blob, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.blobs, nil
}

// Close is a no-op for the mock finder.
func (m *MockFinder) Close() error {
	return nil
}

// FaceBlobs returns the blobs of a single die face with the given pip count
// centred at (cx, cy), spaced so that adjacent pips are spacing pixels apart.
// Counts outside 1-6 are laid out in a row.
func FaceBlobs(pips int, cx, cy, spacing float64) []Blob {
	var offsets [][2]float64
	switch pips {
	case 1:
		offsets = [][2]float64{{0, 0}}
	case 2:
		offsets = [][2]float64{{-1, -1}, {1, 1}}
	case 3:
		offsets = [][2]float64{{-1, -1}, {0, 0}, {1, 1}}
	case 4:
		offsets = [][2]float64{{-1, -1}, {1, -1}, {-1, 1}, {1, 1}}
	case 5:
		offsets = [][2]float64{{-1, -1}, {1, -1}, {0, 0}, {-1, 1}, {1, 1}}
	case 6:
		offsets = [][2]float64{{-1, -1}, {1, -1}, {-1, 0}, {1, 0}, {-1, 1}, {1, 1}}
	default:
		for i := 0; i < pips; i++ {
			offsets = append(offsets, [2]float64{float64(i) - float64(pips-1)/2, 0})
		}
	}

	blobs := make([]Blob, len(offsets))
	for i, o := range offsets {
		blobs[i] = Blob{X: cx + o[0]*spacing, Y: cy + o[1]*spacing, Size: spacing / 2}
	}
	return blobs
}
