package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// SimpleBlobFinder implements BlobFinder using OpenCV's SimpleBlobDetector.
type SimpleBlobFinder struct {
	detector gocv.SimpleBlobDetector
	mu       sync.Mutex
	closed   bool
}

// NewSimpleBlobFinder builds a SimpleBlobDetector from config's shape filters.
// Filters that are disabled in config keep OpenCV's defaults.
func NewSimpleBlobFinder(config Config) *SimpleBlobFinder {
	params := gocv.NewSimpleBlobDetectorParams()

	params.SetFilterByInertia(config.FilterByInertia)
	if config.FilterByInertia {
		params.SetMinInertiaRatio(config.MinInertiaRatio)
	}

	if config.FilterByCircularity {
		params.SetFilterByCircularity(true)
		params.SetMinCircularity(config.MinCircularity)
	}

	if config.FilterByArea {
		params.SetFilterByArea(true)
		params.SetMinArea(config.MinArea)
		if config.MaxArea > 0 {
			params.SetMaxArea(config.MaxArea)
		}
	}

	return &SimpleBlobFinder{
		detector: gocv.NewSimpleBlobDetectorWithParams(params),
	}
}

// Find runs the blob detector over gray.
func (f *SimpleBlobFinder) Find(gray gocv.Mat) ([]Blob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil, nil
	}

	keypoints := f.detector.Detect(gray)

	blobs := make([]Blob, len(keypoints))
	for i, kp := range keypoints {
		blobs[i] = Blob{X: kp.X, Y: kp.Y, Size: kp.Size}
	}
	return blobs, nil
}

// Close releases the native detector. It is safe to call more than once.
func (f *SimpleBlobFinder) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil
	}
	f.closed = true
	return f.detector.Close()
}
