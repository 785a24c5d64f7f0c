package capture

import (
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// ImageSource serves a single still image as a one-frame stream.
type ImageSource struct {
	path    string
	frame   gocv.Mat
	mu      sync.Mutex
	running bool
	served  bool
}

// NewImageSource creates a source for the image file at path.
// The file is read when the source is opened.
func NewImageSource(path string) *ImageSource {
	return &ImageSource{path: path}
}

// Open decodes the image file.
func (s *ImageSource) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	frame := gocv.IMRead(s.path, gocv.IMReadColor)
	if frame.Empty() {
		frame.Close()
		return fmt.Errorf("read image %s: no image data", s.path)
	}

	s.frame = frame
	s.running = true
	s.served = false
	return nil
}

// Close releases the decoded image.
func (s *ImageSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false
	return s.frame.Close()
}

// ReadFrame returns a copy of the image once, then ErrEndOfStream.
func (s *ImageSource) ReadFrame() (*gocv.Mat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil, ErrCameraNotOpen
	}
	if s.served {
		return nil, ErrEndOfStream
	}

	frame := s.frame.Clone()
	s.served = true
	return &frame, nil
}

// IsOpen reports whether the image has been loaded.
func (s *ImageSource) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
