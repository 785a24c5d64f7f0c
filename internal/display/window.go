// Package display shows the overlay feed in a GoCV window and turns key
// presses into session triggers.
package display

import (
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/dicecount/internal/overlay"
	"github.com/ayusman/dicecount/internal/roll"
	"github.com/ayusman/dicecount/internal/session"
)

// Controller accepts operator triggers.
type Controller interface {
	Trigger(t session.Trigger) bool
}

// Key codes returned by WaitKey.
const (
	keyNone   = -1
	keyEscape = 27
)

// KeyTrigger maps a key code to a trigger: r records the current roll, q or
// Escape ends the session.
func KeyTrigger(key int) (session.Trigger, bool) {
	switch key {
	case 'r', 'R':
		return session.Capture, true
	case 'q', 'Q', keyEscape:
		return session.Stop, true
	default:
		return 0, false
	}
}

// Window is a session.Publisher that shows each frame. It must be driven
// from the goroutine that created it.
type Window struct {
	mu         sync.Mutex
	window     *gocv.Window
	controller Controller
	closed     bool
}

// New opens a window titled title. Key presses are sent to controller.
func New(title string, controller Controller) *Window {
	return &Window{
		window:     gocv.NewWindow(title),
		controller: controller,
	}
}

// Publish implements session.Publisher. It shows frame and polls the
// keyboard once.
func (w *Window) Publish(frame *gocv.Mat, result session.FrameResult) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}

	w.window.IMShow(*frame)
	w.handleKey(w.window.WaitKey(1))
}

func (w *Window) handleKey(key int) {
	if key == keyNone || w.controller == nil {
		return
	}
	if t, ok := KeyTrigger(key); ok {
		w.controller.Trigger(t)
	}
}

// ShowHistogram replaces the feed with the session histogram and waits for
// any key.
func (w *Window) ShowHistogram(s roll.Summary, opts overlay.HistogramOptions) {
	canvas := overlay.Histogram(s, opts)
	defer canvas.Close()

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}

	w.window.IMShow(canvas)
	w.window.WaitKey(0)
}

// Close destroys the window. Further calls are no-ops.
func (w *Window) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	return w.window.Close()
}
