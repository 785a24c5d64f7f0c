// Package session runs the per-frame dice counting loop.
package session

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/dicecount/internal/capture"
	"github.com/ayusman/dicecount/internal/detector"
	"github.com/ayusman/dicecount/internal/dice"
	"github.com/ayusman/dicecount/internal/roll"
)

// ErrAcquisition is returned by Run when the frame source cannot be opened.
var ErrAcquisition = errors.New("frame acquisition failed")

// Loop timing constants.
const (
	// DefaultRetryDelay is the pause after a failed frame read.
	DefaultRetryDelay = 100 * time.Millisecond
	// TriggerBuffer is how many triggers may be pending before new ones are dropped.
	TriggerBuffer = 16
)

// Trigger is an operator request delivered to the loop.
type Trigger int

const (
	// Capture records the dice of the next processed frame.
	Capture Trigger = iota + 1
	// Stop ends the session after the current iteration.
	Stop
)

func (t Trigger) String() string {
	switch t {
	case Capture:
		return "capture"
	case Stop:
		return "stop"
	default:
		return fmt.Sprintf("trigger(%d)", int(t))
	}
}

// DotDetector finds pips in a frame.
type DotDetector interface {
	Detect(frame *gocv.Mat) ([]detector.Dot, error)
}

// DiceGrouper partitions pips into dice.
type DiceGrouper interface {
	Group(dots []detector.Dot) []dice.Die
}

// FrameResult is the output of one processed frame.
type FrameResult struct {
	Seq  uint64         `json:"seq"`
	At   time.Time      `json:"at"`
	Dots []detector.Dot `json:"dots"`
	Dice []dice.Die     `json:"dice"`
	// Captures holds the captures recorded from this frame, if any.
	Captures []roll.Capture `json:"captures,omitempty"`
}

// Publisher receives every processed frame with the overlay already drawn.
// The frame is only valid for the duration of the call.
type Publisher interface {
	Publish(frame *gocv.Mat, result FrameResult)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(frame *gocv.Mat, result FrameResult)

// Publish calls f(frame, result).
func (f PublisherFunc) Publish(frame *gocv.Mat, result FrameResult) {
	f(frame, result)
}

// Config holds the collaborators of a Session.
type Config struct {
	// Source is required by Run but not by Process.
	Source     capture.Camera
	Detector   DotDetector
	Grouper    DiceGrouper
	Recorder   *roll.Recorder
	Publishers []Publisher
	RetryDelay time.Duration
}

// Session owns the frame loop. Process and Run must be called from a single
// goroutine; Trigger, State, Latest and Summary are safe from any goroutine.
type Session struct {
	config   Config
	triggers chan Trigger
	state    atomic.Int32
	seq      uint64
	stopping bool
	pending  []Trigger

	mu     sync.RWMutex
	latest *FrameResult
	pubs   []Publisher
}

// New creates a Session from config.
func New(config Config) (*Session, error) {
	if config.Detector == nil {
		return nil, errors.New("detector is required")
	}
	if config.Grouper == nil {
		return nil, errors.New("grouper is required")
	}
	if config.Recorder == nil {
		return nil, errors.New("recorder is required")
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = DefaultRetryDelay
	}

	s := &Session{
		config:   config,
		triggers: make(chan Trigger, TriggerBuffer),
		pubs:     append([]Publisher(nil), config.Publishers...),
	}
	s.setState(AwaitingFrame)
	return s, nil
}

// AddPublisher registers p for every subsequent frame.
func (s *Session) AddPublisher(p Publisher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pubs = append(s.pubs, p)
}

// Trigger queues t for the loop. It never blocks; false means the queue was
// full and t was dropped.
func (s *Session) Trigger(t Trigger) bool {
	select {
	case s.triggers <- t:
		return true
	default:
		log.Printf("Trigger queue full, dropping %s", t)
		return false
	}
}

// State returns the loop's current state.
func (s *Session) State() State {
	return State(s.state.Load())
}

func (s *Session) setState(st State) {
	s.state.Store(int32(st))
}

// Latest returns the most recent frame result.
func (s *Session) Latest() (FrameResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return FrameResult{}, false
	}
	return *s.latest, true
}

// Recorder returns the session's recorder.
func (s *Session) Recorder() *roll.Recorder {
	return s.config.Recorder
}

// Summary reports the frequency of every value recorded so far.
func (s *Session) Summary() (roll.Summary, error) {
	values, err := s.config.Recorder.Record().Values()
	if err != nil {
		return roll.Summary{}, fmt.Errorf("read record: %w", err)
	}
	return roll.Summarize(values), nil
}

// Process runs one iteration on frame: detect, group, apply pending
// triggers and publish. The caller keeps ownership of frame.
//
// A detection error leaves pending triggers queued for the next frame.
func (s *Session) Process(frame *gocv.Mat) (FrameResult, error) {
	s.setState(Detecting)
	dots, err := s.config.Detector.Detect(frame)
	if err != nil {
		s.setState(AwaitingFrame)
		return FrameResult{}, fmt.Errorf("detect: %w", err)
	}

	s.setState(Grouping)
	found := s.config.Grouper.Group(dots)

	s.seq++
	result := FrameResult{
		Seq:  s.seq,
		At:   time.Now(),
		Dots: dots,
		Dice: found,
	}

	s.setState(Idle)
	s.applyTriggers(&result)

	s.mu.Lock()
	s.latest = &result
	pubs := s.pubs
	s.mu.Unlock()

	s.publish(pubs, frame, result)

	if s.stopping {
		s.setState(Stopped)
	} else {
		s.setState(AwaitingFrame)
	}
	return result, nil
}

// applyTriggers drains the trigger queue. Each capture trigger records the
// frame's dice once; a stop trigger ends the drain.
func (s *Session) applyTriggers(result *FrameResult) {
	for {
		t, ok := s.nextTrigger()
		if !ok {
			return
		}

		switch t {
		case Capture:
			s.setState(Recording)
			c, err := s.config.Recorder.Capture(result.Dice)
			if err != nil {
				log.Printf("Error recording roll: %v", err)
				continue
			}
			log.Printf("Recorded roll %v", c.Values)
			result.Captures = append(result.Captures, c)
		case Stop:
			s.stopping = true
			return
		}
	}
}

func (s *Session) nextTrigger() (Trigger, bool) {
	if len(s.pending) > 0 {
		t := s.pending[0]
		s.pending = s.pending[1:]
		return t, true
	}
	select {
	case t := <-s.triggers:
		return t, true
	default:
		return 0, false
	}
}

func (s *Session) publish(pubs []Publisher, frame *gocv.Mat, result FrameResult) {
	if len(pubs) == 0 || frame == nil || frame.Empty() {
		return
	}

	annotated := frame.Clone()
	defer annotated.Close()
	drawOverlay(&annotated, result)

	for _, p := range pubs {
		p.Publish(&annotated, result)
	}
}
