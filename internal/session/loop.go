package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/dicecount/internal/capture"
	"github.com/ayusman/dicecount/internal/overlay"
	"github.com/ayusman/dicecount/internal/roll"
)

// Run opens the source and processes frames until a stop trigger, the end
// of the stream, or ctx is done. Cancellation is checked between
// iterations, so a blocked read finishes first.
//
// Only a source that cannot be opened is fatal. Read and detection failures
// are logged and the loop carries on. The returned Summary covers every
// value recorded during the session.
func (s *Session) Run(ctx context.Context) (roll.Summary, error) {
	src := s.config.Source
	if src == nil {
		return roll.Summary{}, fmt.Errorf("%w: no frame source", ErrAcquisition)
	}
	if err := src.Open(); err != nil {
		return roll.Summary{}, fmt.Errorf("%w: %w", ErrAcquisition, err)
	}
	defer func() {
		if err := src.Close(); err != nil {
			log.Printf("Error closing frame source: %v", err)
		}
	}()

	log.Println("Session started")
	s.loop(ctx, src)
	s.setState(Stopped)
	log.Println("Session ended")

	return s.Summary()
}

func (s *Session) loop(ctx context.Context, src capture.Camera) {
	for !s.stopping {
		if ctx.Err() != nil {
			return
		}

		s.setState(AwaitingFrame)
		frame, err := src.ReadFrame()
		if err != nil {
			if errors.Is(err, capture.ErrEndOfStream) {
				log.Println("Frame source exhausted")
				return
			}
			log.Printf("Error reading frame: %v", err)
			if !s.sleep(ctx, s.config.RetryDelay) {
				return
			}
			continue
		}

		if _, err := s.Process(frame); err != nil {
			log.Printf("Error processing frame: %v", err)
		}
		frame.Close()
	}
}

// sleep waits for d and reports whether the loop should continue. A stop
// trigger ends the wait; capture triggers are held for the next frame.
func (s *Session) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return false
		case <-timer.C:
			return true
		case t := <-s.triggers:
			if t == Stop {
				s.stopping = true
				return false
			}
			s.pending = append(s.pending, t)
		}
	}
}

func drawOverlay(frame *gocv.Mat, result FrameResult) {
	overlay.Draw(frame, result.Dots, result.Dice)
}
