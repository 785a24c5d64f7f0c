package session

import (
	"context"
	"errors"
	"image"
	"sync"
	"testing"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/dicecount/internal/capture"
	"github.com/ayusman/dicecount/internal/detector"
	"github.com/ayusman/dicecount/internal/dice"
	"github.com/ayusman/dicecount/internal/fixture"
	"github.com/ayusman/dicecount/internal/roll"
)

// stubDetector returns fixed dots without looking at the frame.
type stubDetector struct {
	mu    sync.Mutex
	dots  []detector.Dot
	err   error
	calls int
}

func (d *stubDetector) Detect(*gocv.Mat) ([]detector.Dot, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	if d.err != nil {
		return nil, d.err
	}
	return append([]detector.Dot(nil), d.dots...), nil
}

func (d *stubDetector) setErr(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.err = err
}

// twoDice is a pair of dice showing 2 and 1.
var twoDice = []detector.Dot{
	{Position: detector.Point{X: 10, Y: 10}},
	{Position: detector.Point{X: 12, Y: 11}},
	{Position: detector.Point{X: 300, Y: 300}},
}

func newTestSession(t *testing.T, det DotDetector, src capture.Camera) (*Session, *roll.MemoryRecord) {
	t.Helper()

	record := roll.NewMemoryRecord()
	recorder, err := roll.NewRecorder(record)
	if err != nil {
		t.Fatalf("NewRecorder() error = %v", err)
	}

	s, err := New(Config{
		Source:     src,
		Detector:   det,
		Grouper:    dice.NewGrouper(dice.DefaultEps),
		Recorder:   recorder,
		RetryDelay: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s, record
}

func TestNew_Validation(t *testing.T) {
	recorder, _ := roll.NewRecorder(roll.NewMemoryRecord())
	det := &stubDetector{}
	grouper := dice.NewGrouper(0)

	tests := []struct {
		name   string
		config Config
	}{
		{name: "missing detector", config: Config{Grouper: grouper, Recorder: recorder}},
		{name: "missing grouper", config: Config{Detector: det, Recorder: recorder}},
		{name: "missing recorder", config: Config{Detector: det, Grouper: grouper}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.config); err == nil {
				t.Error("expected error")
			}
		})
	}

	s, err := New(Config{Detector: det, Grouper: grouper, Recorder: recorder})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if s.config.RetryDelay != DefaultRetryDelay {
		t.Errorf("RetryDelay = %v, want %v", s.config.RetryDelay, DefaultRetryDelay)
	}
	if s.State() != AwaitingFrame {
		t.Errorf("initial state = %v, want %v", s.State(), AwaitingFrame)
	}
}

func TestTrigger_QueueFull(t *testing.T) {
	s, _ := newTestSession(t, &stubDetector{}, nil)

	for i := 0; i < TriggerBuffer; i++ {
		if !s.Trigger(Capture) {
			t.Fatalf("trigger %d dropped before the queue was full", i)
		}
	}
	if s.Trigger(Capture) {
		t.Error("expected trigger to be dropped when the queue is full")
	}
}

func TestStrings(t *testing.T) {
	if Capture.String() != "capture" || Stop.String() != "stop" {
		t.Errorf("unexpected trigger names %q, %q", Capture, Stop)
	}
	if Trigger(9).String() != "trigger(9)" {
		t.Errorf("Trigger(9).String() = %q", Trigger(9).String())
	}
	if Recording.String() != "recording" {
		t.Errorf("Recording.String() = %q", Recording.String())
	}
	if State(42).String() != "unknown" {
		t.Errorf("State(42).String() = %q", State(42).String())
	}
}

func TestProcess(t *testing.T) {
	t.Run("no trigger records nothing", func(t *testing.T) {
		s, record := newTestSession(t, &stubDetector{dots: twoDice}, nil)

		result, err := s.Process(nil)
		if err != nil {
			t.Fatalf("Process() error = %v", err)
		}

		if len(result.Dice) != 2 {
			t.Fatalf("expected 2 dice, got %d", len(result.Dice))
		}
		if len(result.Captures) != 0 {
			t.Errorf("expected no captures, got %d", len(result.Captures))
		}
		if record.Len() != 0 {
			t.Errorf("record has %d captures, want 0", record.Len())
		}
		if s.State() != AwaitingFrame {
			t.Errorf("state = %v, want %v", s.State(), AwaitingFrame)
		}
	})

	t.Run("capture trigger records current dice once", func(t *testing.T) {
		s, record := newTestSession(t, &stubDetector{dots: twoDice}, nil)
		s.Trigger(Capture)

		result, err := s.Process(nil)
		if err != nil {
			t.Fatalf("Process() error = %v", err)
		}
		if len(result.Captures) != 1 {
			t.Fatalf("expected 1 capture, got %d", len(result.Captures))
		}

		values, _ := record.Values()
		if len(values) != 2 || values[0] != 2 || values[1] != 1 {
			t.Errorf("values = %v, want [2 1]", values)
		}

		// The trigger is consumed.
		if _, err := s.Process(nil); err != nil {
			t.Fatalf("Process() error = %v", err)
		}
		if record.Len() != 1 {
			t.Errorf("record has %d captures, want 1", record.Len())
		}
	})

	t.Run("each pending capture records once", func(t *testing.T) {
		s, record := newTestSession(t, &stubDetector{dots: twoDice}, nil)
		s.Trigger(Capture)
		s.Trigger(Capture)

		if _, err := s.Process(nil); err != nil {
			t.Fatalf("Process() error = %v", err)
		}

		values, _ := record.Values()
		if len(values) != 4 {
			t.Errorf("values = %v, want four values", values)
		}
	})

	t.Run("capture with no dice logs an empty capture", func(t *testing.T) {
		s, record := newTestSession(t, &stubDetector{}, nil)
		s.Trigger(Capture)

		result, err := s.Process(nil)
		if err != nil {
			t.Fatalf("Process() error = %v", err)
		}
		if len(result.Dice) != 0 {
			t.Errorf("expected no dice, got %v", result.Dice)
		}

		captures, _ := record.Captures()
		if len(captures) != 1 || len(captures[0].Values) != 0 {
			t.Errorf("captures = %+v, want one empty capture", captures)
		}
	})

	t.Run("stop trigger", func(t *testing.T) {
		s, _ := newTestSession(t, &stubDetector{dots: twoDice}, nil)
		s.Trigger(Stop)

		if _, err := s.Process(nil); err != nil {
			t.Fatalf("Process() error = %v", err)
		}
		if s.State() != Stopped {
			t.Errorf("state = %v, want %v", s.State(), Stopped)
		}
	})

	t.Run("detection error keeps triggers pending", func(t *testing.T) {
		det := &stubDetector{dots: twoDice}
		s, record := newTestSession(t, det, nil)
		s.Trigger(Capture)

		det.setErr(detector.ErrEmptyFrame)
		if _, err := s.Process(nil); !errors.Is(err, detector.ErrEmptyFrame) {
			t.Fatalf("Process() error = %v, want ErrEmptyFrame", err)
		}
		if record.Len() != 0 {
			t.Fatal("nothing should be recorded from a failed frame")
		}

		det.setErr(nil)
		if _, err := s.Process(nil); err != nil {
			t.Fatalf("Process() error = %v", err)
		}
		if record.Len() != 1 {
			t.Errorf("record has %d captures, want 1", record.Len())
		}
	})

	t.Run("latest and sequence", func(t *testing.T) {
		s, _ := newTestSession(t, &stubDetector{dots: twoDice}, nil)

		if _, ok := s.Latest(); ok {
			t.Error("Latest() should report nothing before the first frame")
		}

		s.Process(nil)
		s.Process(nil)

		latest, ok := s.Latest()
		if !ok {
			t.Fatal("Latest() reported nothing after two frames")
		}
		if latest.Seq != 2 {
			t.Errorf("Seq = %d, want 2", latest.Seq)
		}
	})
}

func TestSummary(t *testing.T) {
	s, _ := newTestSession(t, &stubDetector{dots: twoDice}, nil)
	s.Trigger(Capture)
	s.Process(nil)

	summary, err := s.Summary()
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	if summary.Total != 2 || summary.Count(1) != 1 || summary.Count(2) != 1 {
		t.Errorf("summary = %+v", summary)
	}
}

func TestRun_AcquisitionFailure(t *testing.T) {
	t.Run("no source", func(t *testing.T) {
		s, _ := newTestSession(t, &stubDetector{}, nil)

		if _, err := s.Run(context.Background()); !errors.Is(err, ErrAcquisition) {
			t.Errorf("Run() error = %v, want ErrAcquisition", err)
		}
	})

	t.Run("open fails", func(t *testing.T) {
		cam := capture.NewMockCamera(nil, false)
		openErr := errors.New("device busy")
		cam.SetOpenError(openErr)
		s, _ := newTestSession(t, &stubDetector{}, cam)

		_, err := s.Run(context.Background())
		if !errors.Is(err, ErrAcquisition) {
			t.Errorf("Run() error = %v, want ErrAcquisition", err)
		}
		if !errors.Is(err, openErr) {
			t.Errorf("Run() error = %v, want it to wrap %v", err, openErr)
		}
	})
}

func TestRun_EmptySource(t *testing.T) {
	cam := capture.NewMockCamera(nil, false)
	s, _ := newTestSession(t, &stubDetector{}, cam)

	summary, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Total != 0 {
		t.Errorf("Total = %d, want 0", summary.Total)
	}
	if s.State() != Stopped {
		t.Errorf("state = %v, want %v", s.State(), Stopped)
	}
	if cam.IsOpen() {
		t.Error("source should be closed after Run")
	}
}

func blankFrames(t *testing.T, n int) []*gocv.Mat {
	t.Helper()
	frames := make([]*gocv.Mat, n)
	for i := range frames {
		m := fixture.BlankFrame()
		frames[i] = &m
		t.Cleanup(func() { m.Close() })
	}
	return frames
}

func TestRun_EndOfStream(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	cam := capture.NewMockCamera(blankFrames(t, 3), false)
	det := &stubDetector{dots: twoDice}
	s, record := newTestSession(t, det, cam)
	s.Trigger(Capture)

	summary, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if det.calls != 3 {
		t.Errorf("detector called %d times, want 3", det.calls)
	}
	if record.Len() != 1 {
		t.Errorf("record has %d captures, want 1", record.Len())
	}
	if summary.Total != 2 {
		t.Errorf("Total = %d, want 2", summary.Total)
	}
}

func TestRun_StopTrigger(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	cam := capture.NewMockCamera(blankFrames(t, 1), true)
	s, _ := newTestSession(t, &stubDetector{dots: twoDice}, cam)

	seen := 0
	s.AddPublisher(PublisherFunc(func(_ *gocv.Mat, result FrameResult) {
		seen++
		if seen == 3 {
			s.Trigger(Stop)
		}
	}))

	done := make(chan error, 1)
	go func() {
		_, err := s.Run(context.Background())
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after a stop trigger")
	}

	// The stop is applied on the frame after the one that sent it.
	if cam.Reads() != 4 {
		t.Errorf("Reads() = %d, want 4", cam.Reads())
	}
}

func TestRun_ContextCancel(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	cam := capture.NewMockCamera(blankFrames(t, 1), true)
	s, _ := newTestSession(t, &stubDetector{}, cam)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.AddPublisher(PublisherFunc(func(_ *gocv.Mat, result FrameResult) {
		if result.Seq == 2 {
			cancel()
		}
	}))

	if _, err := s.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if cam.Reads() != 2 {
		t.Errorf("Reads() = %d, want 2", cam.Reads())
	}
}

// flakyCamera fails a fixed number of reads before delegating.
type flakyCamera struct {
	*capture.MockCamera
	failures int
}

func (c *flakyCamera) ReadFrame() (*gocv.Mat, error) {
	if c.failures > 0 {
		c.failures--
		return nil, errors.New("transient read failure")
	}
	return c.MockCamera.ReadFrame()
}

func TestRun_ReadErrorsRetried(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	cam := &flakyCamera{MockCamera: capture.NewMockCamera(blankFrames(t, 2), false), failures: 3}
	det := &stubDetector{dots: twoDice}
	s, _ := newTestSession(t, det, cam)

	if _, err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if det.calls != 2 {
		t.Errorf("detector called %d times, want 2", det.calls)
	}
}

func TestRun_StopDuringRetry(t *testing.T) {
	cam := &flakyCamera{MockCamera: capture.NewMockCamera(nil, true), failures: 1 << 30}
	s, _ := newTestSession(t, &stubDetector{}, cam)
	s.config.RetryDelay = time.Hour
	s.Trigger(Stop)

	done := make(chan struct{})
	go func() {
		s.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("stop trigger did not end the retry wait")
	}
}

func TestPublish_OverlayFrame(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	frame := fixture.BlankFrame()
	defer frame.Close()
	before := frame.Clone()
	defer before.Close()

	s, _ := newTestSession(t, &stubDetector{dots: []detector.Dot{
		{Position: detector.Point{X: 320, Y: 240}, Size: 30},
	}}, nil)

	var got FrameResult
	var annotatedDiffers bool
	s.AddPublisher(PublisherFunc(func(annotated *gocv.Mat, result FrameResult) {
		got = result
		annotatedDiffers = !samePixel(annotated.GetVecbAt(240, 335), before.GetVecbAt(240, 335))
	}))

	if _, err := s.Process(&frame); err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if len(got.Dice) != 1 || got.Dice[0].PipCount != 1 {
		t.Errorf("published dice = %+v, want one die of 1", got.Dice)
	}
	if !annotatedDiffers {
		t.Error("published frame should carry the overlay")
	}
	if !samePixel(frame.GetVecbAt(240, 335), before.GetVecbAt(240, 335)) {
		t.Error("source frame should not be modified")
	}
}

func samePixel(a, b gocv.Vecb) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestProcess_SyntheticDice(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	det, err := detector.NewSimpleBlob(detector.DefaultConfig())
	if err != nil {
		t.Fatalf("NewSimpleBlob() error = %v", err)
	}
	defer det.Close()

	recorder, _ := roll.NewRecorder(roll.NewMemoryRecord())
	s, err := New(Config{Detector: det, Grouper: dice.NewGrouper(fixture.Eps), Recorder: recorder})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	frame := fixture.DiceFrame(
		fixture.Face{Center: image.Pt(120, 240), Pips: 1},
		fixture.Face{Center: image.Pt(320, 240), Pips: 3},
		fixture.Face{Center: image.Pt(520, 240), Pips: 6},
	)
	defer frame.Close()

	s.Trigger(Capture)
	if _, err := s.Process(&frame); err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	summary, _ := s.Summary()
	for _, face := range []int{1, 3, 6} {
		if summary.Count(face) != 1 {
			t.Errorf("Count(%d) = %d, want 1", face, summary.Count(face))
		}
	}
	if summary.Total != 3 {
		t.Errorf("Total = %d, want 3", summary.Total)
	}
}
