package capture

import (
	"errors"
	"image"
	"path/filepath"
	"testing"

	"github.com/ayusman/dicecount/internal/fixture"
	"gocv.io/x/gocv"
)

func TestMockCamera_Playback(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	frame1 := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame1.Close()
	frame2 := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame2.Close()

	cam := NewMockCamera([]*gocv.Mat{&frame1, &frame2}, false)

	if err := cam.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer cam.Close()

	for i := 0; i < 2; i++ {
		f, err := cam.ReadFrame()
		if err != nil {
			t.Fatalf("ReadFrame() %d error = %v", i, err)
		}
		f.Close()
	}

	// Third read should report the end of the stream (no loop)
	if _, err := cam.ReadFrame(); !errors.Is(err, ErrEndOfStream) {
		t.Errorf("expected ErrEndOfStream after all frames consumed, got %v", err)
	}

	if cam.Reads() != 2 {
		t.Errorf("Reads() = %d, want 2", cam.Reads())
	}
}

func TestMockCamera_Loop(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame.Close()

	cam := NewMockCamera([]*gocv.Mat{&frame}, true)
	cam.Open()
	defer cam.Close()

	for i := 0; i < 5; i++ {
		f, err := cam.ReadFrame()
		if err != nil {
			t.Fatalf("ReadFrame() iteration %d error = %v", i, err)
		}
		f.Close()
	}
}

func TestMockCamera_NotOpen(t *testing.T) {
	cam := NewMockCamera(nil, false)

	if _, err := cam.ReadFrame(); !errors.Is(err, ErrCameraNotOpen) {
		t.Errorf("expected ErrCameraNotOpen, got %v", err)
	}
}

func TestMockCamera_OpenError(t *testing.T) {
	cam := NewMockCamera(nil, false)
	openErr := errors.New("no device")
	cam.SetOpenError(openErr)

	if err := cam.Open(); !errors.Is(err, openErr) {
		t.Errorf("Open() error = %v, want %v", err, openErr)
	}
	if cam.IsOpen() {
		t.Error("camera should not be open after a failed Open()")
	}
}

func TestMockCamera_EmptyLoop(t *testing.T) {
	cam := NewMockCamera(nil, true)
	cam.Open()

	if _, err := cam.ReadFrame(); !errors.Is(err, ErrEndOfStream) {
		t.Errorf("expected ErrEndOfStream with no frames, got %v", err)
	}
}

func TestImageSource(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	frame := fixture.DiceFrame(fixture.Face{Center: image.Pt(320, 240), Pips: 4})
	defer frame.Close()

	path := filepath.Join(t.TempDir(), "roll.png")
	if ok := gocv.IMWrite(path, frame); !ok {
		t.Fatalf("failed to write test image")
	}

	src := NewImageSource(path)
	if err := src.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer src.Close()

	got, err := src.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame() error = %v", err)
	}
	if got.Cols() != fixture.FrameWidth || got.Rows() != fixture.FrameHeight {
		t.Errorf("frame size = %dx%d, want %dx%d", got.Cols(), got.Rows(), fixture.FrameWidth, fixture.FrameHeight)
	}
	got.Close()

	if _, err := src.ReadFrame(); !errors.Is(err, ErrEndOfStream) {
		t.Errorf("second read error = %v, want ErrEndOfStream", err)
	}
}

func TestImageSource_MissingFile(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV")
	}

	src := NewImageSource(filepath.Join(t.TempDir(), "missing.png"))
	if err := src.Open(); err == nil {
		t.Error("expected error opening a missing image")
	}
}
