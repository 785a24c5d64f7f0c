package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ayusman/dicecount/internal/capture"
	"github.com/ayusman/dicecount/internal/config"
	"github.com/ayusman/dicecount/internal/detector"
	"github.com/ayusman/dicecount/internal/dice"
	"github.com/ayusman/dicecount/internal/display"
	"github.com/ayusman/dicecount/internal/overlay"
	"github.com/ayusman/dicecount/internal/roll"
	"github.com/ayusman/dicecount/internal/server"
	"github.com/ayusman/dicecount/internal/session"
	"github.com/ayusman/dicecount/internal/store"
	"github.com/ayusman/dicecount/internal/tray"
)

func main() {
	log.SetPrefix("[DICECOUNT] ")
	fmt.Println("Dicecount - Dice Pip Counter")

	cfg, err := config.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatalf("Session failed: %v", err)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	detCfg := detector.DefaultConfig()
	detCfg.BlurSize = cfg.BlurSize
	detCfg.MinInertiaRatio = cfg.MinInertiaRatio

	det, err := detector.NewSimpleBlob(detCfg)
	if err != nil {
		return fmt.Errorf("create detector: %w", err)
	}
	defer det.Close()

	record, closeRecord, err := openRecord(cfg.Backend)
	if err != nil {
		return err
	}
	defer closeRecord()

	recorder, err := roll.NewRecorder(record)
	if err != nil {
		return err
	}

	sess, err := session.New(session.Config{
		Source:   frameSource(cfg),
		Detector: det,
		Grouper:  dice.NewGrouper(cfg.Eps),
		Recorder: recorder,
	})
	if err != nil {
		return err
	}

	if cfg.Image != "" {
		return countImage(ctx, sess)
	}

	// Configure and start server
	serverCtx, stopServer := context.WithCancel(ctx)
	defer stopServer()
	if cfg.Addr != "" {
		hub := server.NewHub()
		sess.AddPublisher(hub)

		srv := server.New(server.Config{
			StaticDir:  cfg.StaticDir,
			Record:     record,
			Controller: sess,
			Hub:        hub,
			Histogram:  overlay.DefaultHistogramOptions(),
		})

		fmt.Printf("Starting server on %s\n", cfg.Addr)
		go func() {
			if err := srv.Serve(serverCtx, cfg.Addr); err != nil {
				log.Printf("Server failed: %v", err)
			}
		}()
	}

	var win *display.Window
	if cfg.Window {
		win = display.New("Dicecount", sess)
		defer win.Close()
		sess.AddPublisher(win)
		fmt.Println("Press r to record the dice in view, q to finish")
	}

	if !cfg.Tray {
		return runSession(ctx, sess, win)
	}

	// The tray takes the main thread; the session runs beside it.
	tr := tray.New()
	tr.OnCapture(func() { sess.Trigger(session.Capture) })
	tr.OnStop(func() { sess.Trigger(session.Stop) })
	sess.AddPublisher(tr)

	errCh := make(chan error, 1)
	go func() {
		errCh <- runSession(ctx, sess, win)
		tr.Quit()
	}()
	tr.Run()
	return <-errCh
}

// runSession runs the frame loop, prints the summary and, with a window,
// shows the histogram until a key is pressed.
func runSession(ctx context.Context, sess *session.Session, win *display.Window) error {
	summary, err := sess.Run(ctx)
	if err != nil {
		if errors.Is(err, session.ErrAcquisition) {
			return err
		}
		log.Printf("Error reading summary: %v", err)
	}

	fmt.Print(summary.String())

	if win != nil && summary.Total > 0 {
		win.ShowHistogram(summary, overlay.DefaultHistogramOptions())
	}
	return nil
}

// countImage runs the pipeline once over a still image and prints each die.
func countImage(ctx context.Context, sess *session.Session) error {
	sess.Trigger(session.Capture)

	summary, err := sess.Run(ctx)
	if err != nil {
		return err
	}

	result, ok := sess.Latest()
	if !ok {
		return errors.New("image produced no frame")
	}
	for i, d := range result.Dice {
		fmt.Printf("die %d: %d pips at (%.0f, %.0f)\n", i+1, d.PipCount, d.Centroid.X, d.Centroid.Y)
	}
	fmt.Print(summary.String())
	return nil
}

func frameSource(cfg config.Config) capture.Camera {
	if cfg.Image != "" {
		return capture.NewImageSource(cfg.Image)
	}
	return capture.NewCamera(capture.Options{
		DeviceID: cfg.CameraID,
		Width:    cfg.Width,
		Height:   cfg.Height,
	})
}

// openRecord returns the roll record for backend and a function releasing it.
func openRecord(backend string) (roll.Record, func(), error) {
	switch backend {
	case config.BackendSQLite:
		st, err := store.New()
		if err != nil {
			return nil, nil, fmt.Errorf("initialize store: %w", err)
		}
		log.Printf("Recording to in-memory session store %s", st.SessionID())
		return st.Rolls(), func() { st.Close() }, nil
	default:
		return roll.NewMemoryRecord(), func() {}, nil
	}
}
