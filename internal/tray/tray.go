// Package tray provides a system tray menu for recording dice rolls.
package tray

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/getlantern/systray"
	"gocv.io/x/gocv"

	"github.com/ayusman/dicecount/internal/session"
)

// Tray represents the system tray application.
type Tray struct {
	onCapture func()
	onStop    func()
	mu        sync.RWMutex
	lastRoll  []int
	total     int

	// Menu items stored for later updates
	menuLastRoll *systray.MenuItem
	menuTotal    *systray.MenuItem
}

// New creates a new Tray instance.
func New() *Tray {
	return &Tray{}
}

// OnCapture sets the callback function to be called when "Record roll" is clicked.
func (t *Tray) OnCapture(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onCapture = fn
}

// OnStop sets the callback function to be called when "End session" is clicked.
func (t *Tray) OnStop(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onStop = fn
}

// Run starts the system tray application.
// This function blocks until Quit is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit removes the tray icon and makes Run return.
func (t *Tray) Quit() {
	systray.Quit()
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("Dice")
	systray.SetTooltip("Dice roll counter")

	menuCapture := systray.AddMenuItem("Record roll", "Record the dice currently in view")
	systray.AddSeparator()

	t.mu.Lock()
	t.menuLastRoll = systray.AddMenuItem(RollLabel(t.lastRoll), "Last recorded roll")
	t.menuLastRoll.Disable()
	t.menuTotal = systray.AddMenuItem(TotalLabel(t.total), "Values recorded this session")
	t.menuTotal.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuStop := systray.AddMenuItem("End session", "Stop recording and show the histogram")

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-menuCapture.ClickedCh:
				t.handleCapture()
			case <-menuStop.ClickedCh:
				t.handleStop()
				return
			}
		}
	}()
}

// onExit is called when the system tray is about to exit.
func (t *Tray) onExit() {}

// handleCapture handles the "Record roll" menu item click.
func (t *Tray) handleCapture() {
	t.mu.RLock()
	callback := t.onCapture
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleStop handles the "End session" menu item click.
func (t *Tray) handleStop() {
	t.mu.RLock()
	callback := t.onStop
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// Publish implements session.Publisher. Frames that recorded a capture
// update the menu.
func (t *Tray) Publish(_ *gocv.Mat, result session.FrameResult) {
	for _, c := range result.Captures {
		t.SetLastRoll(c.Values)
	}
}

// SetLastRoll updates the last roll display in the menu.
func (t *Tray) SetLastRoll(values []int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.lastRoll = append([]int(nil), values...)
	t.total += len(values)

	if t.menuLastRoll != nil {
		t.menuLastRoll.SetTitle(RollLabel(t.lastRoll))
	}
	if t.menuTotal != nil {
		t.menuTotal.SetTitle(TotalLabel(t.total))
	}
}

// LastRoll returns the most recently recorded roll.
func (t *Tray) LastRoll() []int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]int(nil), t.lastRoll...)
}

// RollLabel formats values for the menu.
func RollLabel(values []int) string {
	if len(values) == 0 {
		return "Last: none"
	}
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return "Last: " + strings.Join(parts, ", ")
}

// TotalLabel formats the recorded value count for the menu.
func TotalLabel(total int) string {
	return fmt.Sprintf("Recorded: %d", total)
}
