package roll

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/dicecount/internal/dice"
)

// Recorder turns the dice of the current frame into recorded values.
//
// Every call records, with no de-bounce: holding a capture trigger across
// several frames of the same roll records it several times.
type Recorder struct {
	record Record
	now    func() time.Time
}

// NewRecorder creates a Recorder appending to record.
func NewRecorder(record Record) (*Recorder, error) {
	if record == nil {
		return nil, errors.New("record is required")
	}
	return &Recorder{record: record, now: time.Now}, nil
}

// Record returns the record captures are appended to.
func (r *Recorder) Record() Record {
	return r.record
}

// Capture appends the pip count of every die, in order. No dice appends no
// values; the capture itself is still logged. Out-of-range counts are kept
// as-is.
func (r *Recorder) Capture(current []dice.Die) (Capture, error) {
	c := Capture{
		ID:     uuid.New(),
		At:     r.now(),
		Values: dice.PipCounts(current),
	}

	if err := r.record.Append(c); err != nil {
		return Capture{}, fmt.Errorf("append capture: %w", err)
	}
	return c, nil
}
