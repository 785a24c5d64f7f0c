// Package roll records captured dice values and summarizes them.
package roll

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Capture is one capture trigger: the pip counts of every die visible at
// that moment, in the order the dice were presented.
type Capture struct {
	ID     uuid.UUID `json:"id"`
	At     time.Time `json:"at"`
	Values []int     `json:"values"`
}

// Record is the append-only log of captured values for a session.
// Implementations must be safe for concurrent use: the session loop is the
// only writer but readers may run on other goroutines.
type Record interface {
	// Append adds one capture. Prior captures are never modified.
	Append(c Capture) error

	// Values returns every recorded value in append order.
	Values() ([]int, error)

	// Captures returns the capture log in append order.
	Captures() ([]Capture, error)
}

// MemoryRecord is a Record kept in process memory.
type MemoryRecord struct {
	mu       sync.RWMutex
	values   []int
	captures []Capture
}

// NewMemoryRecord creates an empty MemoryRecord.
func NewMemoryRecord() *MemoryRecord {
	return &MemoryRecord{}
}

// Append adds c to the record.
func (r *MemoryRecord) Append(c Capture) error {
	values := append([]int(nil), c.Values...)
	c.Values = values

	r.mu.Lock()
	defer r.mu.Unlock()

	r.values = append(r.values, values...)
	r.captures = append(r.captures, c)
	return nil
}

// Values returns a copy of all recorded values.
func (r *MemoryRecord) Values() ([]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append(make([]int, 0, len(r.values)), r.values...), nil
}

// Captures returns a copy of the capture log.
func (r *MemoryRecord) Captures() ([]Capture, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	captures := make([]Capture, len(r.captures))
	for i, c := range r.captures {
		c.Values = append([]int(nil), c.Values...)
		captures[i] = c
	}
	return captures, nil
}

// Len returns the number of recorded values.
func (r *MemoryRecord) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.values)
}
