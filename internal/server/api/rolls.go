package api

import (
	"log"
	"net/http"
	"time"

	"github.com/ayusman/dicecount/internal/roll"
)

// RollsHandler serves read-only views of a roll record.
type RollsHandler struct {
	record roll.Record
}

// NewRollsHandler creates a RollsHandler over record.
func NewRollsHandler(record roll.Record) *RollsHandler {
	return &RollsHandler{record: record}
}

type rollsResponse struct {
	Values []int `json:"values"`
	Count  int   `json:"count"`
}

type captureResponse struct {
	ID     string `json:"id"`
	At     string `json:"at"`
	Values []int  `json:"values"`
}

type listCapturesResponse struct {
	Captures []captureResponse `json:"captures"`
}

// ServeHTTP routes /api/summary, /api/rolls and /api/captures.
func (h *RollsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	switch r.URL.Path {
	case "/api/summary":
		h.summary(w, r)
	case "/api/rolls":
		h.rolls(w, r)
	case "/api/captures":
		h.captures(w, r)
	default:
		http.NotFound(w, r)
	}
}

// summary handles GET /api/summary and returns the per-value frequencies.
func (h *RollsHandler) summary(w http.ResponseWriter, r *http.Request) {
	values, err := h.record.Values()
	if err != nil {
		log.Printf("Error reading rolls: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to read rolls")
		return
	}

	writeJSON(w, http.StatusOK, roll.Summarize(values))
}

// rolls handles GET /api/rolls and returns every recorded value in order.
func (h *RollsHandler) rolls(w http.ResponseWriter, r *http.Request) {
	values, err := h.record.Values()
	if err != nil {
		log.Printf("Error reading rolls: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to read rolls")
		return
	}
	if values == nil {
		values = []int{}
	}

	writeJSON(w, http.StatusOK, rollsResponse{Values: values, Count: len(values)})
}

// captures handles GET /api/captures and returns the capture log.
func (h *RollsHandler) captures(w http.ResponseWriter, r *http.Request) {
	captures, err := h.record.Captures()
	if err != nil {
		log.Printf("Error reading captures: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to read captures")
		return
	}

	response := listCapturesResponse{
		Captures: make([]captureResponse, 0, len(captures)),
	}
	for _, c := range captures {
		values := c.Values
		if values == nil {
			values = []int{}
		}
		response.Captures = append(response.Captures, captureResponse{
			ID:     c.ID.String(),
			At:     c.At.Format(time.RFC3339Nano),
			Values: values,
		})
	}

	writeJSON(w, http.StatusOK, response)
}
