package server

import (
	"log"
	"net/http"
	"strconv"

	"github.com/disintegration/imaging"

	"github.com/ayusman/dicecount/internal/overlay"
	"github.com/ayusman/dicecount/internal/roll"
)

// maxHistogramWidth bounds the ?width= parameter.
const maxHistogramWidth = 4096

// HistogramHandler renders the record's summary as a PNG bar chart.
type HistogramHandler struct {
	record roll.Record
	opts   overlay.HistogramOptions
}

// NewHistogramHandler creates a HistogramHandler over record.
func NewHistogramHandler(record roll.Record, opts overlay.HistogramOptions) *HistogramHandler {
	return &HistogramHandler{record: record, opts: opts}
}

// ServeHTTP handles GET /api/histogram.png. An optional width query
// parameter scales the chart, keeping its aspect ratio.
func (h *HistogramHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	width := 0
	if v := r.URL.Query().Get("width"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > maxHistogramWidth {
			http.Error(w, "width must be between 1 and 4096", http.StatusBadRequest)
			return
		}
		width = n
	}

	values, err := h.record.Values()
	if err != nil {
		log.Printf("Error reading rolls: %v", err)
		http.Error(w, "Failed to read rolls", http.StatusInternalServerError)
		return
	}

	img, err := overlay.HistogramImage(roll.Summarize(values), h.opts)
	if err != nil {
		log.Printf("Error rendering histogram: %v", err)
		http.Error(w, "Failed to render histogram", http.StatusInternalServerError)
		return
	}

	if width > 0 && width != img.Bounds().Dx() {
		img = imaging.Resize(img, width, 0, imaging.Lanczos)
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	if err := imaging.Encode(w, img, imaging.PNG); err != nil {
		log.Printf("Error encoding histogram: %v", err)
	}
}
