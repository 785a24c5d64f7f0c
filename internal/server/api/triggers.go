package api

import (
	"net/http"

	"github.com/ayusman/dicecount/internal/session"
)

// Controller accepts operator triggers.
type Controller interface {
	Trigger(t session.Trigger) bool
}

// TriggerHandler turns POST requests into session triggers.
type TriggerHandler struct {
	controller Controller
	trigger    session.Trigger
}

// NewTriggerHandler creates a handler that sends t to controller.
func NewTriggerHandler(controller Controller, t session.Trigger) *TriggerHandler {
	return &TriggerHandler{controller: controller, trigger: t}
}

type triggerResponse struct {
	Trigger string `json:"trigger"`
	Status  string `json:"status"`
}

// ServeHTTP queues the trigger and answers 202 Accepted. The trigger takes
// effect on the next processed frame.
func (h *TriggerHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if !h.controller.Trigger(h.trigger) {
		writeError(w, http.StatusServiceUnavailable, "Trigger queue is full")
		return
	}

	writeJSON(w, http.StatusAccepted, triggerResponse{Trigger: h.trigger.String(), Status: "queued"})
}
