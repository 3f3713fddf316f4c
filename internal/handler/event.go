package handler

import (
	"net/http"

	"github.com/forgo/festreg/internal/service"
)

// EventHandler serves the event catalog
type EventHandler struct {
	catalog *service.EventCatalog
}

// NewEventHandler creates a new event handler
func NewEventHandler(catalog *service.EventCatalog) *EventHandler {
	return &EventHandler{catalog: catalog}
}

// List handles GET /v1/events
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	events, err := h.catalog.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "list events")
		return
	}
	WriteCollection(w, http.StatusOK, events, len(events), map[string]string{
		"self": "/v1/events",
	})
}

// Get handles GET /v1/events/{ref}; ref is an event id or a case-insensitive name
func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	event, err := h.catalog.Resolve(r.Context(), r.PathValue("ref"))
	if err != nil {
		writeServiceError(w, r, err, "get event")
		return
	}
	WriteData(w, http.StatusOK, event, map[string]string{
		"registrations": "/v1/registrations?event=" + event.ID,
	})
}
