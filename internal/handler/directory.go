package handler

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/forgo/festreg/internal/service"
)

// DirectoryHandler serves participants and houses
type DirectoryHandler struct {
	directory *service.DirectoryService
}

// NewDirectoryHandler creates a new directory handler
func NewDirectoryHandler(directory *service.DirectoryService) *DirectoryHandler {
	return &DirectoryHandler{directory: directory}
}

// GetParticipant handles GET /v1/participants/{ref}; ref is a participant id or uid
func (h *DirectoryHandler) GetParticipant(w http.ResponseWriter, r *http.Request) {
	p, err := h.directory.GetParticipant(r.Context(), r.PathValue("ref"))
	if err != nil {
		writeServiceError(w, r, err, "get participant")
		return
	}
	WriteData(w, http.StatusOK, p, map[string]string{
		"registrations": "/v1/registrations?participant=" + url.QueryEscape(p.UID),
	})
}

// ListParticipants handles GET /v1/participants?house=
func (h *DirectoryHandler) ListParticipants(w http.ResponseWriter, r *http.Request) {
	participants, err := h.directory.ListParticipants(r.Context(), strings.TrimSpace(r.URL.Query().Get("house")))
	if err != nil {
		writeServiceError(w, r, err, "list participants")
		return
	}
	WriteCollection(w, http.StatusOK, participants, len(participants), nil)
}

// ListHouses handles GET /v1/houses
func (h *DirectoryHandler) ListHouses(w http.ResponseWriter, r *http.Request) {
	houses, err := h.directory.ListHouses(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "list houses")
		return
	}
	WriteCollection(w, http.StatusOK, houses, len(houses), map[string]string{
		"self": "/v1/houses",
	})
}

// HouseStatus handles GET /v1/houses/{name}/status
func (h *DirectoryHandler) HouseStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.directory.HouseStatus(r.Context(), r.PathValue("name"))
	if err != nil {
		writeServiceError(w, r, err, "house status")
		return
	}
	WriteData(w, http.StatusOK, status, nil)
}
