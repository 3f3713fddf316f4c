package handler

import (
	"net/http"
	"strings"

	"github.com/forgo/festreg/internal/model"
	"github.com/forgo/festreg/internal/service"
)

// RegistrationHandler handles registration endpoints
type RegistrationHandler struct {
	registrations *service.RegistrationService
}

// NewRegistrationHandler creates a new registration handler
func NewRegistrationHandler(registrations *service.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{registrations: registrations}
}

// Submit handles POST /v1/registrations
func (h *RegistrationHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req model.CreateRegistrationRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, model.NewBadRequestError("invalid request body: "+err.Error()))
		return
	}

	reg, err := h.registrations.Submit(r.Context(), req.Candidate())
	if err != nil {
		writeServiceError(w, r, err, "submit registration")
		return
	}

	WriteData(w, http.StatusCreated, reg, map[string]string{
		"self": "/v1/registrations/" + reg.ID,
	})
}

// List handles GET /v1/registrations?house=&event=&participant=
func (h *RegistrationHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.RegistrationFilter{
		House:       strings.TrimSpace(q.Get("house")),
		Event:       strings.TrimSpace(q.Get("event")),
		Participant: strings.TrimSpace(q.Get("participant")),
	}

	regs, err := h.registrations.List(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, err, "list registrations")
		return
	}

	WriteCollection(w, http.StatusOK, regs, len(regs), map[string]string{
		"self": r.URL.RequestURI(),
	})
}

// Get handles GET /v1/registrations/{id}
func (h *RegistrationHandler) Get(w http.ResponseWriter, r *http.Request) {
	reg, err := h.registrations.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err, "get registration")
		return
	}
	WriteData(w, http.StatusOK, reg, nil)
}

// Delete handles DELETE /v1/registrations/{id}
func (h *RegistrationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if _, err := h.registrations.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, r, err, "delete registration")
		return
	}
	WriteNoContent(w)
}
