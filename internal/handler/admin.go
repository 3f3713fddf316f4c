package handler

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/forgo/festreg/internal/catalogfile"
	"github.com/forgo/festreg/internal/model"
	"github.com/forgo/festreg/internal/service"
)

// AdminHandler exposes maintenance operations. Routes are mounted behind AdminToken.
type AdminHandler struct {
	maintenance *service.MaintenanceService
	directory   *service.DirectoryService
}

// AdminHandlerConfig holds the admin handler dependencies
type AdminHandlerConfig struct {
	Maintenance *service.MaintenanceService
	Directory   *service.DirectoryService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(cfg AdminHandlerConfig) *AdminHandler {
	return &AdminHandler{
		maintenance: cfg.Maintenance,
		directory:   cfg.Directory,
	}
}

// CreateParticipantRequest is the body of POST /v1/admin/participants
type CreateParticipantRequest struct {
	UID      string `json:"uid"`
	FullName string `json:"full_name"`
	Branch   string `json:"branch,omitempty"`
	Semester int    `json:"semester,omitempty"`
	House    string `json:"house"`
}

// CreateHouseRequest is the body of POST /v1/admin/houses
type CreateHouseRequest struct {
	Name    string `json:"name"`
	Captain string `json:"captain,omitempty"`
}

// RegistrationWindowResponse reports how many events an open or close changed
type RegistrationWindowResponse struct {
	PreEvents bool `json:"pre_events"`
	Enabled   bool `json:"registration_enabled"`
	Updated   int  `json:"updated"`
}

// Resync handles POST /v1/admin/resync
func (h *AdminHandler) Resync(w http.ResponseWriter, r *http.Request) {
	report, err := h.maintenance.Resync(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "resync counters")
		return
	}
	WriteData(w, http.StatusOK, report, nil)
}

// ClearRegistrations handles POST /v1/admin/registrations/clear
func (h *AdminHandler) ClearRegistrations(w http.ResponseWriter, r *http.Request) {
	report, err := h.maintenance.ClearRegistrations(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "clear registrations")
		return
	}
	WriteData(w, http.StatusOK, report, nil)
}

// OpenRegistrations handles POST /v1/admin/registrations/open?pre_events=
func (h *AdminHandler) OpenRegistrations(w http.ResponseWriter, r *http.Request) {
	h.setWindow(w, r, true)
}

// CloseRegistrations handles POST /v1/admin/registrations/close?pre_events=
func (h *AdminHandler) CloseRegistrations(w http.ResponseWriter, r *http.Request) {
	h.setWindow(w, r, false)
}

func (h *AdminHandler) setWindow(w http.ResponseWriter, r *http.Request, enabled bool) {
	preEvents := false
	if raw := r.URL.Query().Get("pre_events"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			WriteError(w, model.NewBadRequestError("pre_events must be a boolean"))
			return
		}
		preEvents = v
	}

	var (
		n   int
		err error
	)
	if enabled {
		n, err = h.maintenance.OpenRegistrations(r.Context(), preEvents)
	} else {
		n, err = h.maintenance.CloseRegistrations(r.Context(), preEvents)
	}
	if err != nil {
		writeServiceError(w, r, err, "set registration window")
		return
	}
	WriteData(w, http.StatusOK, RegistrationWindowResponse{
		PreEvents: preEvents,
		Enabled:   enabled,
		Updated:   n,
	}, nil)
}

// ToggleRegistration handles PATCH /v1/admin/events/{ref}/toggle-registration
func (h *AdminHandler) ToggleRegistration(w http.ResponseWriter, r *http.Request) {
	event, err := h.maintenance.ToggleRegistration(r.Context(), r.PathValue("ref"))
	if err != nil {
		writeServiceError(w, r, err, "toggle registration")
		return
	}
	WriteData(w, http.StatusOK, event, nil)
}

// DefineEvent handles POST /v1/admin/events; the record may use either limit naming scheme
func (h *AdminHandler) DefineEvent(w http.ResponseWriter, r *http.Request) {
	var rec model.EventRecord
	if err := DecodeJSON(r, &rec); err != nil {
		WriteError(w, model.NewBadRequestError("invalid request body: "+err.Error()))
		return
	}
	rec.ID = ""

	event, err := h.maintenance.DefineEvent(r.Context(), &rec)
	if err != nil {
		writeServiceError(w, r, err, "define event")
		return
	}
	WriteData(w, http.StatusCreated, event, map[string]string{
		"self": "/v1/events/" + event.ID,
	})
}

// UpdateEvent handles PUT /v1/admin/events/{ref}. The event keeps its id, so a
// rename leaves its registrations in place.
func (h *AdminHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	var rec model.EventRecord
	if err := DecodeJSON(r, &rec); err != nil {
		WriteError(w, model.NewBadRequestError("invalid request body: "+err.Error()))
		return
	}

	event, err := h.maintenance.UpdateEvent(r.Context(), r.PathValue("ref"), &rec)
	if err != nil {
		writeServiceError(w, r, err, "update event")
		return
	}
	WriteData(w, http.StatusOK, event, map[string]string{
		"self": "/v1/events/" + event.ID,
	})
}

// DeleteEvent handles DELETE /v1/admin/events/{ref}
func (h *AdminHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	if _, err := h.maintenance.DeleteEvent(r.Context(), r.PathValue("ref")); err != nil {
		writeServiceError(w, r, err, "delete event")
		return
	}
	WriteNoContent(w)
}

// SeedCatalog handles POST /v1/admin/catalog with an HCL catalog document as the body
func (h *AdminHandler) SeedCatalog(w http.ResponseWriter, r *http.Request) {
	src, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		WriteError(w, model.NewBadRequestError("unable to read request body"))
		return
	}
	cat, err := catalogfile.Parse(src, "request.hcl")
	if err != nil {
		WriteError(w, model.NewValidationError([]model.FieldError{{Field: "catalog", Message: err.Error()}}))
		return
	}

	report, err := h.maintenance.SeedCatalog(r.Context(), cat)
	if err != nil {
		writeServiceError(w, r, err, "seed catalog")
		return
	}
	WriteData(w, http.StatusOK, report, nil)
}

// CreateParticipant handles POST /v1/admin/participants
func (h *AdminHandler) CreateParticipant(w http.ResponseWriter, r *http.Request) {
	var req CreateParticipantRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, model.NewBadRequestError("invalid request body: "+err.Error()))
		return
	}

	var fieldErrors []model.FieldError
	if strings.TrimSpace(req.UID) == "" {
		fieldErrors = append(fieldErrors, model.FieldError{Field: "uid", Message: "uid is required"})
	}
	if strings.TrimSpace(req.FullName) == "" {
		fieldErrors = append(fieldErrors, model.FieldError{Field: "full_name", Message: "full_name is required"})
	}
	if strings.TrimSpace(req.House) == "" {
		fieldErrors = append(fieldErrors, model.FieldError{Field: "house", Message: "house is required"})
	}
	if len(fieldErrors) > 0 {
		WriteError(w, model.NewValidationError(fieldErrors))
		return
	}

	p, err := h.directory.CreateParticipant(r.Context(), &model.Participant{
		UID:      strings.TrimSpace(req.UID),
		FullName: strings.TrimSpace(req.FullName),
		Branch:   req.Branch,
		Semester: req.Semester,
		House:    strings.TrimSpace(req.House),
	})
	if err != nil {
		writeServiceError(w, r, err, "create participant")
		return
	}
	WriteData(w, http.StatusCreated, p, map[string]string{
		"self": "/v1/participants/" + p.ID,
	})
}

// CreateHouse handles POST /v1/admin/houses
func (h *AdminHandler) CreateHouse(w http.ResponseWriter, r *http.Request) {
	var req CreateHouseRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, model.NewBadRequestError("invalid request body: "+err.Error()))
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		WriteError(w, model.NewValidationError([]model.FieldError{{Field: "name", Message: "name is required"}}))
		return
	}

	house, err := h.directory.CreateHouse(r.Context(), &model.House{
		Name:    strings.TrimSpace(req.Name),
		Captain: strings.TrimSpace(req.Captain),
	})
	if err != nil {
		writeServiceError(w, r, err, "create house")
		return
	}
	WriteData(w, http.StatusCreated, house, nil)
}
