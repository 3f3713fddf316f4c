package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/forgo/festreg/internal/database"
	"github.com/forgo/festreg/internal/middleware"
	"github.com/forgo/festreg/internal/model"
	"github.com/forgo/festreg/internal/service"
)

// rejectionStatus is the HTTP status for each registration rule violation
var rejectionStatus = map[service.RejectionCode]int{
	service.CodeMissingField:               http.StatusUnprocessableEntity,
	service.CodeEventNotFound:              http.StatusNotFound,
	service.CodeRegistrationClosed:         http.StatusConflict,
	service.CodeTeamSizeOutOfRange:         http.StatusUnprocessableEntity,
	service.CodeHouseQuotaExceeded:         http.StatusConflict,
	service.CodeParticipantNotFound:        http.StatusNotFound,
	service.CodeDuplicateParticipant:       http.StatusConflict,
	service.CodeParticipantLimitReached:    http.StatusUnprocessableEntity,
	service.CodeLanguageDiversityViolation: http.StatusUnprocessableEntity,
}

// MapServiceError converts a service error to a ProblemDetails response.
// This centralizes error handling logic for all handlers, ensuring consistent
// HTTP status codes and error messages across the API.
func MapServiceError(err error) *model.ProblemDetails {
	if err == nil {
		return nil
	}

	// ===== Registration rule violations =====
	if rej, ok := service.AsRejection(err); ok {
		status, known := rejectionStatus[rej.Code]
		if !known {
			status = http.StatusUnprocessableEntity
		}
		pd := model.NewRuleViolationError(status, string(rej.Code), rej.Message)
		if rej.Field != "" {
			pd.Errors = []model.FieldError{{Field: rej.Field, Message: rej.Message}}
		}
		if rej.Limit > 0 {
			limit := rej.Limit
			pd.Limit = &limit
		}
		return pd
	}

	switch {
	// ===== Not Found Errors → 404 =====
	case errors.Is(err, service.ErrRegistrationNotFound):
		return model.NewNotFoundError("registration")
	case errors.Is(err, service.ErrEventNotFound):
		return model.NewNotFoundError("event")
	case errors.Is(err, service.ErrParticipantNotFound):
		return model.NewNotFoundError("participant")
	case errors.Is(err, service.ErrHouseNotFound):
		return model.NewNotFoundError("house")
	case errors.Is(err, database.ErrNotFound):
		return model.NewNotFoundError("resource")

	// ===== Conflict Errors → 409 =====
	case errors.Is(err, service.ErrParticipantExists),
		errors.Is(err, service.ErrHouseExists),
		errors.Is(err, service.ErrEventExists),
		errors.Is(err, service.ErrEventInUse),
		errors.Is(err, database.ErrDuplicate):
		return model.NewConflictError(err.Error())

	// ===== Validation Errors → 422 =====
	case errors.Is(err, service.ErrEventNameRequired):
		return model.NewValidationError([]model.FieldError{{Field: "name", Message: err.Error()}})
	case errors.Is(err, service.ErrInvalidEventRules):
		return model.NewValidationError([]model.FieldError{{Field: "event", Message: err.Error()}})

	// ===== Default → 500 =====
	default:
		return model.NewInternalError("")
	}
}

// writeServiceError maps err and writes it, logging anything that surfaces as a 500
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, operation string) {
	pd := MapServiceError(err)
	if pd.Status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), operation+" failed",
			slog.String("error", err.Error()),
			slog.String("request_id", middleware.GetRequestID(r.Context())),
		)
		pd.Detail = operation + ": an unexpected error occurred"
	}
	WriteError(w, pd)
}
