package model

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// ============================================================================
// Error() Interface Tests
// ============================================================================

func TestProblemDetails_Error_ReturnsFormattedMessage(t *testing.T) {
	t.Parallel()

	pd := &ProblemDetails{
		Status: http.StatusNotFound,
		Title:  "Not Found",
		Detail: "Event not found",
	}

	errMsg := pd.Error()

	if !strings.Contains(errMsg, "404") {
		t.Errorf("error message should contain status code, got: %s", errMsg)
	}
	if !strings.Contains(errMsg, "Event not found") {
		t.Errorf("error message should contain detail, got: %s", errMsg)
	}
}

// ============================================================================
// WriteJSON Tests
// ============================================================================

func TestProblemDetails_WriteJSON_SetsContentType(t *testing.T) {
	t.Parallel()

	pd := NewNotFoundError("Event")
	rr := httptest.NewRecorder()

	pd.WriteJSON(rr)

	if ct := rr.Header().Get("Content-Type"); ct != "application/problem+json" {
		t.Errorf("expected Content-Type 'application/problem+json', got %q", ct)
	}
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rr.Code)
	}
}

func TestProblemDetails_WriteJSON_EncodesRuleViolation(t *testing.T) {
	t.Parallel()

	pd := NewRuleViolationError(http.StatusUnprocessableEntity, "TeamSizeOutOfRange",
		"Team size for Drama must be between 9 and 12 (got 8)")
	rr := httptest.NewRecorder()

	pd.WriteJSON(rr)

	var result ProblemDetails
	if err := json.NewDecoder(rr.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	if result.Reason != "TeamSizeOutOfRange" {
		t.Errorf("expected reason 'TeamSizeOutOfRange', got %q", result.Reason)
	}
	if result.Code != ErrCodeRuleViolation {
		t.Errorf("expected code %d, got %d", ErrCodeRuleViolation, result.Code)
	}
	if !strings.Contains(result.Detail, "9 and 12") {
		t.Errorf("expected detail to cite bounds, got %q", result.Detail)
	}
}

// ============================================================================
// Constructor Tests
// ============================================================================

func TestNewValidationError_MultipleFields_SummarizesCount(t *testing.T) {
	t.Parallel()

	pd := NewValidationError([]FieldError{
		{Field: "event", Message: "is required"},
		{Field: "house", Message: "is required"},
	})

	if pd.Status != http.StatusUnprocessableEntity {
		t.Errorf("expected status %d, got %d", http.StatusUnprocessableEntity, pd.Status)
	}
	if !strings.Contains(pd.Detail, "and 1 more") {
		t.Errorf("expected detail to summarize remaining errors, got %q", pd.Detail)
	}
}

func TestNewInternalError_EmptyDetail_UsesDefault(t *testing.T) {
	t.Parallel()

	pd := NewInternalError("")

	if pd.Detail == "" {
		t.Error("expected default detail for empty input")
	}
	if pd.Code != ErrCodeInternal {
		t.Errorf("expected code %d, got %d", ErrCodeInternal, pd.Code)
	}
}

func TestErrorCodes_CorrectRanges(t *testing.T) {
	t.Parallel()

	ranges := map[ErrorCode]int{
		ErrCodeUnauthorized:  1000,
		ErrCodeForbidden:     2000,
		ErrCodeNotFound:      3000,
		ErrCodeConflict:      3000,
		ErrCodeValidation:    4000,
		ErrCodeInvalidInput:  4000,
		ErrCodeRuleViolation: 4000,
		ErrCodeRateLimited:   4000,
		ErrCodeInternal:      5000,
	}
	for code, base := range ranges {
		if int(code) < base || int(code) >= base+1000 {
			t.Errorf("error code %d should be in %dxxx range", code, base/1000)
		}
	}
}

func TestProblemDetails_JSON_OmitsEmptyFields(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(&ProblemDetails{Type: "test", Title: "Test", Status: 400})
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}

	jsonStr := string(data)
	for _, field := range []string{"detail", "instance", "errors", "reason"} {
		if strings.Contains(jsonStr, `"`+field+`"`) {
			t.Errorf("empty %s should be omitted from JSON", field)
		}
	}
}
