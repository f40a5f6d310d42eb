package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"atrium/internal/domain"
)

func TestHandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"validation", fmt.Errorf("%w: name is required", domain.ErrValidation), http.StatusBadRequest},
		{"not found", fmt.Errorf("workspace: %w", domain.ErrNotFound), http.StatusNotFound},
		{"unauthorized", domain.ErrUnauthorized, http.StatusUnauthorized},
		{"forbidden", fmt.Errorf("%w: missing required role", domain.ErrForbidden), http.StatusForbidden},
		{"conflict sentinel", domain.ErrConflict, http.StatusConflict},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handleError(rec, tt.err)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestHandleErrorConflictCarriesResource(t *testing.T) {
	rec := httptest.NewRecorder()
	handleError(rec, &domain.ConflictError{
		Message:      "user is already a member of this workspace",
		ResourceType: "member",
		ResourceID:   "m1",
	})

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusConflict)
	}

	var problem map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &problem); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if problem["resourceType"] != "member" || problem["resourceId"] != "m1" {
		t.Errorf("conflict extras = %v", problem)
	}
	if problem["detail"] != "user is already a member of this workspace" {
		t.Errorf("detail = %v", problem["detail"])
	}
}

// The unknown-error branch must not leak internal messages to clients.
func TestHandleErrorHidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	handleError(rec, errors.New("pq: connection refused at 10.0.0.3"))

	var problem map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &problem); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if problem["detail"] != "internal server error" {
		t.Errorf("detail = %v, internal message leaked", problem["detail"])
	}
}
