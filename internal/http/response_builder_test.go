package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"cards/internal/core"
	"cards/internal/ports"
)

func TestHTMXResponseBuilder_Basic(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		Status(http.StatusOK).
		Body([]byte("test")).
		Write(w)

	if w.Code != http.StatusOK {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusOK)
	}
	if w.Body.String() != "test" {
		t.Errorf("Body = %q, want %q", w.Body.String(), "test")
	}
}

func TestHTMXResponseBuilder_Triggers(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		TriggerCardsChanged().
		TriggerTransactionsChanged(7).
		TriggerCategoriesChanged().
		Write(w)

	trigger := w.Header().Get("HX-Trigger")
	if trigger == "" {
		t.Fatal("HX-Trigger header not set")
	}
	for _, part := range []string{
		`"cards:changed"`,
		`"transactions:changed"`,
		`"categories:changed"`,
		`"card":7`,
	} {
		if !strings.Contains(trigger, part) {
			t.Errorf("HX-Trigger missing %q: %s", part, trigger)
		}
	}
}

func TestHTMXResponseBuilder_CustomHeader(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		Header("X-Custom", "value").
		Status(http.StatusCreated).
		Write(w)

	if w.Header().Get("X-Custom") != "value" {
		t.Errorf("Custom header not set")
	}
	if w.Code != http.StatusCreated {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusCreated)
	}
}

func TestRedirect(t *testing.T) {
	t.Run("plain form post", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/cards", nil)
		w := httptest.NewRecorder()
		Redirect(r, "/?card=3").Write(w)

		if w.Code != http.StatusSeeOther {
			t.Errorf("Status code = %d, want %d", w.Code, http.StatusSeeOther)
		}
		if got := w.Header().Get("Location"); got != "/?card=3" {
			t.Errorf("Location = %q", got)
		}
		if w.Header().Get("HX-Redirect") != "" {
			t.Error("HX-Redirect set for a non-htmx request")
		}
	})

	t.Run("htmx request", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/cards", nil)
		r.Header.Set("HX-Request", "true")
		w := httptest.NewRecorder()
		Redirect(r, "/?card=3").Write(w)

		if w.Code != http.StatusOK {
			t.Errorf("Status code = %d, want %d", w.Code, http.StatusOK)
		}
		if got := w.Header().Get("HX-Redirect"); got != "/?card=3" {
			t.Errorf("HX-Redirect = %q", got)
		}
		if w.Header().Get("Location") != "" {
			t.Error("Location set for an htmx request")
		}
	})
}

func TestErrorResponse(t *testing.T) {
	tests := []struct {
		name       string
		builder    *HTMXResponseBuilder
		wantStatus int
		wantBody   string
	}{
		{
			name:       "bad request",
			builder:    BadRequestError("Invalid input"),
			wantStatus: http.StatusBadRequest,
			wantBody:   `<div class="error" role="alert">Invalid input</div>`,
		},
		{
			name:       "unprocessable entity",
			builder:    ErrorResponse(http.StatusUnprocessableEntity, "Validation failed"),
			wantStatus: http.StatusUnprocessableEntity,
			wantBody:   `<div class="error" role="alert">Validation failed</div>`,
		},
		{
			name:       "internal server error",
			builder:    InternalServerError("Something broke"),
			wantStatus: http.StatusInternalServerError,
			wantBody:   `<div class="error" role="alert">Something broke</div>`,
		},
		{
			name:       "not found",
			builder:    ErrorResponse(http.StatusNotFound, "Resource not found"),
			wantStatus: http.StatusNotFound,
			wantBody:   `<div class="error" role="alert">Resource not found</div>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.builder.Write(w)

			if w.Code != tt.wantStatus {
				t.Errorf("Status code = %d, want %d", w.Code, tt.wantStatus)
			}
			if w.Body.String() != tt.wantBody {
				t.Errorf("Body = %q, want %q", w.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestErrorResponse_EscapesHTML(t *testing.T) {
	w := httptest.NewRecorder()

	BadRequestError("<script>alert('xss')</script>").Write(w)

	body := w.Body.String()
	if strings.Contains(body, "<script>") {
		t.Error("Error response did not escape HTML")
	}
	if !strings.Contains(body, "&lt;script&gt;") {
		t.Error("Error response did not properly escape HTML entities")
	}
}

func TestStatusForAndUserMessage(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"empty name", core.Invalid(core.ErrEmptyName), http.StatusUnprocessableEntity, "Name is required"},
		{"wrapped month", core.Invalid(fmt.Errorf("card: %w", core.ErrInvalidMonth)), http.StatusUnprocessableEntity, "Expiration month must be between 1 and 12"},
		{"photo too large", core.Invalid(core.ErrPhotoTooLarge), http.StatusUnprocessableEntity, "Photo is too large"},
		{"unknown validation", core.Invalid(errors.New("bad date")), http.StatusUnprocessableEntity, "Invalid input"},
		{"not found", fmt.Errorf("card 9: %w", ports.ErrNotFound), http.StatusNotFound, "Not found"},
		{"internal", errors.New("disk I/O error"), http.StatusInternalServerError, "Something went wrong, please try again"},
		{"bare sentinel is not validation", core.ErrEmptyName, http.StatusInternalServerError, "Something went wrong, please try again"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusFor(tt.err); got != tt.wantStatus {
				t.Errorf("StatusFor() = %d, want %d", got, tt.wantStatus)
			}
			if got := UserMessage(tt.err); got != tt.wantMsg {
				t.Errorf("UserMessage() = %q, want %q", got, tt.wantMsg)
			}
		})
	}
}

func TestErrorFor_DoesNotLeakInternals(t *testing.T) {
	w := httptest.NewRecorder()
	ErrorFor(errors.New("sql: database is locked")).Write(w)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	if strings.Contains(w.Body.String(), "database is locked") {
		t.Errorf("internal error leaked: %s", w.Body.String())
	}
}
