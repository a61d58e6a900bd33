// This file builds HTMX-aware responses: redirects after form posts,
// HX-Trigger events and error fragments.

package http

import (
	"encoding/json"
	"errors"
	"html/template"
	"net/http"

	"cards/internal/core"
	"cards/internal/ports"
)

// HTMXResponseBuilder provides a fluent API for building HTMX responses.
type HTMXResponseBuilder struct {
	triggers   map[string]interface{}
	statusCode int
	body       []byte
	headers    map[string]string
}

func NewHTMXResponse() *HTMXResponseBuilder {
	return &HTMXResponseBuilder{
		triggers:   make(map[string]interface{}),
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *HTMXResponseBuilder) Status(code int) *HTMXResponseBuilder {
	b.statusCode = code
	return b
}

// Trigger adds a named event with optional data to the HX-Trigger header.
func (b *HTMXResponseBuilder) Trigger(name string, data interface{}) *HTMXResponseBuilder {
	b.triggers[name] = data
	return b
}

func (b *HTMXResponseBuilder) TriggerCardsChanged() *HTMXResponseBuilder {
	return b.Trigger("cards:changed", struct{}{})
}

func (b *HTMXResponseBuilder) TriggerTransactionsChanged(cardID int64) *HTMXResponseBuilder {
	return b.Trigger("transactions:changed", map[string]int64{"card": cardID})
}

func (b *HTMXResponseBuilder) TriggerCategoriesChanged() *HTMXResponseBuilder {
	return b.Trigger("categories:changed", struct{}{})
}

func (b *HTMXResponseBuilder) Header(name, value string) *HTMXResponseBuilder {
	b.headers[name] = value
	return b
}

func (b *HTMXResponseBuilder) Body(content []byte) *HTMXResponseBuilder {
	b.body = content
	return b
}

func (b *HTMXResponseBuilder) BodyHTML(html string) *HTMXResponseBuilder {
	b.headers["Content-Type"] = "text/html; charset=utf-8"
	b.body = []byte(html)
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *HTMXResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}

	if len(b.triggers) > 0 {
		triggerJSON, err := json.Marshal(b.triggers)
		if err == nil {
			w.Header().Set("HX-Trigger", string(triggerJSON))
		}
	}

	w.WriteHeader(b.statusCode)
	if len(b.body) > 0 {
		_, _ = w.Write(b.body)
	}
}

// IsHTMX reports whether the request was issued by htmx.
func IsHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// Redirect sends the browser to location after a successful form post:
// HX-Redirect for htmx requests, 303 See Other otherwise.
func Redirect(r *http.Request, location string) *HTMXResponseBuilder {
	if IsHTMX(r) {
		return NewHTMXResponse().Header("HX-Redirect", location)
	}
	return NewHTMXResponse().Status(http.StatusSeeOther).Header("Location", location)
}

// ErrorResponse creates an HTML error fragment. The message is escaped.
func ErrorResponse(statusCode int, message string) *HTMXResponseBuilder {
	return NewHTMXResponse().
		Status(statusCode).
		BodyHTML(`<div class="error" role="alert">` + template.HTMLEscapeString(message) + `</div>`)
}

func BadRequestError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func InternalServerError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

// StatusFor maps an error to its response status: 422 for invalid input,
// 404 for missing records and 500 for anything else.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ports.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// UserMessage is the text shown for err. Internal errors are not exposed.
func UserMessage(err error) string {
	switch StatusFor(err) {
	case http.StatusUnprocessableEntity:
		return validationMessage(err)
	case http.StatusNotFound:
		return "Not found"
	default:
		return "Something went wrong, please try again"
	}
}

func validationMessage(err error) string {
	for _, known := range []struct {
		err error
		msg string
	}{
		{core.ErrEmptyName, "Name is required"},
		{core.ErrNameTooLong, "Name is too long"},
		{core.ErrNumberTooLong, "Card number is too long"},
		{core.ErrInvalidMonth, "Expiration month must be between 1 and 12"},
		{core.ErrInvalidYear, "Expiration year is not valid"},
		{core.ErrInvalidType, "Card type must be Visa, Master Card or Discover"},
		{core.ErrMissingCard, "Transaction needs a card"},
		{core.ErrPhotoTooLarge, "Photo is too large"},
		{core.ErrInvalidPhoto, "Photo could not be read as an image"},
	} {
		if errors.Is(err, known.err) {
			return known.msg
		}
	}
	return "Invalid input"
}

// ErrorFor builds the error fragment for err.
func ErrorFor(err error) *HTMXResponseBuilder {
	return ErrorResponse(StatusFor(err), UserMessage(err))
}
