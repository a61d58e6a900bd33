package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"cards/internal/core"
	applog "cards/internal/log"
	"cards/internal/ports"
	"cards/internal/services"
)

// transactionsView feeds the "transactions" partial.
type transactionsView struct {
	Card core.Card
	services.Listing
}

type indexView struct {
	Title    string
	Cards    []core.Card
	Selected *core.Card
	Position int // 1-based position of Selected in Cards
	PrevID   int64
	NextID   int64
	List     transactionsView
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.startedAt).Round(time.Second).String(),
	})
}

// handleReady checks the templates and that the store answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := map[string]interface{}{}

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if err := s.store.Ping(ctx); err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Store ping failed", applog.FieldError, err)
		checks["store"] = "failed"
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["store"] = "ok"
	}

	metrics := s.traceMiddleware.GetMetrics()
	checks["cache"] = map[string]interface{}{"entries": s.listCache.Size()}
	checks["requests"] = map[string]interface{}{
		"total":          metrics.TotalRequests,
		"avg_latency_us": metrics.AverageResponseTime,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleIndex renders the card pager with the selected card's transactions.
// Without ?card= (or with an unknown id) the first card is selected.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cards, err := s.cards.List(ctx)
	if err != nil {
		s.fail(w, r, err, applog.ComponentCard, applog.OpList)
		return
	}

	view := indexView{Title: "Cards", Cards: cards}
	if len(cards) > 0 {
		wanted := ParseCardID(r.URL.Query())
		idx := 0
		for i, c := range cards {
			if c.ID == wanted {
				idx = i
				break
			}
		}
		view.Selected = &cards[idx]
		view.Position = idx + 1
		if idx > 0 {
			view.PrevID = cards[idx-1].ID
		}
		if idx < len(cards)-1 {
			view.NextID = cards[idx+1].ID
		}

		listing, err := s.transactions.List(ctx, view.Selected.ID, ParseSelection(r.URL.Query()))
		if err != nil {
			s.fail(w, r, err, applog.ComponentTransaction, applog.OpList)
			return
		}
		view.List = transactionsView{Card: *view.Selected, Listing: listing}
	}

	s.render(w, r, http.StatusOK, "index.html", view)
}

// render executes the template into a buffer so that a failing template
// never leaves a half-written page behind.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		applog.NewStructuredLogger(applog.FromContext(r.Context())).LogError(r.Context(), "Template execution failed",
			err, applog.ComponentTemplate, applog.OpRender, applog.LogFields{applog.FieldTemplate: name})
		InternalServerError("Error rendering page").Write(w)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

type errorView struct {
	Title   string
	Status  int
	Message string
}

// fail answers with the status for err. Full pages get the error page,
// htmx requests get a fragment. Only unexpected errors are logged as errors.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, component, op string) {
	ctx := r.Context()
	status := StatusFor(err)
	logger := applog.FromContext(ctx)
	fields := recordFields(r)
	switch status {
	case http.StatusInternalServerError:
		fields.WithErrorType(applog.ErrorTypeInternal)
		applog.NewStructuredLogger(logger).LogError(ctx, "Request failed", err, component, op, fields)
	case http.StatusNotFound:
		fields.WithError(err).WithOperation(op).WithComponent(component).WithErrorType(applog.ErrorTypeNotFound)
		logger.InfoContext(ctx, "Record not found", fields.ToSlice()...)
	default:
		fields.WithError(err).WithOperation(op).WithComponent(component).WithErrorType(applog.ErrorTypeValidation)
		logger.InfoContext(ctx, "Rejected input", fields.ToSlice()...)
	}

	if IsHTMX(r) {
		ErrorFor(err).Write(w)
		return
	}
	s.render(w, r, status, "error.html", errorView{Title: http.StatusText(status), Status: status, Message: UserMessage(err)})
}

// badRequest answers 400 for a body that could not be parsed at all.
func (s *Server) badRequest(w http.ResponseWriter, r *http.Request, err error, component string) {
	fields := recordFields(r).WithError(err).WithOperation(applog.OpParse).WithComponent(component)
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Malformed request body", fields.ToSlice()...)
	BadRequestError("Invalid request format").Write(w)
}

// recordFields names the record addressed by the {id} path value.
func recordFields(r *http.Request) applog.LogFields {
	fields := applog.NewFields()
	id, err := ParseID(r, "id")
	if err != nil {
		return fields
	}
	switch {
	case strings.HasPrefix(r.URL.Path, "/cards/"):
		fields.WithCard(id)
	case strings.HasPrefix(r.URL.Path, "/transactions/"):
		fields.WithTransaction(id)
	case strings.HasPrefix(r.URL.Path, "/categories/"):
		fields.WithCategory(id)
	}
	return fields
}

// notFound wraps a path parsing failure so that it maps to 404.
func notFound(err error) error {
	return errors.Join(ports.ErrNotFound, err)
}
