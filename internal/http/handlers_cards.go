package http

import (
	"net/http"
	"time"

	"cards/internal/core"
	applog "cards/internal/log"
)

type cardFormView struct {
	Title  string
	Action string
	CardID int64 // 0 when adding
	Form   CardForm
	Error  string
}

func (s *Server) handleNewCard(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "card_form.html", cardFormView{
		Title:  "Add Card",
		Action: "/cards",
		Form:   NewCardForm(time.Now()),
	})
}

func (s *Server) handleCreateCard(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.badRequest(w, r, err, applog.ComponentCard)
		return
	}
	form := ReadCardForm(r.PostForm)

	card, err := form.Card()
	if err == nil {
		card, err = s.cards.Create(r.Context(), card)
	}
	if err != nil {
		s.rejectCardForm(w, r, err, cardFormView{Title: "Add Card", Action: "/cards", Form: form}, applog.OpCreate)
		return
	}

	Redirect(r, indexURL(card.ID, nil)).TriggerCardsChanged().Write(w)
}

func (s *Server) handleEditCard(w http.ResponseWriter, r *http.Request) {
	id, err := ParseID(r, "id")
	if err != nil {
		s.fail(w, r, notFound(err), applog.ComponentCard, applog.OpRead)
		return
	}
	card, err := s.cards.Get(r.Context(), id)
	if err != nil {
		s.fail(w, r, err, applog.ComponentCard, applog.OpRead)
		return
	}
	s.render(w, r, http.StatusOK, "card_form.html", cardFormView{
		Title:  "Edit Card",
		Action: "/cards/" + formatID(id),
		CardID: id,
		Form:   CardFormFrom(card),
	})
}

func (s *Server) handleUpdateCard(w http.ResponseWriter, r *http.Request) {
	id, err := ParseID(r, "id")
	if err != nil {
		s.fail(w, r, notFound(err), applog.ComponentCard, applog.OpUpdate)
		return
	}
	if err := r.ParseForm(); err != nil {
		s.badRequest(w, r, err, applog.ComponentCard)
		return
	}
	form := ReadCardForm(r.PostForm)

	card, err := form.Card()
	if err == nil {
		card.ID = id
		card, err = s.cards.Update(r.Context(), card)
	}
	if err != nil {
		view := cardFormView{Title: "Edit Card", Action: "/cards/" + formatID(id), CardID: id, Form: form}
		s.rejectCardForm(w, r, err, view, applog.OpUpdate)
		return
	}

	Redirect(r, indexURL(card.ID, nil)).TriggerCardsChanged().Write(w)
}

// rejectCardForm re-renders the form with the submitted values on invalid input.
func (s *Server) rejectCardForm(w http.ResponseWriter, r *http.Request, err error, view cardFormView, op string) {
	if StatusFor(err) != http.StatusUnprocessableEntity || IsHTMX(r) {
		s.fail(w, r, err, applog.ComponentCard, op)
		return
	}
	view.Error = UserMessage(err)
	s.render(w, r, http.StatusUnprocessableEntity, "card_form.html", view)
}

func (s *Server) handleDeleteCard(w http.ResponseWriter, r *http.Request) {
	id, err := ParseID(r, "id")
	if err != nil {
		s.fail(w, r, notFound(err), applog.ComponentCard, applog.OpDelete)
		return
	}
	if err := s.cards.Delete(r.Context(), id); err != nil {
		s.fail(w, r, err, applog.ComponentCard, applog.OpDelete)
		return
	}

	Redirect(r, "/").TriggerCardsChanged().Write(w)
}

func (s *Server) handleDeleteAllCards(w http.ResponseWriter, r *http.Request) {
	if _, err := s.cards.DeleteAll(r.Context()); err != nil {
		s.fail(w, r, err, applog.ComponentCard, applog.OpDelete)
		return
	}

	Redirect(r, "/").TriggerCardsChanged().Write(w)
}

// loadCard resolves the {id} path value to a card, answering 404 itself.
func (s *Server) loadCard(w http.ResponseWriter, r *http.Request, op string) (core.Card, bool) {
	id, err := ParseID(r, "id")
	if err != nil {
		s.fail(w, r, notFound(err), applog.ComponentCard, op)
		return core.Card{}, false
	}
	card, err := s.cards.Get(r.Context(), id)
	if err != nil {
		s.fail(w, r, err, applog.ComponentCard, op)
		return core.Card{}, false
	}
	return card, true
}
