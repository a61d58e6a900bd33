package http

import (
	"net/http"
	"strconv"
	"time"

	"cards/internal/core"
	applog "cards/internal/log"
)

type transactionFormView struct {
	Title      string
	Card       core.Card
	Form       TransactionForm
	Categories []core.TransactionCategory
	Error      string
}

type filterView struct {
	Title      string
	Card       core.Card
	Categories []core.TransactionCategory
	Selected   core.CategorySet
}

// handleListTransactions renders only the transaction list of a card, for htmx swaps.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	card, ok := s.loadCard(w, r, applog.OpList)
	if !ok {
		return
	}
	listing, err := s.transactions.List(r.Context(), card.ID, ParseSelection(r.URL.Query()))
	if err != nil {
		s.fail(w, r, err, applog.ComponentTransaction, applog.OpList)
		return
	}
	s.render(w, r, http.StatusOK, "transactions", transactionsView{Card: card, Listing: listing})
}

func (s *Server) handleNewTransaction(w http.ResponseWriter, r *http.Request) {
	card, ok := s.loadCard(w, r, applog.OpRead)
	if !ok {
		return
	}
	cats, err := s.categories.List(r.Context())
	if err != nil {
		s.fail(w, r, err, applog.ComponentCategory, applog.OpList)
		return
	}
	s.render(w, r, http.StatusOK, "transaction_form.html", transactionFormView{
		Title:      "Add Transaction",
		Card:       card,
		Form:       TransactionForm{Date: time.Now().Format(dateLayout)},
		Categories: cats,
	})
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	card, ok := s.loadCard(w, r, applog.OpCreate)
	if !ok {
		return
	}

	form, in, err := ParseTransactionForm(w, r, card.ID, s.maxUploadBytes)
	if err == nil {
		_, err = s.transactions.Create(r.Context(), in)
	}
	if err != nil {
		if StatusFor(err) != http.StatusUnprocessableEntity || IsHTMX(r) {
			s.fail(w, r, err, applog.ComponentTransaction, applog.OpCreate)
			return
		}
		cats, cerr := s.categories.List(r.Context())
		if cerr != nil {
			s.fail(w, r, cerr, applog.ComponentCategory, applog.OpList)
			return
		}
		s.render(w, r, http.StatusUnprocessableEntity, "transaction_form.html", transactionFormView{
			Title:      "Add Transaction",
			Card:       card,
			Form:       form,
			Categories: cats,
			Error:      UserMessage(err),
		})
		return
	}

	Redirect(r, indexURL(card.ID, nil)).TriggerTransactionsChanged(card.ID).Write(w)
}

// handleFilter shows the category picker for a card's transaction list.
func (s *Server) handleFilter(w http.ResponseWriter, r *http.Request) {
	card, ok := s.loadCard(w, r, applog.OpFilter)
	if !ok {
		return
	}
	listing, err := s.transactions.List(r.Context(), card.ID, ParseSelection(r.URL.Query()))
	if err != nil {
		s.fail(w, r, err, applog.ComponentTransaction, applog.OpFilter)
		return
	}
	s.render(w, r, http.StatusOK, "filter.html", filterView{
		Title:      "Filter",
		Card:       card,
		Categories: listing.Categories,
		Selected:   listing.Selected,
	})
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := ParseID(r, "id")
	if err != nil {
		s.fail(w, r, notFound(err), applog.ComponentTransaction, applog.OpDelete)
		return
	}
	cardID, err := s.transactions.Delete(r.Context(), id)
	if err != nil {
		s.fail(w, r, err, applog.ComponentTransaction, applog.OpDelete)
		return
	}

	Redirect(r, indexURL(cardID, nil)).TriggerTransactionsChanged(cardID).Write(w)
}

func (s *Server) handleTransactionPhoto(w http.ResponseWriter, r *http.Request) {
	id, err := ParseID(r, "id")
	if err != nil {
		s.fail(w, r, notFound(err), applog.ComponentTransaction, applog.OpRead)
		return
	}
	data, err := s.transactions.Photo(r.Context(), id)
	if err != nil {
		s.fail(w, r, err, applog.ComponentTransaction, applog.OpRead)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
