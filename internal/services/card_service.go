package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cards/internal/core"
	applog "cards/internal/log"
	"cards/internal/ports"
)

// ListInvalidator drops cached transaction lists. TransactionService is one.
type ListInvalidator interface {
	Forget(cardID int64)
	ForgetAll()
}

type noLists struct{}

func (noLists) Forget(int64) {}
func (noLists) ForgetAll()   {}

// CardService validates and persists cards.
type CardService struct {
	store ports.CardStore
	lists ListInvalidator
	now   func() time.Time
}

func NewCardService(store ports.CardStore) *CardService {
	return &CardService{store: store, lists: noLists{}, now: time.Now}
}

// WithLists makes card deletions drop the cached transaction lists they affect.
func (s *CardService) WithLists(lists ListInvalidator) *CardService {
	s.lists = lists
	return s
}

func (s *CardService) List(ctx context.Context) ([]core.Card, error) {
	cards, err := s.store.ListCards(ctx)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	return cards, nil
}

func (s *CardService) Get(ctx context.Context, id int64) (core.Card, error) {
	c, err := s.store.GetCard(ctx, id)
	if err != nil {
		return core.Card{}, fmt.Errorf("get card: %w", err)
	}
	return c, nil
}

// Create stamps the card with the current time and stores it.
func (s *CardService) Create(ctx context.Context, c core.Card) (core.Card, error) {
	if err := c.Validate(); err != nil {
		return core.Card{}, core.Invalid(err)
	}
	c.ID = 0
	c.Timestamp = s.now()
	created, err := s.store.CreateCard(ctx, c)
	if err != nil {
		return core.Card{}, fmt.Errorf("create card: %w", err)
	}
	slog.InfoContext(ctx, "Card created", applog.FieldComponent, applog.ComponentCard, applog.FieldCardID, created.ID, "type", created.Type)
	return created, nil
}

// Update overwrites every field of the card and refreshes its timestamp,
// which moves it to the front of the list.
func (s *CardService) Update(ctx context.Context, c core.Card) (core.Card, error) {
	if err := c.Validate(); err != nil {
		return core.Card{}, core.Invalid(err)
	}
	c.Timestamp = s.now()
	updated, err := s.store.UpdateCard(ctx, c)
	if err != nil {
		return core.Card{}, fmt.Errorf("update card %d: %w", c.ID, err)
	}
	slog.InfoContext(ctx, "Card updated", applog.FieldComponent, applog.ComponentCard, applog.FieldCardID, updated.ID)
	return updated, nil
}

// Delete removes the card together with its transactions.
func (s *CardService) Delete(ctx context.Context, id int64) error {
	if err := s.store.DeleteCard(ctx, id); err != nil {
		return fmt.Errorf("delete card %d: %w", id, err)
	}
	s.lists.Forget(id)
	slog.InfoContext(ctx, "Card deleted", applog.FieldComponent, applog.ComponentCard, applog.FieldCardID, id)
	return nil
}

func (s *CardService) DeleteAll(ctx context.Context) (int64, error) {
	n, err := s.store.DeleteAllCards(ctx)
	if err != nil {
		return 0, fmt.Errorf("delete all cards: %w", err)
	}
	s.lists.ForgetAll()
	slog.InfoContext(ctx, "All cards deleted", applog.FieldComponent, applog.ComponentCard, "count", n)
	return n, nil
}
