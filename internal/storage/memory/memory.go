// Package memory is a process-local store used by the memory backend and as
// a fake in tests. Nothing survives a restart.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"cards/internal/core"
	"cards/internal/ports"
)

type Store struct {
	mu     sync.Mutex
	nextID int64
	now    func() time.Time

	cards      map[int64]core.Card
	txs        map[int64]core.CardTransaction
	categories map[int64]core.TransactionCategory
	links      map[int64]core.CategorySet // transaction id -> category ids
}

var _ ports.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		now:        time.Now,
		cards:      map[int64]core.Card{},
		txs:        map[int64]core.CardTransaction{},
		categories: map[int64]core.TransactionCategory{},
		links:      map[int64]core.CategorySet{},
	}
}

// NewWithClock is New with a custom time source for creation timestamps.
func NewWithClock(now func() time.Time) *Store {
	s := New()
	s.now = now
	return s
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close() error               { return nil }

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}

// newestFirst orders by timestamp descending, id descending.
func newestFirst(ta, tb time.Time, ida, idb int64) bool {
	if !ta.Equal(tb) {
		return ta.After(tb)
	}
	return ida > idb
}

func (s *Store) ListCards(_ context.Context) ([]core.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Card, 0, len(s.cards))
	for _, c := range s.cards {
		c.Color = cloneBytes(c.Color)
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		return newestFirst(out[i].Timestamp, out[j].Timestamp, out[i].ID, out[j].ID)
	})
	return out, nil
}

func (s *Store) GetCard(_ context.Context, id int64) (core.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cards[id]
	if !ok {
		return core.Card{}, fmt.Errorf("card %d: %w", id, ports.ErrNotFound)
	}
	c.Color = cloneBytes(c.Color)
	return c, nil
}

func (s *Store) CreateCard(_ context.Context, c core.Card) (core.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.id()
	if c.Timestamp.IsZero() {
		c.Timestamp = s.now()
	}
	c.Color = cloneBytes(c.Color)
	s.cards[c.ID] = c
	c.Color = cloneBytes(c.Color)
	return c, nil
}

func (s *Store) UpdateCard(_ context.Context, c core.Card) (core.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cards[c.ID]; !ok {
		return core.Card{}, fmt.Errorf("card %d: %w", c.ID, ports.ErrNotFound)
	}
	if c.Timestamp.IsZero() {
		c.Timestamp = s.now()
	}
	c.Color = cloneBytes(c.Color)
	s.cards[c.ID] = c
	c.Color = cloneBytes(c.Color)
	return c, nil
}

// deleteCardLocked removes a card with its transactions; s.mu must be held.
func (s *Store) deleteCardLocked(id int64) {
	for txID, t := range s.txs {
		if t.CardID == id {
			delete(s.txs, txID)
			delete(s.links, txID)
		}
	}
	delete(s.cards, id)
}

func (s *Store) DeleteCard(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cards[id]; !ok {
		return fmt.Errorf("card %d: %w", id, ports.ErrNotFound)
	}
	s.deleteCardLocked(id)
	return nil
}

func (s *Store) DeleteAllCards(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := int64(len(s.cards))
	for id := range s.cards {
		s.deleteCardLocked(id)
	}
	return n, nil
}

// withCategoriesLocked attaches the linked categories, newest first.
func (s *Store) withCategoriesLocked(t core.CardTransaction) core.CardTransaction {
	t.PhotoData = cloneBytes(t.PhotoData)
	t.Categories = nil
	for id := range s.links[t.ID] {
		if c, ok := s.categories[id]; ok {
			c.Color = cloneBytes(c.Color)
			t.Categories = append(t.Categories, c)
		}
	}
	sort.Slice(t.Categories, func(i, j int) bool {
		a, b := t.Categories[i], t.Categories[j]
		return newestFirst(a.Timestamp, b.Timestamp, a.ID, b.ID)
	})
	return t
}

func (s *Store) ListTransactions(_ context.Context, cardID int64) ([]core.CardTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.CardTransaction
	for _, t := range s.txs {
		if t.CardID == cardID {
			out = append(out, s.withCategoriesLocked(t))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return newestFirst(out[i].Timestamp, out[j].Timestamp, out[i].ID, out[j].ID)
	})
	return out, nil
}

func (s *Store) GetTransaction(_ context.Context, id int64) (core.CardTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.txs[id]
	if !ok {
		return core.CardTransaction{}, fmt.Errorf("transaction %d: %w", id, ports.ErrNotFound)
	}
	return s.withCategoriesLocked(t), nil
}

func (s *Store) CreateTransaction(_ context.Context, t core.CardTransaction, categoryIDs []int64) (core.CardTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cards[t.CardID]; !ok {
		return core.CardTransaction{}, fmt.Errorf("create transaction: card %d: %w", t.CardID, ports.ErrNotFound)
	}
	t.ID = s.id()
	t.PhotoData = cloneBytes(t.PhotoData)
	t.Categories = nil
	set := core.NewCategorySet()
	for _, id := range categoryIDs {
		if _, ok := s.categories[id]; ok {
			set[id] = struct{}{}
		}
	}
	s.txs[t.ID] = t
	s.links[t.ID] = set
	return s.withCategoriesLocked(t), nil
}

func (s *Store) DeleteTransaction(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.txs[id]; !ok {
		return fmt.Errorf("transaction %d: %w", id, ports.ErrNotFound)
	}
	delete(s.txs, id)
	delete(s.links, id)
	return nil
}

func (s *Store) ListCategories(_ context.Context) ([]core.TransactionCategory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.TransactionCategory, 0, len(s.categories))
	for _, c := range s.categories {
		c.Color = cloneBytes(c.Color)
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		return newestFirst(out[i].Timestamp, out[j].Timestamp, out[i].ID, out[j].ID)
	})
	return out, nil
}

func (s *Store) CreateCategory(_ context.Context, c core.TransactionCategory) (core.TransactionCategory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.id()
	if c.Timestamp.IsZero() {
		c.Timestamp = s.now()
	}
	c.Color = cloneBytes(c.Color)
	s.categories[c.ID] = c
	c.Color = cloneBytes(c.Color)
	return c, nil
}

func (s *Store) DeleteCategory(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.categories[id]; !ok {
		return fmt.Errorf("category %d: %w", id, ports.ErrNotFound)
	}
	delete(s.categories, id)
	for _, set := range s.links {
		delete(set, id)
	}
	return nil
}
