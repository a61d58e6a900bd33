package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"cards/internal/cache"
	"cards/internal/core"
	applog "cards/internal/log"
	"cards/internal/photo"
	"cards/internal/ports"
)

// TransactionStore is the part of the store the transaction service needs.
type TransactionStore interface {
	ports.TransactionStore
	ports.CategoryStore
}

type TransactionService struct {
	store  TransactionStore
	photos *photo.Processor
	cache  cache.Cache[[]core.CardTransaction] // per-card lists, optional
	now    func() time.Time

	// mu orders cache writes against invalidations. A list read from the
	// store is only cached if neither generation moved during the read.
	mu    sync.Mutex
	gen   map[int64]uint64
	epoch uint64
}

func NewTransactionService(store TransactionStore, photos *photo.Processor) *TransactionService {
	if photos == nil {
		photos = photo.NewProcessor(0, 0, 0)
	}
	return &TransactionService{store: store, photos: photos, now: time.Now, gen: map[int64]uint64{}}
}

// WithCache keeps each card's unfiltered transaction list in c until the
// card's transactions change.
func (s *TransactionService) WithCache(c cache.Cache[[]core.CardTransaction]) *TransactionService {
	s.cache = c
	return s
}

func cacheKey(cardID int64) string {
	return "card:" + strconv.FormatInt(cardID, 10)
}

// Forget drops the cached list of one card.
func (s *TransactionService) Forget(cardID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen[cardID]++
	if s.cache != nil {
		s.cache.Delete(cacheKey(cardID))
	}
}

// ForgetAll drops every cached list, e.g. after a category change.
func (s *TransactionService) ForgetAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
	if s.cache != nil {
		s.cache.Purge()
	}
}

func (s *TransactionService) generation(cardID int64) (uint64, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen[cardID], s.epoch
}

func (s *TransactionService) listCard(ctx context.Context, cardID int64) ([]core.CardTransaction, error) {
	if s.cache == nil {
		return s.store.ListTransactions(ctx, cardID)
	}
	if txs, ok := s.cache.Get(cacheKey(cardID)); ok {
		return txs, nil
	}

	gen, epoch := s.generation(cardID)
	txs, err := s.store.ListTransactions(ctx, cardID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen[cardID] == gen && s.epoch == epoch {
		s.cache.Set(cacheKey(cardID), txs)
	}
	return txs, nil
}

// TransactionInput is a new transaction as submitted by the user.
type TransactionInput struct {
	CardID      int64
	Name        string
	Amount      string
	Date        time.Time // zero means now
	CategoryIDs []int64
	Photo       []byte // raw upload, optional
}

// Listing is a card's transactions after applying the category filter.
type Listing struct {
	Transactions []core.CardTransaction
	Categories   []core.TransactionCategory // every known category
	Selected     core.CategorySet           // effective selection, unknown ids removed
	Total        int                        // number of transactions before filtering
}

// List returns the card's transactions, newest first, keeping only those
// that share a category with selected. Selected ids that no longer refer
// to a category are ignored, so a stale selection never hides everything.
func (s *TransactionService) List(ctx context.Context, cardID int64, selected []int64) (Listing, error) {
	txs, err := s.listCard(ctx, cardID)
	if err != nil {
		return Listing{}, fmt.Errorf("list transactions: %w", err)
	}
	cats, err := s.store.ListCategories(ctx)
	if err != nil {
		return Listing{}, fmt.Errorf("list categories: %w", err)
	}

	known := core.NewCategorySet()
	for _, c := range cats {
		known[c.ID] = struct{}{}
	}
	sel := core.NewCategorySet()
	for _, id := range selected {
		if known.Contains(id) {
			sel[id] = struct{}{}
		}
	}

	return Listing{
		Transactions: core.FilterTransactions(txs, sel),
		Categories:   cats,
		Selected:     sel,
		Total:        len(txs),
	}, nil
}

// Create validates the input, prepares the photo and stores the transaction
// linked to the chosen categories.
func (s *TransactionService) Create(ctx context.Context, in TransactionInput) (core.CardTransaction, error) {
	t := core.CardTransaction{
		CardID:    in.CardID,
		Name:      in.Name,
		Amount:    core.ParseAmount(in.Amount),
		Timestamp: in.Date,
	}
	if t.Timestamp.IsZero() {
		t.Timestamp = s.now()
	}
	if err := t.Validate(); err != nil {
		return core.CardTransaction{}, core.Invalid(err)
	}

	if len(in.Photo) > 0 {
		data, err := s.photos.Process(in.Photo)
		if err != nil {
			return core.CardTransaction{}, core.Invalid(err)
		}
		t.PhotoData = data
	}

	created, err := s.store.CreateTransaction(ctx, t, core.UniqueIDs(in.CategoryIDs))
	if err != nil {
		return core.CardTransaction{}, fmt.Errorf("create transaction: %w", err)
	}
	s.Forget(created.CardID)
	slog.InfoContext(ctx, "Transaction created",
		applog.FieldComponent, applog.ComponentTransaction,
		applog.FieldTxID, created.ID,
		applog.FieldCardID, created.CardID,
		"amount", created.Amount.String(),
		"categories", len(created.Categories),
		"photo", created.HasPhoto())
	return created, nil
}

func (s *TransactionService) Get(ctx context.Context, id int64) (core.CardTransaction, error) {
	t, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return core.CardTransaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

// Delete removes the transaction and returns the id of the card it belonged to.
func (s *TransactionService) Delete(ctx context.Context, id int64) (int64, error) {
	t, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("delete transaction %d: %w", id, err)
	}
	if err := s.store.DeleteTransaction(ctx, id); err != nil {
		return 0, fmt.Errorf("delete transaction %d: %w", id, err)
	}
	s.Forget(t.CardID)
	slog.InfoContext(ctx, "Transaction deleted",
		applog.FieldComponent, applog.ComponentTransaction, applog.FieldTxID, id, applog.FieldCardID, t.CardID)
	return t.CardID, nil
}

// Photo returns the stored JPEG, or ErrNotFound if the transaction has none.
func (s *TransactionService) Photo(ctx context.Context, id int64) ([]byte, error) {
	t, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get photo: %w", err)
	}
	if !t.HasPhoto() {
		return nil, fmt.Errorf("transaction %d has no photo: %w", id, ports.ErrNotFound)
	}
	return t.PhotoData, nil
}
