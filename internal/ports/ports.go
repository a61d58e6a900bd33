package ports

import (
	"context"
	"errors"

	"cards/internal/core"
)

// ErrNotFound is returned when a record with the requested id does not exist.
var ErrNotFound = errors.New("not found")

// Ports for the persistence store.
type (
	CardStore interface {
		// ListCards returns all cards, newest first.
		ListCards(ctx context.Context) ([]core.Card, error)
		GetCard(ctx context.Context, id int64) (core.Card, error)
		CreateCard(ctx context.Context, c core.Card) (core.Card, error)
		// UpdateCard overwrites every field of the card with c.ID.
		UpdateCard(ctx context.Context, c core.Card) (core.Card, error)
		// DeleteCard removes the card and its transactions.
		DeleteCard(ctx context.Context, id int64) error
		// DeleteAllCards removes every card and transaction, returning the number of cards removed.
		DeleteAllCards(ctx context.Context) (int64, error)
	}

	TransactionStore interface {
		// ListTransactions returns the card's transactions, newest first, with categories.
		ListTransactions(ctx context.Context, cardID int64) ([]core.CardTransaction, error)
		GetTransaction(ctx context.Context, id int64) (core.CardTransaction, error)
		// CreateTransaction inserts t and links it to categoryIDs. Unknown ids are ignored.
		CreateTransaction(ctx context.Context, t core.CardTransaction, categoryIDs []int64) (core.CardTransaction, error)
		DeleteTransaction(ctx context.Context, id int64) error
	}

	CategoryStore interface {
		// ListCategories returns all categories, newest first.
		ListCategories(ctx context.Context) ([]core.TransactionCategory, error)
		CreateCategory(ctx context.Context, c core.TransactionCategory) (core.TransactionCategory, error)
		// DeleteCategory removes the category and unlinks it from every transaction.
		DeleteCategory(ctx context.Context, id int64) error
	}

	// Store is the full persistence surface.
	Store interface {
		CardStore
		TransactionStore
		CategoryStore
		Ping(ctx context.Context) error
		Close() error
	}
)
