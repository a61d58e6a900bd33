package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"cards/internal/core"
	"cards/internal/ports"

	_ "modernc.org/sqlite"
)

// pragmas applied to every pooled connection
const dsnPragmas = "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

var _ ports.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := dbPath + dsnPragmas
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		now:     time.Now,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// inTx runs fn inside a transaction, rolling back on error.
func (r *SQLiteRepository) inTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(r.queries.WithTx(tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func notFound(err error, what string, id int64) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %d: %w", what, id, ports.ErrNotFound)
	}
	return err
}

func cardFromRow(row CardRow) (core.Card, error) {
	ts, err := parseTime(row.CreatedAt)
	if err != nil {
		return core.Card{}, err
	}
	return core.Card{
		ID:        row.ID,
		Name:      row.Name,
		Number:    row.Number,
		Limit:     int32(row.CreditLimit),
		ExpMonth:  int16(row.ExpMonth),
		ExpYear:   int16(row.ExpYear),
		Color:     row.Color,
		Type:      core.CardType(row.CardType),
		Timestamp: ts,
	}, nil
}

func cardToRow(c core.Card) CardRow {
	return CardRow{
		ID:          c.ID,
		Name:        c.Name,
		Number:      c.Number,
		CreditLimit: int64(c.Limit),
		ExpMonth:    int64(c.ExpMonth),
		ExpYear:     int64(c.ExpYear),
		Color:       c.Color,
		CardType:    string(c.Type),
		CreatedAt:   formatTime(c.Timestamp),
	}
}

func categoryFromRow(row CategoryRow) (core.TransactionCategory, error) {
	ts, err := parseTime(row.CreatedAt)
	if err != nil {
		return core.TransactionCategory{}, err
	}
	return core.TransactionCategory{
		ID:        row.ID,
		Name:      row.Name,
		Color:     row.Color,
		Timestamp: ts,
	}, nil
}

func transactionFromRow(row TransactionRow) (core.CardTransaction, error) {
	ts, err := parseTime(row.OccurredAt)
	if err != nil {
		return core.CardTransaction{}, err
	}
	amount, err := decimal.NewFromString(row.Amount)
	if err != nil {
		return core.CardTransaction{}, fmt.Errorf("parse stored amount %q: %w", row.Amount, err)
	}
	return core.CardTransaction{
		ID:        row.ID,
		CardID:    row.CardID,
		Name:      row.Name,
		Amount:    amount,
		Timestamp: ts,
		PhotoData: row.PhotoData,
	}, nil
}

// ListCards implements ports.CardStore
func (r *SQLiteRepository) ListCards(ctx context.Context) ([]core.Card, error) {
	rows, err := r.queries.ListCards(ctx)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	cards := make([]core.Card, 0, len(rows))
	for _, row := range rows {
		c, err := cardFromRow(row)
		if err != nil {
			return nil, fmt.Errorf("list cards: %w", err)
		}
		cards = append(cards, c)
	}
	return cards, nil
}

// GetCard implements ports.CardStore
func (r *SQLiteRepository) GetCard(ctx context.Context, id int64) (core.Card, error) {
	row, err := r.queries.GetCard(ctx, id)
	if err != nil {
		return core.Card{}, fmt.Errorf("get card: %w", notFound(err, "card", id))
	}
	return cardFromRow(row)
}

// CreateCard implements ports.CardStore
func (r *SQLiteRepository) CreateCard(ctx context.Context, c core.Card) (core.Card, error) {
	if c.Timestamp.IsZero() {
		c.Timestamp = r.now()
	}
	row, err := r.queries.CreateCard(ctx, cardToRow(c))
	if err != nil {
		return core.Card{}, fmt.Errorf("create card: %w", err)
	}

	slog.InfoContext(ctx, "Card saved to SQLite",
		"id", row.ID,
		"name", row.Name,
		"card_type", row.CardType)

	return cardFromRow(row)
}

// UpdateCard implements ports.CardStore
func (r *SQLiteRepository) UpdateCard(ctx context.Context, c core.Card) (core.Card, error) {
	if c.Timestamp.IsZero() {
		c.Timestamp = r.now()
	}
	row, err := r.queries.UpdateCard(ctx, cardToRow(c))
	if err != nil {
		return core.Card{}, fmt.Errorf("update card: %w", notFound(err, "card", c.ID))
	}

	slog.InfoContext(ctx, "Card updated in SQLite", "id", row.ID, "name", row.Name)

	return cardFromRow(row)
}

// DeleteCard implements ports.CardStore
func (r *SQLiteRepository) DeleteCard(ctx context.Context, id int64) error {
	err := r.inTx(ctx, func(q *Queries) error {
		if err := q.DeleteLinksByCard(ctx, id); err != nil {
			return err
		}
		if err := q.DeleteTransactionsByCard(ctx, id); err != nil {
			return err
		}
		n, err := q.DeleteCard(ctx, id)
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("card %d: %w", id, ports.ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete card: %w", err)
	}

	slog.InfoContext(ctx, "Card deleted from SQLite", "id", id)
	return nil
}

// DeleteAllCards implements ports.CardStore
func (r *SQLiteRepository) DeleteAllCards(ctx context.Context) (int64, error) {
	var n int64
	err := r.inTx(ctx, func(q *Queries) error {
		var err error
		n, err = q.DeleteAllCards(ctx)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("delete all cards: %w", err)
	}

	slog.InfoContext(ctx, "All cards deleted from SQLite", "count", n)
	return n, nil
}

// ListTransactions implements ports.TransactionStore
func (r *SQLiteRepository) ListTransactions(ctx context.Context, cardID int64) ([]core.CardTransaction, error) {
	rows, err := r.queries.ListTransactionsByCard(ctx, cardID)
	if err != nil {
		return nil, fmt.Errorf("list transactions for card %d: %w", cardID, err)
	}
	links, err := r.queries.ListLinkedCategoriesByCard(ctx, cardID)
	if err != nil {
		return nil, fmt.Errorf("list transaction categories for card %d: %w", cardID, err)
	}

	byTx := make(map[int64][]core.TransactionCategory, len(rows))
	for _, l := range links {
		c, err := categoryFromRow(l.CategoryRow)
		if err != nil {
			return nil, err
		}
		byTx[l.TransactionID] = append(byTx[l.TransactionID], c)
	}

	txs := make([]core.CardTransaction, 0, len(rows))
	for _, row := range rows {
		t, err := transactionFromRow(row)
		if err != nil {
			return nil, err
		}
		t.Categories = byTx[t.ID]
		txs = append(txs, t)
	}
	return txs, nil
}

func (r *SQLiteRepository) loadTransaction(ctx context.Context, q *Queries, id int64) (core.CardTransaction, error) {
	row, err := q.GetTransaction(ctx, id)
	if err != nil {
		return core.CardTransaction{}, notFound(err, "transaction", id)
	}
	t, err := transactionFromRow(row)
	if err != nil {
		return core.CardTransaction{}, err
	}
	links, err := q.ListLinkedCategoriesByTransaction(ctx, id)
	if err != nil {
		return core.CardTransaction{}, fmt.Errorf("list categories of transaction %d: %w", id, err)
	}
	for _, l := range links {
		c, err := categoryFromRow(l.CategoryRow)
		if err != nil {
			return core.CardTransaction{}, err
		}
		t.Categories = append(t.Categories, c)
	}
	return t, nil
}

// GetTransaction implements ports.TransactionStore
func (r *SQLiteRepository) GetTransaction(ctx context.Context, id int64) (core.CardTransaction, error) {
	t, err := r.loadTransaction(ctx, r.queries, id)
	if err != nil {
		return core.CardTransaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

// CreateTransaction implements ports.TransactionStore
func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.CardTransaction, categoryIDs []int64) (core.CardTransaction, error) {
	var created core.CardTransaction
	err := r.inTx(ctx, func(q *Queries) error {
		if _, err := q.GetCard(ctx, t.CardID); err != nil {
			return notFound(err, "card", t.CardID)
		}
		row, err := q.CreateTransaction(ctx, TransactionRow{
			CardID:     t.CardID,
			Name:       t.Name,
			Amount:     t.Amount.String(),
			OccurredAt: formatTime(t.Timestamp),
			PhotoData:  t.PhotoData,
		})
		if err != nil {
			return err
		}
		for _, id := range core.UniqueIDs(categoryIDs) {
			if err := q.LinkCategory(ctx, row.ID, id); err != nil {
				return fmt.Errorf("link category %d: %w", id, err)
			}
		}
		created, err = r.loadTransaction(ctx, q, row.ID)
		return err
	})
	if err != nil {
		return core.CardTransaction{}, fmt.Errorf("create transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", created.ID,
		"card_id", created.CardID,
		"amount", created.Amount.String(),
		"categories", len(created.Categories),
		"photo_bytes", len(created.PhotoData))

	return created, nil
}

// DeleteTransaction implements ports.TransactionStore
func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id int64) error {
	err := r.inTx(ctx, func(q *Queries) error {
		if err := q.DeleteLinksByTransaction(ctx, id); err != nil {
			return err
		}
		n, err := q.DeleteTransaction(ctx, id)
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("transaction %d: %w", id, ports.ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction deleted from SQLite", "id", id)
	return nil
}

// ListCategories implements ports.CategoryStore
func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.TransactionCategory, error) {
	rows, err := r.queries.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	cats := make([]core.TransactionCategory, 0, len(rows))
	for _, row := range rows {
		c, err := categoryFromRow(row)
		if err != nil {
			return nil, fmt.Errorf("list categories: %w", err)
		}
		cats = append(cats, c)
	}
	return cats, nil
}

// CreateCategory implements ports.CategoryStore
func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.TransactionCategory) (core.TransactionCategory, error) {
	if c.Timestamp.IsZero() {
		c.Timestamp = r.now()
	}
	row, err := r.queries.CreateCategory(ctx, CategoryRow{
		Name:      c.Name,
		Color:     c.Color,
		CreatedAt: formatTime(c.Timestamp),
	})
	if err != nil {
		return core.TransactionCategory{}, fmt.Errorf("create category: %w", err)
	}

	slog.InfoContext(ctx, "Category saved to SQLite", "id", row.ID, "name", row.Name)

	return categoryFromRow(row)
}

// DeleteCategory implements ports.CategoryStore
func (r *SQLiteRepository) DeleteCategory(ctx context.Context, id int64) error {
	err := r.inTx(ctx, func(q *Queries) error {
		if err := q.DeleteLinksByCategory(ctx, id); err != nil {
			return err
		}
		n, err := q.DeleteCategory(ctx, id)
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("category %d: %w", id, ports.ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}

	slog.InfoContext(ctx, "Category deleted from SQLite", "id", id)
	return nil
}
