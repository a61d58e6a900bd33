package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// timeLayout is fixed width so that text ordering matches chronological ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored time %q: %w", s, err)
	}
	return t, nil
}

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// Queries holds the statements of the store, bound to a connection or transaction.
// It has the layout sqlc generates but is maintained by hand; the SQL sits next
// to the method that runs it.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// Row types mirror the table layout.
type (
	CardRow struct {
		ID          int64
		Name        string
		Number      string
		CreditLimit int64
		ExpMonth    int64
		ExpYear     int64
		Color       []byte
		CardType    string
		CreatedAt   string
	}

	TransactionRow struct {
		ID         int64
		CardID     int64
		Name       string
		Amount     string
		OccurredAt string
		PhotoData  []byte
	}

	CategoryRow struct {
		ID        int64
		Name      string
		Color     []byte
		CreatedAt string
	}

	// LinkedCategoryRow is a category joined to one of its transactions.
	LinkedCategoryRow struct {
		TransactionID int64
		CategoryRow
	}
)

const cardColumns = `id, name, number, credit_limit, exp_month, exp_year, color, card_type, created_at`

func scanCard(s interface{ Scan(...any) error }) (CardRow, error) {
	var r CardRow
	err := s.Scan(&r.ID, &r.Name, &r.Number, &r.CreditLimit, &r.ExpMonth, &r.ExpYear, &r.Color, &r.CardType, &r.CreatedAt)
	return r, err
}

const listCards = `SELECT ` + cardColumns + ` FROM cards ORDER BY created_at DESC, id DESC`

func (q *Queries) ListCards(ctx context.Context) ([]CardRow, error) {
	rows, err := q.db.QueryContext(ctx, listCards)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CardRow
	for rows.Next() {
		r, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const getCard = `SELECT ` + cardColumns + ` FROM cards WHERE id = ?`

func (q *Queries) GetCard(ctx context.Context, id int64) (CardRow, error) {
	return scanCard(q.db.QueryRowContext(ctx, getCard, id))
}

const createCard = `INSERT INTO cards (name, number, credit_limit, exp_month, exp_year, color, card_type, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + cardColumns

func (q *Queries) CreateCard(ctx context.Context, r CardRow) (CardRow, error) {
	return scanCard(q.db.QueryRowContext(ctx, createCard,
		r.Name, r.Number, r.CreditLimit, r.ExpMonth, r.ExpYear, r.Color, r.CardType, r.CreatedAt))
}

const updateCard = `UPDATE cards
SET name = ?, number = ?, credit_limit = ?, exp_month = ?, exp_year = ?, color = ?, card_type = ?, created_at = ?
WHERE id = ?
RETURNING ` + cardColumns

func (q *Queries) UpdateCard(ctx context.Context, r CardRow) (CardRow, error) {
	return scanCard(q.db.QueryRowContext(ctx, updateCard,
		r.Name, r.Number, r.CreditLimit, r.ExpMonth, r.ExpYear, r.Color, r.CardType, r.CreatedAt, r.ID))
}

const deleteLinksByCard = `DELETE FROM transaction_category_links
WHERE transaction_id IN (SELECT id FROM card_transactions WHERE card_id = ?)`

func (q *Queries) DeleteLinksByCard(ctx context.Context, cardID int64) error {
	_, err := q.db.ExecContext(ctx, deleteLinksByCard, cardID)
	return err
}

const deleteTransactionsByCard = `DELETE FROM card_transactions WHERE card_id = ?`

func (q *Queries) DeleteTransactionsByCard(ctx context.Context, cardID int64) error {
	_, err := q.db.ExecContext(ctx, deleteTransactionsByCard, cardID)
	return err
}

const deleteCard = `DELETE FROM cards WHERE id = ?`

func (q *Queries) DeleteCard(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteCard, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteAllLinks = `DELETE FROM transaction_category_links`
const deleteAllTransactions = `DELETE FROM card_transactions`
const deleteAllCards = `DELETE FROM cards`

func (q *Queries) DeleteAllCards(ctx context.Context) (int64, error) {
	if _, err := q.db.ExecContext(ctx, deleteAllLinks); err != nil {
		return 0, err
	}
	if _, err := q.db.ExecContext(ctx, deleteAllTransactions); err != nil {
		return 0, err
	}
	res, err := q.db.ExecContext(ctx, deleteAllCards)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const transactionColumns = `id, card_id, name, amount, occurred_at, photo_data`

func scanTransaction(s interface{ Scan(...any) error }) (TransactionRow, error) {
	var r TransactionRow
	err := s.Scan(&r.ID, &r.CardID, &r.Name, &r.Amount, &r.OccurredAt, &r.PhotoData)
	return r, err
}

const listTransactionsByCard = `SELECT ` + transactionColumns + ` FROM card_transactions
WHERE card_id = ?
ORDER BY occurred_at DESC, id DESC`

func (q *Queries) ListTransactionsByCard(ctx context.Context, cardID int64) ([]TransactionRow, error) {
	rows, err := q.db.QueryContext(ctx, listTransactionsByCard, cardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []TransactionRow
	for rows.Next() {
		r, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const getTransaction = `SELECT ` + transactionColumns + ` FROM card_transactions WHERE id = ?`

func (q *Queries) GetTransaction(ctx context.Context, id int64) (TransactionRow, error) {
	return scanTransaction(q.db.QueryRowContext(ctx, getTransaction, id))
}

const createTransaction = `INSERT INTO card_transactions (card_id, name, amount, occurred_at, photo_data)
VALUES (?, ?, ?, ?, ?)
RETURNING ` + transactionColumns

func (q *Queries) CreateTransaction(ctx context.Context, r TransactionRow) (TransactionRow, error) {
	return scanTransaction(q.db.QueryRowContext(ctx, createTransaction,
		r.CardID, r.Name, r.Amount, r.OccurredAt, r.PhotoData))
}

const deleteLinksByTransaction = `DELETE FROM transaction_category_links WHERE transaction_id = ?`

func (q *Queries) DeleteLinksByTransaction(ctx context.Context, transactionID int64) error {
	_, err := q.db.ExecContext(ctx, deleteLinksByTransaction, transactionID)
	return err
}

const deleteTransaction = `DELETE FROM card_transactions WHERE id = ?`

func (q *Queries) DeleteTransaction(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteTransaction, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// linkCategory ignores ids with no matching category and already-present links.
const linkCategory = `INSERT OR IGNORE INTO transaction_category_links (transaction_id, category_id)
SELECT ?, id FROM transaction_categories WHERE id = ?`

func (q *Queries) LinkCategory(ctx context.Context, transactionID, categoryID int64) error {
	_, err := q.db.ExecContext(ctx, linkCategory, transactionID, categoryID)
	return err
}

const categoryColumns = `id, name, color, created_at`

func scanCategory(s interface{ Scan(...any) error }) (CategoryRow, error) {
	var r CategoryRow
	err := s.Scan(&r.ID, &r.Name, &r.Color, &r.CreatedAt)
	return r, err
}

const listLinkedCategoriesByCard = `SELECT l.transaction_id, c.id, c.name, c.color, c.created_at
FROM transaction_category_links l
JOIN transaction_categories c ON c.id = l.category_id
JOIN card_transactions t ON t.id = l.transaction_id
WHERE t.card_id = ?
ORDER BY c.created_at DESC, c.id DESC`

const listLinkedCategoriesByTransaction = `SELECT l.transaction_id, c.id, c.name, c.color, c.created_at
FROM transaction_category_links l
JOIN transaction_categories c ON c.id = l.category_id
WHERE l.transaction_id = ?
ORDER BY c.created_at DESC, c.id DESC`

func (q *Queries) listLinked(ctx context.Context, query string, arg int64) ([]LinkedCategoryRow, error) {
	rows, err := q.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []LinkedCategoryRow
	for rows.Next() {
		var r LinkedCategoryRow
		if err := rows.Scan(&r.TransactionID, &r.ID, &r.Name, &r.Color, &r.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

func (q *Queries) ListLinkedCategoriesByCard(ctx context.Context, cardID int64) ([]LinkedCategoryRow, error) {
	return q.listLinked(ctx, listLinkedCategoriesByCard, cardID)
}

func (q *Queries) ListLinkedCategoriesByTransaction(ctx context.Context, transactionID int64) ([]LinkedCategoryRow, error) {
	return q.listLinked(ctx, listLinkedCategoriesByTransaction, transactionID)
}

const listCategories = `SELECT ` + categoryColumns + ` FROM transaction_categories ORDER BY created_at DESC, id DESC`

func (q *Queries) ListCategories(ctx context.Context) ([]CategoryRow, error) {
	rows, err := q.db.QueryContext(ctx, listCategories)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CategoryRow
	for rows.Next() {
		r, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const createCategory = `INSERT INTO transaction_categories (name, color, created_at)
VALUES (?, ?, ?)
RETURNING ` + categoryColumns

func (q *Queries) CreateCategory(ctx context.Context, r CategoryRow) (CategoryRow, error) {
	return scanCategory(q.db.QueryRowContext(ctx, createCategory, r.Name, r.Color, r.CreatedAt))
}

const deleteLinksByCategory = `DELETE FROM transaction_category_links WHERE category_id = ?`

func (q *Queries) DeleteLinksByCategory(ctx context.Context, categoryID int64) error {
	_, err := q.db.ExecContext(ctx, deleteLinksByCategory, categoryID)
	return err
}

const deleteCategory = `DELETE FROM transaction_categories WHERE id = ?`

func (q *Queries) DeleteCategory(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteCategory, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
