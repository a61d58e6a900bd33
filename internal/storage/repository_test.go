package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"cards/internal/core"
	"cards/internal/ports"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "nested", "cards.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func sampleCard(name string) core.Card {
	return core.Card{
		Name:     name,
		Number:   "4111 1111 1111 1111",
		Limit:    2500,
		ExpMonth: 7,
		ExpYear:  2030,
		Color:    core.Color{R: 10, G: 20, B: 30, A: 255}.Encode(),
		Type:     core.MasterCard,
	}
}

func mustCard(t *testing.T, r *SQLiteRepository, name string) core.Card {
	t.Helper()
	c, err := r.CreateCard(context.Background(), sampleCard(name))
	if err != nil {
		t.Fatalf("CreateCard: %v", err)
	}
	return c
}

func mustCategory(t *testing.T, r *SQLiteRepository, name string) core.TransactionCategory {
	t.Helper()
	c, err := r.CreateCategory(context.Background(), core.TransactionCategory{Name: name, Color: core.DefaultCategoryFormColor.Encode()})
	if err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}
	return c
}

func mustTransaction(t *testing.T, r *SQLiteRepository, cardID int64, name string, at time.Time, cats ...int64) core.CardTransaction {
	t.Helper()
	tx, err := r.CreateTransaction(context.Background(), core.CardTransaction{
		CardID:    cardID,
		Name:      name,
		Amount:    decimal.RequireFromString("12.50"),
		Timestamp: at,
	}, cats)
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	return tx
}

func TestCreateAndListCards(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	want := sampleCard("Travel")
	want.Timestamp = time.Date(2024, 5, 1, 10, 0, 0, 123, time.UTC)
	created, err := repo.CreateCard(ctx, want)
	if err != nil {
		t.Fatalf("CreateCard: %v", err)
	}
	if created.ID == 0 {
		t.Fatalf("expected id to be assigned")
	}

	cards, err := repo.ListCards(ctx)
	if err != nil {
		t.Fatalf("ListCards: %v", err)
	}
	if len(cards) != 1 {
		t.Fatalf("expected 1 card, got %d", len(cards))
	}
	got := cards[0]
	if got.Name != want.Name || got.Number != want.Number || got.Limit != want.Limit ||
		got.ExpMonth != want.ExpMonth || got.ExpYear != want.ExpYear || got.Type != want.Type ||
		string(got.Color) != string(want.Color) || !got.Timestamp.Equal(want.Timestamp) {
		t.Fatalf("card mismatch:\n got %+v\nwant %+v", got, want)
	}
}

func TestListCardsNewestFirst(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, name := range []string{"old", "new", "mid"} {
		c := sampleCard(name)
		c.Timestamp = base.Add(time.Duration([]int{0, 2, 1}[i]) * time.Hour)
		if _, err := repo.CreateCard(ctx, c); err != nil {
			t.Fatalf("CreateCard: %v", err)
		}
	}
	cards, err := repo.ListCards(ctx)
	if err != nil {
		t.Fatalf("ListCards: %v", err)
	}
	order := []string{cards[0].Name, cards[1].Name, cards[2].Name}
	if order[0] != "new" || order[1] != "mid" || order[2] != "old" {
		t.Fatalf("unexpected order %v", order)
	}
}

func TestUpdateCardOverwrites(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	c := mustCard(t, repo, "Before")

	c.Name = "After"
	c.Limit = 0
	c.Type = core.Discover
	c.ExpMonth = 12
	updated, err := repo.UpdateCard(ctx, c)
	if err != nil {
		t.Fatalf("UpdateCard: %v", err)
	}
	got, err := repo.GetCard(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetCard: %v", err)
	}
	if got.Name != "After" || got.Limit != 0 || got.Type != core.Discover || got.ExpMonth != 12 || updated.ID != c.ID {
		t.Fatalf("unexpected card after update: %+v", got)
	}

	missing := sampleCard("ghost")
	missing.ID = 999
	if _, err := repo.UpdateCard(ctx, missing); !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteCardRemovesTransactions(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	a := mustCard(t, repo, "A")
	b := mustCard(t, repo, "B")
	cat := mustCategory(t, repo, "Food")
	tx := mustTransaction(t, repo, a.ID, "lunch", time.Now(), cat.ID)
	mustTransaction(t, repo, b.ID, "dinner", time.Now())

	if err := repo.DeleteCard(ctx, a.ID); err != nil {
		t.Fatalf("DeleteCard: %v", err)
	}

	cards, _ := repo.ListCards(ctx)
	if len(cards) != 1 || cards[0].ID != b.ID {
		t.Fatalf("expected only card B left, got %+v", cards)
	}
	if _, err := repo.GetTransaction(ctx, tx.ID); !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("transaction of deleted card should be gone, got %v", err)
	}
	txs, _ := repo.ListTransactions(ctx, a.ID)
	if len(txs) != 0 {
		t.Fatalf("expected no transactions for deleted card, got %d", len(txs))
	}
	txs, _ = repo.ListTransactions(ctx, b.ID)
	if len(txs) != 1 {
		t.Fatalf("card B transactions should survive, got %d", len(txs))
	}
	cats, _ := repo.ListCategories(ctx)
	if len(cats) != 1 {
		t.Fatalf("categories must survive card deletion, got %d", len(cats))
	}

	if err := repo.DeleteCard(ctx, a.ID); !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestDeleteAllCards(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	a := mustCard(t, repo, "A")
	mustCard(t, repo, "B")
	mustTransaction(t, repo, a.ID, "x", time.Now())

	n, err := repo.DeleteAllCards(ctx)
	if err != nil {
		t.Fatalf("DeleteAllCards: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 deleted, got %d", n)
	}
	cards, _ := repo.ListCards(ctx)
	if len(cards) != 0 {
		t.Fatalf("expected no cards, got %d", len(cards))
	}
}

func TestTransactionsScopedToCard(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	a := mustCard(t, repo, "A")
	b := mustCard(t, repo, "B")
	mustTransaction(t, repo, a.ID, "only-a", time.Now())

	txs, err := repo.ListTransactions(ctx, b.ID)
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(txs) != 0 {
		t.Fatalf("card B must not see card A transactions, got %+v", txs)
	}
	txs, _ = repo.ListTransactions(ctx, a.ID)
	if len(txs) != 1 || txs[0].Name != "only-a" {
		t.Fatalf("unexpected transactions for A: %+v", txs)
	}
}

func TestTransactionsNewestFirstWithCategories(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	card := mustCard(t, repo, "A")
	food := mustCategory(t, repo, "Food")
	fun := mustCategory(t, repo, "Fun")
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	mustTransaction(t, repo, card.ID, "older", day, food.ID)
	mustTransaction(t, repo, card.ID, "newer", day.AddDate(0, 0, 1), food.ID, fun.ID, fun.ID, 404)

	txs, err := repo.ListTransactions(ctx, card.ID)
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(txs) != 2 || txs[0].Name != "newer" || txs[1].Name != "older" {
		t.Fatalf("unexpected order: %+v", txs)
	}
	if len(txs[0].Categories) != 2 {
		t.Fatalf("duplicate and unknown ids should collapse, got %+v", txs[0].Categories)
	}
	if !txs[0].Amount.Equal(decimal.RequireFromString("12.5")) {
		t.Fatalf("amount round trip failed: %s", txs[0].Amount)
	}
}

func TestCreateTransactionRequiresCard(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.CreateTransaction(context.Background(), core.CardTransaction{
		CardID: 42, Name: "orphan", Timestamp: time.Now(),
	}, nil)
	if !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTransactionPhotoRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	card := mustCard(t, repo, "A")
	photo := []byte{0xff, 0xd8, 0xff, 0x00, 0x01}
	created, err := repo.CreateTransaction(ctx, core.CardTransaction{
		CardID: card.ID, Name: "receipt", Timestamp: time.Now(), PhotoData: photo,
	}, nil)
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	got, err := repo.GetTransaction(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	if string(got.PhotoData) != string(photo) {
		t.Fatalf("photo mismatch: %v", got.PhotoData)
	}
}

func TestDeleteTransaction(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	card := mustCard(t, repo, "A")
	cat := mustCategory(t, repo, "Food")
	tx := mustTransaction(t, repo, card.ID, "x", time.Now(), cat.ID)

	if err := repo.DeleteTransaction(ctx, tx.ID); err != nil {
		t.Fatalf("DeleteTransaction: %v", err)
	}
	if err := repo.DeleteTransaction(ctx, tx.ID); !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteCategoryUnlinksTransactions(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	card := mustCard(t, repo, "A")
	food := mustCategory(t, repo, "Food")
	fun := mustCategory(t, repo, "Fun")
	mustTransaction(t, repo, card.ID, "both", time.Now(), food.ID, fun.ID)
	mustTransaction(t, repo, card.ID, "food-only", time.Now(), food.ID)

	if err := repo.DeleteCategory(ctx, food.ID); err != nil {
		t.Fatalf("DeleteCategory: %v", err)
	}

	txs, err := repo.ListTransactions(ctx, card.ID)
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("transactions must survive category deletion, got %d", len(txs))
	}
	for _, tx := range txs {
		for _, c := range tx.Categories {
			if c.ID == food.ID {
				t.Fatalf("deleted category still linked to %q", tx.Name)
			}
		}
	}
	cats, _ := repo.ListCategories(ctx)
	if len(cats) != 1 || cats[0].ID != fun.ID {
		t.Fatalf("unexpected categories left: %+v", cats)
	}
	if err := repo.DeleteCategory(ctx, food.ID); !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cards.db")
	repo, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	if _, err := repo.CreateCard(context.Background(), sampleCard("persisted")); err != nil {
		t.Fatalf("CreateCard: %v", err)
	}
	_ = repo.Close()

	repo, err = NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer repo.Close()
	cards, err := repo.ListCards(context.Background())
	if err != nil || len(cards) != 1 || cards[0].Name != "persisted" {
		t.Fatalf("unexpected cards after reopen: %+v err=%v", cards, err)
	}
}

func TestInTxRollsBack(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := repo.inTx(ctx, func(q *Queries) error {
		if _, err := q.CreateCard(ctx, cardToRow(core.Card{
			Name: "Rolled back", Number: "4111", ExpMonth: 1, ExpYear: 2030, Type: core.Visa, Timestamp: repo.now(),
		})); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("inTx error = %v, want boom", err)
	}
	if cards, _ := repo.ListCards(ctx); len(cards) != 0 {
		t.Errorf("rolled back card is visible: %d cards", len(cards))
	}
}
