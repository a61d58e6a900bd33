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

type CategoryService struct {
	store ports.CategoryStore
	lists ListInvalidator
	now   func() time.Time
}

func NewCategoryService(store ports.CategoryStore) *CategoryService {
	return &CategoryService{store: store, lists: noLists{}, now: time.Now}
}

// WithLists makes category deletions drop every cached transaction list,
// since any of them may carry the category.
func (s *CategoryService) WithLists(lists ListInvalidator) *CategoryService {
	s.lists = lists
	return s
}

func (s *CategoryService) List(ctx context.Context) ([]core.TransactionCategory, error) {
	cats, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}

func (s *CategoryService) Create(ctx context.Context, name string, color core.Color) (core.TransactionCategory, error) {
	c := core.TransactionCategory{Name: name, Color: color.Encode()}
	if err := c.Validate(); err != nil {
		return core.TransactionCategory{}, core.Invalid(err)
	}
	c.Timestamp = s.now()
	created, err := s.store.CreateCategory(ctx, c)
	if err != nil {
		return core.TransactionCategory{}, fmt.Errorf("create category: %w", err)
	}
	slog.InfoContext(ctx, "Category created", applog.FieldComponent, applog.ComponentCategory, applog.FieldCategoryID, created.ID)
	return created, nil
}

// Delete removes the category; transactions that carried it keep their other categories.
func (s *CategoryService) Delete(ctx context.Context, id int64) error {
	if err := s.store.DeleteCategory(ctx, id); err != nil {
		return fmt.Errorf("delete category %d: %w", id, err)
	}
	s.lists.ForgetAll()
	slog.InfoContext(ctx, "Category deleted", applog.FieldComponent, applog.ComponentCategory, applog.FieldCategoryID, id)
	return nil
}
