package services

import (
	"context"
	"fmt"

	"cashflow/internal/core"
	"cashflow/internal/store"
)

// RecordService covers the plain CRUD records: categories, bill templates
// and settings.
type RecordService struct {
	store store.Store
}

func NewRecordService(s store.Store) *RecordService {
	return &RecordService{store: s}
}

func (s *RecordService) Categories(ctx context.Context, userID string) ([]core.Category, error) {
	cats, err := s.store.ListCategories(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}

func (s *RecordService) SaveCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	saved, err := s.store.SaveCategory(ctx, c)
	if err != nil {
		return core.Category{}, fmt.Errorf("save category: %w", err)
	}
	return saved, nil
}

func (s *RecordService) DeleteCategory(ctx context.Context, userID, id string) error {
	if err := s.store.DeleteCategory(ctx, userID, id); err != nil {
		return fmt.Errorf("delete category %s: %w", id, err)
	}
	return nil
}

func (s *RecordService) Templates(ctx context.Context, userID string) ([]core.BillTemplate, error) {
	tpls, err := s.store.ListTemplates(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	return tpls, nil
}

func (s *RecordService) SaveTemplate(ctx context.Context, t core.BillTemplate) (core.BillTemplate, error) {
	if err := t.Validate(); err != nil {
		return core.BillTemplate{}, err
	}
	saved, err := s.store.SaveTemplate(ctx, t)
	if err != nil {
		return core.BillTemplate{}, fmt.Errorf("save template: %w", err)
	}
	return saved, nil
}

func (s *RecordService) DeleteTemplate(ctx context.Context, userID, id string) error {
	if err := s.store.DeleteTemplate(ctx, userID, id); err != nil {
		return fmt.Errorf("delete template %s: %w", id, err)
	}
	return nil
}

// Settings returns stored settings or defaults.
func (s *RecordService) Settings(ctx context.Context, userID string) (core.Settings, error) {
	return LoadSettings(ctx, s.store, userID)
}

func (s *RecordService) SaveSettings(ctx context.Context, st core.Settings) error {
	if err := st.Validate(); err != nil {
		return err
	}
	if err := s.store.UpsertSettings(ctx, st); err != nil {
		return fmt.Errorf("upsert settings: %w", err)
	}
	return nil
}
