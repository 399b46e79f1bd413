package service

import (
	"context"

	"gitlab.com/sgtreasury/tally/internal/models"
	"gitlab.com/sgtreasury/tally/internal/report"
	"gitlab.com/sgtreasury/tally/internal/validation"
)

// BudgetService manages budget sections and their line items.
type BudgetService struct {
	sections BudgetSectionStore
	items    BudgetItemStore
	clubs    ClubStore
}

// NewBudgetService creates a BudgetService.
func NewBudgetService(sections BudgetSectionStore, items BudgetItemStore, clubs ClubStore) *BudgetService {
	return &BudgetService{sections: sections, items: items, clubs: clubs}
}

// CreateSection inserts a budget section.
func (s *BudgetService) CreateSection(ctx context.Context, in *validation.BudgetSectionInput) (*models.BudgetSection, error) {
	section := &models.BudgetSection{ClubID: in.ClubID, Title: in.Title, Definition: in.Definition}
	if err := s.sections.Create(ctx, section); err != nil {
		return nil, err
	}
	return section, nil
}

// GetSection returns a section by id.
func (s *BudgetService) GetSection(ctx context.Context, id string) (*models.BudgetSection, error) {
	return s.sections.GetByID(ctx, id)
}

// ListSections returns every section.
func (s *BudgetService) ListSections(ctx context.Context) ([]models.BudgetSection, error) {
	return s.sections.List(ctx)
}

// ListSectionsByClub returns the club's sections.
func (s *BudgetService) ListSectionsByClub(ctx context.Context, clubID string) ([]models.BudgetSection, error) {
	return s.sections.ListByClub(ctx, clubID)
}

// UpdateSection patches a section.
func (s *BudgetService) UpdateSection(ctx context.Context, id string, patch *validation.BudgetSectionPatch) (*models.BudgetSection, error) {
	section, err := s.sections.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	patch.Apply(section)
	if section.Title == "" {
		return nil, validation.Invalid("title", "required")
	}
	if err := s.sections.Update(ctx, section); err != nil {
		return nil, err
	}
	return section, nil
}

// DeleteSection removes a section and its items.
func (s *BudgetService) DeleteSection(ctx context.Context, id string) error {
	return s.sections.Delete(ctx, id)
}

// CreateItem inserts a line item after checking spent ≤ allocated.
func (s *BudgetService) CreateItem(ctx context.Context, in *validation.BudgetItemInput) (*models.BudgetItem, error) {
	item := in.ToModel()
	if err := validation.BudgetItem(item); err != nil {
		return nil, err
	}
	if err := s.items.Create(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// GetItem returns a line item by id.
func (s *BudgetService) GetItem(ctx context.Context, id string) (*models.BudgetItem, error) {
	return s.items.GetByID(ctx, id)
}

// ListItems returns every line item.
func (s *BudgetService) ListItems(ctx context.Context) ([]models.BudgetItem, error) {
	return s.items.List(ctx)
}

// ListItemsBySection returns the section's line items.
func (s *BudgetService) ListItemsBySection(ctx context.Context, sectionID string) ([]models.BudgetItem, error) {
	return s.items.ListBySection(ctx, sectionID)
}

// UpdateItem patches a line item. The merged row must still have
// spent ≤ allocated.
func (s *BudgetService) UpdateItem(ctx context.Context, id string, patch *validation.BudgetItemPatch) (*models.BudgetItem, error) {
	item, err := s.items.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	patch.Apply(item)
	if err := validation.BudgetItem(item); err != nil {
		return nil, err
	}
	if err := s.items.Update(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// DeleteItem removes a line item.
func (s *BudgetService) DeleteItem(ctx context.Context, id string) error {
	return s.items.Delete(ctx, id)
}

// Chart renders the club's allocated budget per section as a PNG.
func (s *BudgetService) Chart(ctx context.Context, clubID string) ([]byte, error) {
	club, err := s.clubs.GetByID(ctx, clubID)
	if err != nil {
		return nil, err
	}
	totals, err := s.sections.Totals(ctx, clubID)
	if err != nil {
		return nil, err
	}
	return report.BudgetChart(club.Name, totals)
}
