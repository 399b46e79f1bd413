package repository

import (
	"context"

	"gitlab.com/sgtreasury/tally/internal/database"
	"gitlab.com/sgtreasury/tally/internal/models"
)

const (
	sectionColumns = `id, club_id, title, definition, created_at, updated_at`
	itemColumns    = `id, section_id, label, category, allocated_cents, spent_cents, notes, created_at, updated_at`
)

// BudgetSectionRepository handles budget section database operations.
type BudgetSectionRepository struct {
	db database.PGXDB
}

// NewBudgetSectionRepository creates a new BudgetSectionRepository.
func NewBudgetSectionRepository(db database.PGXDB) *BudgetSectionRepository {
	return &BudgetSectionRepository{db: db}
}

func scanSection(s scanner) (*models.BudgetSection, error) {
	var b models.BudgetSection
	if err := s.Scan(&b.ID, &b.ClubID, &b.Title, &b.Definition, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

// Create adds a new budget section.
func (r *BudgetSectionRepository) Create(ctx context.Context, section *models.BudgetSection) error {
	ensureID(&section.ID)
	err := r.db.QueryRow(ctx, `
		INSERT INTO budget_sections (id, club_id, title, definition) VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`, section.ID, section.ClubID, section.Title, section.Definition,
	).Scan(&section.CreatedAt, &section.UpdatedAt)
	if err != nil {
		return wrap("create budget section", err)
	}
	return nil
}

// GetByID retrieves a budget section by ID.
func (r *BudgetSectionRepository) GetByID(ctx context.Context, id string) (*models.BudgetSection, error) {
	b, err := scanSection(r.db.QueryRow(ctx, `SELECT `+sectionColumns+` FROM budget_sections WHERE id = $1`, id))
	if err != nil {
		return nil, wrap("get budget section", err)
	}
	return b, nil
}

// List retrieves all budget sections, newest first.
func (r *BudgetSectionRepository) List(ctx context.Context) ([]models.BudgetSection, error) {
	rows, err := r.db.Query(ctx, `SELECT `+sectionColumns+` FROM budget_sections ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, wrap("query budget sections", err)
	}
	return collect(rows, "budget section", scanSection)
}

// ListByClub retrieves a club's budget sections.
func (r *BudgetSectionRepository) ListByClub(ctx context.Context, clubID string) ([]models.BudgetSection, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+sectionColumns+` FROM budget_sections
		WHERE club_id = $1
		ORDER BY created_at DESC, id DESC
	`, clubID)
	if err != nil {
		return nil, wrap("query budget sections by club", err)
	}
	return collect(rows, "budget section", scanSection)
}

// Totals sums allocated and spent cents per section of a club. Sections
// without items report zero.
func (r *BudgetSectionRepository) Totals(ctx context.Context, clubID string) ([]models.SectionTotal, error) {
	rows, err := r.db.Query(ctx, `
		SELECT s.id, s.title,
		       COALESCE(SUM(i.allocated_cents), 0)::BIGINT,
		       COALESCE(SUM(i.spent_cents), 0)::BIGINT
		FROM budget_sections s
		LEFT JOIN budget_items i ON i.section_id = s.id
		WHERE s.club_id = $1
		GROUP BY s.id, s.title
		ORDER BY s.title, s.id
	`, clubID)
	if err != nil {
		return nil, wrap("query budget totals", err)
	}
	return collect(rows, "budget total", func(s scanner) (*models.SectionTotal, error) {
		var t models.SectionTotal
		if err := s.Scan(&t.SectionID, &t.Title, &t.AllocatedCents, &t.SpentCents); err != nil {
			return nil, err
		}
		return &t, nil
	})
}

// Update writes the section's title and definition.
func (r *BudgetSectionRepository) Update(ctx context.Context, section *models.BudgetSection) error {
	err := r.db.QueryRow(ctx, `
		UPDATE budget_sections SET title = $2, definition = $3, updated_at = NOW() WHERE id = $1
		RETURNING updated_at
	`, section.ID, section.Title, section.Definition).Scan(&section.UpdatedAt)
	if err != nil {
		return wrap("update budget section", err)
	}
	return nil
}

// Delete removes a budget section and its items.
func (r *BudgetSectionRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM budget_sections WHERE id = $1`, id)
	if err != nil {
		return wrap("delete budget section", err)
	}
	if tag.RowsAffected() == 0 {
		return wrap("delete budget section", ErrNotFound)
	}
	return nil
}

// BudgetItemRepository handles budget item database operations.
type BudgetItemRepository struct {
	db database.PGXDB
}

// NewBudgetItemRepository creates a new BudgetItemRepository.
func NewBudgetItemRepository(db database.PGXDB) *BudgetItemRepository {
	return &BudgetItemRepository{db: db}
}

func scanItem(s scanner) (*models.BudgetItem, error) {
	var i models.BudgetItem
	err := s.Scan(&i.ID, &i.SectionID, &i.Label, &i.Category, &i.AllocatedCents, &i.SpentCents,
		&i.Notes, &i.CreatedAt, &i.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &i, nil
}

// Create adds a new budget item.
func (r *BudgetItemRepository) Create(ctx context.Context, item *models.BudgetItem) error {
	ensureID(&item.ID)
	err := r.db.QueryRow(ctx, `
		INSERT INTO budget_items (id, section_id, label, category, allocated_cents, spent_cents, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`, item.ID, item.SectionID, item.Label, item.Category, item.AllocatedCents, item.SpentCents, item.Notes,
	).Scan(&item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return wrap("create budget item", err)
	}
	return nil
}

// GetByID retrieves a budget item by ID.
func (r *BudgetItemRepository) GetByID(ctx context.Context, id string) (*models.BudgetItem, error) {
	i, err := scanItem(r.db.QueryRow(ctx, `SELECT `+itemColumns+` FROM budget_items WHERE id = $1`, id))
	if err != nil {
		return nil, wrap("get budget item", err)
	}
	return i, nil
}

// List retrieves all budget items, newest first.
func (r *BudgetItemRepository) List(ctx context.Context) ([]models.BudgetItem, error) {
	rows, err := r.db.Query(ctx, `SELECT `+itemColumns+` FROM budget_items ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, wrap("query budget items", err)
	}
	return collect(rows, "budget item", scanItem)
}

// ListBySection retrieves the items of a budget section.
func (r *BudgetItemRepository) ListBySection(ctx context.Context, sectionID string) ([]models.BudgetItem, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+itemColumns+` FROM budget_items
		WHERE section_id = $1
		ORDER BY created_at DESC, id DESC
	`, sectionID)
	if err != nil {
		return nil, wrap("query budget items by section", err)
	}
	return collect(rows, "budget item", scanItem)
}

// Update writes every mutable column of item.
func (r *BudgetItemRepository) Update(ctx context.Context, item *models.BudgetItem) error {
	err := r.db.QueryRow(ctx, `
		UPDATE budget_items SET
			label = $2, category = $3, allocated_cents = $4, spent_cents = $5, notes = $6,
			updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`, item.ID, item.Label, item.Category, item.AllocatedCents, item.SpentCents, item.Notes,
	).Scan(&item.UpdatedAt)
	if err != nil {
		return wrap("update budget item", err)
	}
	return nil
}

// Delete removes a budget item by ID.
func (r *BudgetItemRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM budget_items WHERE id = $1`, id)
	if err != nil {
		return wrap("delete budget item", err)
	}
	if tag.RowsAffected() == 0 {
		return wrap("delete budget item", ErrNotFound)
	}
	return nil
}
