package categories

import (
	"context"
	"errors"

	"github.com/angelmondragon/repairdesk-backend/internal/repo"
	"github.com/angelmondragon/repairdesk-backend/pkg/db/models"
	"gorm.io/gorm"
)

// ErrNotFound is returned when a category row is missing.
var ErrNotFound = errors.New("category not found")

// Repository persists categories.
type Repository struct {
	repo.Base
}

// NewRepository binds the repository to the provided connection.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{Base: r.Base.WithTx(tx)}
}

// List returns every category ordered by name.
func (r *Repository) List(ctx context.Context) ([]models.Category, error) {
	var rows []models.Category
	if err := r.DB(ctx).Order("name ASC").Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// FindByID loads a category.
func (r *Repository) FindByID(ctx context.Context, id int64) (*models.Category, error) {
	return repo.Take[models.Category](r.DB(ctx).Where("id = ?", id), ErrNotFound)
}

// Create inserts a category.
func (r *Repository) Create(ctx context.Context, category *models.Category) error {
	return r.DB(ctx).Create(category).Error
}

// Rename updates the category name.
func (r *Repository) Rename(ctx context.Context, id int64, name string) error {
	return r.DB(ctx).Model(&models.Category{ID: id}).Update("name", name).Error
}

// Delete removes a category.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	return r.DB(ctx).Delete(&models.Category{}, id).Error
}

// CountProducts counts products filed under the category, across all owners.
func (r *Repository) CountProducts(ctx context.Context, id int64) (int64, error) {
	var count int64
	err := r.DB(ctx).Model(&models.Product{}).Where("category_id = ?", id).Count(&count).Error
	return count, err
}
