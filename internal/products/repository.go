package product

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/angelmondragon/repairdesk-backend/internal/repo"
	"github.com/angelmondragon/repairdesk-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrNotFound is returned when a product does not exist for the owner.
var ErrNotFound = errors.New("product not found")

// ListFilter narrows the owner's catalog listing.
type ListFilter struct {
	CategoryID *int64
	Query      string
	Limit      int
	// Cursor resumes after the given (created_at, id) position, newest first.
	CursorCreatedAt *time.Time
	CursorID        int64
}

// Repository wires together product persistence helpers.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func (r *Repository) owned(ctx context.Context, ownerID uuid.UUID) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Product{}).Where("products.owner_id = ?", ownerID)
}

// FindOwned loads the product with its category when it belongs to ownerID.
func (r *Repository) FindOwned(ctx context.Context, ownerID uuid.UUID, id int64) (*models.Product, error) {
	return repo.Take[models.Product](r.owned(ctx, ownerID).Preload("Category").Where("products.id = ?", id), ErrNotFound)
}

// List returns the owner's products newest first.
func (r *Repository) List(ctx context.Context, ownerID uuid.UUID, filter ListFilter) ([]models.Product, error) {
	q := r.owned(ctx, ownerID).Preload("Category")
	if filter.CategoryID != nil {
		q = q.Where("products.category_id = ?", *filter.CategoryID)
	}
	if term := strings.TrimSpace(filter.Query); term != "" {
		q = q.Where("LOWER(products.name) LIKE ?", "%"+strings.ToLower(term)+"%")
	}
	if filter.CursorCreatedAt != nil {
		q = q.Where("(products.created_at < ?) OR (products.created_at = ? AND products.id < ?)",
			*filter.CursorCreatedAt, *filter.CursorCreatedAt, filter.CursorID)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var products []models.Product
	if err := q.Order("products.created_at DESC").Order("products.id DESC").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// Create inserts the product row without touching its category.
func (r *Repository) Create(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Omit("Category").Create(product).Error
}

// UpdateDetails persists name, price and category. Stock is left to the ledger.
func (r *Repository) UpdateDetails(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).
		Model(&models.Product{ID: product.ID}).
		Select("name", "price", "category_id").
		Updates(map[string]any{
			"name":        product.Name,
			"price":       product.Price,
			"category_id": product.CategoryID,
		}).Error
}

// Delete removes the product row.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&models.Product{}, id).Error
}

// CountJobReferences counts repair job items that point at the product.
func (r *Repository) CountJobReferences(ctx context.Context, id int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.RepairJobItem{}).Where("product_id = ?", id).Count(&count).Error
	return count, err
}

// CategoryExists reports whether the category row exists.
func (r *Repository) CategoryExists(ctx context.Context, id int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Category{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}
