package customers

import (
	"context"
	"errors"
	"strings"

	"github.com/angelmondragon/repairdesk-backend/internal/repo"
	"github.com/angelmondragon/repairdesk-backend/pkg/db/models"
	"gorm.io/gorm"
)

// ErrNotFound is returned when a customer row is missing.
var ErrNotFound = errors.New("customer not found")

// Repository persists customers.
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

// List returns customers ordered by name, optionally filtered by a search term
// matched against names, email and phone.
func (r *Repository) List(ctx context.Context, search string, limit, offset int) ([]models.Customer, error) {
	q := r.DB(ctx).Model(&models.Customer{})
	if term := strings.ToLower(strings.TrimSpace(search)); term != "" {
		like := "%" + term + "%"
		q = q.Where(
			"LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(COALESCE(email, '')) LIKE ? OR COALESCE(phone_number, '') LIKE ?",
			like, like, like, like,
		)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}

	var rows []models.Customer
	if err := q.Order("first_name ASC").Order("last_name ASC").Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// FindByID loads a customer.
func (r *Repository) FindByID(ctx context.Context, id int64) (*models.Customer, error) {
	return repo.Take[models.Customer](r.DB(ctx).Where("id = ?", id), ErrNotFound)
}

// JobIDs lists the repair jobs booked for the customer.
func (r *Repository) JobIDs(ctx context.Context, id int64) ([]int64, error) {
	var ids []int64
	err := r.DB(ctx).Model(&models.RepairJob{}).Where("customer_id = ?", id).Order("id ASC").Pluck("id", &ids).Error
	return ids, err
}

// Create inserts a customer.
func (r *Repository) Create(ctx context.Context, customer *models.Customer) error {
	return r.DB(ctx).Create(customer).Error
}

// Update persists the contact fields.
func (r *Repository) Update(ctx context.Context, customer *models.Customer) error {
	return r.DB(ctx).
		Model(&models.Customer{ID: customer.ID}).
		Select("first_name", "last_name", "email", "phone_number").
		Updates(map[string]any{
			"first_name":   customer.FirstName,
			"last_name":    customer.LastName,
			"email":        customer.Email,
			"phone_number": customer.PhoneNumber,
		}).Error
}

// DetachJobs clears the customer reference on every job booked for them.
func (r *Repository) DetachJobs(ctx context.Context, id int64) (int64, error) {
	res := r.DB(ctx).Model(&models.RepairJob{}).Where("customer_id = ?", id).Update("customer_id", nil)
	return res.RowsAffected, res.Error
}

// Delete removes a customer.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	return r.DB(ctx).Delete(&models.Customer{}, id).Error
}
