package repairjobs

import (
	"context"
	"errors"
	"time"

	"github.com/angelmondragon/repairdesk-backend/internal/repo"
	"github.com/angelmondragon/repairdesk-backend/pkg/db/models"
	"github.com/angelmondragon/repairdesk-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// visibleToOwner matches jobs with at least one item whose product belongs to the owner.
const visibleToOwner = `EXISTS (
	SELECT 1 FROM repair_job_items vi
	JOIN products vp ON vp.id = vi.product_id
	WHERE vi.repair_job_id = repair_jobs.id AND vp.owner_id = ?
)`

// ErrNotFound is returned when a job is missing or not visible to the owner.
var ErrNotFound = errors.New("repair job not found")

// ListFilter narrows job listings.
type ListFilter struct {
	Status *enums.JobStatus
	Limit  int
	// Cursor resumes after the given (created_at, id) position, newest first.
	CursorCreatedAt *time.Time
	CursorID        int64
}

// SummaryRow holds the aggregate figures behind the analytics view.
type SummaryRow struct {
	Count      int64
	TotalSales decimal.Decimal
	PartsCost  decimal.Decimal
}

// Repository persists repair jobs and answers the catalog lookups the job
// service needs inside its transaction.
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

func (r *Repository) visible(ctx context.Context, ownerID uuid.UUID) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.RepairJob{}).Where(visibleToOwner, ownerID)
}

// FindVisible loads a job with its customer and items (with products) when the
// owner can see it.
func (r *Repository) FindVisible(ctx context.Context, ownerID uuid.UUID, id int64) (*models.RepairJob, error) {
	q := r.visible(ctx, ownerID).
		Preload("Customer").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("repair_job_items.id ASC") }).
		Preload("Items.Product").
		Where("repair_jobs.id = ?", id)
	return repo.Take[models.RepairJob](q, ErrNotFound)
}

// lockRow selects the visible job row FOR UPDATE. Sqlite has no row locks and
// its dialect drops the clause.
func (r *Repository) lockRow(ctx context.Context, ownerID uuid.UUID, id int64) *gorm.DB {
	return r.visible(ctx, ownerID).
		Clauses(clause.Locking{Strength: "UPDATE", Table: clause.Table{Name: "repair_jobs"}}).
		Select("repair_jobs.id").
		Where("repair_jobs.id = ?", id)
}

// FindVisibleForUpdate locks the job row for the rest of the transaction and
// then loads it like FindVisible. Concurrent writers of the same job queue on
// the lock, so the items read here are the ones the caller reconciles against.
// Call it on a repository bound to a transaction.
func (r *Repository) FindVisibleForUpdate(ctx context.Context, ownerID uuid.UUID, id int64) (*models.RepairJob, error) {
	if _, err := repo.Take[models.RepairJob](r.lockRow(ctx, ownerID, id), ErrNotFound); err != nil {
		return nil, err
	}
	return r.FindVisible(ctx, ownerID, id)
}

// List returns visible jobs newest first.
func (r *Repository) List(ctx context.Context, ownerID uuid.UUID, filter ListFilter) ([]models.RepairJob, error) {
	q := r.visible(ctx, ownerID).
		Preload("Customer").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("repair_job_items.id ASC") }).
		Preload("Items.Product")
	if filter.Status != nil {
		q = q.Where("repair_jobs.status = ?", *filter.Status)
	}
	if filter.CursorCreatedAt != nil {
		q = q.Where("(repair_jobs.created_at < ?) OR (repair_jobs.created_at = ? AND repair_jobs.id < ?)",
			*filter.CursorCreatedAt, *filter.CursorCreatedAt, filter.CursorID)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var jobs []models.RepairJob
	if err := q.Order("repair_jobs.created_at DESC").Order("repair_jobs.id DESC").Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

// Summary aggregates sale price and parts cost over visible jobs.
func (r *Repository) Summary(ctx context.Context, ownerID uuid.UUID, status *enums.JobStatus) (SummaryRow, error) {
	jobs := r.visible(ctx, ownerID)
	if status != nil {
		jobs = jobs.Where("repair_jobs.status = ?", *status)
	}

	var row SummaryRow
	if err := jobs.Session(&gorm.Session{}).Count(&row.Count).Error; err != nil {
		return SummaryRow{}, err
	}
	if row.Count == 0 {
		return row, nil
	}

	var sales struct{ Total decimal.Decimal }
	if err := jobs.Session(&gorm.Session{}).Select("COALESCE(SUM(repair_jobs.sale_price), 0) AS total").Scan(&sales).Error; err != nil {
		return SummaryRow{}, err
	}
	row.TotalSales = sales.Total

	var parts struct{ Total decimal.Decimal }
	err := r.db.WithContext(ctx).
		Table("repair_job_items").
		Select("COALESCE(SUM(repair_job_items.quantity * repair_job_items.unit_cost), 0) AS total").
		Where("repair_job_items.repair_job_id IN (?)", jobs.Session(&gorm.Session{}).Select("repair_jobs.id")).
		Scan(&parts).Error
	if err != nil {
		return SummaryRow{}, err
	}
	row.PartsCost = parts.Total
	return row, nil
}

// Create inserts the job row only; items are written by ReplaceItems.
func (r *Repository) Create(ctx context.Context, job *models.RepairJob) error {
	return r.db.WithContext(ctx).Omit("Customer", "Items").Create(job).Error
}

// SaveDetails writes the editable fields of a job. Lifecycle columns are left
// to SaveLifecycle so an edit never rewrites a concurrent status change.
func (r *Repository) SaveDetails(ctx context.Context, job *models.RepairJob, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.RepairJob{ID: job.ID}).
		Select("customer_id", "sale_price", "notes", "updated_at").
		Updates(map[string]any{
			"customer_id": job.CustomerID,
			"sale_price":  job.SalePrice,
			"notes":       job.Notes,
			"updated_at":  at,
		}).Error
}

// SaveLifecycle writes only the status and return-tracking columns.
func (r *Repository) SaveLifecycle(ctx context.Context, job *models.RepairJob, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.RepairJob{ID: job.ID}).
		Select("status", "completed_at", "is_returned_to_customer", "returned_at", "updated_at").
		Updates(map[string]any{
			"status":                  job.Status,
			"completed_at":            job.CompletedAt,
			"is_returned_to_customer": job.IsReturnedToCustomer,
			"returned_at":             job.ReturnedAt,
			"updated_at":              at,
		}).Error
}

// ReplaceItems deletes every item of the job and inserts the new rows.
func (r *Repository) ReplaceItems(ctx context.Context, jobID int64, items []models.RepairJobItem) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("repair_job_id = ?", jobID).Delete(&models.RepairJobItem{}).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	rows := make([]models.RepairJobItem, len(items))
	for i, item := range items {
		rows[i] = models.RepairJobItem{
			RepairJobID: jobID,
			ProductID:   item.ProductID,
			Quantity:    item.Quantity,
			UnitCost:    item.UnitCost,
		}
	}
	return db.Omit("Product").Create(&rows).Error
}

// FindOwnedProducts loads the products among ids that belong to the owner.
func (r *Repository) FindOwnedProducts(ctx context.Context, ownerID uuid.UUID, ids []int64) ([]models.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var products []models.Product
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND id IN ?", ownerID, ids).
		Order("id ASC").
		Find(&products).Error
	return products, err
}

// CustomerExists reports whether a customer row exists.
func (r *Repository) CustomerExists(ctx context.Context, id int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Customer{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}
