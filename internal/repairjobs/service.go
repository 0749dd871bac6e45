package repairjobs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/repairdesk-backend/internal/inventory"
	"github.com/angelmondragon/repairdesk-backend/pkg/db/models"
	"github.com/angelmondragon/repairdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/repairdesk-backend/pkg/errors"
	"github.com/angelmondragon/repairdesk-backend/pkg/logger"
	"github.com/angelmondragon/repairdesk-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const maxNotesLength = 500

var (
	minSalePrice = decimal.RequireFromString("0.01")
	maxSalePrice = decimal.NewFromInt(1_000_000)
)

// Service orchestrates repair job writes. Create and Update run in a single
// transaction together with the inventory ledger.
type Service interface {
	Create(ctx context.Context, ownerID uuid.UUID, req CreateJobRequest) (*JobView, error)
	Update(ctx context.Context, ownerID uuid.UUID, jobID int64, req UpdateJobRequest) (*JobView, error)
	UpdateStatus(ctx context.Context, ownerID uuid.UUID, jobID int64, req UpdateStatusRequest) (*JobView, error)
	Get(ctx context.Context, ownerID uuid.UUID, jobID int64) (*JobView, error)
	List(ctx context.Context, ownerID uuid.UUID, params ListParams) (*JobListResult, error)
	Summary(ctx context.Context, ownerID uuid.UUID, status string) (*SummaryView, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type stockLedger interface {
	Apply(ctx context.Context, tx *gorm.DB, batch inventory.Batch, src inventory.Source) error
}

type service struct {
	repo   *Repository
	tx     txRunner
	ledger stockLedger
	logg   *logger.Logger
	now    func() time.Time
}

// NewService constructs the job service.
func NewService(repo *Repository, tx txRunner, ledger stockLedger, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("repair job repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("inventory ledger required")
	}
	return &service{
		repo:   repo,
		tx:     tx,
		ledger: ledger,
		logg:   logg,
		now:    time.Now,
	}, nil
}

func (s *service) Create(ctx context.Context, ownerID uuid.UUID, req CreateJobRequest) (*JobView, error) {
	if err := validateScalars(req.SalePrice, req.Notes); err != nil {
		return nil, err
	}
	if len(req.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Add at least one product line item.").
			WithReason(pkgerrors.ReasonEmptyLineItems)
	}
	for _, line := range req.Items {
		if line.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("Quantity for product %d must be greater than zero.", line.ProductID)).
				WithReason(pkgerrors.ReasonInvalidQuantity).
				WithDetails(map[string]any{"product_id": line.ProductID, "quantity": line.Quantity})
		}
	}

	var created *models.RepairJob
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if req.CustomerID != nil {
			if err := requireCustomer(ctx, repo, *req.CustomerID); err != nil {
				return err
			}
		}

		prices, err := resolveProducts(ctx, repo, ownerID, ProductIDs(req.Items))
		if err != nil {
			return err
		}
		plan, err := Diff(nil, req.Items, prices)
		if err != nil {
			return err
		}

		job := &models.RepairJob{
			CustomerID: req.CustomerID,
			SalePrice:  req.SalePrice,
			Notes:      normalizeNotes(req.Notes),
			Status:     enums.JobStatusNew,
		}
		if err := repo.Create(ctx, job); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create repair job")
		}
		if err := s.ledger.Apply(ctx, tx, plan.Batch(), inventory.Source{JobID: &job.ID, ActorID: ownerID}); err != nil {
			return err
		}
		if err := repo.ReplaceItems(ctx, job.ID, plan.Items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create repair job items")
		}

		created, err = repo.FindVisible(ctx, ownerID, job.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload repair job")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithJobID(ctx, created.ID)
		logCtx = s.logg.WithField(logCtx, "items", len(created.Items))
		s.logg.Info(logCtx, "repair_job.created")
	}
	return NewJobView(created), nil
}

func (s *service) Update(ctx context.Context, ownerID uuid.UUID, jobID int64, req UpdateJobRequest) (*JobView, error) {
	if err := validateScalars(req.SalePrice, req.Notes); err != nil {
		return nil, err
	}

	var (
		updated *models.RepairJob
		plan    Plan
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if req.CustomerID != nil {
			if err := requireCustomer(ctx, repo, *req.CustomerID); err != nil {
				return err
			}
		}

		job, err := lockVisible(ctx, repo, ownerID, jobID)
		if err != nil {
			return err
		}

		job.CustomerID = req.CustomerID
		job.SalePrice = req.SalePrice
		job.Notes = normalizeNotes(req.Notes)

		if req.Items != nil {
			incoming, err := FilterLineItems(*req.Items)
			if err != nil {
				return err
			}
			prices, err := resolveProducts(ctx, repo, ownerID, ProductIDs(incoming))
			if err != nil {
				return err
			}
			plan, err = Diff(job.Items, incoming, prices)
			if err != nil {
				return err
			}
			if err := s.ledger.Apply(ctx, tx, plan.Batch(), inventory.Source{JobID: &job.ID, ActorID: ownerID}); err != nil {
				return err
			}
			if err := repo.ReplaceItems(ctx, job.ID, plan.Items); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "replace repair job items")
			}
		}

		if err := repo.SaveDetails(ctx, job, s.now().UTC()); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update repair job")
		}
		updated, err = repo.FindVisible(ctx, ownerID, job.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload repair job")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithJobID(ctx, jobID)
		logCtx = s.logg.WithFields(logCtx, map[string]any{
			"items_replaced": req.Items != nil,
			"releases":       len(plan.Releases),
			"adjustments":    len(plan.Adjustments),
			"additions":      len(plan.Additions),
		})
		s.logg.Info(logCtx, "repair_job.updated")
	}
	return NewJobView(updated), nil
}

func (s *service) UpdateStatus(ctx context.Context, ownerID uuid.UUID, jobID int64, req UpdateStatusRequest) (*JobView, error) {
	var (
		job      *models.RepairJob
		previous enums.JobStatus
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		locked, err := lockVisible(ctx, repo, ownerID, jobID)
		if err != nil {
			return err
		}
		previous = locked.Status

		now := s.now().UTC()
		change := StatusChange{Status: req.Status, IsReturnedToCustomer: req.IsReturnedToCustomer}
		if err := ApplyStatus(locked, change, now); err != nil {
			return err
		}
		if err := repo.SaveLifecycle(ctx, locked, now); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update repair job status")
		}
		locked.UpdatedAt = now
		job = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithJobID(ctx, jobID)
		logCtx = s.logg.WithFields(logCtx, map[string]any{
			"from":     previous,
			"to":       job.Status,
			"returned": job.IsReturnedToCustomer,
		})
		s.logg.Info(logCtx, "repair_job.status_changed")
	}
	return NewJobView(job), nil
}

func (s *service) Get(ctx context.Context, ownerID uuid.UUID, jobID int64) (*JobView, error) {
	job, err := loadVisible(ctx, s.repo, ownerID, jobID)
	if err != nil {
		return nil, err
	}
	return NewJobView(job), nil
}

func (s *service) List(ctx context.Context, ownerID uuid.UUID, params ListParams) (*JobListResult, error) {
	status, err := parseStatusFilter(params.Status)
	if err != nil {
		return nil, err
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	filter := ListFilter{Status: status, Limit: pagination.LimitWithBuffer(params.Limit)}
	if cursor != nil {
		filter.CursorCreatedAt = &cursor.CreatedAt
		filter.CursorID = cursor.ID
	}

	jobs, err := s.repo.List(ctx, ownerID, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list repair jobs")
	}

	jobs, next := pagination.Trim(jobs, params.Limit, func(j models.RepairJob) pagination.Cursor {
		return pagination.Cursor{CreatedAt: j.CreatedAt, ID: j.ID}
	})
	result := &JobListResult{Jobs: make([]JobView, 0, len(jobs)), NextCursor: next}
	for i := range jobs {
		result.Jobs = append(result.Jobs, *NewJobView(&jobs[i]))
	}
	return result, nil
}

func (s *service) Summary(ctx context.Context, ownerID uuid.UUID, status string) (*SummaryView, error) {
	filter, err := parseStatusFilter(status)
	if err != nil {
		return nil, err
	}
	row, err := s.repo.Summary(ctx, ownerID, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "summarize repair jobs")
	}
	return newSummaryView(row), nil
}

func loadVisible(ctx context.Context, repo *Repository, ownerID uuid.UUID, jobID int64) (*models.RepairJob, error) {
	job, err := repo.FindVisible(ctx, ownerID, jobID)
	return job, jobLookupError(jobID, err)
}

// lockVisible is loadVisible under the job's row lock; repo must be bound to a
// transaction.
func lockVisible(ctx context.Context, repo *Repository, ownerID uuid.UUID, jobID int64) (*models.RepairJob, error) {
	job, err := repo.FindVisibleForUpdate(ctx, ownerID, jobID)
	return job, jobLookupError(jobID, err)
}

func jobLookupError(jobID int64, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound):
		return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("Repair job %d not found.", jobID)).
			WithReason(pkgerrors.ReasonJobNotFound)
	default:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load repair job")
	}
}

func requireCustomer(ctx context.Context, repo *Repository, customerID int64) error {
	ok, err := repo.CustomerExists(ctx, customerID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check customer")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("Customer %d does not exist.", customerID)).
			WithReason(pkgerrors.ReasonUnknownCustomer).
			WithDetails(map[string]any{"customer_id": customerID})
	}
	return nil
}

// resolveProducts is the single ownership check for a write: every id must be
// a product owned by ownerID. It returns the current price of each.
func resolveProducts(ctx context.Context, repo *Repository, ownerID uuid.UUID, ids []int64) (map[int64]decimal.Decimal, error) {
	products, err := repo.FindOwnedProducts(ctx, ownerID, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}
	prices := make(map[int64]decimal.Decimal, len(products))
	for _, p := range products {
		prices[p.ID] = p.Price
	}
	for _, id := range ids {
		if _, ok := prices[id]; !ok {
			return nil, unknownProduct(id)
		}
	}
	return prices, nil
}

func validateScalars(salePrice decimal.Decimal, notes *string) error {
	if salePrice.LessThan(minSalePrice) || salePrice.GreaterThan(maxSalePrice) {
		return pkgerrors.New(pkgerrors.CodeValidation, "Sale price must be between 0.01 and 1000000.").
			WithDetails(map[string]any{"field": "salePrice"})
	}
	if notes != nil && len([]rune(*notes)) > maxNotesLength {
		return pkgerrors.New(pkgerrors.CodeValidation, "Notes must be at most 500 characters.").
			WithDetails(map[string]any{"field": "notes"})
	}
	return nil
}

func normalizeNotes(notes *string) *string {
	if notes == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*notes)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func parseStatusFilter(raw string) (*enums.JobStatus, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	status, err := enums.ParseJobStatus(raw)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeBusinessRule, fmt.Sprintf("Unknown status %q.", raw)).
			WithReason(pkgerrors.ReasonUnknownStatus)
	}
	return &status, nil
}
