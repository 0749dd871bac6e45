package customers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/repairdesk-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/repairdesk-backend/pkg/errors"
	"github.com/angelmondragon/repairdesk-backend/pkg/logger"
	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// CustomerInput is the payload for create and update.
type CustomerInput struct {
	FirstName   string  `json:"firstName" validate:"required,max=50"`
	LastName    string  `json:"lastName" validate:"max=50"`
	Email       *string `json:"email" validate:"omitempty,max=120"`
	PhoneNumber *string `json:"phoneNumber" validate:"omitempty,max=25"`
}

// CustomerDTO is the customer payload returned to clients.
type CustomerDTO struct {
	ID           int64     `json:"id"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Email        *string   `json:"email"`
	PhoneNumber  *string   `json:"phoneNumber"`
	RepairJobIDs []int64   `json:"repairJobIds,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// ListInput holds the listing filters.
type ListInput struct {
	Search string
	Limit  int
	Offset int
}

// Service manages the shared customer registry.
type Service interface {
	List(ctx context.Context, input ListInput) ([]CustomerDTO, error)
	Get(ctx context.Context, id int64) (*CustomerDTO, error)
	Create(ctx context.Context, input CustomerInput) (*CustomerDTO, error)
	Update(ctx context.Context, id int64, input CustomerInput) (*CustomerDTO, error)
	Delete(ctx context.Context, id int64) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo     *Repository
	tx       txRunner
	logg     *logger.Logger
	validate *validator.Validate
}

// NewService constructs the customer service.
func NewService(repo *Repository, tx txRunner, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("customer repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx, logg: logg, validate: validator.New()}, nil
}

func (s *service) List(ctx context.Context, input ListInput) ([]CustomerDTO, error) {
	limit := input.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := input.Offset
	if offset < 0 {
		offset = 0
	}
	rows, err := s.repo.List(ctx, input.Search, limit, offset)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list customers")
	}
	out := make([]CustomerDTO, 0, len(rows))
	for i := range rows {
		out = append(out, toDTO(&rows[i], nil))
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, id int64) (*CustomerDTO, error) {
	customer, err := load(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	jobIDs, err := s.repo.JobIDs(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list customer jobs")
	}
	dto := toDTO(customer, jobIDs)
	return &dto, nil
}

func (s *service) Create(ctx context.Context, input CustomerInput) (*CustomerDTO, error) {
	customer, err := s.normalize(input)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, customer); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create customer")
	}
	dto := toDTO(customer, nil)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, id int64, input CustomerInput) (*CustomerDTO, error) {
	changes, err := s.normalize(input)
	if err != nil {
		return nil, err
	}
	changes.ID = id
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if _, err := load(ctx, txRepo, id); err != nil {
			return err
		}
		if err := txRepo.Update(ctx, changes); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update customer")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Delete removes the customer. Jobs booked for them are kept with no customer.
func (s *service) Delete(ctx context.Context, id int64) error {
	var detached int64
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if _, err := load(ctx, txRepo, id); err != nil {
			return err
		}
		n, err := txRepo.DetachJobs(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "detach customer jobs")
		}
		detached = n
		if err := txRepo.Delete(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete customer")
		}
		return nil
	})
	if err != nil {
		return err
	}
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{"customer_id": id, "jobs_detached": detached})
		s.logg.Info(logCtx, "customer.deleted")
	}
	return nil
}

func (s *service) normalize(input CustomerInput) (*models.Customer, error) {
	customer := &models.Customer{
		FirstName:   strings.TrimSpace(input.FirstName),
		LastName:    strings.TrimSpace(input.LastName),
		Email:       trimOptional(input.Email),
		PhoneNumber: trimOptional(input.PhoneNumber),
	}
	if customer.FirstName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "firstName is required")
	}
	if len([]rune(customer.FirstName)) > 50 || len([]rune(customer.LastName)) > 50 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "names must be at most 50 characters")
	}
	if customer.Email != nil {
		lowered := strings.ToLower(*customer.Email)
		customer.Email = &lowered
		if err := s.validate.Var(lowered, "email,max=120"); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "email is invalid")
		}
	}
	if customer.PhoneNumber != nil {
		if err := s.validate.Var(*customer.PhoneNumber, "max=25,printascii"); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "phoneNumber is invalid")
		}
	}
	return customer, nil
}

func load(ctx context.Context, repo *Repository, id int64) (*models.Customer, error) {
	customer, err := repo.FindByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found").
			WithReason(pkgerrors.ReasonUnknownCustomer)
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer")
	}
	return customer, nil
}

func trimOptional(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func toDTO(c *models.Customer, jobIDs []int64) CustomerDTO {
	return CustomerDTO{
		ID:           c.ID,
		FirstName:    c.FirstName,
		LastName:     c.LastName,
		Email:        c.Email,
		PhoneNumber:  c.PhoneNumber,
		RepairJobIDs: jobIDs,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}
