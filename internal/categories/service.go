package categories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/repairdesk-backend/pkg/db"
	"github.com/angelmondragon/repairdesk-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/repairdesk-backend/pkg/errors"
	"gorm.io/gorm"
)

const maxNameLength = 100

// CategoryInput is the payload for create and rename.
type CategoryInput struct {
	Name string `json:"name" validate:"required,max=100"`
}

// CategoryDTO is the category payload returned to clients.
type CategoryDTO struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Service manages the shared category registry.
type Service interface {
	List(ctx context.Context) ([]CategoryDTO, error)
	Get(ctx context.Context, id int64) (*CategoryDTO, error)
	Create(ctx context.Context, input CategoryInput) (*CategoryDTO, error)
	Update(ctx context.Context, id int64, input CategoryInput) (*CategoryDTO, error)
	Delete(ctx context.Context, id int64) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo *Repository
	tx   txRunner
}

// NewService constructs the category service.
func NewService(repo *Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("category repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) List(ctx context.Context) ([]CategoryDTO, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list categories")
	}
	out := make([]CategoryDTO, 0, len(rows))
	for i := range rows {
		out = append(out, toDTO(&rows[i]))
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, id int64) (*CategoryDTO, error) {
	category, err := s.load(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	dto := toDTO(category)
	return &dto, nil
}

func (s *service) Create(ctx context.Context, input CategoryInput) (*CategoryDTO, error) {
	name, err := normalizeName(input.Name)
	if err != nil {
		return nil, err
	}
	category := &models.Category{Name: name}
	if err := s.repo.Create(ctx, category); err != nil {
		return nil, translateWriteError(err, name)
	}
	dto := toDTO(category)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, id int64, input CategoryInput) (*CategoryDTO, error) {
	name, err := normalizeName(input.Name)
	if err != nil {
		return nil, err
	}
	var updated *models.Category
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if _, err := s.load(ctx, txRepo, id); err != nil {
			return err
		}
		if err := txRepo.Rename(ctx, id, name); err != nil {
			return translateWriteError(err, name)
		}
		updated, err = s.load(ctx, txRepo, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	dto := toDTO(updated)
	return &dto, nil
}

// Delete removes a category no product is filed under.
func (s *service) Delete(ctx context.Context, id int64) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if _, err := s.load(ctx, txRepo, id); err != nil {
			return err
		}
		count, err := txRepo.CountProducts(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count category products")
		}
		if count > 0 {
			return categoryInUse(id)
		}
		if err := txRepo.Delete(ctx, id); err != nil {
			if db.IsForeignKeyViolation(err) {
				return categoryInUse(id)
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete category")
		}
		return nil
	})
}

func (s *service) load(ctx context.Context, repo *Repository, id int64) (*models.Category, error) {
	category, err := repo.FindByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load category")
	}
	return category, nil
}

func normalizeName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if len([]rune(name)) > maxNameLength {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "name must be at most 100 characters")
	}
	return name, nil
}

func translateWriteError(err error, name string) error {
	if db.IsUniqueViolation(err, "") {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, fmt.Sprintf("category %q already exists", name))
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save category")
}

func categoryInUse(id int64) error {
	return pkgerrors.New(pkgerrors.CodeConflict, "category still has products").
		WithDetails(map[string]any{"category_id": id})
}

func toDTO(c *models.Category) CategoryDTO {
	return CategoryDTO{ID: c.ID, Name: c.Name, CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt}
}
