package product

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/repairdesk-backend/internal/inventory"
	"github.com/angelmondragon/repairdesk-backend/pkg/db"
	"github.com/angelmondragon/repairdesk-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/repairdesk-backend/pkg/errors"
	"github.com/angelmondragon/repairdesk-backend/pkg/logger"
	"github.com/angelmondragon/repairdesk-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	minPrice = decimal.RequireFromString("0.01")
	maxPrice = decimal.NewFromInt(100_000)
)

// Service exposes owner-scoped catalog management.
type Service interface {
	CreateProduct(ctx context.Context, ownerID uuid.UUID, input ProductInput) (*ProductDTO, error)
	UpdateProduct(ctx context.Context, ownerID uuid.UUID, productID int64, input ProductInput) (*ProductDTO, error)
	DeleteProduct(ctx context.Context, ownerID uuid.UUID, productID int64) error
	GetProduct(ctx context.Context, ownerID uuid.UUID, productID int64) (*ProductDTO, error)
	ListProducts(ctx context.Context, ownerID uuid.UUID, input ListProductsInput) (*ProductListResult, error)
	ListMovements(ctx context.Context, ownerID uuid.UUID, productID int64, limit int) ([]MovementDTO, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type stockLedger interface {
	Seed(ctx context.Context, tx *gorm.DB, productID int64, stock int, src inventory.Source) error
	SetStock(ctx context.Context, tx *gorm.DB, productID int64, stock int, src inventory.Source) error
	Movements(ctx context.Context, productID int64, limit int) ([]models.StockMovement, error)
}

// service implements the product service.
type service struct {
	repo   *Repository
	tx     txRunner
	ledger stockLedger
	logg   *logger.Logger
}

// NewService constructs a product service instance.
func NewService(repo *Repository, tx txRunner, ledger stockLedger, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("inventory ledger required")
	}
	return &service{repo: repo, tx: tx, ledger: ledger, logg: logg}, nil
}

// CreateProduct inserts the product and seeds its opening stock through the ledger.
func (s *service) CreateProduct(ctx context.Context, ownerID uuid.UUID, input ProductInput) (*ProductDTO, error) {
	input, err := normalizeInput(input)
	if err != nil {
		return nil, err
	}

	var productID int64
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if err := requireCategory(ctx, txRepo, input.CategoryID); err != nil {
			return err
		}

		product := &models.Product{
			OwnerID:    ownerID,
			CategoryID: input.CategoryID,
			Name:       input.Name,
			Price:      input.Price,
		}
		if err := txRepo.Create(ctx, product); err != nil {
			if db.IsForeignKeyViolation(err) {
				return unknownCategory(input.CategoryID)
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert product")
		}
		productID = product.ID
		return s.ledger.Seed(ctx, tx, product.ID, input.Stock, inventory.Source{ActorID: ownerID})
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{"product_id": productID, "stock": input.Stock})
		s.logg.Info(logCtx, "product.created")
	}
	return s.GetProduct(ctx, ownerID, productID)
}

// UpdateProduct replaces the product details. A changed stock value is
// written through the ledger's row lock.
func (s *service) UpdateProduct(ctx context.Context, ownerID uuid.UUID, productID int64, input ProductInput) (*ProductDTO, error) {
	input, err := normalizeInput(input)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		product, err := loadOwned(ctx, txRepo, ownerID, productID)
		if err != nil {
			return err
		}
		if product.CategoryID != input.CategoryID {
			if err := requireCategory(ctx, txRepo, input.CategoryID); err != nil {
				return err
			}
		}

		product.Name = input.Name
		product.Price = input.Price
		product.CategoryID = input.CategoryID
		if err := txRepo.UpdateDetails(ctx, product); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update product")
		}
		return s.ledger.SetStock(ctx, tx, product.ID, input.Stock, inventory.Source{ActorID: ownerID})
	})
	if err != nil {
		return nil, err
	}
	return s.GetProduct(ctx, ownerID, productID)
}

// DeleteProduct removes a product that no repair job references.
func (s *service) DeleteProduct(ctx context.Context, ownerID uuid.UUID, productID int64) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if _, err := loadOwned(ctx, txRepo, ownerID, productID); err != nil {
			return err
		}
		refs, err := txRepo.CountJobReferences(ctx, productID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: count product references")
		}
		if refs > 0 {
			return productInUse(productID, refs)
		}
		if err := txRepo.Delete(ctx, productID); err != nil {
			if db.IsForeignKeyViolation(err) {
				return productInUse(productID, refs)
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete product")
		}
		return nil
	})
}

func (s *service) GetProduct(ctx context.Context, ownerID uuid.UUID, productID int64) (*ProductDTO, error) {
	product, err := loadOwned(ctx, s.repo, ownerID, productID)
	if err != nil {
		return nil, err
	}
	return NewProductDTO(product), nil
}

func (s *service) ListProducts(ctx context.Context, ownerID uuid.UUID, input ListProductsInput) (*ProductListResult, error) {
	cursor, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	filter := ListFilter{
		CategoryID: input.CategoryID,
		Query:      input.Query,
		Limit:      pagination.LimitWithBuffer(input.Limit),
	}
	if cursor != nil {
		filter.CursorCreatedAt = &cursor.CreatedAt
		filter.CursorID = cursor.ID
	}

	rows, err := s.repo.List(ctx, ownerID, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}

	rows, next := pagination.Trim(rows, input.Limit, func(p models.Product) pagination.Cursor {
		return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
	})
	result := &ProductListResult{Products: make([]ProductDTO, 0, len(rows)), NextCursor: next}
	for i := range rows {
		result.Products = append(result.Products, *NewProductDTO(&rows[i]))
	}
	return result, nil
}

func (s *service) ListMovements(ctx context.Context, ownerID uuid.UUID, productID int64, limit int) ([]MovementDTO, error) {
	if _, err := loadOwned(ctx, s.repo, ownerID, productID); err != nil {
		return nil, err
	}
	rows, err := s.ledger.Movements(ctx, productID, limit)
	if err != nil {
		return nil, err
	}
	return newMovementDTOs(rows), nil
}

func normalizeInput(input ProductInput) (ProductInput, error) {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return input, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if len([]rune(input.Name)) > 100 {
		return input, pkgerrors.New(pkgerrors.CodeValidation, "name must be at most 100 characters")
	}
	if input.Price.LessThan(minPrice) || input.Price.GreaterThan(maxPrice) {
		return input, pkgerrors.New(pkgerrors.CodeValidation, "price must be between 0.01 and 100000").
			WithDetails(map[string]any{"field": "price"})
	}
	if input.Stock < 0 {
		return input, pkgerrors.New(pkgerrors.CodeValidation, "stock must not be negative")
	}
	if input.CategoryID <= 0 {
		return input, pkgerrors.New(pkgerrors.CodeValidation, "categoryId is required")
	}
	return input, nil
}

func loadOwned(ctx context.Context, repo *Repository, ownerID uuid.UUID, productID int64) (*models.Product, error) {
	product, err := repo.FindOwned(ctx, ownerID, productID)
	if errors.Is(err, ErrNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
			WithReason(pkgerrors.ReasonUnknownProduct)
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product")
	}
	return product, nil
}

func requireCategory(ctx context.Context, repo *Repository, categoryID int64) error {
	ok, err := repo.CategoryExists(ctx, categoryID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: check category")
	}
	if !ok {
		return unknownCategory(categoryID)
	}
	return nil
}

func unknownCategory(categoryID int64) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "category does not exist").
		WithDetails(map[string]any{"category_id": categoryID})
}

func productInUse(productID, refs int64) error {
	return pkgerrors.New(pkgerrors.CodeConflict, "product is used by repair jobs").
		WithDetails(map[string]any{"product_id": productID, "job_items": refs})
}
