package product

import (
	"time"

	"github.com/angelmondragon/repairdesk-backend/pkg/db/models"
	"github.com/angelmondragon/repairdesk-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductInput is the payload accepted by create and update.
type ProductInput struct {
	Name       string          `json:"name" validate:"required,max=100"`
	Price      decimal.Decimal `json:"price"`
	Stock      int             `json:"stock" validate:"gte=0"`
	CategoryID int64           `json:"categoryId" validate:"required,gt=0"`
}

// ListProductsInput captures the filters of the catalog listing.
type ListProductsInput struct {
	CategoryID *int64
	Query      string
	Limit      int
	Cursor     string
}

// ProductDTO represents the product payload returned to clients.
type ProductDTO struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	Price        decimal.Decimal `json:"price"`
	Stock        int             `json:"stock"`
	CategoryID   int64           `json:"categoryId"`
	CategoryName *string         `json:"categoryName"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// ProductListResult is one page of the catalog.
type ProductListResult struct {
	Products   []ProductDTO `json:"products"`
	NextCursor string       `json:"nextCursor,omitempty"`
}

// MovementDTO is one entry of a product's stock audit trail.
type MovementDTO struct {
	ID          int64                     `json:"id"`
	RepairJobID *int64                    `json:"repairJobId"`
	Delta       int                       `json:"delta"`
	StockAfter  int                       `json:"stockAfter"`
	Reason      enums.StockMovementReason `json:"reason"`
	ActorID     *uuid.UUID                `json:"actorId"`
	CreatedAt   time.Time                 `json:"createdAt"`
}

// NewProductDTO maps a product, with its category when preloaded.
func NewProductDTO(p *models.Product) *ProductDTO {
	if p == nil {
		return nil
	}
	dto := &ProductDTO{
		ID:         p.ID,
		Name:       p.Name,
		Price:      p.Price,
		Stock:      p.Stock,
		CategoryID: p.CategoryID,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
	if p.Category != nil {
		name := p.Category.Name
		dto.CategoryName = &name
	}
	return dto
}

func newMovementDTOs(rows []models.StockMovement) []MovementDTO {
	out := make([]MovementDTO, 0, len(rows))
	for _, m := range rows {
		out = append(out, MovementDTO{
			ID:          m.ID,
			RepairJobID: m.RepairJobID,
			Delta:       m.Delta,
			StockAfter:  m.StockAfter,
			Reason:      m.Reason,
			ActorID:     m.ActorID,
			CreatedAt:   m.CreatedAt,
		})
	}
	return out
}
