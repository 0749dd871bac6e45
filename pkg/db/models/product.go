package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a catalog entry owned by a single user. Stock only moves through
// the inventory ledger.
type Product struct {
	ID         int64           `gorm:"column:id;primaryKey;autoIncrement"`
	OwnerID    uuid.UUID       `gorm:"column:owner_id;type:uuid;not null;index"`
	CategoryID int64           `gorm:"column:category_id;not null;index"`
	Category   *Category       `gorm:"foreignKey:CategoryID;constraint:OnDelete:RESTRICT"`
	Name       string          `gorm:"column:name;not null"`
	Price      decimal.Decimal `gorm:"column:price;type:numeric(18,2);not null"`
	Stock      int             `gorm:"column:stock;not null;default:0;check:chk_products_stock_non_negative,stock >= 0"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
