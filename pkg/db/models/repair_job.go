package models

import (
	"time"

	"github.com/angelmondragon/repairdesk-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

// RepairJob is a unit of repair work sold to an optional customer.
type RepairJob struct {
	ID                   int64           `gorm:"column:id;primaryKey;autoIncrement"`
	CustomerID           *int64          `gorm:"column:customer_id;index"`
	Customer             *Customer       `gorm:"foreignKey:CustomerID;constraint:OnDelete:SET NULL"`
	SalePrice            decimal.Decimal `gorm:"column:sale_price;type:numeric(18,2);not null"`
	Notes                *string         `gorm:"column:notes"`
	Status               enums.JobStatus `gorm:"column:status;type:text;not null"`
	CompletedAt          *time.Time      `gorm:"column:completed_at"`
	IsReturnedToCustomer bool            `gorm:"column:is_returned_to_customer;not null;default:false"`
	ReturnedAt           *time.Time      `gorm:"column:returned_at"`
	Items                []RepairJobItem `gorm:"foreignKey:RepairJobID;constraint:OnDelete:CASCADE"`
	CreatedAt            time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// RepairJobItem is one consumed part. UnitCost is a price snapshot taken when
// the line was first added.
type RepairJobItem struct {
	ID          int64           `gorm:"column:id;primaryKey;autoIncrement"`
	RepairJobID int64           `gorm:"column:repair_job_id;not null;index"`
	ProductID   int64           `gorm:"column:product_id;not null;index"`
	Product     *Product        `gorm:"foreignKey:ProductID;constraint:OnDelete:RESTRICT"`
	Quantity    int             `gorm:"column:quantity;not null"`
	UnitCost    decimal.Decimal `gorm:"column:unit_cost;type:numeric(18,2);not null"`
}

// LineCost is quantity times the snapshot unit cost.
func (i RepairJobItem) LineCost() decimal.Decimal {
	return i.UnitCost.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// PartsCost sums the line costs of every item.
func (j RepairJob) PartsCost() decimal.Decimal {
	total := decimal.Zero
	for _, item := range j.Items {
		total = total.Add(item.LineCost())
	}
	return total
}

// Profit is the sale price minus parts cost.
func (j RepairJob) Profit() decimal.Decimal {
	return j.SalePrice.Sub(j.PartsCost())
}
