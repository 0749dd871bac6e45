package models

import (
	"time"

	"github.com/angelmondragon/repairdesk-backend/pkg/enums"
	"github.com/google/uuid"
)

// StockMovement is an append-only audit row written for every ledger mutation.
type StockMovement struct {
	ID          int64                     `gorm:"column:id;primaryKey;autoIncrement"`
	ProductID   int64                     `gorm:"column:product_id;not null;index"`
	RepairJobID *int64                    `gorm:"column:repair_job_id;index"`
	Delta       int                       `gorm:"column:delta;not null"`
	StockAfter  int                       `gorm:"column:stock_after;not null"`
	Reason      enums.StockMovementReason `gorm:"column:reason;type:text;not null"`
	ActorID     *uuid.UUID                `gorm:"column:actor_id;type:uuid"`
	CreatedAt   time.Time                 `gorm:"column:created_at;autoCreateTime"`
}
