package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/repairdesk-backend/pkg/db/models"
	"github.com/angelmondragon/repairdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/repairdesk-backend/pkg/errors"
	"github.com/angelmondragon/repairdesk-backend/pkg/logger"
	"github.com/angelmondragon/repairdesk-backend/pkg/metrics"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const defaultMovementLimit = 50

// Source identifies who or what caused a stock change, for the audit trail.
type Source struct {
	JobID   *int64
	ActorID uuid.UUID
}

// Ledger owns every mutation of products.stock. All mutating methods run
// inside the caller's transaction.
type Ledger struct {
	db      *gorm.DB
	metrics *metrics.InventoryMetrics
	logg    *logger.Logger
	now     func() time.Time
}

type lockedStock struct {
	ID    int64
	Stock int
}

// NewLedger builds a ledger. db is only used for audit trail reads.
func NewLedger(db *gorm.DB, m *metrics.InventoryMetrics, logg *logger.Logger) (*Ledger, error) {
	if db == nil {
		return nil, fmt.Errorf("db required")
	}
	return &Ledger{
		db:      db,
		metrics: m,
		logg:    logg,
		now:     time.Now,
	}, nil
}

// Reserve takes qty units of productID out of stock.
func (l *Ledger) Reserve(ctx context.Context, tx *gorm.DB, productID int64, qty int, src Source) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "reservation quantity must be positive").
			WithReason(pkgerrors.ReasonInvalidQuantity)
	}
	return l.Apply(ctx, tx, Batch{productID: -qty}, src)
}

// Release puts qty units of productID back into stock. Releases are not capped.
func (l *Ledger) Release(ctx context.Context, tx *gorm.DB, productID int64, qty int, src Source) error {
	if qty < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "release quantity must not be negative").
			WithReason(pkgerrors.ReasonInvalidQuantity)
	}
	if qty == 0 {
		return nil
	}
	return l.Apply(ctx, tx, Batch{productID: qty}, src)
}

// Apply validates every reservation in the batch against locked stock and only
// then writes all deltas. Either every line is applied or none is.
func (l *Ledger) Apply(ctx context.Context, tx *gorm.DB, batch Batch, src Source) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for inventory changes")
	}
	ids := batch.ProductIDs()
	if len(ids) == 0 {
		return nil
	}

	stock, err := l.lock(ctx, tx, ids)
	if err != nil {
		return err
	}

	var shortages error
	for _, id := range ids {
		delta := batch[id]
		if delta < 0 && stock[id]+delta < 0 {
			shortages = multierr.Append(shortages, Shortage{ProductID: id, Have: stock[id], Need: -delta})
		}
	}
	if shortages != nil {
		return l.reject(ctx, shortages)
	}

	now := l.now().UTC()
	movements := make([]models.StockMovement, 0, len(ids))
	reserved, released := 0, 0
	for _, id := range ids {
		delta := batch[id]
		res := tx.WithContext(ctx).
			Model(&models.Product{}).
			Where("id = ? AND stock + ? >= 0", id, delta).
			UpdateColumns(map[string]any{
				"stock":      gorm.Expr("stock + ?", delta),
				"updated_at": now,
			})
		if res.Error != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "apply stock delta")
		}
		if res.RowsAffected == 0 {
			// The row lock makes this unreachable on postgres; sqlite has no row locks.
			return l.reject(ctx, Shortage{ProductID: id, Have: stock[id], Need: -delta})
		}

		reason := enums.StockMovementJobRelease
		if delta < 0 {
			reason = enums.StockMovementJobReserve
			reserved -= delta
		} else {
			released += delta
		}
		movements = append(movements, newMovement(id, delta, stock[id]+delta, reason, src, now))
	}

	if err := tx.WithContext(ctx).Create(&movements).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record stock movements")
	}

	l.metrics.AddReserved(reserved)
	l.metrics.AddReleased(released)
	l.metrics.IncBatch(true)
	return nil
}

// SetStock replaces a product's stock with an absolute value under the same
// row lock the batch path uses.
func (l *Ledger) SetStock(ctx context.Context, tx *gorm.DB, productID int64, stock int, src Source) error {
	return l.setStock(ctx, tx, productID, stock, enums.StockMovementManualSet, src)
}

// Seed records the opening stock of a freshly created product.
func (l *Ledger) Seed(ctx context.Context, tx *gorm.DB, productID int64, stock int, src Source) error {
	return l.setStock(ctx, tx, productID, stock, enums.StockMovementInitial, src)
}

func (l *Ledger) setStock(ctx context.Context, tx *gorm.DB, productID int64, stock int, reason enums.StockMovementReason, src Source) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for inventory changes")
	}
	if stock < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "stock must not be negative")
	}
	current, err := l.lock(ctx, tx, []int64{productID})
	if err != nil {
		return err
	}
	delta := stock - current[productID]
	if delta == 0 && reason != enums.StockMovementInitial {
		return nil
	}

	now := l.now().UTC()
	if delta != 0 {
		res := tx.WithContext(ctx).
			Model(&models.Product{}).
			Where("id = ?", productID).
			UpdateColumns(map[string]any{"stock": stock, "updated_at": now})
		if res.Error != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "set stock")
		}
	}

	movement := newMovement(productID, delta, stock, reason, src, now)
	if err := tx.WithContext(ctx).Create(&movement).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record stock movement")
	}
	return nil
}

// Movements returns the newest audit rows for a product.
func (l *Ledger) Movements(ctx context.Context, productID int64, limit int) ([]models.StockMovement, error) {
	if limit <= 0 || limit > defaultMovementLimit*4 {
		limit = defaultMovementLimit
	}
	var rows []models.StockMovement
	err := l.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list stock movements")
	}
	return rows, nil
}

func (l *Ledger) lock(ctx context.Context, tx *gorm.DB, ids []int64) (map[int64]int, error) {
	var rows []lockedStock
	err := tx.WithContext(ctx).
		Model(&models.Product{}).
		Select("id", "stock").
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock product stock")
	}

	stock := make(map[int64]int, len(rows))
	for _, row := range rows {
		stock[row.ID] = row.Stock
	}
	for _, id := range ids {
		if _, ok := stock[id]; !ok {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("product %d does not exist", id)).
				WithReason(pkgerrors.ReasonUnknownProduct).
				WithDetails(map[string]any{"product_id": id})
		}
	}
	return stock, nil
}

func (l *Ledger) reject(ctx context.Context, shortages error) error {
	lines := make([]Shortage, 0)
	for _, err := range multierr.Errors(shortages) {
		var s Shortage
		if errors.As(err, &s) {
			lines = append(lines, s)
			l.metrics.IncShortage(s.ProductID)
		}
	}
	l.metrics.IncBatch(false)

	if l.logg != nil {
		logCtx := l.logg.WithField(ctx, "shortages", lines)
		l.logg.Warn(logCtx, "inventory.insufficient_stock")
	}
	return insufficientStock(lines, shortages)
}

func insufficientStock(lines []Shortage, cause error) error {
	msg := "insufficient stock"
	if len(lines) == 1 {
		msg = fmt.Sprintf("insufficient stock for product %d: have %d, need %d", lines[0].ProductID, lines[0].Have, lines[0].Need)
	} else if len(lines) > 1 {
		msg = fmt.Sprintf("insufficient stock for %d products", len(lines))
	}
	return pkgerrors.Wrap(pkgerrors.CodeBusinessRule, cause, msg).
		WithReason(pkgerrors.ReasonInsufficientStock).
		WithDetails(lines)
}

// Shortages extracts the shortage lines from an insufficient stock error.
func Shortages(err error) []Shortage {
	typed := pkgerrors.As(err)
	if typed == nil || typed.Reason() != pkgerrors.ReasonInsufficientStock {
		return nil
	}
	lines, _ := typed.Details().([]Shortage)
	return lines
}

func newMovement(productID int64, delta, after int, reason enums.StockMovementReason, src Source, at time.Time) models.StockMovement {
	m := models.StockMovement{
		ProductID:   productID,
		RepairJobID: src.JobID,
		Delta:       delta,
		StockAfter:  after,
		Reason:      reason,
		CreatedAt:   at,
	}
	if src.ActorID != uuid.Nil {
		actor := src.ActorID
		m.ActorID = &actor
	}
	return m
}
