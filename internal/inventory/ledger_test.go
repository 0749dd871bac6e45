package inventory

import (
	"context"
	"testing"

	"github.com/angelmondragon/repairdesk-backend/pkg/db/dbtest"
	"github.com/angelmondragon/repairdesk-backend/pkg/db/models"
	"github.com/angelmondragon/repairdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/repairdesk-backend/pkg/errors"
	"github.com/angelmondragon/repairdesk-backend/pkg/metrics"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestApplyReservesAndReleasesTogether(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ledger := newTestLedger(t, db, nil)
	ctx := context.Background()
	a := seedProduct(t, db, 10)
	b := seedProduct(t, db, 4)

	batch := Batch{}
	batch.Reserve(a, 3)
	batch.Release(b, 2)

	jobID := int64(77)
	err := db.Transaction(func(tx *gorm.DB) error {
		return ledger.Apply(ctx, tx, batch, Source{JobID: &jobID})
	})
	require.NoError(t, err)

	assert.Equal(t, 7, stockOf(t, db, a))
	assert.Equal(t, 6, stockOf(t, db, b))

	var movements []models.StockMovement
	require.NoError(t, db.Order("product_id ASC").Find(&movements).Error)
	require.Len(t, movements, 2)
	assert.Equal(t, enums.StockMovementJobReserve, movements[0].Reason)
	assert.Equal(t, -3, movements[0].Delta)
	assert.Equal(t, 7, movements[0].StockAfter)
	assert.Equal(t, enums.StockMovementJobRelease, movements[1].Reason)
	require.NotNil(t, movements[1].RepairJobID)
	assert.Equal(t, jobID, *movements[1].RepairJobID)
}

func TestApplyIsAllOrNothing(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	reg := prometheus.NewRegistry()
	ledger := newTestLedger(t, db, metrics.NewInventoryMetrics(reg))
	ctx := context.Background()

	ids := make([]int64, 0, 6)
	for i := 0; i < 5; i++ {
		ids = append(ids, seedProduct(t, db, 10))
	}
	short := seedProduct(t, db, 1)
	ids = append(ids, short)

	batch := Batch{}
	for _, id := range ids {
		batch.Reserve(id, 2)
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		return ledger.Apply(ctx, tx, batch, Source{})
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasReason(err, pkgerrors.ReasonInsufficientStock))
	assert.Equal(t, pkgerrors.CodeBusinessRule, pkgerrors.As(err).Code())
	assert.Equal(t, []Shortage{{ProductID: short, Have: 1, Need: 2}}, Shortages(err))

	for _, id := range ids[:5] {
		assert.Equal(t, 10, stockOf(t, db, id), "product %d must be untouched", id)
	}
	assert.Equal(t, 1, stockOf(t, db, short))

	var count int64
	require.NoError(t, db.Model(&models.StockMovement{}).Count(&count).Error)
	assert.Zero(t, count)
	series, err := testutil.GatherAndCount(reg, "repairdesk_inventory_shortages_total")
	require.NoError(t, err)
	assert.Equal(t, 1, series)
}

func TestApplyReportsEveryShortage(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ledger := newTestLedger(t, db, nil)
	a := seedProduct(t, db, 1)
	b := seedProduct(t, db, 0)

	err := db.Transaction(func(tx *gorm.DB) error {
		return ledger.Apply(context.Background(), tx, Batch{a: -2, b: -1}, Source{})
	})
	require.Error(t, err)
	assert.Equal(t, []Shortage{
		{ProductID: a, Have: 1, Need: 2},
		{ProductID: b, Have: 0, Need: 1},
	}, Shortages(err))
}

func TestApplyUnknownProduct(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ledger := newTestLedger(t, db, nil)
	a := seedProduct(t, db, 5)

	err := db.Transaction(func(tx *gorm.DB) error {
		return ledger.Apply(context.Background(), tx, Batch{a: -1, 9999: -1}, Source{})
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasReason(err, pkgerrors.ReasonUnknownProduct))
	assert.Equal(t, 5, stockOf(t, db, a))
}

func TestApplyRequiresTransactionAndSkipsZeroDeltas(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ledger := newTestLedger(t, db, nil)

	err := ledger.Apply(context.Background(), nil, Batch{1: -1}, Source{})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeDependency, pkgerrors.As(err).Code())

	// a zero delta never touches the row, so an unknown id is fine
	require.NoError(t, ledger.Apply(context.Background(), db, Batch{12345: 0}, Source{}))
	assert.True(t, Batch{1: 0}.Empty())
}

func TestReserveAndRelease(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ledger := newTestLedger(t, db, nil)
	ctx := context.Background()
	a := seedProduct(t, db, 3)

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return ledger.Reserve(ctx, tx, a, 3, Source{})
	}))
	assert.Equal(t, 0, stockOf(t, db, a))

	err := db.Transaction(func(tx *gorm.DB) error {
		return ledger.Reserve(ctx, tx, a, 1, Source{})
	})
	assert.True(t, pkgerrors.HasReason(err, pkgerrors.ReasonInsufficientStock))
	assert.Equal(t, 0, stockOf(t, db, a))

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return ledger.Release(ctx, tx, a, 5, Source{})
	}))
	assert.Equal(t, 5, stockOf(t, db, a), "release is not capped")

	assert.True(t, pkgerrors.HasReason(ledger.Reserve(ctx, db, a, 0, Source{}), pkgerrors.ReasonInvalidQuantity))
	assert.Error(t, ledger.Release(ctx, db, a, -1, Source{}))
	assert.NoError(t, ledger.Release(ctx, db, a, 0, Source{}))
}

func TestSetStockRecordsManualMovement(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ledger := newTestLedger(t, db, nil)
	ctx := context.Background()
	a := seedProduct(t, db, 0)
	actor := uuid.New()

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		if err := ledger.Seed(ctx, tx, a, 4, Source{ActorID: actor}); err != nil {
			return err
		}
		return ledger.SetStock(ctx, tx, a, 9, Source{ActorID: actor})
	}))
	assert.Equal(t, 9, stockOf(t, db, a))

	movements, err := ledger.Movements(ctx, a, 10)
	require.NoError(t, err)
	require.Len(t, movements, 2)
	assert.Equal(t, enums.StockMovementManualSet, movements[0].Reason)
	assert.Equal(t, 5, movements[0].Delta)
	assert.Equal(t, enums.StockMovementInitial, movements[1].Reason)
	require.NotNil(t, movements[1].ActorID)
	assert.Equal(t, actor, *movements[1].ActorID)

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return ledger.SetStock(ctx, tx, a, 9, Source{})
	}))
	movements, err = ledger.Movements(ctx, a, 10)
	require.NoError(t, err)
	assert.Len(t, movements, 2, "unchanged stock writes no movement")

	err = db.Transaction(func(tx *gorm.DB) error {
		return ledger.SetStock(ctx, tx, a, -1, Source{})
	})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	return dbtest.Open(t, "inventory")
}

func newTestLedger(t *testing.T, db *gorm.DB, m *metrics.InventoryMetrics) *Ledger {
	t.Helper()
	ledger, err := NewLedger(db, m, nil)
	require.NoError(t, err)
	return ledger
}

func seedProduct(t *testing.T, db *gorm.DB, stock int) int64 {
	t.Helper()
	category := models.Category{Name: "parts-" + uuid.NewString()}
	require.NoError(t, db.Create(&category).Error)
	product := models.Product{
		OwnerID:    uuid.New(),
		CategoryID: category.ID,
		Name:       "part",
		Price:      decimal.RequireFromString("9.99"),
		Stock:      stock,
	}
	require.NoError(t, db.Create(&product).Error)
	return product.ID
}

func stockOf(t *testing.T, db *gorm.DB, id int64) int {
	t.Helper()
	var product models.Product
	require.NoError(t, db.First(&product, id).Error)
	return product.Stock
}
