package product

import (
	"context"
	"testing"

	"github.com/angelmondragon/repairdesk-backend/internal/inventory"
	"github.com/angelmondragon/repairdesk-backend/pkg/db"
	"github.com/angelmondragon/repairdesk-backend/pkg/db/dbtest"
	"github.com/angelmondragon/repairdesk-backend/pkg/db/models"
	"github.com/angelmondragon/repairdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/repairdesk-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (Service, *gorm.DB, int64) {
	t.Helper()
	conn := dbtest.Open(t, "products")
	ledger, err := inventory.NewLedger(conn, nil, nil)
	require.NoError(t, err)
	svc, err := NewService(NewRepository(conn), db.NewFromGorm(conn), ledger, nil)
	require.NoError(t, err)

	category := models.Category{Name: "batteries"}
	require.NoError(t, conn.Create(&category).Error)
	return svc, conn, category.ID
}

func validInput(categoryID int64) ProductInput {
	return ProductInput{
		Name:       "  iPhone 12 battery ",
		Price:      decimal.RequireFromString("24.90"),
		Stock:      6,
		CategoryID: categoryID,
	}
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	if _, err := NewService(nil, nil, nil, nil); err == nil {
		t.Fatal("expected error for missing repository")
	}
}

func TestCreateProductSeedsStock(t *testing.T) {
	t.Parallel()
	svc, conn, categoryID := newTestService(t)
	ctx := context.Background()
	owner := uuid.New()

	created, err := svc.CreateProduct(ctx, owner, validInput(categoryID))
	require.NoError(t, err)
	assert.Equal(t, "iPhone 12 battery", created.Name)
	assert.Equal(t, 6, created.Stock)
	require.NotNil(t, created.CategoryName)
	assert.Equal(t, "batteries", *created.CategoryName)

	var movements []models.StockMovement
	require.NoError(t, conn.Where("product_id = ?", created.ID).Find(&movements).Error)
	require.Len(t, movements, 1)
	assert.Equal(t, enums.StockMovementInitial, movements[0].Reason)
	assert.Equal(t, 6, movements[0].Delta)
	require.NotNil(t, movements[0].ActorID)
	assert.Equal(t, owner, *movements[0].ActorID)
}

func TestCreateProductValidation(t *testing.T) {
	t.Parallel()
	svc, _, categoryID := newTestService(t)
	ctx := context.Background()

	cases := map[string]func(*ProductInput){
		"blank name":     func(in *ProductInput) { in.Name = "   " },
		"zero price":     func(in *ProductInput) { in.Price = decimal.Zero },
		"huge price":     func(in *ProductInput) { in.Price = decimal.NewFromInt(100_001) },
		"negative stock": func(in *ProductInput) { in.Stock = -1 },
		"missing cat":    func(in *ProductInput) { in.CategoryID = 0 },
		"unknown cat":    func(in *ProductInput) { in.CategoryID = categoryID + 50 },
	}
	for name, mutate := range cases {
		input := validInput(categoryID)
		mutate(&input)
		_, err := svc.CreateProduct(ctx, uuid.New(), input)
		require.Error(t, err, name)
		assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code(), name)
	}
}

func TestUpdateProductSetsStockThroughLedger(t *testing.T) {
	t.Parallel()
	svc, conn, categoryID := newTestService(t)
	ctx := context.Background()
	owner := uuid.New()

	created, err := svc.CreateProduct(ctx, owner, validInput(categoryID))
	require.NoError(t, err)

	input := validInput(categoryID)
	input.Name = "iPhone 12 battery (OEM)"
	input.Price = decimal.RequireFromString("31")
	input.Stock = 2
	updated, err := svc.UpdateProduct(ctx, owner, created.ID, input)
	require.NoError(t, err)
	assert.Equal(t, "iPhone 12 battery (OEM)", updated.Name)
	assert.True(t, decimal.RequireFromString("31").Equal(updated.Price))
	assert.Equal(t, 2, updated.Stock)

	movements, err := svc.ListMovements(ctx, owner, created.ID, 0)
	require.NoError(t, err)
	require.Len(t, movements, 2)
	assert.Equal(t, enums.StockMovementManualSet, movements[0].Reason)
	assert.Equal(t, -4, movements[0].Delta)

	_, err = svc.UpdateProduct(ctx, uuid.New(), created.ID, input)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())

	var stored models.Product
	require.NoError(t, conn.First(&stored, created.ID).Error)
	assert.Equal(t, 2, stored.Stock)
}

func TestDeleteProductRefusedWhileReferenced(t *testing.T) {
	t.Parallel()
	svc, conn, categoryID := newTestService(t)
	ctx := context.Background()
	owner := uuid.New()

	used, err := svc.CreateProduct(ctx, owner, validInput(categoryID))
	require.NoError(t, err)
	free, err := svc.CreateProduct(ctx, owner, validInput(categoryID))
	require.NoError(t, err)

	job := models.RepairJob{SalePrice: decimal.NewFromInt(10), Status: enums.JobStatusNew}
	require.NoError(t, conn.Create(&job).Error)
	require.NoError(t, conn.Create(&models.RepairJobItem{
		RepairJobID: job.ID, ProductID: used.ID, Quantity: 1, UnitCost: used.Price,
	}).Error)

	err = svc.DeleteProduct(ctx, owner, used.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())

	require.NoError(t, svc.DeleteProduct(ctx, owner, free.ID))
	_, err = svc.GetProduct(ctx, owner, free.ID)
	assert.True(t, pkgerrors.HasReason(err, pkgerrors.ReasonUnknownProduct))
}

func TestListProductsIsOwnerScoped(t *testing.T) {
	t.Parallel()
	svc, _, categoryID := newTestService(t)
	ctx := context.Background()
	owner := uuid.New()

	for i := 0; i < 3; i++ {
		_, err := svc.CreateProduct(ctx, owner, validInput(categoryID))
		require.NoError(t, err)
	}
	other := validInput(categoryID)
	other.Name = "Pixel screen"
	_, err := svc.CreateProduct(ctx, uuid.New(), other)
	require.NoError(t, err)

	page, err := svc.ListProducts(ctx, owner, ListProductsInput{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Products, 2)
	require.NotEmpty(t, page.NextCursor)

	rest, err := svc.ListProducts(ctx, owner, ListProductsInput{Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, rest.Products, 1)
	assert.Empty(t, rest.NextCursor)

	search, err := svc.ListProducts(ctx, owner, ListProductsInput{Query: "pixel"})
	require.NoError(t, err)
	assert.Empty(t, search.Products)

	byCategory, err := svc.ListProducts(ctx, owner, ListProductsInput{CategoryID: &categoryID, Query: "BATTERY"})
	require.NoError(t, err)
	assert.Len(t, byCategory.Products, 3)
}
