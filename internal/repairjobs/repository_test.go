package repairjobs

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/repairdesk-backend/pkg/db/models"
	"github.com/angelmondragon/repairdesk-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func (f *fixture) storedJob(t *testing.T, id int64) models.RepairJob {
	t.Helper()
	var job models.RepairJob
	require.NoError(t, f.db.First(&job, id).Error)
	return job
}

func TestLockRowSelectsForUpdateOnPostgres(t *testing.T) {
	t.Parallel()

	pg, err := gorm.Open(postgres.Open("host=localhost user=repairdesk dbname=repairdesk sslmode=disable"),
		&gorm.Config{DryRun: true, DisableAutomaticPing: true})
	require.NoError(t, err)

	stmt := NewRepository(pg).lockRow(context.Background(), uuid.New(), 7).Take(&models.RepairJob{}).Statement
	sql := stmt.SQL.String()
	assert.Contains(t, sql, "FOR UPDATE OF")
	assert.Contains(t, sql, "repair_jobs.id =")
}

func TestFindVisibleForUpdateHonoursVisibility(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	a := f.product(t, f.owner, "4", 10)

	created, err := f.svc.Create(f.ctx, f.owner, CreateJobRequest{SalePrice: price("10"), Items: lines(a, 2)})
	require.NoError(t, err)

	r := NewRepository(f.db)
	require.NoError(t, f.db.Transaction(func(tx *gorm.DB) error {
		job, err := r.WithTx(tx).FindVisibleForUpdate(f.ctx, f.owner, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.ID, job.ID)
		require.Len(t, job.Items, 1)
		assert.Equal(t, 2, job.Items[0].Quantity)
		require.NotNil(t, job.Items[0].Product)

		_, err = r.WithTx(tx).FindVisibleForUpdate(f.ctx, uuid.New(), created.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = r.WithTx(tx).FindVisibleForUpdate(f.ctx, f.owner, created.ID+100)
		assert.ErrorIs(t, err, ErrNotFound)
		return nil
	}))
}

func TestSaveDetailsLeavesLifecycleColumns(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	a := f.product(t, f.owner, "4", 10)

	created, err := f.svc.Create(f.ctx, f.owner, CreateJobRequest{SalePrice: price("10"), Items: lines(a, 1)})
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(f.ctx, f.owner, created.ID, UpdateStatusRequest{Status: "Completed"})
	require.NoError(t, err)

	// A stale copy read before the status change.
	stale := f.storedJob(t, created.ID)
	stale.Status = enums.JobStatusNew
	stale.CompletedAt = nil
	stale.SalePrice = price("80")
	notes := "new battery"
	stale.Notes = &notes

	at := f.fixedAt.Add(time.Hour)
	require.NoError(t, NewRepository(f.db).SaveDetails(f.ctx, &stale, at))

	stored := f.storedJob(t, created.ID)
	assert.Equal(t, enums.JobStatusCompleted, stored.Status)
	require.NotNil(t, stored.CompletedAt)
	assert.True(t, f.fixedAt.Equal(stored.CompletedAt.UTC()))
	assert.True(t, price("80").Equal(stored.SalePrice))
	require.NotNil(t, stored.Notes)
	assert.Equal(t, "new battery", *stored.Notes)
	assert.True(t, at.Equal(stored.UpdatedAt.UTC()), stored.UpdatedAt.String())
}

func TestSaveLifecycleLeavesEditedDetails(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	a := f.product(t, f.owner, "4", 10)
	customerID := f.customer(t, "Ana", "Lopez")

	notes := "water damage"
	created, err := f.svc.Create(f.ctx, f.owner, CreateJobRequest{
		CustomerID: &customerID,
		SalePrice:  price("60"),
		Notes:      &notes,
		Items:      lines(a, 1),
	})
	require.NoError(t, err)

	stale := f.storedJob(t, created.ID)
	stale.CustomerID = nil
	stale.SalePrice = price("1")
	stale.Notes = nil
	at := f.fixedAt.Add(30 * time.Minute)
	require.NoError(t, ApplyStatus(&stale, StatusChange{Status: "Completed"}, at))
	require.NoError(t, NewRepository(f.db).SaveLifecycle(f.ctx, &stale, at))

	stored := f.storedJob(t, created.ID)
	assert.Equal(t, enums.JobStatusCompleted, stored.Status)
	require.NotNil(t, stored.CompletedAt)
	assert.True(t, at.Equal(stored.CompletedAt.UTC()))
	require.NotNil(t, stored.CustomerID)
	assert.Equal(t, customerID, *stored.CustomerID)
	assert.True(t, price("60").Equal(stored.SalePrice))
	require.NotNil(t, stored.Notes)
	assert.Equal(t, "water damage", *stored.Notes)
	assert.True(t, at.Equal(stored.UpdatedAt.UTC()))
}
