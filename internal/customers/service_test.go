package customers

import (
	"context"
	"testing"

	"github.com/angelmondragon/repairdesk-backend/pkg/db"
	"github.com/angelmondragon/repairdesk-backend/pkg/db/dbtest"
	"github.com/angelmondragon/repairdesk-backend/pkg/db/models"
	"github.com/angelmondragon/repairdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/repairdesk-backend/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	conn := dbtest.Open(t, "customers")
	svc, err := NewService(NewRepository(conn), db.NewFromGorm(conn), nil)
	require.NoError(t, err)
	return svc, conn
}

func strPtr(v string) *string { return &v }

func TestCreateCustomerNormalizesInput(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)

	created, err := svc.Create(context.Background(), CustomerInput{
		FirstName:   "  Maria ",
		LastName:    "Gomez",
		Email:       strPtr(" Maria@Example.COM "),
		PhoneNumber: strPtr("   "),
	})
	require.NoError(t, err)
	assert.Equal(t, "Maria", created.FirstName)
	require.NotNil(t, created.Email)
	assert.Equal(t, "maria@example.com", *created.Email)
	assert.Nil(t, created.PhoneNumber)
}

func TestCreateCustomerValidation(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)
	ctx := context.Background()

	inputs := []CustomerInput{
		{FirstName: " "},
		{FirstName: "This first name is definitely longer than fifty chars"},
		{FirstName: "Ok", Email: strPtr("not-an-email")},
	}
	for _, input := range inputs {
		_, err := svc.Create(ctx, input)
		require.Error(t, err)
		assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
	}
}

func TestUpdateCustomer(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, CustomerInput{FirstName: "Leo"})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, created.ID, CustomerInput{FirstName: "Leo", LastName: "Park", PhoneNumber: strPtr("+1 555 0100")})
	require.NoError(t, err)
	assert.Equal(t, "Park", updated.LastName)
	require.NotNil(t, updated.PhoneNumber)
	assert.Equal(t, "+1 555 0100", *updated.PhoneNumber)

	_, err = svc.Update(ctx, created.ID+99, CustomerInput{FirstName: "Ghost"})
	assert.True(t, pkgerrors.HasReason(err, pkgerrors.ReasonUnknownCustomer))
}

func TestDeleteCustomerDetachesJobs(t *testing.T) {
	t.Parallel()
	svc, conn := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, CustomerInput{FirstName: "Ivy"})
	require.NoError(t, err)

	job := models.RepairJob{CustomerID: &created.ID, SalePrice: decimal.NewFromInt(80), Status: enums.JobStatusNew}
	require.NoError(t, conn.Create(&job).Error)

	withJobs, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{job.ID}, withJobs.RepairJobIDs)

	require.NoError(t, svc.Delete(ctx, created.ID))

	var stored models.RepairJob
	require.NoError(t, conn.First(&stored, job.ID).Error)
	assert.Nil(t, stored.CustomerID)

	_, err = svc.Get(ctx, created.ID)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestListCustomersSearch(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)
	ctx := context.Background()

	for _, name := range []string{"Zoe", "Adam", "Mia"} {
		_, err := svc.Create(ctx, CustomerInput{FirstName: name})
		require.NoError(t, err)
	}

	all, err := svc.List(ctx, ListInput{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Adam", all[0].FirstName)

	found, err := svc.List(ctx, ListInput{Search: "MI"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Mia", found[0].FirstName)
}
