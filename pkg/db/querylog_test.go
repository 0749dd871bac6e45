package db

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/repairdesk-backend/pkg/logger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func openLogged(t *testing.T, slow time.Duration) (*gorm.DB, *strings.Builder) {
	t.Helper()
	var buf strings.Builder
	logg := logger.New(logger.Options{ServiceName: "db-test", Output: &buf})
	conn, err := gorm.Open(sqlite.Open("file:querylog_"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: newQueryLogger(logg, slow),
	})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&testModel{}))
	buf.Reset()
	return conn, &buf
}

func TestQueryLoggerReportsFailures(t *testing.T) {
	conn, buf := openLogged(t, 0)

	err := conn.WithContext(context.Background()).Exec("SELECT * FROM missing_table").Error
	require.Error(t, err)
	require.Contains(t, buf.String(), "db.query_failed")
	require.Contains(t, buf.String(), "missing_table")
}

func TestQueryLoggerIgnoresNotFound(t *testing.T) {
	conn, buf := openLogged(t, 0)

	var row testModel
	err := conn.Where("id = ?", 42).Take(&row).Error
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
	require.Empty(t, buf.String())
}

func TestQueryLoggerFlagsSlowStatements(t *testing.T) {
	conn, buf := openLogged(t, time.Nanosecond)

	require.NoError(t, conn.Create(&testModel{Name: "slow"}).Error)
	require.Contains(t, buf.String(), "db.slow_query")

	buf.Reset()
	require.NoError(t, conn.Session(&gorm.Session{Logger: conn.Logger.LogMode(gormlogger.Silent)}).Create(&testModel{Name: "quiet"}).Error)
	require.Empty(t, buf.String())
}

func TestNewQueryLoggerWithoutLoggerDiscards(t *testing.T) {
	require.Equal(t, gormlogger.Discard, newQueryLogger(nil, time.Second))
}
