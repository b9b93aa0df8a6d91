package repositories

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"nicetravel/internal/infra"
	"nicetravel/internal/models/db_models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, infra.Migrate(db))
	return db
}

func date(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func seedPlan(t *testing.T, db *gorm.DB, accountID uuid.UUID, name string, places ...string) *db_models.Plan {
	t.Helper()
	start, end := date("2025-06-01"), date("2025-06-05")
	plan := &db_models.Plan{
		AccountID:   accountID,
		Name:        name,
		StartDate:   &start,
		EndDate:     &end,
		PeopleCount: 2,
		Status:      db_models.PlanStatusDraft,
	}
	require.NoError(t, db.Create(plan).Error)
	for i, p := range places {
		day := start.AddDate(0, 0, i)
		require.NoError(t, db.Create(&db_models.Place{PlanID: plan.ID, Name: p, StartDate: day, EndDate: day}).Error)
	}
	return plan
}

func ctx() context.Context { return context.Background() }
