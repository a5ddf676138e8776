package migrations

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	return db
}

func TestMigrateAppliesAllVersions(t *testing.T) {
	db := newTestDB(t)
	migrator := NewMigrator(db)
	ctx := context.Background()

	require.NoError(t, migrator.Migrate(ctx))

	statuses, err := migrator.Status(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, len(allMigrations()))
	for _, status := range statuses {
		assert.True(t, status.Applied, "migration %d should be applied", status.Version)
	}

	assert.True(t, db.Migrator().HasTable("calibrations"))
	assert.True(t, db.Migrator().HasTable("tags"))
	assert.True(t, db.Migrator().HasTable("calibration_tags"))
	assert.True(t, db.Migrator().HasIndex("calibration_tags", "idx_calibration_tags_active"))

	// Re-running is a no-op.
	require.NoError(t, migrator.Migrate(ctx))
}

func TestRollbackRemovesLastMigration(t *testing.T) {
	db := newTestDB(t)
	migrator := NewMigrator(db)
	ctx := context.Background()

	require.NoError(t, migrator.Migrate(ctx))
	require.NoError(t, migrator.Rollback(ctx))

	statuses, err := migrator.Status(ctx)
	require.NoError(t, err)

	last := statuses[len(statuses)-1]
	assert.False(t, last.Applied)
	assert.False(t, db.Migrator().HasIndex("calibration_tags", "idx_calibration_tags_active"))

	// Migrate brings the rolled-back version straight back.
	require.NoError(t, migrator.Migrate(ctx))
	statuses, err = migrator.Status(ctx)
	require.NoError(t, err)
	assert.True(t, statuses[len(statuses)-1].Applied)
}
