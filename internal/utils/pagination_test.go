// internal/utils/pagination_test.go
package utils

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type pageRow struct {
	ID int
}

func openPaginationDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&pageRow{}))
	for i := 1; i <= 3; i++ {
		require.NoError(t, db.Create(&pageRow{ID: i}).Error)
	}
	return db
}

// Zero-value params must page with defaults, not LIMIT 0.
func TestApplyPaginationDefaults(t *testing.T) {
	db := openPaginationDB(t)

	var rows []pageRow
	require.NoError(t, ApplyPagination(db.Model(&pageRow{}), PaginationParams{}).Find(&rows).Error)
	assert.Len(t, rows, 3)
}

func TestApplyPaginationBounds(t *testing.T) {
	db := openPaginationDB(t)

	var rows []pageRow
	require.NoError(t, ApplyPagination(db.Model(&pageRow{}).Order("id"),
		PaginationParams{Page: 2, Limit: 2}).Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, 3, rows[0].ID)

	rows = nil
	require.NoError(t, ApplyPagination(db.Model(&pageRow{}),
		PaginationParams{Page: -5, Limit: 1000}).Find(&rows).Error)
	assert.Len(t, rows, 3)
}
