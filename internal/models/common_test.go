// internal/models/common_test.go
package models

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

// The schema must migrate on sqlite as well as Postgres: the primary key
// carries no database-side default, IDs come from BeforeCreate.
func TestSchemaMigratesOnSQLite(t *testing.T) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&User{},
		&Project{},
		&RequiredDocumentType{},
		&Document{},
		&PaymentConfirmation{},
		&AccessRequest{},
		&Deal{},
		&DocumentRequest{},
		&Quote{},
		&DealComment{},
		&Notification{},
		&AuditLog{},
	))

	user := &User{
		Username: "migration_check",
		Email:    "migration@example.com",
		Role:     RoleBorrower,
		Status:   UserStatusActive,
	}
	require.NoError(t, user.SetPassword("StrongPass123!"))
	require.NoError(t, db.Create(user).Error)
	assert.NotEqual(t, uuid.Nil, user.ID)

	// A caller-supplied ID is kept.
	fixed := uuid.New()
	project := &Project{
		BaseModel:  BaseModel{ID: fixed},
		BorrowerID: user.ID,
		Title:      "Fixed ID",
	}
	require.NoError(t, db.Create(project).Error)
	assert.Equal(t, fixed, project.ID)
}
