// internal/database/connection.go
package database

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/groundfund/groundfund-backend/internal/config"
	"github.com/groundfund/groundfund-backend/internal/models"
)

var DB *gorm.DB

func Initialize(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var err error

	gormConfig := &gorm.Config{
		TranslateError: true,
	}
	if cfg.LogLevel == "silent" {
		gormConfig.Logger = logger.Default.LogMode(logger.Silent)
	} else {
		gormConfig.Logger = logger.Default.LogMode(logger.Info)
	}

	// Connect to database
	DB, err = gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB
	sqlDB, err := DB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pool
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.MaxLifetime) * time.Second)

	// Test connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("Database connection established successfully")
	return DB, nil
}

func Close(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		log.Printf("Error getting underlying sql.DB: %v", err)
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Printf("Error closing database connection: %v", err)
	} else {
		log.Println("Database connection closed successfully")
	}
}

func RunMigrations(db *gorm.DB) error {
	log.Println("Running database migrations...")

	// Enable UUID extension
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS \"uuid-ossp\"").Error; err != nil {
		return fmt.Errorf("failed to create UUID extension: %w", err)
	}

	// Run auto-migrations
	err := db.AutoMigrate(
		&models.User{},
		&models.Project{},
		&models.RequiredDocumentType{},
		&models.Document{},
		&models.PaymentConfirmation{},
		&models.AccessRequest{},
		&models.Deal{},
		&models.DocumentRequest{},
		&models.Quote{},
		&models.DealComment{},
		&models.Notification{},
		&models.AuditLog{},
	)

	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Create indexes
	if err := createIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	log.Println("Database migrations completed successfully")
	return nil
}

func createIndexes(db *gorm.DB) error {
	indexes := []string{
		// User indexes
		"CREATE INDEX IF NOT EXISTS idx_users_email ON users(email)",
		"CREATE INDEX IF NOT EXISTS idx_users_role_status ON users(role, status)",
		"CREATE INDEX IF NOT EXISTS idx_users_subscription ON users(subscription_status, subscription_end_date)",

		// Project indexes
		"CREATE INDEX IF NOT EXISTS idx_projects_borrower ON projects(borrower_id)",
		"CREATE INDEX IF NOT EXISTS idx_projects_payment_status ON projects(payment_status, development_stage)",
		"CREATE INDEX IF NOT EXISTS idx_projects_created_at ON projects(created_at DESC)",

		// Uniqueness invariants of the engagement lifecycle. Duplicate
		// creation races are resolved here, not by check-then-insert.
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_access_requests_active_pair ON access_requests(funder_id, project_id) WHERE status IN ('pending', 'approved') AND deleted_at IS NULL",
		"CREATE INDEX IF NOT EXISTS idx_access_requests_project_status ON access_requests(project_id, status)",

		// Deal indexes
		"CREATE INDEX IF NOT EXISTS idx_deals_participants ON deals(borrower_id, funder_id)",
		"CREATE INDEX IF NOT EXISTS idx_document_requests_deal_status ON document_requests(deal_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_quotes_deal_created ON quotes(deal_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_deal_comments_deal_created ON deal_comments(deal_id, created_at)",

		// Document indexes
		"CREATE INDEX IF NOT EXISTS idx_documents_project_type ON documents(project_id, document_type)",

		// Notification and audit indexes
		"CREATE INDEX IF NOT EXISTS idx_notifications_recipient ON notifications(recipient_id, read_at)",
		"CREATE INDEX IF NOT EXISTS idx_audit_logs_user_action ON audit_logs(user_id, action)",
		"CREATE INDEX IF NOT EXISTS idx_audit_logs_resource ON audit_logs(resource_type, resource_id)",
		"CREATE INDEX IF NOT EXISTS idx_audit_logs_created ON audit_logs(created_at DESC)",
	}

	for _, index := range indexes {
		if err := db.Exec(index).Error; err != nil {
			log.Printf("Warning: Failed to create index: %s, Error: %v", index, err)
			// Continue with other indexes instead of failing completely
		}
	}

	return nil
}

// Seed initial data
func SeedInitialData(db *gorm.DB) error {
	log.Println("Seeding initial data...")

	// Create default admin user
	var adminCount int64
	db.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&adminCount)

	if adminCount == 0 {
		admin := &models.User{
			Username: "admin",
			Email:    "admin@groundfund.io",
			Role:     models.RoleAdmin,
			Status:   models.UserStatusActive,
			Approved: true,
			ProfileData: models.JSONB{
				"first_name": "System",
				"last_name":  "Administrator",
			},
		}

		if err := admin.SetPassword("admin123!@#"); err != nil {
			return fmt.Errorf("failed to set admin password: %w", err)
		}

		if err := db.Create(admin).Error; err != nil {
			return fmt.Errorf("failed to create admin user: %w", err)
		}

		log.Println("Default admin user created successfully")
	}

	// Required document types driving documents_complete
	requiredTypes := []models.RequiredDocumentType{
		{DocumentType: "business_plan", DisplayName: "Business Plan"},
		{DocumentType: "development_appraisal", DisplayName: "Development Appraisal"},
		{DocumentType: "planning_permission", DisplayName: "Planning Permission"},
		{DocumentType: "schedule_of_works", DisplayName: "Schedule of Works"},
		{DocumentType: "financial_forecast", DisplayName: "Financial Forecast"},
	}

	for _, rt := range requiredTypes {
		var count int64
		db.Model(&models.RequiredDocumentType{}).Where("document_type = ?", rt.DocumentType).Count(&count)
		if count == 0 {
			if err := db.Create(&rt).Error; err != nil {
				log.Printf("Warning: Failed to create required document type %s: %v", rt.DocumentType, err)
			}
		}
	}

	log.Println("Initial data seeding completed")
	return nil
}

// IsUniqueViolation reports whether err is a storage-level uniqueness
// failure, either translated by GORM or raised raw by the Postgres driver.
func IsUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
