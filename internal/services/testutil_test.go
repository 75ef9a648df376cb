// internal/services/testutil_test.go
package services

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/groundfund/groundfund-backend/internal/config"
	"github.com/groundfund/groundfund-backend/internal/models"
	"github.com/groundfund/groundfund-backend/internal/utils"
)

func paginationDefaults() utils.PaginationParams {
	return utils.PaginationParams{Page: 1, Limit: 20}
}

// openTestDB opens a per-test in-memory sqlite database. A single open
// connection keeps every goroutine on the same database and serializes the
// concurrent-create tests at the store, where the uniqueness invariants
// live. The partial unique index mirrors the production schema.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
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
	))

	require.NoError(t, db.Exec(
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_access_requests_active_pair "+
			"ON access_requests(funder_id, project_id) "+
			"WHERE status IN ('pending', 'approved') AND deleted_at IS NULL").Error)

	for _, dt := range []string{"business_plan", "development_appraisal", "planning_permission"} {
		require.NoError(t, db.Create(&models.RequiredDocumentType{
			DocumentType: dt,
			DisplayName:  dt,
		}).Error)
	}

	return db
}

func testConfig() *config.Config {
	return &config.Config{
		Environment: "test",
		Payment: config.PaymentConfig{
			ListingFee:       495,
			SubscriptionFee:  99,
			SubscriptionDays: 30,
		},
		JWT: config.JWTConfig{
			SecretKey:       "test-secret",
			AccessTokenTTL:  1,
			RefreshTokenTTL: 24,
		},
	}
}

// testEnv bundles the wired services the way the router does.
type testEnv struct {
	db             *gorm.DB
	cfg            *config.Config
	authz          *AuthorizationService
	notifications  *NotificationService
	storage        *StorageService
	auth           *AuthService
	projects       *ProjectService
	accessRequests *AccessRequestService
	deals          *DealService
	subscriptions  *SubscriptionService
	admin          *AdminService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := openTestDB(t)
	cfg := testConfig()

	notifications := NewNotificationService(db, cfg)
	storage, err := NewStorageService(cfg)
	require.NoError(t, err)
	authz := NewAuthorizationService(db)

	return &testEnv{
		db:             db,
		cfg:            cfg,
		authz:          authz,
		notifications:  notifications,
		storage:        storage,
		auth:           NewAuthService(db, cfg),
		projects:       NewProjectService(db, cfg, authz, storage, notifications),
		accessRequests: NewAccessRequestService(db, authz, notifications),
		deals:          NewDealService(db, authz, storage, notifications),
		subscriptions:  NewSubscriptionService(db, cfg, authz, notifications),
		admin:          NewAdminService(db, authz, notifications),
	}
}

// Fixtures

func (e *testEnv) createUser(t *testing.T, role models.UserRole, approved bool, sub models.SubscriptionStatus) *models.User {
	t.Helper()

	user := &models.User{
		Username:           fmt.Sprintf("user_%s", uuid.New().String()[:8]),
		Email:              fmt.Sprintf("%s@example.com", uuid.New().String()[:8]),
		Role:               role,
		Status:             models.UserStatusActive,
		Approved:           approved,
		SubscriptionStatus: sub,
	}
	require.NoError(t, user.SetPassword("TestPass123!"))
	if approved {
		now := time.Now()
		user.ApprovedAt = &now
	}
	if sub == models.SubscriptionActive || sub == models.SubscriptionPendingCancellation {
		end := time.Now().AddDate(0, 0, 30)
		user.SubscriptionEndDate = &end
	}
	require.NoError(t, e.db.Create(user).Error)
	return user
}

func (e *testEnv) createBorrower(t *testing.T) *models.User {
	return e.createUser(t, models.RoleBorrower, true, models.SubscriptionInactive)
}

func (e *testEnv) createFunder(t *testing.T) *models.User {
	return e.createUser(t, models.RoleFunder, true, models.SubscriptionActive)
}

func (e *testEnv) createAdmin(t *testing.T) *models.User {
	return e.createUser(t, models.RoleAdmin, true, models.SubscriptionInactive)
}

func (e *testEnv) createProject(t *testing.T, borrowerID uuid.UUID, paid bool) *models.Project {
	t.Helper()

	project := &models.Project{
		BorrowerID:       borrowerID,
		Title:            "Riverside Development",
		Location:         "Manchester",
		DevelopmentStage: models.StagePlanning,
		LoanAmount:       750000,
		ProjectCost:      1100000,
		ExpectedGDV:      1600000,
		LoanTermMonths:   18,
		PaymentStatus:    models.PaymentStatusUnpaid,
	}
	if paid {
		now := time.Now()
		project.PaymentStatus = models.PaymentStatusPaid
		project.PaidAt = &now
		project.DocumentsComplete = true
	}
	require.NoError(t, e.db.Create(project).Error)
	return project
}

// createApprovedRequest takes the pair straight to the approved state.
func (e *testEnv) createApprovedRequest(t *testing.T, project *models.Project, funderID uuid.UUID) *models.AccessRequest {
	t.Helper()

	now := time.Now()
	request := &models.AccessRequest{
		ProjectID:   project.ID,
		FunderID:    funderID,
		Status:      models.AccessRequestApproved,
		RequestedAt: now,
		ApprovedAt:  &now,
	}
	require.NoError(t, e.db.Create(request).Error)
	return request
}

func multipartFile(t *testing.T, filename, content string) (multipart.File, *multipart.FileHeader) {
	t.Helper()

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	fw, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	file, header, err := req.FormFile("file")
	require.NoError(t, err)
	return file, header
}
