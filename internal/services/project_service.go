// internal/services/project_service.go
package services

import (
	"errors"
	"fmt"
	"mime/multipart"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"
	"gorm.io/gorm"

	"github.com/groundfund/groundfund-backend/internal/apperrors"
	"github.com/groundfund/groundfund-backend/internal/config"
	"github.com/groundfund/groundfund-backend/internal/database"
	"github.com/groundfund/groundfund-backend/internal/models"
	"github.com/groundfund/groundfund-backend/internal/utils"
)

type ProjectService struct {
	db                  *gorm.DB
	config              *config.Config
	authz               *AuthorizationService
	storageService      *StorageService
	notificationService *NotificationService
}

type CreateProjectRequest struct {
	Title            string                  `json:"title" validate:"required,min=3,max=255"`
	Description      string                  `json:"description,omitempty"`
	Location         string                  `json:"location,omitempty"`
	DevelopmentStage models.DevelopmentStage `json:"development_stage,omitempty"`
	LoanAmount       float64                 `json:"loan_amount" validate:"required,gt=0"`
	ProjectCost      float64                 `json:"project_cost,omitempty"`
	ExpectedGDV      float64                 `json:"expected_gdv,omitempty"`
	LoanTermMonths   int                     `json:"loan_term_months,omitempty"`
}

type UpdateProjectRequest struct {
	Title            *string                  `json:"title,omitempty"`
	Description      *string                  `json:"description,omitempty"`
	Location         *string                  `json:"location,omitempty"`
	DevelopmentStage *models.DevelopmentStage `json:"development_stage,omitempty"`
	LoanAmount       *float64                 `json:"loan_amount,omitempty"`
	ProjectCost      *float64                 `json:"project_cost,omitempty"`
	ExpectedGDV      *float64                 `json:"expected_gdv,omitempty"`
	LoanTermMonths   *int                     `json:"loan_term_months,omitempty"`
}

// PublishProjectRequest carries the gateway confirmation for the listing fee.
type PublishProjectRequest struct {
	PaymentIntentID string  `json:"payment_intent_id" validate:"required"`
	Amount          float64 `json:"amount,omitempty"`
}

type ReturnToDraftRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// DocumentPresenceUpdate is one entry of the document-intelligence
// collaborator's callback payload.
type DocumentPresenceUpdate struct {
	DocumentType string `json:"document_type" validate:"required"`
	IsPresent    bool   `json:"is_present"`
}

type ProjectSearchParams struct {
	utils.PaginationParams
	Stage         *models.DevelopmentStage `json:"stage,omitempty"`
	Location      *string                  `json:"location,omitempty"`
	MinLoanAmount *float64                 `json:"min_loan_amount,omitempty"`
	MaxLoanAmount *float64                 `json:"max_loan_amount,omitempty"`
}

func NewProjectService(db *gorm.DB, config *config.Config, authz *AuthorizationService, storageService *StorageService, notificationService *NotificationService) *ProjectService {
	return &ProjectService{
		db:                  db,
		config:              config,
		authz:               authz,
		storageService:      storageService,
		notificationService: notificationService,
	}
}

func (s *ProjectService) CreateProject(borrowerID uuid.UUID, req *CreateProjectRequest) (*models.Project, error) {
	// Validate request
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	borrower, err := s.authz.GetUser(nil, borrowerID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.RequireRole(borrower, models.RoleBorrower); err != nil {
		return nil, err
	}

	project := &models.Project{
		BorrowerID:       borrowerID,
		Title:            req.Title,
		Description:      req.Description,
		Location:         req.Location,
		DevelopmentStage: req.DevelopmentStage,
		LoanAmount:       req.LoanAmount,
		ProjectCost:      req.ProjectCost,
		ExpectedGDV:      req.ExpectedGDV,
		LoanTermMonths:   req.LoanTermMonths,
		PaymentStatus:    models.PaymentStatusUnpaid,
	}

	if err := s.db.Create(project).Error; err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	return project, nil
}

// UpdateProject edits a draft. Published projects are content-frozen; the
// listing a funder paid attention to must match what was reviewed.
func (s *ProjectService) UpdateProject(projectID, userID uuid.UUID, req *UpdateProjectRequest) (*models.Project, error) {
	var project *models.Project
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		project, err = s.authz.RequireProjectOwner(tx, projectID, userID)
		if err != nil {
			return err
		}

		if project.PaymentStatus == models.PaymentStatusPaid {
			return apperrors.InvalidStatef("published projects cannot be edited")
		}

		if req.Title != nil {
			project.Title = *req.Title
		}
		if req.Description != nil {
			project.Description = *req.Description
		}
		if req.Location != nil {
			project.Location = *req.Location
		}
		if req.DevelopmentStage != nil {
			project.DevelopmentStage = *req.DevelopmentStage
		}
		if req.LoanAmount != nil {
			project.LoanAmount = *req.LoanAmount
		}
		if req.ProjectCost != nil {
			project.ProjectCost = *req.ProjectCost
		}
		if req.ExpectedGDV != nil {
			project.ExpectedGDV = *req.ExpectedGDV
		}
		if req.LoanTermMonths != nil {
			project.LoanTermMonths = *req.LoanTermMonths
		}

		if err := tx.Save(project).Error; err != nil {
			return fmt.Errorf("failed to update project: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return project, nil
}

// GetProject returns the project as the caller is allowed to see it. Owners
// and admins get everything; funders see paid projects only, and the
// confidential financial fields only while they hold an approved access
// request and a usable subscription.
func (s *ProjectService) GetProject(projectID, userID uuid.UUID, role models.UserRole) (*models.Project, error) {
	var project models.Project
	if err := s.db.Preload("Borrower").Preload("Documents").First(&project, projectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFoundf("project %s", projectID)
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if role == models.RoleAdmin || project.BorrowerID == userID {
		return &project, nil
	}

	// Unpaid projects are visible only to their owner.
	if project.PaymentStatus != models.PaymentStatusPaid {
		return nil, apperrors.NotFoundf("project %s", projectID)
	}

	if role == models.RoleFunder && s.hasApprovedAccess(projectID, userID) {
		return &project, nil
	}

	summary := project.Summary()
	return &summary, nil
}

func (s *ProjectService) hasApprovedAccess(projectID, funderID uuid.UUID) bool {
	var funder models.User
	if err := s.db.First(&funder, funderID).Error; err != nil {
		return false
	}
	if !funder.CanUseExistingAccess() {
		return false
	}

	var count int64
	s.db.Model(&models.AccessRequest{}).
		Where("project_id = ? AND funder_id = ? AND status = ?",
			projectID, funderID, models.AccessRequestApproved).
		Count(&count)
	return count > 0
}

// SearchProjects lists what the caller may see: funders browse paid
// listings as summaries, borrowers see their own projects, admins see all.
func (s *ProjectService) SearchProjects(params ProjectSearchParams, userID uuid.UUID, role models.UserRole) ([]models.Project, int64, error) {
	query := s.db.Model(&models.Project{}).Preload("Borrower")

	switch role {
	case models.RoleAdmin:
		// no restriction
	case models.RoleBorrower:
		query = query.Where("borrower_id = ?", userID)
	default:
		query = query.Where("payment_status = ?", models.PaymentStatusPaid)
	}

	if params.Stage != nil {
		query = query.Where("development_stage = ?", *params.Stage)
	}
	if params.Location != nil {
		query = query.Where("location ILIKE ?", "%"+*params.Location+"%")
	}
	if params.MinLoanAmount != nil {
		query = query.Where("loan_amount >= ?", *params.MinLoanAmount)
	}
	if params.MaxLoanAmount != nil {
		query = query.Where("loan_amount <= ?", *params.MaxLoanAmount)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count projects: %w", err)
	}

	allowedSortFields := []string{"created_at", "updated_at", "loan_amount", "title"}
	query = utils.ApplySort(query, params.PaginationParams, allowedSortFields)
	query = utils.ApplyPagination(query, params.PaginationParams)

	var projects []models.Project
	if err := query.Find(&projects).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch projects: %w", err)
	}

	if role == models.RoleFunder {
		for i := range projects {
			if !s.hasApprovedAccess(projects[i].ID, userID) {
				projects[i] = projects[i].Summary()
			}
		}
	}

	return projects, total, nil
}

// UploadDocument stores an owner-uploaded file and recomputes document
// completeness.
func (s *ProjectService) UploadDocument(projectID, userID uuid.UUID, documentType string, file multipart.File, header *multipart.FileHeader) (*models.Document, error) {
	if documentType == "" {
		return nil, errors.New("document_type is required")
	}

	// Storage first; a failed upload leaves no dangling row.
	result, err := s.storageService.UploadFile(file, header, s.storageService.GetDefaultUploadOptions("project_documents"))
	if err != nil {
		return nil, fmt.Errorf("failed to store document: %w", err)
	}

	var document *models.Document
	err = s.db.Transaction(func(tx *gorm.DB) error {
		project, err := s.authz.RequireProjectOwner(tx, projectID, userID)
		if err != nil {
			return err
		}

		document = &models.Document{
			ProjectID:    &project.ID,
			DocumentType: documentType,
			FileName:     header.Filename,
			FileKey:      result.Key,
			FileURL:      result.URL,
			UploaderID:   userID,
			UploadedAt:   time.Now(),
		}
		if err := tx.Create(document).Error; err != nil {
			return fmt.Errorf("failed to create document: %w", err)
		}

		return s.recomputeDocumentsComplete(tx, project)
	})
	if err != nil {
		return nil, err
	}
	return document, nil
}

// ApplyDocumentAnalysis ingests the document-intelligence collaborator's
// presence report and recomputes completeness. A false flag overrides an
// uploaded file of the same type (the file exists but lacks the content).
func (s *ProjectService) ApplyDocumentAnalysis(projectID, userID uuid.UUID, updates []DocumentPresenceUpdate) (*models.Project, error) {
	var project *models.Project
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		project, err = s.authz.RequireProjectOwner(tx, projectID, userID)
		if err != nil {
			return err
		}

		if project.DocumentPresence == nil {
			project.DocumentPresence = make(models.JSONB)
		}
		for _, u := range updates {
			if u.DocumentType == "" {
				return errors.New("document_type is required")
			}
			project.DocumentPresence[u.DocumentType] = u.IsPresent
		}

		return s.recomputeDocumentsComplete(tx, project)
	})
	if err != nil {
		return nil, err
	}
	return project, nil
}

// recomputeDocumentsComplete derives documents_complete from the required
// type list: a type counts when a file of that type was uploaded, unless
// the intelligence collaborator flagged it absent; a true flag counts even
// without an upload (e.g. a bundle covering several types).
func (s *ProjectService) recomputeDocumentsComplete(tx *gorm.DB, project *models.Project) error {
	var required []models.RequiredDocumentType
	if err := tx.Find(&required).Error; err != nil {
		return fmt.Errorf("failed to load required document types: %w", err)
	}

	var uploaded []string
	if err := tx.Model(&models.Document{}).
		Where("project_id = ?", project.ID).
		Distinct("document_type").
		Pluck("document_type", &uploaded).Error; err != nil {
		return fmt.Errorf("failed to load uploaded documents: %w", err)
	}

	present := make(map[string]bool, len(uploaded))
	for _, t := range uploaded {
		present[t] = true
	}
	for t, v := range project.DocumentPresence {
		if flag, ok := v.(bool); ok {
			present[t] = flag
		}
	}

	complete := true
	for _, r := range required {
		if !present[r.DocumentType] {
			complete = false
			break
		}
	}

	project.DocumentsComplete = complete
	if err := tx.Save(project).Error; err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}
	return nil
}

// PublishProject applies a payment confirmation and moves the project from
// draft to published. The completeness guard runs before anything else: a
// valid confirmation never publishes an incomplete project. Replayed
// confirmations hit the (project_id, payment_intent_id) unique index.
func (s *ProjectService) PublishProject(projectID, userID uuid.UUID, req *PublishProjectRequest) (*models.Project, error) {
	// Validate request
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	// Verify the intent with the gateway before touching state.
	if s.config.Payment.StripeSecretKey != "" {
		pi, err := paymentintent.Get(req.PaymentIntentID, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to verify payment intent: %w", err)
		}
		if pi.Status != stripe.PaymentIntentStatusSucceeded {
			return nil, apperrors.Preconditionf("payment intent %s is %s", pi.ID, pi.Status)
		}
	}

	var project *models.Project
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		project, err = s.authz.RequireProjectOwner(tx, projectID, userID)
		if err != nil {
			return err
		}

		if !project.DocumentsComplete {
			return apperrors.Preconditionf("required documents are incomplete")
		}

		confirmation := &models.PaymentConfirmation{
			ProjectID:       project.ID,
			PaymentIntentID: req.PaymentIntentID,
			Amount:          req.Amount,
			AppliedAt:       time.Now(),
		}
		if err := tx.Create(confirmation).Error; err != nil {
			if database.IsUniqueViolation(err) {
				return apperrors.Conflictf("payment confirmation %s already applied", req.PaymentIntentID)
			}
			return fmt.Errorf("failed to record payment confirmation: %w", err)
		}

		if project.PaymentStatus == models.PaymentStatusPaid {
			return apperrors.InvalidStatef("project is already published")
		}

		now := time.Now()
		project.PaymentStatus = models.PaymentStatusPaid
		project.PaidAt = &now
		if err := tx.Save(project).Error; err != nil {
			return fmt.Errorf("failed to publish project: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	go s.notificationService.NotifyProjectPublished(project)

	return project, nil
}

// ReturnToDraft is the admin-only reverse transition, taken on payment
// reversal or compliance rejection. Existing deals survive; only the
// listing comes down. Re-publication re-gates on document completeness.
func (s *ProjectService) ReturnToDraft(projectID, adminID uuid.UUID, req *ReturnToDraftRequest) (*models.Project, error) {
	// Validate request
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	admin, err := s.authz.GetUser(nil, adminID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.RequireRole(admin, models.RoleAdmin); err != nil {
		return nil, err
	}

	var project models.Project
	var approvedFunderIDs []uuid.UUID
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&project, projectID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFoundf("project %s", projectID)
			}
			return fmt.Errorf("database error: %w", err)
		}

		if project.PaymentStatus != models.PaymentStatusPaid {
			return apperrors.InvalidStatef("project is not published")
		}

		project.PaymentStatus = models.PaymentStatusUnpaid
		project.PaidAt = nil
		if err := tx.Save(&project).Error; err != nil {
			return fmt.Errorf("failed to return project to draft: %w", err)
		}

		auditLog := &models.AuditLog{
			UserID:       &adminID,
			Action:       "project.return_to_draft",
			ResourceType: "project",
			ResourceID:   &project.ID,
			Reason:       req.Reason,
		}
		if err := tx.Create(auditLog).Error; err != nil {
			return fmt.Errorf("failed to create audit log: %w", err)
		}

		if err := tx.Model(&models.AccessRequest{}).
			Where("project_id = ? AND status = ?", projectID, models.AccessRequestApproved).
			Pluck("funder_id", &approvedFunderIDs).Error; err != nil {
			return fmt.Errorf("failed to load approved funders: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	go func() {
		s.notificationService.NotifyProjectReturnedToDraft(&project, project.BorrowerID, req.Reason)
		for _, funderID := range approvedFunderIDs {
			s.notificationService.NotifyProjectReturnedToDraft(&project, funderID, req.Reason)
		}
	}()

	return &project, nil
}

func (s *ProjectService) ListRequiredDocumentTypes() ([]models.RequiredDocumentType, error) {
	var types []models.RequiredDocumentType
	if err := s.db.Order("document_type").Find(&types).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch required document types: %w", err)
	}
	return types, nil
}
