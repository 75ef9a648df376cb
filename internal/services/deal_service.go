// internal/services/deal_service.go
package services

import (
	"errors"
	"fmt"
	"mime/multipart"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/groundfund/groundfund-backend/internal/apperrors"
	"github.com/groundfund/groundfund-backend/internal/models"
	"github.com/groundfund/groundfund-backend/internal/utils"
)

// DealService runs the bilateral deal room: one deal per approved access
// request, document requests fulfilled by the counterparty, append-only
// quotes and comments.
type DealService struct {
	db                  *gorm.DB
	authz               *AuthorizationService
	storageService      *StorageService
	notificationService *NotificationService
}

type CreateDealRequest struct {
	AccessRequestID uuid.UUID `json:"access_request_id" validate:"required"`
}

type CreateDocumentRequestRequest struct {
	DocumentName string `json:"document_name" validate:"required,max=255"`
	Description  string `json:"description,omitempty" validate:"max=2000"`
}

type SubmitQuoteRequest struct {
	Amount       float64    `json:"amount" validate:"required,gt=0"`
	InterestRate float64    `json:"interest_rate" validate:"required,gt=0"`
	TermMonths   int        `json:"term_months" validate:"required,gt=0"`
	LTV          float64    `json:"ltv,omitempty"`
	LTC          float64    `json:"ltc,omitempty"`
	Note         string     `json:"note,omitempty" validate:"max=2000"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

type PostCommentRequest struct {
	Body string `json:"body" validate:"required,max=5000"`
}

func NewDealService(db *gorm.DB, authz *AuthorizationService, storageService *StorageService, notificationService *NotificationService) *DealService {
	return &DealService{
		db:                  db,
		authz:               authz,
		storageService:      storageService,
		notificationService: notificationService,
	}
}

// CreateDeal opens the deal room for an approved access request. Idempotent
// under races: the insert carries ON CONFLICT DO NOTHING on the unique
// access_request_id, then the surviving row is read back, so N concurrent
// calls all return the same deal. The creation notification fires only for
// the call whose insert actually landed.
func (s *DealService) CreateDeal(funderID uuid.UUID, req *CreateDealRequest) (*models.Deal, error) {
	// Validate request
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var deal models.Deal
	var created bool
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var request models.AccessRequest
		if err := tx.Preload("Project").First(&request, req.AccessRequestID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFoundf("access request %s", req.AccessRequestID)
			}
			return fmt.Errorf("database error: %w", err)
		}

		if request.FunderID != funderID {
			return apperrors.Deny(apperrors.DenyNotParticipant, "access request belongs to another funder")
		}

		funder, err := s.authz.GetUser(tx, funderID)
		if err != nil {
			return err
		}
		if err := s.authz.RequireUsableSubscription(funder); err != nil {
			return err
		}

		if request.Status != models.AccessRequestApproved {
			return apperrors.InvalidStatef("access request is %s", request.Status)
		}

		deal = models.Deal{
			AccessRequestID: request.ID,
			ProjectID:       request.ProjectID,
			BorrowerID:      request.Project.BorrowerID,
			FunderID:        request.FunderID,
			Status:          models.DealStatusActive,
		}
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "access_request_id"}},
			DoNothing: true,
		}).Create(&deal)
		if res.Error != nil {
			return fmt.Errorf("failed to create deal: %w", res.Error)
		}
		created = res.RowsAffected == 1

		// Read back the winning row into a clean struct; on a lost race the
		// conflicted insert's hook-assigned ID must not leak into the query.
		deal = models.Deal{}
		if err := tx.Where("access_request_id = ?", request.ID).First(&deal).Error; err != nil {
			return fmt.Errorf("failed to load deal: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if created {
		go s.notificationService.NotifyDealRoomCreated(&deal)
	}

	return &deal, nil
}

func (s *DealService) GetDeal(dealID, userID uuid.UUID) (*models.Deal, error) {
	deal, err := s.authz.RequireDealParticipant(nil, dealID, userID)
	if err != nil {
		return nil, err
	}

	if err := s.db.Preload("Project").Preload("Borrower").Preload("Funder").
		Preload("DocumentRequests").Preload("DocumentRequests.Document").
		First(deal, deal.ID).Error; err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}

	return deal, nil
}

func (s *DealService) ListDeals(userID uuid.UUID, params utils.PaginationParams) ([]models.Deal, int64, error) {
	query := s.db.Model(&models.Deal{}).
		Where("borrower_id = ? OR funder_id = ?", userID, userID).
		Preload("Project").Preload("Borrower").Preload("Funder")

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count deals: %w", err)
	}

	allowedSortFields := []string{"created_at", "updated_at", "status"}
	query = utils.ApplySort(query, params, allowedSortFields)
	query = utils.ApplyPagination(query, params)

	var deals []models.Deal
	if err := query.Find(&deals).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch deals: %w", err)
	}

	return deals, total, nil
}

// RequestDocument opens a document request. Either participant may ask;
// several may be open at once.
func (s *DealService) RequestDocument(dealID, userID uuid.UUID, req *CreateDocumentRequestRequest) (*models.DocumentRequest, error) {
	// Validate request
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var request *models.DocumentRequest
	var deal *models.Deal
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		deal, err = s.authz.RequireDealParticipant(tx, dealID, userID)
		if err != nil {
			return err
		}
		if deal.Status != models.DealStatusActive {
			return apperrors.InvalidStatef("deal is %s", deal.Status)
		}

		request = &models.DocumentRequest{
			DealID:       deal.ID,
			RequesterID:  userID,
			DocumentName: req.DocumentName,
			Description:  req.Description,
			Status:       models.DocumentRequestOpen,
		}
		if err := tx.Create(request).Error; err != nil {
			return fmt.Errorf("failed to create document request: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	go s.notificationService.NotifyDocumentRequestOpened(deal, request)

	return request, nil
}

// FulfillDocumentRequest attaches an uploaded file and closes the request.
// Only the participant who did not open the request may fulfill it.
func (s *DealService) FulfillDocumentRequest(dealID, requestID, userID uuid.UUID, file multipart.File, header *multipart.FileHeader) (*models.DocumentRequest, error) {
	// Storage first; a failed upload leaves no dangling row.
	result, err := s.storageService.UploadFile(file, header, s.storageService.GetDefaultUploadOptions("deal_documents"))
	if err != nil {
		return nil, fmt.Errorf("failed to store document: %w", err)
	}

	var request models.DocumentRequest
	var deal *models.Deal
	err = s.db.Transaction(func(tx *gorm.DB) error {
		deal, err = s.authz.RequireDealParticipant(tx, dealID, userID)
		if err != nil {
			return err
		}
		if deal.Status != models.DealStatusActive {
			return apperrors.InvalidStatef("deal is %s", deal.Status)
		}

		if err := tx.Where("id = ? AND deal_id = ?", requestID, dealID).First(&request).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFoundf("document request %s", requestID)
			}
			return fmt.Errorf("database error: %w", err)
		}

		if request.RequesterID == userID {
			return apperrors.Deny(apperrors.DenyNotParticipant, "a request is fulfilled by the other party")
		}

		if request.Status != models.DocumentRequestOpen {
			return apperrors.InvalidStatef("document request is %s", request.Status)
		}

		document := &models.Document{
			DealID:            &deal.ID,
			DocumentRequestID: &request.ID,
			DocumentType:      request.DocumentName,
			FileName:          header.Filename,
			FileKey:           result.Key,
			FileURL:           result.URL,
			UploaderID:        userID,
			UploadedAt:        time.Now(),
		}
		if err := tx.Create(document).Error; err != nil {
			return fmt.Errorf("failed to create document: %w", err)
		}

		now := time.Now()
		request.Status = models.DocumentRequestFulfilled
		request.FulfilledAt = &now
		request.DocumentID = &document.ID
		if err := tx.Save(&request).Error; err != nil {
			return fmt.Errorf("failed to update document request: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	go s.notificationService.NotifyDocumentRequestFulfilled(deal, &request)

	return &request, nil
}

// SubmitQuote appends an immutable indicative-terms record. Funder only;
// the current terms are the latest row, earlier quotes stay untouched.
func (s *DealService) SubmitQuote(dealID, userID uuid.UUID, req *SubmitQuoteRequest) (*models.Quote, error) {
	// Validate request
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var quote *models.Quote
	var deal *models.Deal
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		deal, err = s.authz.RequireDealParticipant(tx, dealID, userID)
		if err != nil {
			return err
		}
		if deal.FunderID != userID {
			return apperrors.Deny(apperrors.DenyWrongRole, "only the funder submits quotes")
		}
		if deal.Status != models.DealStatusActive {
			return apperrors.InvalidStatef("deal is %s", deal.Status)
		}

		quote = &models.Quote{
			DealID:       deal.ID,
			FunderID:     userID,
			Amount:       req.Amount,
			InterestRate: req.InterestRate,
			TermMonths:   req.TermMonths,
			LTV:          req.LTV,
			LTC:          req.LTC,
			Note:         req.Note,
			ExpiresAt:    req.ExpiresAt,
		}
		if err := tx.Create(quote).Error; err != nil {
			return fmt.Errorf("failed to create quote: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	go s.notificationService.NotifyQuoteSubmitted(deal, quote)

	return quote, nil
}

// ListQuotes returns quotes newest first, so the current terms lead.
func (s *DealService) ListQuotes(dealID, userID uuid.UUID) ([]models.Quote, error) {
	if _, err := s.authz.RequireDealParticipant(nil, dealID, userID); err != nil {
		return nil, err
	}

	var quotes []models.Quote
	if err := s.db.Where("deal_id = ?", dealID).
		Order("created_at DESC").
		Find(&quotes).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch quotes: %w", err)
	}

	return quotes, nil
}

// PostComment appends to the deal's message thread.
func (s *DealService) PostComment(dealID, userID uuid.UUID, req *PostCommentRequest) (*models.DealComment, error) {
	// Validate request
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var comment *models.DealComment
	err := s.db.Transaction(func(tx *gorm.DB) error {
		deal, err := s.authz.RequireDealParticipant(tx, dealID, userID)
		if err != nil {
			return err
		}
		if deal.Status != models.DealStatusActive {
			return apperrors.InvalidStatef("deal is %s", deal.Status)
		}

		comment = &models.DealComment{
			DealID:   deal.ID,
			AuthorID: userID,
			Body:     req.Body,
		}
		if err := tx.Create(comment).Error; err != nil {
			return fmt.Errorf("failed to create comment: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return comment, nil
}

func (s *DealService) ListComments(dealID, userID uuid.UUID) ([]models.DealComment, error) {
	if _, err := s.authz.RequireDealParticipant(nil, dealID, userID); err != nil {
		return nil, err
	}

	var comments []models.DealComment
	if err := s.db.Where("deal_id = ?", dealID).
		Preload("Author").
		Order("created_at ASC").
		Find(&comments).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch comments: %w", err)
	}

	return comments, nil
}

// CloseDeal ends the negotiation. Either participant may close; a closed
// deal rejects further document requests, quotes and comments.
func (s *DealService) CloseDeal(dealID, userID uuid.UUID) (*models.Deal, error) {
	var deal *models.Deal
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		deal, err = s.authz.RequireDealParticipant(tx, dealID, userID)
		if err != nil {
			return err
		}
		if deal.Status != models.DealStatusActive {
			return apperrors.InvalidStatef("deal is %s", deal.Status)
		}

		now := time.Now()
		deal.Status = models.DealStatusClosed
		deal.ClosedAt = &now
		if err := tx.Save(deal).Error; err != nil {
			return fmt.Errorf("failed to close deal: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deal, nil
}

// ListDealDocuments exposes the files exchanged in the room.
func (s *DealService) ListDealDocuments(dealID, userID uuid.UUID) ([]models.Document, error) {
	if _, err := s.authz.RequireDealParticipant(nil, dealID, userID); err != nil {
		return nil, err
	}

	var documents []models.Document
	if err := s.db.Where("deal_id = ?", dealID).
		Order("uploaded_at ASC").
		Find(&documents).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch documents: %w", err)
	}

	return documents, nil
}
