// internal/models/project.go
package models

import (
	"time"

	"github.com/google/uuid"
)

type Project struct {
	BaseModel
	BorrowerID        uuid.UUID        `json:"borrower_id" gorm:"type:uuid;not null;index"`
	Title             string           `json:"title" gorm:"size:255;not null"`
	Description       string           `json:"description" gorm:"type:text"`
	Location          string           `json:"location" gorm:"size:255"`
	DevelopmentStage  DevelopmentStage `json:"development_stage" gorm:"type:varchar(30);index"`
	LoanAmount        float64          `json:"loan_amount" gorm:"type:decimal(15,2)"`
	ProjectCost       float64          `json:"project_cost" gorm:"type:decimal(15,2)"`
	ExpectedGDV       float64          `json:"expected_gdv" gorm:"type:decimal(15,2)"`
	LoanTermMonths    int              `json:"loan_term_months"`
	PaymentStatus     PaymentStatus    `json:"payment_status" gorm:"type:varchar(20);default:'unpaid';index"`
	PaidAt            *time.Time       `json:"paid_at"`
	DocumentsComplete bool             `json:"documents_complete" gorm:"default:false"`
	// Presence flags reported by the document intelligence collaborator,
	// keyed by document type.
	DocumentPresence JSONB `json:"document_presence,omitempty" gorm:"type:jsonb"`

	// Relationships
	Borrower       User            `json:"borrower,omitempty" gorm:"foreignKey:BorrowerID"`
	Documents      []Document      `json:"documents,omitempty" gorm:"foreignKey:ProjectID"`
	AccessRequests []AccessRequest `json:"access_requests,omitempty" gorm:"foreignKey:ProjectID"`
}

// Summary strips the confidential fields a funder may only see with an
// approved access request.
func (p Project) Summary() Project {
	p.LoanAmount = 0
	p.ProjectCost = 0
	p.ExpectedGDV = 0
	p.LoanTermMonths = 0
	p.Documents = nil
	p.AccessRequests = nil
	p.DocumentPresence = nil
	return p
}

// RequiredDocumentType is the externally configured list of document types a
// project must carry before it can be published.
type RequiredDocumentType struct {
	BaseModel
	DocumentType string `json:"document_type" gorm:"uniqueIndex;size:50;not null"`
	DisplayName  string `json:"display_name" gorm:"size:100;not null"`
}

// Document belongs to a project (pre-deal) or to a deal via a document
// request (post-deal), never both.
type Document struct {
	BaseModel
	ProjectID         *uuid.UUID `json:"project_id,omitempty" gorm:"type:uuid;index"`
	DealID            *uuid.UUID `json:"deal_id,omitempty" gorm:"type:uuid;index"`
	DocumentRequestID *uuid.UUID `json:"document_request_id,omitempty" gorm:"type:uuid;index"`
	DocumentType      string     `json:"document_type" gorm:"size:50;index"`
	FileName          string     `json:"file_name" gorm:"size:255;not null"`
	FileKey           string     `json:"file_key" gorm:"size:512;not null"`
	FileURL           string     `json:"file_url" gorm:"size:1024"`
	UploaderID        uuid.UUID  `json:"uploader_id" gorm:"type:uuid;not null"`
	UploadedAt        time.Time  `json:"uploaded_at"`

	// Relationships
	Uploader User `json:"uploader,omitempty" gorm:"foreignKey:UploaderID"`
}

// PaymentConfirmation records one applied gateway confirmation. The unique
// index over (project_id, payment_intent_id) is the replay guard.
type PaymentConfirmation struct {
	BaseModel
	ProjectID       uuid.UUID `json:"project_id" gorm:"type:uuid;not null;uniqueIndex:idx_payment_confirmations_project_intent"`
	PaymentIntentID string    `json:"payment_intent_id" gorm:"size:255;not null;uniqueIndex:idx_payment_confirmations_project_intent"`
	Amount          float64   `json:"amount" gorm:"type:decimal(15,2)"`
	AppliedAt       time.Time `json:"applied_at"`
}
