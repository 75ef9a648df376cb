// internal/models/deal.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Deal is the bilateral workspace created once access is approved. The
// unique index on AccessRequestID keeps it 1:1 with its access request;
// duplicate creation resolves idempotently to the existing row.
type Deal struct {
	BaseModel
	AccessRequestID uuid.UUID  `json:"access_request_id" gorm:"type:uuid;not null;uniqueIndex"`
	ProjectID       uuid.UUID  `json:"project_id" gorm:"type:uuid;not null;index"`
	BorrowerID      uuid.UUID  `json:"borrower_id" gorm:"type:uuid;not null;index"`
	FunderID        uuid.UUID  `json:"funder_id" gorm:"type:uuid;not null;index"`
	Status          DealStatus `json:"status" gorm:"type:varchar(20);default:'active';index"`
	ClosedAt        *time.Time `json:"closed_at"`

	// Relationships
	AccessRequest    AccessRequest     `json:"access_request,omitempty" gorm:"foreignKey:AccessRequestID"`
	Project          Project           `json:"project,omitempty" gorm:"foreignKey:ProjectID"`
	Borrower         User              `json:"borrower,omitempty" gorm:"foreignKey:BorrowerID"`
	Funder           User              `json:"funder,omitempty" gorm:"foreignKey:FunderID"`
	DocumentRequests []DocumentRequest `json:"document_requests,omitempty" gorm:"foreignKey:DealID"`
	Quotes           []Quote           `json:"quotes,omitempty" gorm:"foreignKey:DealID"`
	Comments         []DealComment     `json:"comments,omitempty" gorm:"foreignKey:DealID"`
}

// Participant reports whether the user is one of the deal's two parties.
func (d *Deal) Participant(userID uuid.UUID) bool {
	return d.BorrowerID == userID || d.FunderID == userID
}

// Counterparty returns the other participant.
func (d *Deal) Counterparty(userID uuid.UUID) uuid.UUID {
	if d.BorrowerID == userID {
		return d.FunderID
	}
	return d.BorrowerID
}

// DocumentRequest asks the other participant for a document. Multiple
// requests may be open concurrently; there is no uniqueness constraint.
type DocumentRequest struct {
	BaseModel
	DealID       uuid.UUID             `json:"deal_id" gorm:"type:uuid;not null;index"`
	RequesterID  uuid.UUID             `json:"requester_id" gorm:"type:uuid;not null"`
	DocumentName string                `json:"document_name" gorm:"size:255;not null"`
	Description  string                `json:"description" gorm:"type:text"`
	Status       DocumentRequestStatus `json:"status" gorm:"type:varchar(20);default:'open';index"`
	FulfilledAt  *time.Time            `json:"fulfilled_at"`
	DocumentID   *uuid.UUID            `json:"document_id" gorm:"type:uuid"`

	// Relationships
	Requester User      `json:"requester,omitempty" gorm:"foreignKey:RequesterID"`
	Document  *Document `json:"document,omitempty" gorm:"foreignKey:DocumentID"`
}

// Quote is an immutable indicative-terms record. Rows are append-only;
// the current terms are the most recent by CreatedAt.
type Quote struct {
	BaseModel
	DealID       uuid.UUID  `json:"deal_id" gorm:"type:uuid;not null;index"`
	FunderID     uuid.UUID  `json:"funder_id" gorm:"type:uuid;not null"`
	Amount       float64    `json:"amount" gorm:"type:decimal(15,2);not null"`
	InterestRate float64    `json:"interest_rate" gorm:"type:decimal(6,4);not null"`
	TermMonths   int        `json:"term_months" gorm:"not null"`
	LTV          float64    `json:"ltv" gorm:"type:decimal(6,4)"`
	LTC          float64    `json:"ltc" gorm:"type:decimal(6,4)"`
	Note         string     `json:"note" gorm:"type:text"`
	ExpiresAt    *time.Time `json:"expires_at"`
}

// DealComment is append-only, ordered by CreatedAt.
type DealComment struct {
	BaseModel
	DealID   uuid.UUID `json:"deal_id" gorm:"type:uuid;not null;index"`
	AuthorID uuid.UUID `json:"author_id" gorm:"type:uuid;not null"`
	Body     string    `json:"body" gorm:"type:text;not null"`

	// Relationships
	Author User `json:"author,omitempty" gorm:"foreignKey:AuthorID"`
}
