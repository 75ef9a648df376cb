// internal/models/notification.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification events emitted by the engagement lifecycle. Delivery is
// fire-and-forget; a failed delivery never rolls back the transition that
// produced it.
const (
	EventAccessRequestReceived    = "access_request_received"
	EventAccessRequestApproved    = "access_request_approved"
	EventAccessRequestDeclined    = "access_request_declined"
	EventDealRoomCreated          = "deal_room_created"
	EventDocumentRequestOpened    = "document_request_opened"
	EventDocumentRequestFulfilled = "document_request_fulfilled"
	EventQuoteSubmitted           = "quote_submitted"
	EventProjectPublished         = "project_published"
	EventProjectRejected          = "project_rejected"
	EventSubscriptionApproved     = "subscription_approved"
	EventSubscriptionActivated    = "subscription_activated"
)

type Notification struct {
	BaseModel
	RecipientID uuid.UUID  `json:"recipient_id" gorm:"type:uuid;not null;index"`
	Event       string     `json:"event" gorm:"type:varchar(50);not null;index"`
	Title       string     `json:"title" gorm:"size:255;not null"`
	Message     string     `json:"message" gorm:"type:text;not null"`
	Payload     JSONB      `json:"payload,omitempty" gorm:"type:jsonb"`
	ReadAt      *time.Time `json:"read_at"`

	// Relationships
	Recipient User `json:"recipient,omitempty" gorm:"foreignKey:RecipientID"`
}

type AuditLog struct {
	BaseModel
	UserID       *uuid.UUID `json:"user_id" gorm:"type:uuid;index"`
	Action       string     `json:"action" gorm:"size:100;not null;index"`
	ResourceType string     `json:"resource_type" gorm:"size:50;not null;index"`
	ResourceID   *uuid.UUID `json:"resource_id" gorm:"type:uuid;index"`
	Reason       string     `json:"reason,omitempty" gorm:"type:text"`
	NewValues    JSONB      `json:"new_values" gorm:"type:jsonb"`
	IPAddress    string     `json:"ip_address" gorm:"size:45"`
	UserAgent    string     `json:"user_agent" gorm:"type:text"`

	// Relationships
	User *User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}
