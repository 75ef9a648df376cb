// internal/models/common.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primary_key"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// BeforeCreate assigns the ID client-side; the column carries no database
// default so the schema migrates on any dialect (sqlite in tests).
func (m *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// JSONB type for PostgreSQL
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}

	return json.Unmarshal(bytes, j)
}

// Enums
type UserRole string

const (
	RoleBorrower UserRole = "borrower"
	RoleFunder   UserRole = "funder"
	RoleAdmin    UserRole = "admin"
)

type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusSuspended UserStatus = "suspended"
)

type SubscriptionStatus string

const (
	SubscriptionInactive            SubscriptionStatus = "inactive"
	SubscriptionActive              SubscriptionStatus = "active"
	SubscriptionPendingCancellation SubscriptionStatus = "pending_cancellation"
	SubscriptionCancelled           SubscriptionStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentStatusUnpaid PaymentStatus = "unpaid"
	PaymentStatusPaid   PaymentStatus = "paid"
)

type DevelopmentStage string

const (
	StagePlanning        DevelopmentStage = "planning"
	StagePreConstruction DevelopmentStage = "pre_construction"
	StageConstruction    DevelopmentStage = "construction"
	StageCompletion      DevelopmentStage = "practical_completion"
)

type AccessRequestStatus string

const (
	AccessRequestPending   AccessRequestStatus = "pending"
	AccessRequestApproved  AccessRequestStatus = "approved"
	AccessRequestDeclined  AccessRequestStatus = "declined"
	AccessRequestWithdrawn AccessRequestStatus = "withdrawn"
)

type DealStatus string

const (
	DealStatusActive DealStatus = "active"
	DealStatusClosed DealStatus = "closed"
)

type DocumentRequestStatus string

const (
	DocumentRequestOpen      DocumentRequestStatus = "open"
	DocumentRequestFulfilled DocumentRequestStatus = "fulfilled"
)
