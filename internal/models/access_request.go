// internal/models/access_request.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// AccessRequest is the sole authorization token for a funder to view a
// project's confidential fields. At most one active (pending or approved)
// request may exist per (funder, project) pair; the partial unique index
// enforcing that lives in database.createIndexes.
type AccessRequest struct {
	BaseModel
	ProjectID      uuid.UUID           `json:"project_id" gorm:"type:uuid;not null;index"`
	FunderID       uuid.UUID           `json:"funder_id" gorm:"type:uuid;not null;index"`
	Status         AccessRequestStatus `json:"status" gorm:"type:varchar(20);default:'pending';index"`
	InitialMessage string              `json:"initial_message" gorm:"type:text"`
	DecisionNote   string              `json:"decision_note,omitempty" gorm:"type:text"`
	RequestedAt    time.Time           `json:"requested_at"`
	ApprovedAt     *time.Time          `json:"approved_at"`
	DeclinedAt     *time.Time          `json:"declined_at"`
	WithdrawnAt    *time.Time          `json:"withdrawn_at"`

	// Relationships
	Project Project `json:"project,omitempty" gorm:"foreignKey:ProjectID"`
	Funder  User    `json:"funder,omitempty" gorm:"foreignKey:FunderID"`
	Deal    *Deal   `json:"deal,omitempty" gorm:"foreignKey:AccessRequestID"`
}

// Active reports whether the request still occupies the (funder, project)
// uniqueness slot.
func (r *AccessRequest) Active() bool {
	return r.Status == AccessRequestPending || r.Status == AccessRequestApproved
}
