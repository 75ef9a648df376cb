// internal/models/user.go
package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

type User struct {
	BaseModel
	Username            string             `json:"username" gorm:"uniqueIndex;size:50;not null"`
	Email               string             `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash        string             `json:"-" gorm:"size:255;not null"`
	Role                UserRole           `json:"role" gorm:"type:varchar(20);not null;index"`
	Status              UserStatus         `json:"status" gorm:"type:varchar(20);default:'active'"`
	Approved            bool               `json:"approved" gorm:"default:false"`
	ApprovedAt          *time.Time         `json:"approved_at"`
	SubscriptionStatus  SubscriptionStatus `json:"subscription_status" gorm:"type:varchar(30);default:'inactive';index"`
	SubscriptionEndDate *time.Time         `json:"subscription_end_date"`
	ProfileData         JSONB              `json:"profile_data" gorm:"type:jsonb"`
	LastLoginAt         *time.Time         `json:"last_login_at"`

	// Relationships
	Projects       []Project       `json:"projects,omitempty" gorm:"foreignKey:BorrowerID"`
	AccessRequests []AccessRequest `json:"access_requests,omitempty" gorm:"foreignKey:FunderID"`
}

func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hashedPassword)
	return nil
}

func (u *User) CheckPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
}

// CanEngage reports whether the funder may initiate new access requests.
// Only an active subscription qualifies.
func (u *User) CanEngage() bool {
	return u.Approved && u.SubscriptionStatus == SubscriptionActive
}

// CanUseExistingAccess reports whether already-approved access and deals
// remain usable. A subscription pending cancellation keeps access until
// period end.
func (u *User) CanUseExistingAccess() bool {
	return u.SubscriptionStatus == SubscriptionActive ||
		u.SubscriptionStatus == SubscriptionPendingCancellation
}
