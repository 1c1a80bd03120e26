package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role values
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// User is provisioned by the identity provider; this service only reads it
// and records the payment gateway customer mapping.
type User struct {
	ID                uuid.UUID `gorm:"type:char(36);primaryKey" json:"id"`
	Name              string    `gorm:"type:varchar(255);default:''" json:"name"`
	Email             string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Role              string    `gorm:"type:varchar(20);default:'USER'" json:"role"`
	GatewayCustomerID *string   `gorm:"type:varchar(100);uniqueIndex" json:"-"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}
