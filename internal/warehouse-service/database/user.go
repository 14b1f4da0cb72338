package database

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID         uint   `gorm:"primaryKey"`
	Username   string `gorm:"size:150;not null;uniqueIndex"`
	Password   string `gorm:"not null"`
	IsStaff    bool   `gorm:"not null;default:false"`
	IsActive   bool   `gorm:"not null;default:true"`
	DateJoined time.Time
}

// Token is the API key handed out on login, one per user.
type Token struct {
	Key       uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    uint      `gorm:"not null;uniqueIndex"`
	User      *User     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	CreatedAt time.Time
}

const (
	OptionTechnicalCondition = "technical_condition"
	OptionWarehouseName      = "whs_name"
)

// UserOption is a value a user picks from while scanning
// (technical conditions, warehouse names).
type UserOption struct {
	ID     uint   `gorm:"primaryKey"`
	UserID uint   `gorm:"not null;uniqueIndex:idx_user_option"`
	User   *User  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Kind   string `gorm:"size:32;not null;uniqueIndex:idx_user_option"`
	Value  string `gorm:"size:255;not null;uniqueIndex:idx_user_option"`
}
