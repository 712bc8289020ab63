package entity

import (
	"time"

	"github.com/google/uuid"
)

type UserRole string

const (
	UserRoleUser  UserRole = "user"
	UserRoleAdmin UserRole = "admin"
)

// User carries three independent lifecycle flags: email ownership proven
// (EmailVerifiedAt), admin approval granted (IsApproved), and currently
// broadcasting location (IsActive). Login requires the first two; IsActive
// is flipped by the presence layer and by location submission.
type User struct {
	ID           uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name         string    `gorm:"type:varchar(100);not null"`
	Email        string    `gorm:"type:varchar(255);uniqueIndex;not null"`
	PasswordHash *string   `gorm:"type:text"`
	Role         UserRole  `gorm:"type:user_role;default:'user';not null"`

	EmailVerifiedAt *time.Time
	IsApproved      bool `gorm:"default:false"`
	IsActive        bool `gorm:"default:false"`

	CreatedAt time.Time
	UpdatedAt time.Time

	Locations []Location
}

func (u *User) Verified() bool {
	return u.EmailVerifiedAt != nil
}
