package entity

import (
	"time"

	"github.com/google/uuid"
)

// Location is an immutable GPS sample. Rows are never updated or deleted
// individually; the only delete path is the cascade when the owning user
// is removed.
type Location struct {
	ID     uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID uuid.UUID `gorm:"type:uuid;not null;index:idx_locations_user_ts,priority:1"`
	User   User      `gorm:"constraint:OnDelete:CASCADE"`

	Latitude  float64  `gorm:"not null"`
	Longitude float64  `gorm:"not null"`
	Altitude  *float64 `gorm:""`
	Accuracy  *float64 `gorm:""`
	Speed     *float64 `gorm:""`
	Heading   *float64 `gorm:""`

	Timestamp time.Time `gorm:"not null;default:now();index:idx_locations_user_ts,priority:2,sort:desc"`
}
