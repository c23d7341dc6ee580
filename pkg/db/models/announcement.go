package models

import "time"

// CurrentAnnouncementID is the fixed key for the single announcement row.
const CurrentAnnouncementID = 1

// Announcement is the storefront banner. A single row keyed by a fixed id is
// upserted in place instead of the delete-then-insert pattern.
type Announcement struct {
	ID        int       `gorm:"column:id;primaryKey"`
	Title     string    `gorm:"column:title;not null"`
	Body      string    `gorm:"column:body"`
	IsActive  bool      `gorm:"column:is_active;not null;default:true"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
