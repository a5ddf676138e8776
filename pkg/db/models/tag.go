package models

import "time"

// Tag represents a named label attachable to many calibrations. Tags are
// created lazily on first attach, matched by exact name, and never deleted.
type Tag struct {
	ID          uint   `gorm:"primaryKey"`
	Name        string `gorm:"type:text;not null;uniqueIndex:idx_tags_name"`
	Description string `gorm:"type:text"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
