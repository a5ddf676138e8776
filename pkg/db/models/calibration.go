package models

import "time"

// Calibration represents a single measurement record. Rows are immutable once
// written; the ID is minted by the identity generator and never reused.
type Calibration struct {
	ID    int64   `gorm:"primaryKey;autoIncrement:false"`
	Type  string  `gorm:"type:text;not null;index:idx_calibrations_type"` // stored lowercase
	Value float64 `gorm:"not null"`
	Owner string  `gorm:"type:text;not null;index:idx_calibrations_owner"`

	CreatedAt time.Time `gorm:"not null;index:idx_calibrations_created_at"`
}
