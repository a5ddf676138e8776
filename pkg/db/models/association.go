package models

import "time"

// CalibrationTag is the interval fact recording that a tag was attached to a
// calibration during [AddedAt, RemovedAt). An active association has a nil
// RemovedAt; detaching sets it, and a later reattach reuses the same row.
//
// RemovedAt is deliberately not a gorm.DeletedAt: removed rows must remain
// visible to the historical interval queries.
type CalibrationTag struct {
	ID            uint  `gorm:"primaryKey"`
	CalibrationID int64 `gorm:"not null;index:idx_calibration_tags_pair"`
	TagID         uint  `gorm:"not null;index:idx_calibration_tags_pair"`

	AddedAt   time.Time  `gorm:"not null"`
	RemovedAt *time.Time `gorm:"index"`
	AddedBy   string     `gorm:"type:text"`

	// Relationships
	Calibration Calibration `gorm:"foreignKey:CalibrationID;references:ID"`
	Tag         Tag         `gorm:"foreignKey:TagID;references:ID"`
}

// IsActive reports whether the association is currently in effect.
func (ct *CalibrationTag) IsActive() bool {
	return ct.RemovedAt == nil
}

// TaggedAssociation is the read model returned by the current/historical tag
// queries: association columns joined with the tag they reference.
type TaggedAssociation struct {
	AssociationID  uint
	CalibrationID  int64
	TagID          uint
	TagName        string
	TagDescription string
	AddedAt        time.Time
	RemovedAt      *time.Time
	AddedBy        string
}
