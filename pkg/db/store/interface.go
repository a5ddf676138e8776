package store

import (
	"context"
	"time"

	"github.com/mwantia/caltrack/pkg/db/models"
)

// CalibrationFilter narrows calibration listings. Zero-valued fields are
// ignored; a non-nil IDs slice restricts results to that set (an empty
// non-nil slice matches nothing).
type CalibrationFilter struct {
	Owner         string
	Type          string // compared against the stored lowercase value
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
	IDs           []int64
}

// CalibrationStore defines the interface for database operations. Lookup
// methods return (nil, nil) when no row matches so that callers never depend
// on driver-specific not-found errors.
type CalibrationStore interface {
	// Lifecycle
	Connect(ctx context.Context) error
	Close() error
	Migrate(ctx context.Context) error
	Health(ctx context.Context) error

	// WithTransaction runs fn against a store view scoped to a single
	// transaction. Returning an error rolls everything back.
	WithTransaction(ctx context.Context, fn func(CalibrationStore) error) error

	// Calibration operations
	CreateCalibration(ctx context.Context, calibration *models.Calibration) error
	GetCalibration(ctx context.Context, id int64) (*models.Calibration, error)
	ListCalibrations(ctx context.Context, filter CalibrationFilter, limit, offset int) ([]models.Calibration, error)
	CountCalibrations(ctx context.Context, filter CalibrationFilter) (int64, error)

	// Tag operations
	FindTagByName(ctx context.Context, name string) (*models.Tag, error)
	FindOrCreateTag(ctx context.Context, name string) (*models.Tag, error)
	ListTags(ctx context.Context) ([]models.Tag, error)

	// Association operations
	ActiveAssociation(ctx context.Context, calibrationID int64, tagID uint) (*models.CalibrationTag, error)
	InactiveAssociation(ctx context.Context, calibrationID int64, tagID uint) (*models.CalibrationTag, error)
	CreateAssociation(ctx context.Context, association *models.CalibrationTag) error
	SaveAssociation(ctx context.Context, association *models.CalibrationTag) error
	CloseAssociation(ctx context.Context, calibrationID int64, tagID uint, at time.Time) (int64, error)
	ActiveTagsFor(ctx context.Context, calibrationID int64) ([]models.TaggedAssociation, error)
	TagsCoveringInstant(ctx context.Context, calibrationID int64, at time.Time) ([]models.TaggedAssociation, error)
	ActiveCalibrationIDsForTag(ctx context.Context, name string, at *time.Time) ([]int64, error)
}
