package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/mwantia/caltrack/pkg/db/migrations"
	"github.com/mwantia/caltrack/pkg/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SQLiteStore implements CalibrationStore using SQLite
type SQLiteStore struct {
	db   *gorm.DB
	path string
}

// DB returns the underlying GORM database instance
func (s *SQLiteStore) DB() *gorm.DB {
	return s.db
}

// SQLiteConfig holds SQLite-specific configuration
type SQLiteConfig struct {
	Path         string
	MaxOpenConns int
	LogLevel     logger.LogLevel
}

// NewSQLiteStore creates a new SQLite-backed calibration store
func NewSQLiteStore(cfg SQLiteConfig) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}

	// Default to silent logging
	if cfg.LogLevel == 0 {
		cfg.LogLevel = logger.Silent
	}

	db, err := gorm.Open(sqlite.Open(cfg.Path), &gorm.Config{
		Logger: logger.Default.LogMode(cfg.LogLevel),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	return &SQLiteStore{
		db:   db,
		path: cfg.Path,
	}, nil
}

// Connect initializes the database connection
func (s *SQLiteStore) Connect(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	// Configure connection pool
	sqlDB.SetMaxOpenConns(1) // SQLite only supports 1 writer
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return sqlDB.PingContext(ctx)
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.Close()
}

// Migrate runs all pending database migrations
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	return migrations.NewMigrator(s.db).Migrate(ctx)
}

// Health checks database connectivity
func (s *SQLiteStore) Health(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// WithTransaction runs fn against a transaction-scoped view of the store.
// Any error returned by fn rolls the whole transaction back.
func (s *SQLiteStore) WithTransaction(ctx context.Context, fn func(CalibrationStore) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&SQLiteStore{db: tx, path: s.path})
	})
}

// IsUniqueViolation reports whether err is a SQLite unique-constraint
// failure. The driver's errors cannot be wrapped at the source, so this
// falls back to message matching.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// Calibration operations

func (s *SQLiteStore) CreateCalibration(ctx context.Context, calibration *models.Calibration) error {
	return s.db.WithContext(ctx).Create(calibration).Error
}

func (s *SQLiteStore) GetCalibration(ctx context.Context, id int64) (*models.Calibration, error) {
	var calibration models.Calibration
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&calibration).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &calibration, nil
}

// applyCalibrationFilter translates a CalibrationFilter into query clauses.
func applyCalibrationFilter(query *gorm.DB, filter CalibrationFilter) *gorm.DB {
	if filter.Owner != "" {
		query = query.Where("owner = ?", filter.Owner)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at <= ?", *filter.CreatedBefore)
	}
	if filter.IDs != nil {
		query = query.Where("id IN ?", filter.IDs)
	}
	return query
}

func (s *SQLiteStore) ListCalibrations(ctx context.Context, filter CalibrationFilter, limit, offset int) ([]models.Calibration, error) {
	var calibrations []models.Calibration
	query := applyCalibrationFilter(s.db.WithContext(ctx).Model(&models.Calibration{}), filter).
		Order("created_at DESC")

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	err := query.Find(&calibrations).Error
	return calibrations, err
}

func (s *SQLiteStore) CountCalibrations(ctx context.Context, filter CalibrationFilter) (int64, error) {
	var count int64
	err := applyCalibrationFilter(s.db.WithContext(ctx).Model(&models.Calibration{}), filter).
		Count(&count).Error
	return count, err
}

// Tag operations

func (s *SQLiteStore) FindTagByName(ctx context.Context, name string) (*models.Tag, error) {
	var tag models.Tag
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&tag).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tag, nil
}

func (s *SQLiteStore) FindOrCreateTag(ctx context.Context, name string) (*models.Tag, error) {
	var tag models.Tag
	err := s.db.WithContext(ctx).Where(models.Tag{Name: name}).FirstOrCreate(&tag).Error
	if err != nil {
		return nil, err
	}
	return &tag, nil
}

func (s *SQLiteStore) ListTags(ctx context.Context) ([]models.Tag, error) {
	var tags []models.Tag
	err := s.db.WithContext(ctx).Order("name ASC").Find(&tags).Error
	return tags, err
}

// Association operations

func (s *SQLiteStore) ActiveAssociation(ctx context.Context, calibrationID int64, tagID uint) (*models.CalibrationTag, error) {
	return s.findAssociation(ctx, calibrationID, tagID, "removed_at IS NULL")
}

func (s *SQLiteStore) InactiveAssociation(ctx context.Context, calibrationID int64, tagID uint) (*models.CalibrationTag, error) {
	return s.findAssociation(ctx, calibrationID, tagID, "removed_at IS NOT NULL")
}

func (s *SQLiteStore) findAssociation(ctx context.Context, calibrationID int64, tagID uint, state string) (*models.CalibrationTag, error) {
	var association models.CalibrationTag
	err := s.db.WithContext(ctx).
		Where("calibration_id = ? AND tag_id = ?", calibrationID, tagID).
		Where(state).
		First(&association).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &association, nil
}

func (s *SQLiteStore) CreateAssociation(ctx context.Context, association *models.CalibrationTag) error {
	return s.db.WithContext(ctx).Create(association).Error
}

func (s *SQLiteStore) SaveAssociation(ctx context.Context, association *models.CalibrationTag) error {
	return s.db.WithContext(ctx).Save(association).Error
}

// CloseAssociation stamps the active row for the pair with a removal time.
// The conditional WHERE makes the detach atomic: zero affected rows means
// the pair was not actively tagged.
func (s *SQLiteStore) CloseAssociation(ctx context.Context, calibrationID int64, tagID uint, at time.Time) (int64, error) {
	result := s.db.WithContext(ctx).Model(&models.CalibrationTag{}).
		Where("calibration_id = ? AND tag_id = ? AND removed_at IS NULL", calibrationID, tagID).
		Update("removed_at", at)
	return result.RowsAffected, result.Error
}

const taggedAssociationColumns = "calibration_tags.id AS association_id, " +
	"calibration_tags.calibration_id, calibration_tags.tag_id, " +
	"tags.name AS tag_name, tags.description AS tag_description, " +
	"calibration_tags.added_at, calibration_tags.removed_at, calibration_tags.added_by"

func (s *SQLiteStore) ActiveTagsFor(ctx context.Context, calibrationID int64) ([]models.TaggedAssociation, error) {
	var associations []models.TaggedAssociation
	err := s.db.WithContext(ctx).Table("calibration_tags").
		Select(taggedAssociationColumns).
		Joins("JOIN tags ON tags.id = calibration_tags.tag_id").
		Where("calibration_tags.calibration_id = ? AND calibration_tags.removed_at IS NULL", calibrationID).
		Order("calibration_tags.added_at DESC").
		Scan(&associations).Error
	return associations, err
}

func (s *SQLiteStore) TagsCoveringInstant(ctx context.Context, calibrationID int64, at time.Time) ([]models.TaggedAssociation, error) {
	var associations []models.TaggedAssociation
	err := s.db.WithContext(ctx).Table("calibration_tags").
		Select(taggedAssociationColumns).
		Joins("JOIN tags ON tags.id = calibration_tags.tag_id").
		Where("calibration_tags.calibration_id = ?", calibrationID).
		Where("calibration_tags.added_at <= ?", at).
		Where("calibration_tags.removed_at IS NULL OR calibration_tags.removed_at > ?", at).
		Order("calibration_tags.added_at DESC").
		Scan(&associations).Error
	return associations, err
}

func (s *SQLiteStore) ActiveCalibrationIDsForTag(ctx context.Context, name string, at *time.Time) ([]int64, error) {
	query := s.db.WithContext(ctx).Table("calibration_tags").
		Joins("JOIN tags ON tags.id = calibration_tags.tag_id").
		Where("tags.name = ?", name)

	if at != nil {
		query = query.
			Where("calibration_tags.added_at <= ?", *at).
			Where("calibration_tags.removed_at IS NULL OR calibration_tags.removed_at > ?", *at)
	} else {
		query = query.Where("calibration_tags.removed_at IS NULL")
	}

	var ids []int64
	err := query.Distinct().Pluck("calibration_tags.calibration_id", &ids).Error
	return ids, err
}
