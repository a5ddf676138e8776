// Package calibrations exposes the operation contracts consumed by routing
// collaborators: calibration creation with generated identifiers, tag
// mutation via the association engine, and filtered, paginated listings.
package calibrations

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mwantia/caltrack/pkg/db/models"
	"github.com/mwantia/caltrack/pkg/db/store"
	"github.com/mwantia/caltrack/pkg/errs"
	"github.com/mwantia/caltrack/pkg/identity"
	"github.com/mwantia/caltrack/pkg/log"
	"github.com/mwantia/caltrack/pkg/tagging"
)

// DefaultLimit is the page size applied when the caller requests none.
const DefaultLimit = 20

// ListFilter narrows a calibration listing. Timestamps arrive as ISO-8601
// strings and are parsed here; malformed values fail the request instead of
// being silently dropped.
type ListFilter struct {
	Owner         string
	Type          string
	CreatedAfter  string
	CreatedBefore string
	TagName       string
	TagAtTime     string
}

// CalibrationPage is one page of a calibration listing.
type CalibrationPage struct {
	Items []models.Calibration
	Total int64
	Page  int
	Pages int
	Limit int
}

// Service composes the store, the association engine and the identity
// generator behind the operations a request-routing collaborator calls.
type Service struct {
	store     store.CalibrationStore
	engine    *tagging.Engine
	generator *identity.Generator
	log       log.LoggerService

	// now is swapped out in tests
	now func() time.Time
}

// NewService creates the calibration service facade.
func NewService(st store.CalibrationStore, engine *tagging.Engine, generator *identity.Generator, logger log.LoggerService) *Service {
	if logger == nil {
		logger = log.Nop()
	}

	return &Service{
		store:     st,
		engine:    engine,
		generator: generator,
		log:       logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreateCalibration persists a new immutable calibration record with a
// generator-minted ID. The type is normalized to lowercase on write.
func (s *Service) CreateCalibration(ctx context.Context, calibrationType string, value float64, owner string) (*models.Calibration, error) {
	if calibrationType == "" {
		return nil, fmt.Errorf("calibration type must not be empty: %w", errs.ErrInvalidArgument)
	}
	if owner == "" {
		return nil, fmt.Errorf("owner must not be empty: %w", errs.ErrInvalidArgument)
	}

	calibration := &models.Calibration{
		ID:        s.generator.Next(),
		Type:      strings.ToLower(calibrationType),
		Value:     value,
		Owner:     owner,
		CreatedAt: s.now(),
	}

	if err := s.store.CreateCalibration(ctx, calibration); err != nil {
		return nil, fmt.Errorf("failed to create calibration: %w: %w", errs.ErrStore, err)
	}

	s.log.Info("Created calibration %d (%s=%g by %s)", calibration.ID, calibration.Type, calibration.Value, calibration.Owner)
	return calibration, nil
}

// GetCalibration looks up a single calibration by ID.
func (s *Service) GetCalibration(ctx context.Context, id int64) (*models.Calibration, error) {
	calibration, err := s.store.GetCalibration(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load calibration %d: %w: %w", id, errs.ErrStore, err)
	}
	if calibration == nil {
		return nil, fmt.Errorf("calibration %d: %w", id, errs.ErrNotFound)
	}
	return calibration, nil
}

// AttachTag delegates to the association engine.
func (s *Service) AttachTag(ctx context.Context, calibrationID int64, tagName, addedBy string) (tagging.AttachResult, error) {
	return s.engine.Attach(ctx, calibrationID, tagName, addedBy)
}

// DetachTag delegates to the association engine.
func (s *Service) DetachTag(ctx context.Context, calibrationID int64, tagName string) (tagging.DetachResult, error) {
	return s.engine.Detach(ctx, calibrationID, tagName)
}

// GetCurrentTags returns the calibration's active tags, newest first.
func (s *Service) GetCurrentTags(ctx context.Context, calibrationID int64) ([]models.TaggedAssociation, error) {
	return s.engine.CurrentTags(ctx, calibrationID)
}

// GetHistoricalTags returns the tags the calibration carried at the given
// ISO-8601 instant.
func (s *Service) GetHistoricalTags(ctx context.Context, calibrationID int64, atTime string) ([]models.TaggedAssociation, error) {
	at, err := parseTimestamp(atTime)
	if err != nil {
		return nil, err
	}
	return s.engine.HistoricalTags(ctx, calibrationID, at)
}

// ListAllTags returns every known tag, ordered by name.
func (s *Service) ListAllTags(ctx context.Context) ([]models.Tag, error) {
	tags, err := s.store.ListTags(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w: %w", errs.ErrStore, err)
	}
	return tags, nil
}

// ListCalibrations answers a filtered, paginated listing, newest first. A
// tag filter intersects the base matches with the tag's calibration set,
// current or as-of TagAtTime. A page past the end yields an empty item list
// with the correct totals.
func (s *Service) ListCalibrations(ctx context.Context, filter ListFilter, page, limit int) (*CalibrationPage, error) {
	if limit == 0 {
		limit = DefaultLimit
	}
	if page < 1 {
		return nil, fmt.Errorf("page %d out of range: %w", page, errs.ErrInvalidArgument)
	}
	if limit < 1 {
		return nil, fmt.Errorf("limit %d out of range: %w", limit, errs.ErrInvalidArgument)
	}

	storeFilter := store.CalibrationFilter{
		Owner: filter.Owner,
		Type:  strings.ToLower(filter.Type),
	}

	if filter.CreatedAfter != "" {
		after, err := parseTimestamp(filter.CreatedAfter)
		if err != nil {
			return nil, err
		}
		storeFilter.CreatedAfter = &after
	}
	if filter.CreatedBefore != "" {
		before, err := parseTimestamp(filter.CreatedBefore)
		if err != nil {
			return nil, err
		}
		storeFilter.CreatedBefore = &before
	}

	if filter.TagName != "" {
		var at *time.Time
		if filter.TagAtTime != "" {
			parsed, err := parseTimestamp(filter.TagAtTime)
			if err != nil {
				return nil, err
			}
			at = &parsed
		}

		ids, err := s.engine.ActiveCalibrationsForTag(ctx, filter.TagName, at)
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			return &CalibrationPage{Items: []models.Calibration{}, Total: 0, Page: page, Pages: 0, Limit: limit}, nil
		}
		storeFilter.IDs = ids
	}

	total, err := s.store.CountCalibrations(ctx, storeFilter)
	if err != nil {
		return nil, fmt.Errorf("failed to count calibrations: %w: %w", errs.ErrStore, err)
	}

	items, err := s.store.ListCalibrations(ctx, storeFilter, limit, (page-1)*limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list calibrations: %w: %w", errs.ErrStore, err)
	}
	if items == nil {
		items = []models.Calibration{}
	}

	pages := int((total + int64(limit) - 1) / int64(limit))

	return &CalibrationPage{
		Items: items,
		Total: total,
		Page:  page,
		Pages: pages,
		Limit: limit,
	}, nil
}

// Health reports store connectivity.
func (s *Service) Health(ctx context.Context) error {
	if err := s.store.Health(ctx); err != nil {
		return fmt.Errorf("store unhealthy: %w: %w", errs.ErrStore, err)
	}
	return nil
}

// parseTimestamp parses a boundary ISO-8601 timestamp. RFC 3339 is the
// primary form; a zone-less date-time is accepted and read as UTC.
func parseTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("timestamp must not be empty: %w", errs.ErrInvalidArgument)
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts.UTC(), nil
	}
	if ts, err := time.Parse("2006-01-02T15:04:05", value); err == nil {
		return ts.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("malformed timestamp %q: %w", value, errs.ErrInvalidArgument)
}
