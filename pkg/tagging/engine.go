// Package tagging implements the calibration-tag association engine: the
// interval relation between calibrations and tags, with idempotent attach and
// detach, soft removal, same-row reactivation and point-in-time queries.
package tagging

import (
	"context"
	"fmt"
	"time"

	"github.com/mwantia/caltrack/pkg/db/models"
	"github.com/mwantia/caltrack/pkg/db/store"
	"github.com/mwantia/caltrack/pkg/errs"
	"github.com/mwantia/caltrack/pkg/log"
)

// Engine owns the calibration-tag interval relation. All persistence goes
// through the injected store; the attach check-then-act sequence runs inside
// a single store transaction.
type Engine struct {
	store store.CalibrationStore
	log   log.LoggerService

	// now is swapped out in tests
	now func() time.Time
}

// NewEngine creates an association engine over the given store.
func NewEngine(st store.CalibrationStore, logger log.LoggerService) *Engine {
	if logger == nil {
		logger = log.Nop()
	}

	return &Engine{
		store: st,
		log:   logger,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Attach tags a calibration, creating the tag on first reference. The whole
// three-way branch (active? inactive? new?) is one transaction, so two
// concurrent attaches for the same pair cannot both insert rows; the loser
// of the insert race gets ErrConflict and may simply retry.
//
// Reattaching after a detach reuses the removed row: RemovedAt is cleared
// and AddedAt/AddedBy are stamped for the new interval. Only the current
// interval's attacher identity survives a reactivation.
func (e *Engine) Attach(ctx context.Context, calibrationID int64, tagName, addedBy string) (AttachResult, error) {
	if tagName == "" {
		return "", fmt.Errorf("tag name must not be empty: %w", errs.ErrInvalidArgument)
	}
	if addedBy == "" {
		addedBy = DefaultAddedBy
	}

	var result AttachResult
	err := e.store.WithTransaction(ctx, func(tx store.CalibrationStore) error {
		calibration, err := tx.GetCalibration(ctx, calibrationID)
		if err != nil {
			return fmt.Errorf("failed to load calibration %d: %w: %w", calibrationID, errs.ErrStore, err)
		}
		if calibration == nil {
			return fmt.Errorf("calibration %d: %w", calibrationID, errs.ErrNotFound)
		}

		tag, err := tx.FindOrCreateTag(ctx, tagName)
		if err != nil {
			return fmt.Errorf("failed to resolve tag %q: %w: %w", tagName, errs.ErrStore, err)
		}

		active, err := tx.ActiveAssociation(ctx, calibrationID, tag.ID)
		if err != nil {
			return fmt.Errorf("failed to query active association: %w: %w", errs.ErrStore, err)
		}
		if active != nil {
			result = AttachAlreadyActive
			return nil
		}

		inactive, err := tx.InactiveAssociation(ctx, calibrationID, tag.ID)
		if err != nil {
			return fmt.Errorf("failed to query inactive association: %w: %w", errs.ErrStore, err)
		}
		if inactive != nil {
			inactive.RemovedAt = nil
			inactive.AddedAt = e.now()
			inactive.AddedBy = addedBy

			if err := tx.SaveAssociation(ctx, inactive); err != nil {
				return fmt.Errorf("failed to reactivate association: %w: %w", errs.ErrStore, err)
			}
			result = AttachReactivated
			return nil
		}

		association := &models.CalibrationTag{
			CalibrationID: calibrationID,
			TagID:         tag.ID,
			AddedAt:       e.now(),
			AddedBy:       addedBy,
		}
		if err := tx.CreateAssociation(ctx, association); err != nil {
			if store.IsUniqueViolation(err) {
				return fmt.Errorf("concurrent attach on calibration %d tag %q: %w", calibrationID, tagName, errs.ErrConflict)
			}
			return fmt.Errorf("failed to create association: %w: %w", errs.ErrStore, err)
		}
		result = AttachCreated
		return nil
	})
	if err != nil {
		return "", err
	}

	e.log.Debug("Attached tag '%s' to calibration %d (%s)", tagName, calibrationID, result)
	return result, nil
}

// Detach closes the active association for the pair, if any. Detaching a
// pair that is not actively tagged returns DetachNotTagged and mutates
// nothing. The removal itself is a single conditional update.
func (e *Engine) Detach(ctx context.Context, calibrationID int64, tagName string) (DetachResult, error) {
	if tagName == "" {
		return "", fmt.Errorf("tag name must not be empty: %w", errs.ErrInvalidArgument)
	}

	calibration, err := e.store.GetCalibration(ctx, calibrationID)
	if err != nil {
		return "", fmt.Errorf("failed to load calibration %d: %w: %w", calibrationID, errs.ErrStore, err)
	}
	if calibration == nil {
		return "", fmt.Errorf("calibration %d: %w", calibrationID, errs.ErrNotFound)
	}

	tag, err := e.store.FindTagByName(ctx, tagName)
	if err != nil {
		return "", fmt.Errorf("failed to resolve tag %q: %w: %w", tagName, errs.ErrStore, err)
	}
	if tag == nil {
		return "", fmt.Errorf("tag %q: %w", tagName, errs.ErrNotFound)
	}

	rows, err := e.store.CloseAssociation(ctx, calibrationID, tag.ID, e.now())
	if err != nil {
		return "", fmt.Errorf("failed to close association: %w: %w", errs.ErrStore, err)
	}
	if rows == 0 {
		return DetachNotTagged, nil
	}

	e.log.Debug("Detached tag '%s' from calibration %d", tagName, calibrationID)
	return DetachRemoved, nil
}

// CurrentTags returns the calibration's active associations, most recently
// attached first.
func (e *Engine) CurrentTags(ctx context.Context, calibrationID int64) ([]models.TaggedAssociation, error) {
	if err := e.requireCalibration(ctx, calibrationID); err != nil {
		return nil, err
	}

	associations, err := e.store.ActiveTagsFor(ctx, calibrationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query active tags: %w: %w", errs.ErrStore, err)
	}
	return associations, nil
}

// HistoricalTags reconstructs the calibration's tag set as of the given
// instant, purely from the interval predicate
//
//	added_at <= at AND (removed_at IS NULL OR removed_at > at)
//
// with no event replay involved.
func (e *Engine) HistoricalTags(ctx context.Context, calibrationID int64, at time.Time) ([]models.TaggedAssociation, error) {
	if at.IsZero() {
		return nil, fmt.Errorf("historical timestamp must not be zero: %w", errs.ErrInvalidArgument)
	}

	if err := e.requireCalibration(ctx, calibrationID); err != nil {
		return nil, err
	}

	associations, err := e.store.TagsCoveringInstant(ctx, calibrationID, at)
	if err != nil {
		return nil, fmt.Errorf("failed to query historical tags: %w: %w", errs.ErrStore, err)
	}
	return associations, nil
}

// ActiveCalibrationsForTag returns the IDs of calibrations carrying the tag,
// currently (nil at) or as of the given instant. An unknown tag matches
// nothing rather than failing; listing filters depend on that.
func (e *Engine) ActiveCalibrationsForTag(ctx context.Context, tagName string, at *time.Time) ([]int64, error) {
	if tagName == "" {
		return nil, fmt.Errorf("tag name must not be empty: %w", errs.ErrInvalidArgument)
	}
	if at != nil && at.IsZero() {
		return nil, fmt.Errorf("historical timestamp must not be zero: %w", errs.ErrInvalidArgument)
	}

	ids, err := e.store.ActiveCalibrationIDsForTag(ctx, tagName, at)
	if err != nil {
		return nil, fmt.Errorf("failed to query calibrations for tag %q: %w: %w", tagName, errs.ErrStore, err)
	}
	return ids, nil
}

func (e *Engine) requireCalibration(ctx context.Context, calibrationID int64) error {
	calibration, err := e.store.GetCalibration(ctx, calibrationID)
	if err != nil {
		return fmt.Errorf("failed to load calibration %d: %w: %w", calibrationID, errs.ErrStore, err)
	}
	if calibration == nil {
		return fmt.Errorf("calibration %d: %w", calibrationID, errs.ErrNotFound)
	}
	return nil
}
