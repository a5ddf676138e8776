package calibrations

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwantia/caltrack/internal/testutil"
	"github.com/mwantia/caltrack/pkg/db/store"
	"github.com/mwantia/caltrack/pkg/errs"
	"github.com/mwantia/caltrack/pkg/identity"
	"github.com/mwantia/caltrack/pkg/tagging"
)

func newTestService(t *testing.T) (*Service, *store.SQLiteStore) {
	t.Helper()

	st := testutil.NewTestStore(t)
	generator, err := identity.NewGenerator(0, 0)
	require.NoError(t, err)

	engine := tagging.NewEngine(st, nil)
	return NewService(st, engine, generator, nil), st
}

func TestCreateCalibration(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	calibration, err := svc.CreateCalibration(ctx, "Pressure_Zero", 101.325, "alice")
	require.NoError(t, err)

	assert.Positive(t, calibration.ID)
	assert.Equal(t, "pressure_zero", calibration.Type, "type is normalized to lowercase")
	assert.Equal(t, 101.325, calibration.Value)
	assert.Equal(t, "alice", calibration.Owner)
	assert.False(t, calibration.CreatedAt.IsZero())

	loaded, err := svc.GetCalibration(ctx, calibration.ID)
	require.NoError(t, err)
	assert.Equal(t, calibration.ID, loaded.ID)
}

func TestCreateCalibrationValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateCalibration(ctx, "", 1.0, "alice")
	assert.True(t, errs.IsInvalidArgument(err), "empty type: %v", err)

	_, err = svc.CreateCalibration(ctx, "offset", 1.0, "")
	assert.True(t, errs.IsInvalidArgument(err), "empty owner: %v", err)
}

func TestGetCalibrationNotFound(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.GetCalibration(context.Background(), 404)
	assert.True(t, errs.IsNotFound(err))
}

func TestListCalibrationsPagination(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 45; i++ {
		created := base.Add(time.Duration(i) * time.Second)
		svc.now = func() time.Time { return created }
		_, err := svc.CreateCalibration(ctx, "offset", float64(i), "alice")
		require.NoError(t, err)
	}

	page, err := svc.ListCalibrations(ctx, ListFilter{}, 1, 0)
	require.NoError(t, err)
	assert.Len(t, page.Items, DefaultLimit)
	assert.Equal(t, int64(45), page.Total)
	assert.Equal(t, 3, page.Pages)
	assert.Equal(t, DefaultLimit, page.Limit)
	// Newest first
	assert.Equal(t, 44.0, page.Items[0].Value)

	last, err := svc.ListCalibrations(ctx, ListFilter{}, 3, 20)
	require.NoError(t, err)
	assert.Len(t, last.Items, 5)
	assert.Equal(t, 0.0, last.Items[4].Value)

	// Pages past the end keep the totals but carry no items.
	beyond, err := svc.ListCalibrations(ctx, ListFilter{}, 10, 20)
	require.NoError(t, err)
	assert.Empty(t, beyond.Items)
	assert.Equal(t, int64(45), beyond.Total)
	assert.Equal(t, 3, beyond.Pages)

	_, err = svc.ListCalibrations(ctx, ListFilter{}, 0, 20)
	assert.True(t, errs.IsInvalidArgument(err), "page 0: %v", err)

	_, err = svc.ListCalibrations(ctx, ListFilter{}, 1, -5)
	assert.True(t, errs.IsInvalidArgument(err), "negative limit: %v", err)
}

func TestListCalibrationsFilters(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	svc.now = func() time.Time { return base }
	_, err := svc.CreateCalibration(ctx, "offset", 1.0, "alice")
	require.NoError(t, err)

	svc.now = func() time.Time { return base.Add(time.Hour) }
	_, err = svc.CreateCalibration(ctx, "gain", 2.0, "alice")
	require.NoError(t, err)

	svc.now = func() time.Time { return base.Add(2 * time.Hour) }
	_, err = svc.CreateCalibration(ctx, "gain", 3.0, "bob")
	require.NoError(t, err)

	byOwner, err := svc.ListCalibrations(ctx, ListFilter{Owner: "alice"}, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(2), byOwner.Total)

	// Type filters match regardless of the caller's casing.
	byType, err := svc.ListCalibrations(ctx, ListFilter{Type: "GAIN"}, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(2), byType.Total)

	byRange, err := svc.ListCalibrations(ctx, ListFilter{
		CreatedAfter:  base.Add(30 * time.Minute).Format(time.RFC3339),
		CreatedBefore: base.Add(90 * time.Minute).Format(time.RFC3339),
	}, 1, 20)
	require.NoError(t, err)
	require.Equal(t, int64(1), byRange.Total)
	assert.Equal(t, 2.0, byRange.Items[0].Value)

	// Zone-less timestamps are read as UTC.
	zoneless, err := svc.ListCalibrations(ctx, ListFilter{
		CreatedAfter: base.Add(30 * time.Minute).Format("2006-01-02T15:04:05"),
	}, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(2), zoneless.Total)

	_, err = svc.ListCalibrations(ctx, ListFilter{CreatedAfter: "yesterday"}, 1, 20)
	assert.True(t, errs.IsInvalidArgument(err), "malformed created_after: %v", err)

	_, err = svc.ListCalibrations(ctx, ListFilter{CreatedBefore: "2026-13-99"}, 1, 20)
	assert.True(t, errs.IsInvalidArgument(err), "malformed created_before: %v", err)
}

func TestListCalibrationsByTag(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	tagged, err := svc.CreateCalibration(ctx, "offset", 1.0, "alice")
	require.NoError(t, err)
	_, err = svc.CreateCalibration(ctx, "offset", 2.0, "alice")
	require.NoError(t, err)

	_, err = svc.AttachTag(ctx, tagged.ID, "prod", "alice")
	require.NoError(t, err)

	page, err := svc.ListCalibrations(ctx, ListFilter{TagName: "prod"}, 1, 20)
	require.NoError(t, err)
	require.Equal(t, int64(1), page.Total)
	assert.Equal(t, tagged.ID, page.Items[0].ID)

	// An unknown tag yields an empty page, not an error.
	none, err := svc.ListCalibrations(ctx, ListFilter{TagName: "staging"}, 1, 20)
	require.NoError(t, err)
	assert.Empty(t, none.Items)
	assert.Equal(t, int64(0), none.Total)
	assert.Equal(t, 0, none.Pages)

	_, err = svc.ListCalibrations(ctx, ListFilter{TagName: "prod", TagAtTime: "not-a-time"}, 1, 20)
	assert.True(t, errs.IsInvalidArgument(err), "malformed tag_at_time: %v", err)
}

func TestListAllTags(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	calibration, err := svc.CreateCalibration(ctx, "offset", 1.0, "alice")
	require.NoError(t, err)

	for _, name := range []string{"verified", "prod", "archived"} {
		_, err := svc.AttachTag(ctx, calibration.ID, name, "alice")
		require.NoError(t, err)
	}

	tags, err := svc.ListAllTags(ctx)
	require.NoError(t, err)
	require.Len(t, tags, 3)
	assert.Equal(t, "archived", tags[0].Name)
	assert.Equal(t, "prod", tags[1].Name)
	assert.Equal(t, "verified", tags[2].Name)
}

func TestHealth(t *testing.T) {
	svc, _ := newTestService(t)
	assert.NoError(t, svc.Health(context.Background()))
}

// TestTagLifecycleAsOfQueries walks a calibration through attach, detach and
// a second attach against the wall clock, then asks for the tag set as of an
// instant captured between the two states.
func TestTagLifecycleAsOfQueries(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	calibration, err := svc.CreateCalibration(ctx, "offset", 1.0, "alice")
	require.NoError(t, err)

	_, err = svc.AttachTag(ctx, calibration.ID, "draft", "alice")
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	mid := time.Now().UTC().Format(time.RFC3339Nano)
	time.Sleep(20 * time.Millisecond)

	_, err = svc.DetachTag(ctx, calibration.ID, "draft")
	require.NoError(t, err)
	_, err = svc.AttachTag(ctx, calibration.ID, "verified", "bob")
	require.NoError(t, err)

	current, err := svc.GetCurrentTags(ctx, calibration.ID)
	require.NoError(t, err)
	require.Len(t, current, 1)
	assert.Equal(t, "verified", current[0].TagName)

	historical, err := svc.GetHistoricalTags(ctx, calibration.ID, mid)
	require.NoError(t, err)
	require.Len(t, historical, 1)
	assert.Equal(t, "draft", historical[0].TagName)

	_, err = svc.GetHistoricalTags(ctx, calibration.ID, "never")
	assert.True(t, errs.IsInvalidArgument(err))

	asOf, err := svc.ListCalibrations(ctx, ListFilter{TagName: "draft", TagAtTime: mid}, 1, 20)
	require.NoError(t, err)
	require.Equal(t, int64(1), asOf.Total)
	assert.Equal(t, calibration.ID, asOf.Items[0].ID)

	nowByTag, err := svc.ListCalibrations(ctx, ListFilter{TagName: "draft"}, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(0), nowByTag.Total)
}
