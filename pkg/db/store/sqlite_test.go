package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwantia/caltrack/internal/testutil"
	"github.com/mwantia/caltrack/pkg/db/models"
	"github.com/mwantia/caltrack/pkg/db/store"
)

func TestMigrateIsIdempotent(t *testing.T) {
	st := testutil.NewTestStore(t)

	// A second run must skip all applied migrations without error.
	require.NoError(t, st.Migrate(context.Background()))
}

func TestCalibrationRoundTrip(t *testing.T) {
	st := testutil.NewTestStore(t)
	ctx := context.Background()

	calibration := &models.Calibration{
		ID:        42,
		Type:      "offset",
		Value:     1.5,
		Owner:     "alice",
		CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, st.CreateCalibration(ctx, calibration))

	loaded, err := st.GetCalibration(ctx, 42)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "offset", loaded.Type)
	assert.Equal(t, 1.5, loaded.Value)
	assert.Equal(t, "alice", loaded.Owner)

	missing, err := st.GetCalibration(ctx, 99)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestListCalibrationsOrderAndFilter(t *testing.T) {
	st := testutil.NewTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		owner := "alice"
		if i%2 == 1 {
			owner = "bob"
		}
		require.NoError(t, st.CreateCalibration(ctx, &models.Calibration{
			ID:        int64(i + 1),
			Type:      "gain",
			Value:     float64(i),
			Owner:     owner,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	all, err := st.ListCalibrations(ctx, store.CalibrationFilter{}, 0, 0)
	require.NoError(t, err)
	require.Len(t, all, 5)
	// Newest created first
	assert.Equal(t, int64(5), all[0].ID)
	assert.Equal(t, int64(1), all[4].ID)

	alice, err := st.ListCalibrations(ctx, store.CalibrationFilter{Owner: "alice"}, 0, 0)
	require.NoError(t, err)
	assert.Len(t, alice, 3)

	after := base.Add(90 * time.Minute)
	recent, err := st.CountCalibrations(ctx, store.CalibrationFilter{CreatedAfter: &after})
	require.NoError(t, err)
	assert.Equal(t, int64(3), recent)

	// A non-nil empty ID set restricts to nothing.
	none, err := st.CountCalibrations(ctx, store.CalibrationFilter{IDs: []int64{}})
	require.NoError(t, err)
	assert.Equal(t, int64(0), none)

	some, err := st.CountCalibrations(ctx, store.CalibrationFilter{IDs: []int64{1, 3}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), some)
}

func TestFindOrCreateTagReusesRow(t *testing.T) {
	st := testutil.NewTestStore(t)
	ctx := context.Background()

	first, err := st.FindOrCreateTag(ctx, "prod")
	require.NoError(t, err)
	require.NotZero(t, first.ID)

	second, err := st.FindOrCreateTag(ctx, "prod")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	found, err := st.FindTagByName(ctx, "prod")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, first.ID, found.ID)

	missing, err := st.FindTagByName(ctx, "staging")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestActivePairUniqueIndex(t *testing.T) {
	st := testutil.NewTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.CreateCalibration(ctx, &models.Calibration{
		ID: 1, Type: "offset", Value: 1, Owner: "alice", CreatedAt: time.Now().UTC(),
	}))
	tag, err := st.FindOrCreateTag(ctx, "prod")
	require.NoError(t, err)

	now := time.Now().UTC()
	require.NoError(t, st.CreateAssociation(ctx, &models.CalibrationTag{
		CalibrationID: 1, TagID: tag.ID, AddedAt: now, AddedBy: "alice",
	}))

	// A second active row for the same pair violates the partial index.
	err = st.CreateAssociation(ctx, &models.CalibrationTag{
		CalibrationID: 1, TagID: tag.ID, AddedAt: now, AddedBy: "bob",
	})
	require.Error(t, err)
	assert.True(t, store.IsUniqueViolation(err))

	// Once the active row is closed, a new active row is allowed again.
	rows, err := st.CloseAssociation(ctx, 1, tag.ID, now.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)

	require.NoError(t, st.CreateAssociation(ctx, &models.CalibrationTag{
		CalibrationID: 1, TagID: tag.ID, AddedAt: now.Add(2 * time.Second), AddedBy: "bob",
	}))
}

func TestCloseAssociationWithoutActiveRow(t *testing.T) {
	st := testutil.NewTestStore(t)
	ctx := context.Background()

	rows, err := st.CloseAssociation(ctx, 1, 1, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, int64(0), rows)
}

func TestTaggedAssociationQueries(t *testing.T) {
	st := testutil.NewTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, st.CreateCalibration(ctx, &models.Calibration{
		ID: 1, Type: "offset", Value: 1, Owner: "alice", CreatedAt: base,
	}))

	prod, err := st.FindOrCreateTag(ctx, "prod")
	require.NoError(t, err)
	verified, err := st.FindOrCreateTag(ctx, "verified")
	require.NoError(t, err)

	removed := base.Add(2 * time.Hour)
	require.NoError(t, st.CreateAssociation(ctx, &models.CalibrationTag{
		CalibrationID: 1, TagID: prod.ID, AddedAt: base, RemovedAt: &removed, AddedBy: "alice",
	}))
	require.NoError(t, st.CreateAssociation(ctx, &models.CalibrationTag{
		CalibrationID: 1, TagID: verified.ID, AddedAt: base.Add(time.Hour), AddedBy: "bob",
	}))

	active, err := st.ActiveTagsFor(ctx, 1)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "verified", active[0].TagName)
	assert.Equal(t, "bob", active[0].AddedBy)

	// Both intervals cover base+90m
	covering, err := st.TagsCoveringInstant(ctx, 1, base.Add(90*time.Minute))
	require.NoError(t, err)
	require.Len(t, covering, 2)
	// Most recently attached first
	assert.Equal(t, "verified", covering[0].TagName)
	assert.Equal(t, "prod", covering[1].TagName)

	// Only the open interval covers base+3h
	covering, err = st.TagsCoveringInstant(ctx, 1, base.Add(3*time.Hour))
	require.NoError(t, err)
	require.Len(t, covering, 1)
	assert.Equal(t, "verified", covering[0].TagName)

	ids, err := st.ActiveCalibrationIDsForTag(ctx, "prod", nil)
	require.NoError(t, err)
	assert.Empty(t, ids)

	at := base.Add(time.Hour)
	ids, err = st.ActiveCalibrationIDsForTag(ctx, "prod", &at)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids)
}
