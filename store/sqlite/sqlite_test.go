package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/attendance-engine/reconcile"
	"github.com/warp/attendance-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func just(person, discipline string, d reconcile.Day, code reconcile.DeviationCode) reconcile.Justification {
	return reconcile.Justification{
		Person:     reconcile.PersonID(person),
		Discipline: reconcile.Discipline(discipline),
		Date:       d,
		Code:       code,
	}
}

// =============================================================================
// SNAPSHOT ROUNDTRIPS
// =============================================================================

func TestReplaceEntries_Roundtrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	d := reconcile.NewDay(2025, time.July, 3)

	entries := []reconcile.TimeEntry{
		{Person: "ANA", Discipline: "CIVIL", Date: d,
			NormalHours: decimal.NewFromFloat(8), ExtraHours: decimal.NewFromFloat(0.5)},
	}
	require.NoError(t, store.ReplaceEntries(ctx, entries))

	in, err := store.LoadInputs(ctx)
	require.NoError(t, err)
	require.Len(t, in.Entries, 1)
	assert.Equal(t, "0.5", in.Entries[0].ExtraHours.String())
	assert.True(t, in.Entries[0].Date.Equal(d))

	// Replace swaps the whole relation, not appends.
	require.NoError(t, store.ReplaceEntries(ctx, nil))
	in, err = store.LoadInputs(ctx)
	require.NoError(t, err)
	assert.Empty(t, in.Entries)
}

func TestReplaceLifecycle_NilDatesSurviveRoundtrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	adm := reconcile.NewDay(2025, time.June, 10)

	require.NoError(t, store.ReplaceLifecycle(ctx, []reconcile.LifecycleWindow{
		{Person: "ANA", Discipline: "CIVIL", Admission: &adm},
	}))

	in, err := store.LoadInputs(ctx)
	require.NoError(t, err)
	require.Len(t, in.Lifecycle, 1)
	require.NotNil(t, in.Lifecycle[0].Admission)
	assert.True(t, in.Lifecycle[0].Admission.Equal(adm))
	assert.Nil(t, in.Lifecycle[0].Termination)
}

func TestReplaceCalendar_EmptyMeansNoSource(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	d := reconcile.NewDay(2025, time.July, 6)

	require.NoError(t, store.ReplaceCalendar(ctx, map[reconcile.Day]bool{d: false}))
	in, err := store.LoadInputs(ctx)
	require.NoError(t, err)
	assert.True(t, in.Calendar.Present())
	assert.False(t, in.Calendar.IsChargeable(d))

	require.NoError(t, store.ReplaceCalendar(ctx, nil))
	in, err = store.LoadInputs(ctx)
	require.NoError(t, err)
	assert.False(t, in.Calendar.Present())
	// Fail-open: no source, every day chargeable.
	assert.True(t, in.Calendar.IsChargeable(d))
}

func TestHasAnyInput(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	ok, err := store.HasAnyInput(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.ReplaceRoster(ctx, []reconcile.RosterMember{
		{Person: "ANA", Discipline: "CIVIL", Category: "MOD"},
	}))

	ok, err = store.HasAnyInput(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

// =============================================================================
// JUSTIFICATION MUTATIONS
// =============================================================================

func TestJustifications_AppendAssignsStableID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	d := reconcile.NewDay(2025, time.July, 3)

	saved, position, err := store.AppendJustification(ctx, just("ANA", "CIVIL", d, reconcile.DeviationAbsent))
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)
	assert.Equal(t, 0, position)

	records, err := store.ListJustifications(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, saved.ID, records[0].ID)
}

func TestJustifications_EditByPositionKeepsID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	d := reconcile.NewDay(2025, time.July, 3)

	first, _, err := store.AppendJustification(ctx, just("ANA", "CIVIL", d, reconcile.DeviationAbsent))
	require.NoError(t, err)
	_, position, err := store.AppendJustification(ctx, just("BOB", "CIVIL", d, reconcile.DeviationAbsent))
	require.NoError(t, err)
	assert.Equal(t, 1, position)

	edited, err := store.EditJustification(ctx, 0, just("ANA", "CIVIL", d.AddDays(1), reconcile.DeviationMedicalCertificate))
	require.NoError(t, err)
	assert.Equal(t, first.ID, edited.ID)

	records, err := store.ListJustifications(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, reconcile.DeviationMedicalCertificate, records[0].Code)
	assert.True(t, records[0].Date.Equal(d.AddDays(1)))
}

func TestJustifications_DeleteByPositionShiftsList(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	d := reconcile.NewDay(2025, time.July, 3)

	_, _, err := store.AppendJustification(ctx, just("ANA", "CIVIL", d, reconcile.DeviationAbsent))
	require.NoError(t, err)
	second, _, err := store.AppendJustification(ctx, just("BOB", "CIVIL", d, reconcile.DeviationAbsent))
	require.NoError(t, err)

	require.NoError(t, store.DeleteJustification(ctx, 0))

	records, err := store.ListJustifications(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, second.ID, records[0].ID)
}

func TestJustifications_OutOfRangePositionRejected(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	d := reconcile.NewDay(2025, time.July, 3)

	_, _, err := store.AppendJustification(ctx, just("ANA", "CIVIL", d, reconcile.DeviationAbsent))
	require.NoError(t, err)

	err = store.DeleteJustification(ctx, 5)
	assert.ErrorIs(t, err, reconcile.ErrPositionOutOfRange)

	_, err = store.EditJustification(ctx, -1, just("ANA", "CIVIL", d, reconcile.DeviationAbsent))
	assert.ErrorIs(t, err, reconcile.ErrPositionOutOfRange)

	// No partial write happened.
	records, err := store.ListJustifications(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestJustifications_UnknownCodeRejected(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	d := reconcile.NewDay(2025, time.July, 3)

	_, _, err := store.AppendJustification(ctx, just("ANA", "CIVIL", d, "ZZ"))
	assert.ErrorIs(t, err, reconcile.ErrUnknownDeviation)
}
