package app_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotel_booking/internal/domain"
)

func TestEnsureFutureCalendar_Idempotent(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()
	room, err := f.store.GetRoom(ctx, 1)
	require.NoError(t, err)

	n, err := f.cal.EnsureFutureCalendar(ctx, room, 30)
	require.NoError(t, err)
	assert.Equal(t, 31, n)
	assert.Equal(t, 31, f.store.RowCount(1))

	f.create(t, "2025-03-05", "2025-03-06", "")

	n, err = f.cal.EnsureFutureCalendar(ctx, room, 30)
	require.NoError(t, err)
	assert.Equal(t, 31, n)
	assert.Equal(t, 31, f.store.RowCount(1))
	assert.Equal(t, 1, f.mustRow(t, "2025-03-05").Booked, "existing bookings survive re-provisioning")

	_, err = f.cal.EnsureFutureCalendar(ctx, room, -1)
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestEnsureFutureCalendar_ResyncsFutureTotals(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()
	room, _ := f.store.GetRoom(ctx, 1)
	_, err := f.cal.EnsureFutureCalendar(ctx, room, 10)
	require.NoError(t, err)
	f.create(t, "2025-03-03", "2025-03-04", "")
	f.create(t, "2025-03-03", "2025-03-04", "")

	// provision a past night on its own, then shrink the room
	*f.clock = date("2025-02-27")
	_, err = f.cal.EnsureFutureCalendar(ctx, room, 0)
	require.NoError(t, err)
	*f.clock = t0

	room.Quantity = 1
	f.store.PutRoom(room)
	_, err = f.cal.EnsureFutureCalendar(ctx, room, 10)
	require.NoError(t, err)

	assert.Equal(t, 1, f.mustRow(t, "2025-03-10").Total)
	assert.Equal(t, 2, f.mustRow(t, "2025-03-03").Total, "total never drops below booked")
	past, ok := f.store.Row(1, date("2025-02-27"))
	require.True(t, ok)
	assert.Equal(t, 3, past.Total, "past nights keep their historical capacity")
}

func TestEnsureRows_KeepsExistingRows(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	room, _ := f.store.GetRoom(ctx, 1)
	f.create(t, "2025-03-10", "2025-03-11", "")

	nights := domain.EnumerateNights(date("2025-03-09"), date("2025-03-12"))
	err := f.store.InTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		if err := f.cal.EnsureRows(ctx, tx, room, nights); err != nil {
			return err
		}
		return f.cal.EnsureRows(ctx, tx, room, nights)
	})
	require.NoError(t, err)

	assert.Equal(t, 3, f.store.RowCount(1))
	assert.Equal(t, 1, f.mustRow(t, "2025-03-10").Booked)
	assert.Equal(t, 0, f.mustRow(t, "2025-03-09").Booked)
	assert.Equal(t, 2, f.mustRow(t, "2025-03-11").Total)
}

func TestReserveRelease_RoundTrip(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()
	room, _ := f.store.GetRoom(ctx, 1)
	nights := domain.EnumerateNights(date("2025-03-10"), date("2025-03-13"))

	reserve := func() error {
		return f.store.InTx(ctx, func(ctx context.Context, tx domain.Tx) error {
			if err := f.cal.EnsureRows(ctx, tx, room, nights); err != nil {
				return err
			}
			return f.engine.ReserveOrFail(ctx, tx, room.ID, nights)
		})
	}
	release := func() error {
		return f.store.InTx(ctx, func(ctx context.Context, tx domain.Tx) error {
			return f.engine.Release(ctx, tx, room.ID, nights)
		})
	}

	require.NoError(t, reserve())
	assert.ErrorIs(t, reserve(), domain.ErrRoomNotAvailable)
	require.NoError(t, release())
	for _, n := range nights {
		row, _ := f.store.Row(1, n)
		assert.Equal(t, 0, row.Booked)
	}
	// releasing again never goes negative
	require.NoError(t, release())
	assert.Equal(t, 0, f.mustRow(t, "2025-03-10").Booked)
	require.NoError(t, reserve())
}

func TestAvailabilitySummary(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	f.create(t, "2025-03-11", "2025-03-12", "")

	av, err := f.engine.AvailabilitySummary(ctx, 1, date("2025-03-10"), date("2025-03-13"))
	require.NoError(t, err)
	require.Len(t, av.Nightly, 3)
	assert.Equal(t, domain.NightAvailability{Date: "2025-03-11", Total: 2, Booked: 1, Available: 1}, av.Nightly[1])
	assert.Equal(t, domain.AvailabilitySummary{Available: true, RemainingMin: 1}, av.Summary)

	f.create(t, "2025-03-11", "2025-03-12", "")
	av, err = f.engine.AvailabilitySummary(ctx, 1, date("2025-03-10"), date("2025-03-13"))
	require.NoError(t, err)
	assert.False(t, av.Summary.Available)
	assert.Equal(t, 0, av.Summary.RemainingMin)

	av, err = f.engine.AvailabilitySummary(ctx, 1, date("2025-03-13"), date("2025-03-13"))
	require.NoError(t, err)
	assert.Empty(t, av.Nightly)

	_, err = f.engine.AvailabilitySummary(ctx, 5, date("2025-03-10"), date("2025-03-11"))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
