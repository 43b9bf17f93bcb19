package app

import (
	"context"
	"fmt"
	"time"

	"hotel_booking/internal/adapters/observability"
	"hotel_booking/internal/domain"
)

// ReservationEngine grants or denies capacity for a range of nights. It holds
// no locks of its own: each night is claimed with a single conditional update
// inside the caller's transaction.
type ReservationEngine struct {
	store    domain.Store
	calendar *Calendar
}

func NewReservationEngine(s domain.Store, c *Calendar) *ReservationEngine {
	return &ReservationEngine{store: s, calendar: c}
}

// ReserveOrFail claims one unit on every night or fails with
// ROOM_NOT_AVAILABLE. Nights already claimed in this attempt are undone by
// the surrounding transaction's rollback, so callers must abort on error.
func (e *ReservationEngine) ReserveOrFail(ctx context.Context, tx domain.Tx, roomID int64, nights []time.Time) error {
	for _, night := range nights {
		ok, err := tx.IncrementBooked(ctx, roomID, night)
		if err != nil {
			observability.ObserveReservation("error")
			return fmt.Errorf("reserve room %d night %s: %w", roomID, night.Format(domain.DateLayout), err)
		}
		if !ok {
			observability.ObserveReservation("rejected")
			return domain.ErrRoomNotAvailable.
				With("roomId", roomID).
				With("night", night.Format(domain.DateLayout))
		}
	}
	observability.ObserveReservation("granted")
	return nil
}

// Release gives back one unit per night, never dropping below zero. It is
// safe to call for nights that were never (or only partly) reserved.
func (e *ReservationEngine) Release(ctx context.Context, tx domain.Tx, roomID int64, nights []time.Time) error {
	for _, night := range nights {
		if err := tx.DecrementBooked(ctx, roomID, night); err != nil {
			return fmt.Errorf("release room %d night %s: %w", roomID, night.Format(domain.DateLayout), err)
		}
	}
	return nil
}

// AvailabilitySummary provisions missing rows for the range, then reports
// per-night capacity and the minimum remaining across the stay.
func (e *ReservationEngine) AvailabilitySummary(ctx context.Context, roomID int64, checkIn, checkOut time.Time) (domain.Availability, error) {
	out := domain.Availability{RoomID: roomID, Nightly: []domain.NightAvailability{}}

	room, err := e.store.GetRoom(ctx, roomID)
	if err != nil {
		return out, err
	}
	nights := domain.EnumerateNights(checkIn, checkOut)
	if len(nights) == 0 {
		return out, nil
	}
	err = e.store.InTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		return e.calendar.EnsureRows(ctx, tx, room, nights)
	})
	if err != nil {
		return out, err
	}
	rows, err := e.store.InventoryRange(ctx, roomID, nights)
	if err != nil {
		return out, err
	}

	remainingMin := -1
	for _, r := range rows {
		rem := max(r.Remaining(), 0)
		out.Nightly = append(out.Nightly, domain.NightAvailability{
			Date:      r.Night.Format(domain.DateLayout),
			Total:     r.Total,
			Booked:    r.Booked,
			Available: rem,
		})
		if remainingMin < 0 || rem < remainingMin {
			remainingMin = rem
		}
	}
	// a night with no row at all counts as zero capacity
	if len(rows) < len(nights) || remainingMin < 0 {
		remainingMin = 0
	}
	out.Summary = domain.AvailabilitySummary{Available: remainingMin > 0, RemainingMin: remainingMin}
	return out, nil
}
