package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"hotel_booking/internal/domain"
)

// Calendar provisions the per-room, per-night inventory ledger.
type Calendar struct {
	store domain.Store
	now   func() time.Time
}

func NewCalendar(s domain.Store, opts ...Option) *Calendar {
	o := buildOptions(opts)
	return &Calendar{store: s, now: o.now}
}

// EnsureRows inserts any missing rows for nights with total = room capacity.
// Existing rows, and their booked counts, are left as they are.
func (c *Calendar) EnsureRows(ctx context.Context, tx domain.Tx, room domain.Room, nights []time.Time) error {
	if len(nights) == 0 {
		return nil
	}
	if err := tx.EnsureInventory(ctx, room.ID, room.Quantity, nights); err != nil {
		return fmt.Errorf("ensure inventory room %d: %w", room.ID, err)
	}
	return nil
}

// EnsureFutureCalendar provisions today..today+daysAhead and re-syncs the
// capacity of every future night to the room's current quantity. Past nights
// keep their historical totals. It returns the number of nights covered.
func (c *Calendar) EnsureFutureCalendar(ctx context.Context, room domain.Room, daysAhead int) (int, error) {
	if daysAhead < 0 {
		return 0, domain.ErrInvalidRequest.WithMsg("daysAhead must not be negative")
	}
	today := domain.DateOnly(c.now())
	nights := domain.EnumerateNights(today, today.AddDate(0, 0, daysAhead+1))

	err := c.store.InTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		if err := c.EnsureRows(ctx, tx, room, nights); err != nil {
			return err
		}
		return tx.ResyncInventoryTotals(ctx, room.ID, room.Quantity, today)
	})
	if err != nil {
		return 0, err
	}
	log.Info().Int64("room", room.ID).Int("nights", len(nights)).Int("total", room.Quantity).Msg("calendar provisioned")
	return len(nights), nil
}
