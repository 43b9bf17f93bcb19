package app

import (
	"context"
	"errors"

	"hotel_booking/internal/domain"
)

// Notifiers fans one event out to every configured sink.
type Notifiers []domain.Notifier

func (ns Notifiers) Notify(ctx context.Context, ev domain.BookingEvent) error {
	var errs []error
	for _, n := range ns {
		if err := n.Notify(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
