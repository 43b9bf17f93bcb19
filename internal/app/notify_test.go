package app_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"hotel_booking/internal/app"
	"hotel_booking/internal/domain"
)

func TestNotifiers_FanOut(t *testing.T) {
	ok := &recorder{}
	bad := &recorder{err: errors.New("broker unavailable")}
	last := &recorder{}
	ev := domain.BookingEvent{Type: domain.EventBookingCancelled, BookingID: "b-1"}

	err := app.Notifiers{ok, bad, last}.Notify(context.Background(), ev)
	assert.ErrorContains(t, err, "broker unavailable")
	assert.Equal(t, []string{domain.EventBookingCancelled}, ok.types())
	assert.Equal(t, []string{domain.EventBookingCancelled}, last.types(), "a failing sink does not stop the rest")

	assert.NoError(t, app.Notifiers{}.Notify(context.Background(), ev))
}
