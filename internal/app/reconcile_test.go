package app_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotel_booking/internal/app"
	"hotel_booking/internal/domain"
)

func TestReferenceParser(t *testing.T) {
	p := app.NewReferenceParser("BOOKING")

	ref, err := p.Parse("Thanh toan booking: ab12c3 cam on 123456")
	require.NoError(t, err)
	assert.Equal(t, app.Reference{Codes: []string{"AB12C3"}, Marked: true}, ref)

	ref, err = p.Parse("BOOKING#XY99Z1")
	require.NoError(t, err)
	assert.Equal(t, []string{"XY99Z1"}, ref.Codes)

	ref, err = p.Parse("transfer zz1234 for room, ref 00aa11")
	require.NoError(t, err)
	assert.False(t, ref.Marked)
	assert.Equal(t, []string{"ZZ1234", "00AA11"}, ref.Codes)

	_, err = p.Parse("hello there")
	assert.ErrorIs(t, err, domain.ErrNoMatchingBooking)

	ref, err = app.NewReferenceParser("").Parse("BOOKING AB12C3")
	require.NoError(t, err)
	assert.False(t, ref.Marked)
	assert.Equal(t, []string{"AB12C3"}, ref.Codes)
}

func newReconciler(f *fixture) *app.Reconciler {
	return app.NewReconciler(f.store, f.bookings, "BOOKING", app.DefaultAmountTolerance)
}

func TestReconcile_MatchesAndConfirms(t *testing.T) {
	f := newFixture(t, 1, "00000000-0000-4000-8000-000000ab12c3")
	r := newReconciler(f)
	ctx := context.Background()
	res := f.create(t, "2025-03-10", "2025-03-12", "SAVE15") // 1,700,000

	out, err := r.Reconcile(ctx, app.PaymentNotification{
		Amount: 1_700_800, Description: "BOOKING AB12C3", TransactionID: "TX-1",
	})
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.False(t, out.Duplicate)
	assert.Equal(t, res.Booking.ID, out.MatchedBookingID)
	require.NotNil(t, out.Confirmation)
	assert.Equal(t, int64(17), out.Confirmation.PointsEarned)

	p, err := f.store.GetPayment(ctx, res.Booking.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentPaid, p.Status)
	require.NotNil(t, p.ProviderRef)
	assert.Equal(t, "TX-1", *p.ProviderRef)

	// a redelivery is acknowledged without a second confirmation
	out, err = r.Reconcile(ctx, app.PaymentNotification{
		Amount: 1_700_000, Description: "BOOKING AB12C3", TransactionID: "TX-1",
	})
	require.NoError(t, err)
	assert.True(t, out.Duplicate)
	assert.Equal(t, res.Booking.ID, out.MatchedBookingID)
	assert.Equal(t, []string{domain.EventBookingConfirmed}, f.events.types())

	pts, _ := f.store.LoyaltyPoints(ctx, 42)
	assert.Equal(t, int64(17), pts)
}

func TestReconcile_AmountOutsideTolerance(t *testing.T) {
	f := newFixture(t, 1, "00000000-0000-4000-8000-000000ab12c3")
	r := newReconciler(f)
	res := f.create(t, "2025-03-10", "2025-03-11", "")

	_, err := r.Reconcile(context.Background(), app.PaymentNotification{
		Amount: 998_999, Description: "booking ab12c3",
	})
	require.ErrorIs(t, err, domain.ErrPaymentAmountMismatch)
	var de *domain.Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, int64(1_000_000), de.Details["expected"])

	b, _ := f.store.GetBooking(context.Background(), res.Booking.ID)
	assert.Equal(t, domain.BookingPendingPayment, b.Status)
}

func TestReconcile_AmbiguousSuffix(t *testing.T) {
	f := newFixture(t, 2,
		"11111111-0000-4000-8000-000000ab12c3",
		"22222222-0000-4000-8000-000000ab12c3",
	)
	r := newReconciler(f)
	f.create(t, "2025-03-10", "2025-03-11", "")
	f.create(t, "2025-03-10", "2025-03-11", "")

	_, err := r.Reconcile(context.Background(), app.PaymentNotification{
		Amount: 1_000_000, Description: "BOOKING AB12C3",
	})
	assert.ErrorIs(t, err, domain.ErrPaymentRefAmbiguous)
}

func TestReconcile_NoMatch(t *testing.T) {
	f := newFixture(t, 1, "00000000-0000-4000-8000-000000ab12c3")
	r := newReconciler(f)
	f.create(t, "2025-03-10", "2025-03-11", "")

	_, err := r.Reconcile(context.Background(), app.PaymentNotification{
		Amount: 1_000_000, Description: "BOOKING FFFFFF",
	})
	require.ErrorIs(t, err, domain.ErrNoMatchingBooking)
	var de *domain.Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, []string{"AB12C3"}, de.Details["pendingCodes"])

	for _, desc := range []string{"thanks!", "ok!"} {
		_, err = r.Reconcile(context.Background(), app.PaymentNotification{Amount: 1, Description: desc})
		require.ErrorIs(t, err, domain.ErrNoMatchingBooking, desc)
		require.ErrorAs(t, err, &de)
		assert.Equal(t, []string{"AB12C3"}, de.Details["pendingCodes"], desc)
	}
}

func TestReconcile_CancelledBookingIsNotMatched(t *testing.T) {
	f := newFixture(t, 1, "00000000-0000-4000-8000-000000ab12c3")
	r := newReconciler(f)
	res := f.create(t, "2025-03-10", "2025-03-11", "")
	_, err := f.bookings.Cancel(context.Background(), res.Booking.ID, "")
	require.NoError(t, err)

	_, err = r.Reconcile(context.Background(), app.PaymentNotification{
		Amount: 1_000_000, Description: "BOOKING AB12C3",
	})
	assert.ErrorIs(t, err, domain.ErrNoMatchingBooking)
}
