package mysql

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotel_booking/internal/domain"
)

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *Repo) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock, New(db)
}

var night = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

var bookingCols = []string{
	"id", "hotel_id", "room_id", "user_id", "check_in", "check_out", "status", "total_price",
	"voucher_id", "guest_name", "guest_email", "guest_phone", "cancel_reason", "created_at", "updated_at",
}

func TestInTx_CommitsReservation(t *testing.T) {
	_, mock, repo := setupMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SET booked = booked + 1")).
		WithArgs(int64(7), "2025-03-10").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	var granted bool
	err := repo.InTx(context.Background(), func(ctx context.Context, tx domain.Tx) error {
		var err error
		granted, err = tx.IncrementBooked(ctx, 7, night)
		return err
	})

	require.NoError(t, err)
	assert.True(t, granted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInTx_RollsBackWhenNightIsFull(t *testing.T) {
	_, mock, repo := setupMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SET booked = booked + 1")).
		WithArgs(int64(7), "2025-03-10").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.InTx(context.Background(), func(ctx context.Context, tx domain.Tx) error {
		ok, err := tx.IncrementBooked(ctx, 7, night)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrRoomNotAvailable
		}
		return nil
	})

	assert.True(t, errors.Is(err, domain.ErrRoomNotAvailable))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureInventory_InsertsIgnoringExistingRows(t *testing.T) {
	_, mock, repo := setupMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("VALUES (?,?,?,0),(?,?,?,0) ON DUPLICATE KEY UPDATE room_id = room_id")).
		WithArgs(int64(3), "2025-03-10", 5, int64(3), "2025-03-11", 5).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	err := repo.InTx(context.Background(), func(ctx context.Context, tx domain.Tx) error {
		return tx.EnsureInventory(ctx, 3, 5, []time.Time{night, night.AddDate(0, 0, 1)})
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureInventory_NoNightsIsNoop(t *testing.T) {
	_, mock, repo := setupMockDB(t)

	mock.ExpectBegin()
	mock.ExpectCommit()

	err := repo.InTx(context.Background(), func(ctx context.Context, tx domain.Tx) error {
		return tx.EnsureInventory(ctx, 3, 5, nil)
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResyncInventoryTotals_KeepsBooked(t *testing.T) {
	_, mock, repo := setupMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SET total = GREATEST(?, booked)")).
		WithArgs(2, int64(3), "2025-03-10").
		WillReturnResult(sqlmock.NewResult(0, 30))
	mock.ExpectCommit()

	err := repo.InTx(context.Background(), func(ctx context.Context, tx domain.Tx) error {
		return tx.ResyncInventoryTotals(ctx, 3, 2, night.Add(15*time.Hour))
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetRoom_NotFound(t *testing.T) {
	_, mock, repo := setupMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM rooms WHERE id = ?")).
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "hotel_id", "name", "quantity", "price_per_night"}))

	_, err := repo.GetRoom(context.Background(), 99)

	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindBookingsByCode_UpperCasesCode(t *testing.T) {
	_, mock, repo := setupMockDB(t)

	created := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(bookingCols).
		AddRow("0f8e2b1c-1111-2222-3333-4444a0ab12c3", int64(1), int64(10), int64(5),
			night, night.AddDate(0, 0, 2), "PENDING_PAYMENT", int64(200000),
			nil, "Ana", "ana@example.com", "", nil, created, created)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE payment_code = ?")).
		WithArgs("AB12C3").
		WillReturnRows(rows)

	out, err := repo.FindBookingsByCode(context.Background(), "ab12c3")

	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, domain.BookingPendingPayment, out[0].Status)
	assert.Equal(t, "AB12C3", out[0].PaymentCode())
	assert.Nil(t, out[0].VoucherID)
	assert.Nil(t, out[0].CancelReason)
	assert.Len(t, out[0].Nights(), 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListBookingsByStatus_ExpandsPlaceholders(t *testing.T) {
	_, mock, repo := setupMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE status IN (?,?)")).
		WithArgs("PENDING", "PENDING_PAYMENT").
		WillReturnRows(sqlmock.NewRows(bookingCols))

	out, err := repo.ListBookingsByStatus(context.Background(), domain.BookingPending, domain.BookingPendingPayment)

	require.NoError(t, err)
	assert.Empty(t, out)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIncrementVoucherUsage_LimitReached(t *testing.T) {
	_, mock, repo := setupMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("WHERE id = ? AND used_count < usage_limit")).
		WithArgs(int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	var ok bool
	err := repo.InTx(context.Background(), func(ctx context.Context, tx domain.Tx) error {
		var err error
		ok, err = tx.IncrementVoucherUsage(ctx, 4)
		return err
	})

	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetVoucherByCodeForUpdate_LocksByIndexedCode(t *testing.T) {
	_, mock, repo := setupMockDB(t)
	end := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE code = ?\nFOR UPDATE")).
		WithArgs("save15").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "code", "type", "discount", "min_spend", "usage_limit", "used_count", "end_date",
		}).AddRow(int64(4), "SAVE15", "PERCENT", 15.0, int64(0), 5, 1, end))
	mock.ExpectCommit()

	var v domain.Voucher
	err := repo.InTx(context.Background(), func(ctx context.Context, tx domain.Tx) error {
		var err error
		v, err = tx.GetVoucherByCodeForUpdate(ctx, "save15")
		return err
	})

	require.NoError(t, err)
	assert.Equal(t, "SAVE15", v.Code)
	assert.Equal(t, domain.VoucherPercent, v.Type)
	assert.Equal(t, end, v.EndDate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateBookingStatus_MissingBooking(t *testing.T) {
	_, mock, repo := setupMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE bookings")).
		WithArgs("CANCELLED", nil, sqlmock.AnyArg(), "nope").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.InTx(context.Background(), func(ctx context.Context, tx domain.Tx) error {
		return tx.UpdateBookingStatus(ctx, "nope", domain.BookingCancelled, nil)
	})

	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoyaltyPoints_NoAccountIsZero(t *testing.T) {
	_, mock, repo := setupMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM loyalty_accounts")).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"points"}))

	pts, err := repo.LoyaltyPoints(context.Background(), 5)

	require.NoError(t, err)
	assert.Zero(t, pts)
	assert.NoError(t, mock.ExpectationsWereMet())
}
