package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	mysqldrv "github.com/go-sql-driver/mysql"

	"hotel_booking/internal/domain"
)

func valStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}
func valInt64(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}
func valTime(p *time.Time) any {
	if p == nil {
		return nil
	}
	return p.UTC()
}
func day(t time.Time) string { return domain.DateOnly(t).Format(domain.DateLayout) }

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

func (r *Repo) InTx(ctx context.Context, fn func(ctx context.Context, tx domain.Tx) error) error {
	sqlTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = sqlTx.Rollback()
		}
	}()
	if err := fn(ctx, &txRepo{q: sqlTx}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	committed = true
	return nil
}

func (r *Repo) GetRoom(ctx context.Context, id int64) (domain.Room, error) {
	var rm domain.Room
	err := r.db.QueryRowContext(ctx, getRoomSQL, id).
		Scan(&rm.ID, &rm.HotelID, &rm.Name, &rm.Quantity, &rm.PricePerNight)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Room{}, domain.ErrNotFound.WithMsg("room not found").With("roomId", id)
	}
	return rm, err
}

func (r *Repo) ListRooms(ctx context.Context) ([]domain.Room, error) {
	rows, err := r.db.QueryContext(ctx, listRoomsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Room
	for rows.Next() {
		var rm domain.Room
		if err := rows.Scan(&rm.ID, &rm.HotelID, &rm.Name, &rm.Quantity, &rm.PricePerNight); err != nil {
			return nil, err
		}
		out = append(out, rm)
	}
	return out, rows.Err()
}

func (r *Repo) InventoryRange(ctx context.Context, roomID int64, nights []time.Time) ([]domain.InventoryRow, error) {
	if len(nights) == 0 {
		return nil, nil
	}
	args := make([]any, 0, len(nights)+1)
	args = append(args, roomID)
	for _, n := range nights {
		args = append(args, day(n))
	}
	q := inventoryRangePrefix + placeholders(len(nights)) + ") ORDER BY night"
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.InventoryRow
	for rows.Next() {
		var row domain.InventoryRow
		if err := rows.Scan(&row.RoomID, &row.Night, &row.Total, &row.Booked); err != nil {
			return nil, err
		}
		row.Night = domain.DateOnly(row.Night)
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *Repo) GetBooking(ctx context.Context, id string) (domain.Booking, error) {
	return getBooking(ctx, r.db, getBookingSQL, id)
}

func (r *Repo) GetPayment(ctx context.Context, bookingID string) (domain.Payment, error) {
	return getPayment(ctx, r.db, getPaymentSQL, bookingID)
}

func (r *Repo) ListBookingsByStatus(ctx context.Context, statuses ...domain.BookingStatus) ([]domain.Booking, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	args := make([]any, len(statuses))
	for i, s := range statuses {
		args[i] = string(s)
	}
	q := listBookingsByStatusPrefix + placeholders(len(statuses)) + listBookingsByStatusSuffix
	return queryBookings(ctx, r.db, q, args...)
}

func (r *Repo) FindBookingsByCode(ctx context.Context, code string) ([]domain.Booking, error) {
	return queryBookings(ctx, r.db, findBookingsByCodeSQL, strings.ToUpper(code))
}

func (r *Repo) GetPolicy(ctx context.Context, id string) (domain.Policy, error) {
	var p domain.Policy
	err := r.db.QueryRowContext(ctx, getPolicySQL, id).Scan(
		&p.ID, &p.CheckInTime, &p.CheckOutTime, &p.CancellationDeadlineHours,
		&p.RefundPercent, &p.RefundPolicyText, &p.ServiceFeePercent, &p.TaxPercent,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Policy{}, domain.ErrNotFound.WithMsg("policy not found")
	}
	return p, err
}

func (r *Repo) UpsertPolicy(ctx context.Context, p domain.Policy) error {
	_, err := r.db.ExecContext(ctx, upsertPolicySQL,
		p.ID, p.CheckInTime, p.CheckOutTime, p.CancellationDeadlineHours,
		p.RefundPercent, p.RefundPolicyText, p.ServiceFeePercent, p.TaxPercent,
	)
	return err
}

func (r *Repo) LoyaltyPoints(ctx context.Context, userID int64) (int64, error) {
	var pts int64
	err := r.db.QueryRowContext(ctx, getLoyaltySQL, userID).Scan(&pts)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return pts, err
}

// txRepo carries every write. It is bound to one *sql.Tx.
type txRepo struct{ q querier }

func (t *txRepo) EnsureInventory(ctx context.Context, roomID int64, total int, nights []time.Time) error {
	if len(nights) == 0 {
		return nil
	}
	values := make([]string, 0, len(nights))
	args := make([]any, 0, len(nights)*3)
	for _, n := range nights {
		values = append(values, "(?,?,?,0)")
		args = append(args, roomID, day(n), total)
	}
	q := ensureInventoryPrefix + strings.Join(values, ",") + ensureInventoryOnDup
	_, err := t.q.ExecContext(ctx, q, args...)
	return err
}

func (t *txRepo) ResyncInventoryTotals(ctx context.Context, roomID int64, total int, from time.Time) error {
	_, err := t.q.ExecContext(ctx, resyncInventorySQL, total, roomID, day(from))
	return err
}

func (t *txRepo) IncrementBooked(ctx context.Context, roomID int64, night time.Time) (bool, error) {
	return execAffectedOne(ctx, t.q, incrementBookedSQL, roomID, day(night))
}

func (t *txRepo) DecrementBooked(ctx context.Context, roomID int64, night time.Time) error {
	_, err := t.q.ExecContext(ctx, decrementBookedSQL, roomID, day(night))
	return err
}

func (t *txRepo) InsertBooking(ctx context.Context, b domain.Booking) error {
	_, err := t.q.ExecContext(ctx, insertBookingSQL,
		b.ID, b.HotelID, b.RoomID, b.UserID,
		day(b.CheckIn), day(b.CheckOut),
		string(b.Status), b.TotalPrice,
		valInt64(b.VoucherID),
		b.Guest.Name, b.Guest.Email, b.Guest.Phone,
		valStr(b.CancelReason),
		b.CreatedAt.UTC(), b.UpdatedAt.UTC(),
	)
	if isDuplicateKey(err) {
		return domain.ErrInvalidRequest.WithMsg("duplicate booking id").With("bookingId", b.ID)
	}
	return err
}

func (t *txRepo) GetBookingForUpdate(ctx context.Context, id string) (domain.Booking, error) {
	return getBooking(ctx, t.q, getBookingForUpdateSQL, id)
}

func (t *txRepo) UpdateBookingStatus(ctx context.Context, id string, status domain.BookingStatus, reason *string) error {
	res, err := t.q.ExecContext(ctx, updateBookingStatusSQL, string(status), valStr(reason), time.Now().UTC(), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound.WithMsg("booking not found").With("bookingId", id)
	}
	return nil
}

func (t *txRepo) GetPaymentForUpdate(ctx context.Context, bookingID string) (domain.Payment, error) {
	return getPayment(ctx, t.q, getPaymentForUpdateSQL, bookingID)
}

func (t *txRepo) UpsertPayment(ctx context.Context, p domain.Payment) error {
	_, err := t.q.ExecContext(ctx, upsertPaymentSQL,
		p.BookingID, string(p.Status), p.Amount, string(p.Method),
		valStr(p.ProviderRef), valTime(p.PaidAt),
	)
	return err
}

func (t *txRepo) GetVoucherByCodeForUpdate(ctx context.Context, code string) (domain.Voucher, error) {
	var v domain.Voucher
	var typ string
	err := t.q.QueryRowContext(ctx, getVoucherByCodeForUpdateSQL, code).Scan(
		&v.ID, &v.Code, &typ, &v.Discount, &v.MinSpend, &v.UsageLimit, &v.UsedCount, &v.EndDate,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Voucher{}, domain.ErrNotFound.WithMsg("voucher not found")
	}
	if err != nil {
		return domain.Voucher{}, err
	}
	v.Type = domain.VoucherType(typ)
	v.EndDate = v.EndDate.UTC()
	return v, nil
}

func (t *txRepo) IncrementVoucherUsage(ctx context.Context, voucherID int64) (bool, error) {
	return execAffectedOne(ctx, t.q, incrementVoucherUsageSQL, voucherID)
}

func (t *txRepo) DecrementVoucherUsage(ctx context.Context, voucherID int64) error {
	_, err := t.q.ExecContext(ctx, decrementVoucherUsageSQL, voucherID)
	return err
}

func (t *txRepo) AddLoyaltyPoints(ctx context.Context, userID, points int64) error {
	_, err := t.q.ExecContext(ctx, addLoyaltySQL, userID, points)
	return err
}

// -----------------------------------------------------------------------------
// helpers
// -----------------------------------------------------------------------------

const errDupEntry = 1062

func isDuplicateKey(err error) bool {
	var me *mysqldrv.MySQLError
	return errors.As(err, &me) && me.Number == errDupEntry
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// execAffectedOne runs a guarded UPDATE and reports whether exactly one row moved.
func execAffectedOne(ctx context.Context, q querier, query string, args ...any) (bool, error) {
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func scanBooking(s rowScanner) (domain.Booking, error) {
	var (
		b         domain.Booking
		status    string
		voucherID sql.NullInt64
		reason    sql.NullString
	)
	if err := s.Scan(
		&b.ID, &b.HotelID, &b.RoomID, &b.UserID,
		&b.CheckIn, &b.CheckOut,
		&status, &b.TotalPrice,
		&voucherID,
		&b.Guest.Name, &b.Guest.Email, &b.Guest.Phone,
		&reason,
		&b.CreatedAt, &b.UpdatedAt,
	); err != nil {
		return domain.Booking{}, err
	}
	b.Status = domain.BookingStatus(status)
	b.CheckIn = domain.DateOnly(b.CheckIn)
	b.CheckOut = domain.DateOnly(b.CheckOut)
	b.CreatedAt = b.CreatedAt.UTC()
	b.UpdatedAt = b.UpdatedAt.UTC()
	if voucherID.Valid {
		id := voucherID.Int64
		b.VoucherID = &id
	}
	if reason.Valid {
		rs := reason.String
		b.CancelReason = &rs
	}
	return b, nil
}

func getBooking(ctx context.Context, q querier, query, id string) (domain.Booking, error) {
	b, err := scanBooking(q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Booking{}, domain.ErrNotFound.WithMsg("booking not found").With("bookingId", id)
	}
	return b, err
}

func queryBookings(ctx context.Context, q querier, query string, args ...any) ([]domain.Booking, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func getPayment(ctx context.Context, q querier, query, bookingID string) (domain.Payment, error) {
	var (
		p           domain.Payment
		status      string
		method      string
		providerRef sql.NullString
		paidAt      sql.NullTime
	)
	err := q.QueryRowContext(ctx, query, bookingID).Scan(
		&p.BookingID, &status, &p.Amount, &method, &providerRef, &paidAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Payment{}, domain.ErrNotFound.WithMsg("payment not found").With("bookingId", bookingID)
	}
	if err != nil {
		return domain.Payment{}, err
	}
	p.Status = domain.PaymentStatus(status)
	p.Method = domain.PaymentMethod(method)
	if providerRef.Valid {
		s := providerRef.String
		p.ProviderRef = &s
	}
	if paidAt.Valid {
		t := paidAt.Time.UTC()
		p.PaidAt = &t
	}
	return p, nil
}
