// Package memory is an in-process domain.Store for local runs and tests.
// Transactions are serialised behind one mutex and work on a copy of the
// state that replaces the committed state only when fn succeeds.
package memory

import (
	"context"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"hotel_booking/internal/domain"
)

type invKey struct {
	room  int64
	night string
}

type state struct {
	rooms     map[int64]domain.Room
	inventory map[invKey]domain.InventoryRow
	bookings  map[string]domain.Booking
	payments  map[string]domain.Payment
	vouchers  map[int64]domain.Voucher
	policies  map[string]domain.Policy
	loyalty   map[int64]int64
}

func (s *state) clone() *state {
	return &state{
		rooms:     maps.Clone(s.rooms),
		inventory: maps.Clone(s.inventory),
		bookings:  maps.Clone(s.bookings),
		payments:  maps.Clone(s.payments),
		vouchers:  maps.Clone(s.vouchers),
		policies:  maps.Clone(s.policies),
		loyalty:   maps.Clone(s.loyalty),
	}
}

type Store struct {
	mu sync.Mutex
	st *state
}

func New() *Store {
	return &Store{st: &state{
		rooms:     map[int64]domain.Room{},
		inventory: map[invKey]domain.InventoryRow{},
		bookings:  map[string]domain.Booking{},
		payments:  map[string]domain.Payment{},
		vouchers:  map[int64]domain.Voucher{},
		policies:  map[string]domain.Policy{},
		loyalty:   map[int64]int64{},
	}}
}

func key(roomID int64, night time.Time) invKey {
	return invKey{room: roomID, night: domain.DateOnly(night).Format(domain.DateLayout)}
}

// PutRoom and PutVoucher seed catalogue data that an admin collaborator owns.
func (s *Store) PutRoom(r domain.Room) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.rooms[r.ID] = r
}

func (s *Store) PutVoucher(v domain.Voucher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.vouchers[v.ID] = v
}

func (s *Store) Voucher(id int64) (domain.Voucher, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.st.vouchers[id]
	return v, ok
}

// Row returns the inventory row for one night, if provisioned.
func (s *Store) Row(roomID int64, night time.Time) (domain.InventoryRow, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.st.inventory[key(roomID, night)]
	return r, ok
}

// RowCount is the number of provisioned inventory rows for a room.
func (s *Store) RowCount(roomID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k := range s.st.inventory {
		if k.room == roomID {
			n++
		}
	}
	return n
}

func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx domain.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	work := s.st.clone()
	if err := fn(ctx, &tx{st: work}); err != nil {
		return err
	}
	s.st = work
	return nil
}

func (s *Store) GetRoom(_ context.Context, id int64) (domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.st.rooms[id]
	if !ok {
		return domain.Room{}, domain.ErrNotFound.WithMsg("room not found")
	}
	return r, nil
}

func (s *Store) ListRooms(_ context.Context) ([]domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Room, 0, len(s.st.rooms))
	for _, r := range s.st.rooms {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) InventoryRange(_ context.Context, roomID int64, nights []time.Time) ([]domain.InventoryRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.InventoryRow, 0, len(nights))
	for _, n := range nights {
		if r, ok := s.st.inventory[key(roomID, n)]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Store) GetBooking(_ context.Context, id string) (domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.st.bookings[id]
	if !ok {
		return domain.Booking{}, domain.ErrNotFound.WithMsg("booking not found")
	}
	return b, nil
}

func (s *Store) GetPayment(_ context.Context, bookingID string) (domain.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.st.payments[bookingID]
	if !ok {
		return domain.Payment{}, domain.ErrNotFound.WithMsg("payment not found")
	}
	return p, nil
}

func (s *Store) ListBookingsByStatus(_ context.Context, statuses ...domain.BookingStatus) ([]domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Booking
	for _, b := range s.st.bookings {
		for _, st := range statuses {
			if b.Status == st {
				out = append(out, b)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) FindBookingsByCode(_ context.Context, code string) ([]domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	code = strings.ToUpper(code)
	var out []domain.Booking
	for _, b := range s.st.bookings {
		if b.PaymentCode() == code {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *Store) GetPolicy(_ context.Context, id string) (domain.Policy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.st.policies[id]
	if !ok {
		return domain.Policy{}, domain.ErrNotFound.WithMsg("policy not found")
	}
	return p, nil
}

func (s *Store) UpsertPolicy(_ context.Context, p domain.Policy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.policies[p.ID] = p
	return nil
}

func (s *Store) LoyaltyPoints(_ context.Context, userID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.loyalty[userID], nil
}

// tx mutates a private copy of the state; InTx swaps it in on success.
type tx struct{ st *state }

func (t *tx) EnsureInventory(_ context.Context, roomID int64, total int, nights []time.Time) error {
	for _, n := range nights {
		k := key(roomID, n)
		if _, ok := t.st.inventory[k]; ok {
			continue
		}
		t.st.inventory[k] = domain.InventoryRow{RoomID: roomID, Night: domain.DateOnly(n), Total: total}
	}
	return nil
}

func (t *tx) ResyncInventoryTotals(_ context.Context, roomID int64, total int, from time.Time) error {
	from = domain.DateOnly(from)
	for k, r := range t.st.inventory {
		if k.room != roomID || r.Night.Before(from) {
			continue
		}
		r.Total = max(total, r.Booked)
		t.st.inventory[k] = r
	}
	return nil
}

func (t *tx) IncrementBooked(_ context.Context, roomID int64, night time.Time) (bool, error) {
	k := key(roomID, night)
	r, ok := t.st.inventory[k]
	if !ok || r.Booked >= r.Total {
		return false, nil
	}
	r.Booked++
	t.st.inventory[k] = r
	return true, nil
}

func (t *tx) DecrementBooked(_ context.Context, roomID int64, night time.Time) error {
	k := key(roomID, night)
	r, ok := t.st.inventory[k]
	if !ok {
		return nil
	}
	r.Booked = max(r.Booked-1, 0)
	t.st.inventory[k] = r
	return nil
}

func (t *tx) InsertBooking(_ context.Context, b domain.Booking) error {
	if _, ok := t.st.bookings[b.ID]; ok {
		return domain.ErrInvalidRequest.WithMsg("duplicate booking id")
	}
	t.st.bookings[b.ID] = b
	return nil
}

func (t *tx) GetBookingForUpdate(_ context.Context, id string) (domain.Booking, error) {
	b, ok := t.st.bookings[id]
	if !ok {
		return domain.Booking{}, domain.ErrNotFound.WithMsg("booking not found")
	}
	return b, nil
}

func (t *tx) UpdateBookingStatus(_ context.Context, id string, status domain.BookingStatus, reason *string) error {
	b, ok := t.st.bookings[id]
	if !ok {
		return domain.ErrNotFound.WithMsg("booking not found")
	}
	b.Status = status
	if reason != nil {
		b.CancelReason = reason
	}
	b.UpdatedAt = time.Now().UTC()
	t.st.bookings[id] = b
	return nil
}

func (t *tx) GetPaymentForUpdate(_ context.Context, bookingID string) (domain.Payment, error) {
	p, ok := t.st.payments[bookingID]
	if !ok {
		return domain.Payment{}, domain.ErrNotFound.WithMsg("payment not found")
	}
	return p, nil
}

func (t *tx) UpsertPayment(_ context.Context, p domain.Payment) error {
	t.st.payments[p.BookingID] = p
	return nil
}

func (t *tx) GetVoucherByCodeForUpdate(_ context.Context, code string) (domain.Voucher, error) {
	for _, v := range t.st.vouchers {
		if strings.EqualFold(v.Code, code) {
			return v, nil
		}
	}
	return domain.Voucher{}, domain.ErrNotFound.WithMsg("voucher not found")
}

func (t *tx) IncrementVoucherUsage(_ context.Context, voucherID int64) (bool, error) {
	v, ok := t.st.vouchers[voucherID]
	if !ok || v.UsedCount >= v.UsageLimit {
		return false, nil
	}
	v.UsedCount++
	t.st.vouchers[voucherID] = v
	return true, nil
}

func (t *tx) DecrementVoucherUsage(_ context.Context, voucherID int64) error {
	v, ok := t.st.vouchers[voucherID]
	if !ok {
		return nil
	}
	v.UsedCount = max(v.UsedCount-1, 0)
	t.st.vouchers[voucherID] = v
	return nil
}

func (t *tx) AddLoyaltyPoints(_ context.Context, userID, points int64) error {
	t.st.loyalty[userID] += points
	return nil
}
