package domain

import (
	"context"
	"time"
)

// Store is the read side of the booking database plus the only way to obtain
// a Tx. Every mutation lives on Tx, so nothing can be written outside a
// transaction.
type Store interface {
	// InTx runs fn inside one all-or-nothing transaction. A non-nil error
	// from fn rolls everything back.
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	GetRoom(ctx context.Context, id int64) (Room, error)
	ListRooms(ctx context.Context) ([]Room, error)
	InventoryRange(ctx context.Context, roomID int64, nights []time.Time) ([]InventoryRow, error)

	GetBooking(ctx context.Context, id string) (Booking, error)
	GetPayment(ctx context.Context, bookingID string) (Payment, error)
	ListBookingsByStatus(ctx context.Context, statuses ...BookingStatus) ([]Booking, error)
	// FindBookingsByCode returns bookings of any status whose id ends in code.
	FindBookingsByCode(ctx context.Context, code string) ([]Booking, error)

	GetPolicy(ctx context.Context, id string) (Policy, error)
	UpsertPolicy(ctx context.Context, p Policy) error
	LoyaltyPoints(ctx context.Context, userID int64) (int64, error)
}

// Tx is a unit of work. Implementations are not safe for concurrent use.
type Tx interface {
	// Inventory ledger
	EnsureInventory(ctx context.Context, roomID int64, total int, nights []time.Time) error
	ResyncInventoryTotals(ctx context.Context, roomID int64, total int, from time.Time) error
	// IncrementBooked is the compare-and-set reservation of one night; it
	// reports false when the night is full or missing.
	IncrementBooked(ctx context.Context, roomID int64, night time.Time) (bool, error)
	DecrementBooked(ctx context.Context, roomID int64, night time.Time) error

	// Bookings and payments
	InsertBooking(ctx context.Context, b Booking) error
	GetBookingForUpdate(ctx context.Context, id string) (Booking, error)
	UpdateBookingStatus(ctx context.Context, id string, status BookingStatus, reason *string) error
	GetPaymentForUpdate(ctx context.Context, bookingID string) (Payment, error)
	UpsertPayment(ctx context.Context, p Payment) error

	// Vouchers
	GetVoucherByCodeForUpdate(ctx context.Context, code string) (Voucher, error)
	// IncrementVoucherUsage reports false when the usage limit is already reached.
	IncrementVoucherUsage(ctx context.Context, voucherID int64) (bool, error)
	DecrementVoucherUsage(ctx context.Context, voucherID int64) error

	AddLoyaltyPoints(ctx context.Context, userID, points int64) error
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// BookingEvent is emitted after a lifecycle transition has been committed.
type BookingEvent struct {
	Type         string    `json:"type"` // booking.confirmed | booking.cancelled
	BookingID    string    `json:"bookingId"`
	HotelID      int64     `json:"hotelId"`
	RoomID       int64     `json:"roomId"`
	UserID       int64     `json:"userId"`
	GuestEmail   string    `json:"guestEmail,omitempty"`
	CheckIn      string    `json:"checkIn"`
	CheckOut     string    `json:"checkOut"`
	TotalPrice   int64     `json:"totalPrice"`
	RefundAmount int64     `json:"refundAmount,omitempty"`
	PointsEarned int64     `json:"pointsEarned,omitempty"`
	OccurredAt   time.Time `json:"occurredAt"`
}

const (
	EventBookingConfirmed = "booking.confirmed"
	EventBookingCancelled = "booking.cancelled"
)

// Notifier delivers committed booking events to downstream collaborators
// (mailers, analytics). Delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, ev BookingEvent) error
}
