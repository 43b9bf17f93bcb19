package domain

import "time"

type BookingStatus string

const (
	BookingPending        BookingStatus = "PENDING"
	BookingPendingPayment BookingStatus = "PENDING_PAYMENT"
	BookingConfirmed      BookingStatus = "CONFIRMED"
	BookingCancelled      BookingStatus = "CANCELLED"
)

// AwaitingPayment reports whether a webhook may still confirm the booking.
func (s BookingStatus) AwaitingPayment() bool {
	return s == BookingPending || s == BookingPendingPayment
}

type PaymentStatus string

const (
	PaymentUnset     PaymentStatus = ""
	PaymentPaid      PaymentStatus = "PAID"
	PaymentCancelled PaymentStatus = "CANCELLED"
)

type PaymentMethod string

const (
	MethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	MethodCard         PaymentMethod = "CARD"
	MethodPayAtHotel   PaymentMethod = "PAY_AT_HOTEL"
)

// SettledExternally is true for methods whose money arrives through a
// payment notification rather than at the front desk.
func (m PaymentMethod) SettledExternally() bool {
	return m != MethodPayAtHotel
}

type GuestInfo struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

type Booking struct {
	ID           string        `json:"id"`
	HotelID      int64         `json:"hotelId"`
	RoomID       int64         `json:"roomId"`
	UserID       int64         `json:"userId"`
	CheckIn      time.Time     `json:"checkIn"`
	CheckOut     time.Time     `json:"checkOut"` // exclusive
	Status       BookingStatus `json:"status"`
	TotalPrice   int64         `json:"totalPrice"`
	VoucherID    *int64        `json:"voucherId,omitempty"`
	Guest        GuestInfo     `json:"guest"`
	CancelReason *string       `json:"cancelReason,omitempty"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

// Nights returns the occupied nights of the booking.
func (b Booking) Nights() []time.Time { return EnumerateNights(b.CheckIn, b.CheckOut) }

// PaymentCode is the reference a guest puts in a bank transfer note.
func (b Booking) PaymentCode() string { return PaymentCodeOf(b.ID) }

type Payment struct {
	BookingID   string        `json:"bookingId"`
	Status      PaymentStatus `json:"status"`
	Amount      int64         `json:"amount"`
	Method      PaymentMethod `json:"method"`
	ProviderRef *string       `json:"providerRef,omitempty"`
	PaidAt      *time.Time    `json:"paidAt,omitempty"`
}

// LoyaltyUnit is the spend, in currency units, that earns one loyalty point.
const LoyaltyUnit int64 = 100_000

func LoyaltyPoints(totalPrice int64) int64 {
	if totalPrice <= 0 {
		return 0
	}
	return totalPrice / LoyaltyUnit
}
