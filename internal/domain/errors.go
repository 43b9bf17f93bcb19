package domain

import (
	"errors"
	"maps"
)

// Code is the machine-readable reason carried by every business failure.
type Code string

const (
	CodeRoomNotAvailable      Code = "ROOM_NOT_AVAILABLE"
	CodeVoucherExpired        Code = "VOUCHER_EXPIRED"
	CodeVoucherLimitReached   Code = "VOUCHER_LIMIT_REACHED"
	CodeVoucherMinSpend       Code = "VOUCHER_MIN_SPEND"
	CodeVoucherNotFound       Code = "VOUCHER_NOT_FOUND"
	CodeCancellationClosed    Code = "CANCELLATION_WINDOW_CLOSED"
	CodePaymentAmountMismatch Code = "PAYMENT_AMOUNT_MISMATCH"
	CodeNoMatchingBooking     Code = "NO_MATCHING_BOOKING"
	CodePaymentRefAmbiguous   Code = "PAYMENT_REFERENCE_AMBIGUOUS"
	CodePaymentAlreadyPaid    Code = "PAYMENT_ALREADY_PAID"
	CodeInvalidBookingState   Code = "INVALID_BOOKING_STATE"
	CodeInvalidRequest        Code = "INVALID_REQUEST"
	CodeNotFound              Code = "NOT_FOUND"
	CodeInternal              Code = "INTERNAL"
)

type Error struct {
	Code    Code
	Msg     string
	Details map[string]any
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return string(e.Code)
	}
	return string(e.Code) + ": " + e.Msg
}

// Is matches on Code so callers can compare against the sentinels below
// even when the error carries its own message or details.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// With returns a copy of e carrying an extra detail; sentinels stay untouched.
func (e *Error) With(key string, v any) *Error {
	out := &Error{Code: e.Code, Msg: e.Msg, Details: maps.Clone(e.Details)}
	if out.Details == nil {
		out.Details = map[string]any{}
	}
	out.Details[key] = v
	return out
}

// WithMsg returns a copy of e with a different message.
func (e *Error) WithMsg(msg string) *Error {
	return &Error{Code: e.Code, Msg: msg, Details: maps.Clone(e.Details)}
}

var (
	ErrRoomNotAvailable      = &Error{Code: CodeRoomNotAvailable, Msg: "room is not available for every requested night"}
	ErrVoucherExpired        = &Error{Code: CodeVoucherExpired, Msg: "voucher has expired"}
	ErrVoucherLimitReached   = &Error{Code: CodeVoucherLimitReached, Msg: "voucher usage limit reached"}
	ErrVoucherMinSpend       = &Error{Code: CodeVoucherMinSpend, Msg: "booking amount is below the voucher minimum spend"}
	ErrVoucherNotFound       = &Error{Code: CodeVoucherNotFound, Msg: "voucher not found"}
	ErrCancellationClosed    = &Error{Code: CodeCancellationClosed, Msg: "cancellation deadline has passed for a paid booking"}
	ErrPaymentAmountMismatch = &Error{Code: CodePaymentAmountMismatch, Msg: "notified amount is outside tolerance of the booking total"}
	ErrNoMatchingBooking     = &Error{Code: CodeNoMatchingBooking, Msg: "no pending booking matches the payment reference"}
	ErrPaymentRefAmbiguous   = &Error{Code: CodePaymentRefAmbiguous, Msg: "payment reference matches more than one pending booking"}
	ErrPaymentAlreadyPaid    = &Error{Code: CodePaymentAlreadyPaid, Msg: "booking payment is already paid"}
	ErrInvalidBookingState   = &Error{Code: CodeInvalidBookingState, Msg: "booking state does not allow this operation"}
	ErrInvalidRequest        = &Error{Code: CodeInvalidRequest, Msg: "invalid request"}
	ErrNotFound              = &Error{Code: CodeNotFound, Msg: "not found"}
)

// CodeOf extracts the reason code, INTERNAL for anything that is not a *Error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}
