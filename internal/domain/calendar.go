package domain

import (
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

// DateOnly truncates t to its calendar date in UTC.
func DateOnly(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// EnumerateNights lists the nights of the half-open range [checkIn, checkOut)
// in ascending order. The checkout date itself is not occupied.
func EnumerateNights(checkIn, checkOut time.Time) []time.Time {
	start, end := DateOnly(checkIn), DateOnly(checkOut)
	if !end.After(start) {
		return nil
	}
	nights := make([]time.Time, 0, int(end.Sub(start).Hours()/24))
	for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
		nights = append(nights, d)
	}
	return nights
}

// PaymentCodeLen is the length of the booking reference guests quote in
// transfer notes.
const PaymentCodeLen = 6

// PaymentCodeOf returns the upper-cased last six characters of a booking id.
func PaymentCodeOf(bookingID string) string {
	if len(bookingID) <= PaymentCodeLen {
		return strings.ToUpper(bookingID)
	}
	return strings.ToUpper(bookingID[len(bookingID)-PaymentCodeLen:])
}
