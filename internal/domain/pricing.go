package domain

import (
	"math"
	"time"
)

// PriceBreakdown is the full computation behind a booking total.
type PriceBreakdown struct {
	Nights        int    `json:"nights"`
	PricePerNight int64  `json:"pricePerNight"`
	BaseAmount    int64  `json:"baseAmount"`
	Discount      int64  `json:"discount"`
	ServiceFee    int64  `json:"serviceFee"`
	Tax           int64  `json:"tax"`
	Total         int64  `json:"total"`
	VoucherCode   string `json:"voucherCode,omitempty"`
}

// BaseAmount charges at least one night even for a degenerate range.
func BaseAmount(pricePerNight int64, nights int) int64 {
	return pricePerNight * int64(max(1, nights))
}

func percentOf(amount int64, pct float64) int64 {
	return int64(math.Round(float64(amount) * pct / 100))
}

// EvaluateVoucher checks eligibility in a fixed order (expiry, usage, minimum
// spend) and returns the discount, never more than base.
func EvaluateVoucher(v Voucher, base int64, now time.Time) (int64, error) {
	if !now.Before(v.EndDate) {
		return 0, ErrVoucherExpired.With("endDate", v.EndDate)
	}
	if v.UsedCount >= v.UsageLimit {
		return 0, ErrVoucherLimitReached.With("usageLimit", v.UsageLimit)
	}
	if v.MinSpend > 0 && base < v.MinSpend {
		return 0, ErrVoucherMinSpend.With("minSpend", v.MinSpend).With("baseAmount", base)
	}
	var discount int64
	switch v.Type {
	case VoucherPercent:
		discount = percentOf(base, v.Discount)
	case VoucherAmount:
		discount = int64(math.Round(v.Discount))
	default:
		return 0, ErrInvalidRequest.WithMsg("unknown voucher type " + string(v.Type))
	}
	if discount < 0 {
		discount = 0
	}
	return min(discount, base), nil
}

// Quote prices a stay. A voucher, when given, must already have passed
// EvaluateVoucher; discount is its result.
func Quote(pricePerNight int64, nights int, p Policy, discount int64, voucherCode string) PriceBreakdown {
	base := BaseAmount(pricePerNight, nights)
	discount = min(max(discount, 0), base)
	fee := percentOf(base, p.ServiceFeePercent)
	tax := percentOf(base, p.TaxPercent)
	return PriceBreakdown{
		Nights:        nights,
		PricePerNight: pricePerNight,
		BaseAmount:    base,
		Discount:      discount,
		ServiceFee:    fee,
		Tax:           tax,
		Total:         max(0, base-discount+fee+tax),
		VoucherCode:   voucherCode,
	}
}

// RefundAmount rounds totalPrice × percent/100.
func RefundAmount(totalPrice int64, percent float64) int64 {
	return percentOf(totalPrice, percent)
}
