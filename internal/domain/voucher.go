package domain

import "time"

type VoucherType string

const (
	VoucherPercent VoucherType = "PERCENT"
	VoucherAmount  VoucherType = "AMOUNT"
)

type Voucher struct {
	ID         int64       `json:"id"`
	Code       string      `json:"code"`
	Type       VoucherType `json:"type"`
	Discount   float64     `json:"discount"` // percent for PERCENT, currency units for AMOUNT
	MinSpend   int64       `json:"minSpend"`
	UsageLimit int         `json:"usageLimit"`
	UsedCount  int         `json:"usedCount"`
	EndDate    time.Time   `json:"endDate"`
}
