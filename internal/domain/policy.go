package domain

const DefaultPolicyID = "default"

type Policy struct {
	ID                        string  `json:"id"`
	CheckInTime               string  `json:"checkInTime" validate:"required,datetime=15:04"`
	CheckOutTime              string  `json:"checkOutTime" validate:"required,datetime=15:04"`
	CancellationDeadlineHours int     `json:"cancellationDeadlineHours" validate:"gte=0"`
	RefundPercent             float64 `json:"refundPercent" validate:"gte=0,lte=100"`
	RefundPolicyText          string  `json:"refundPolicyText" validate:"max=4000"`
	ServiceFeePercent         float64 `json:"serviceFeePercent" validate:"gte=0,lte=100"`
	TaxPercent                float64 `json:"taxPercent" validate:"gte=0,lte=100"`
}

// FallbackPolicy is used when no policy row exists yet for the requested id.
func FallbackPolicy(id string) Policy {
	return Policy{
		ID:                        id,
		CheckInTime:               "14:00",
		CheckOutTime:              "12:00",
		CancellationDeadlineHours: 24,
		RefundPercent:             100,
	}
}
