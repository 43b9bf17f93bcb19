package domain

import "time"

type Room struct {
	ID            int64
	HotelID       int64
	Name          string
	Quantity      int   // physical capacity per night
	PricePerNight int64 // integer currency units
}

// InventoryRow is the capacity ledger entry for one room on one night.
// 0 <= Booked <= Total always holds.
type InventoryRow struct {
	RoomID int64
	Night  time.Time // date-only, UTC
	Total  int
	Booked int
}

func (r InventoryRow) Remaining() int { return r.Total - r.Booked }

type NightAvailability struct {
	Date      string `json:"date"`
	Total     int    `json:"total"`
	Booked    int    `json:"booked"`
	Available int    `json:"available"`
}

type AvailabilitySummary struct {
	Available    bool `json:"available"`
	RemainingMin int  `json:"remainingMin"`
}

type Availability struct {
	RoomID  int64               `json:"roomId"`
	Nightly []NightAvailability `json:"nightly"`
	Summary AvailabilitySummary `json:"summary"`
}
