package domain

import (
	"fmt"
	"math"
)

const (
	// MinNightlyRate is the lowest rate the engine will price, in whole
	// currency units.
	MinNightlyRate = 100

	DefaultTaxRatePct    = 12.0
	DefaultServiceFeePct = 2.0
)

// Pricing is an itemized price snapshot, frozen on the booking at
// creation time. All amounts are whole currency units.
type Pricing struct {
	NightlyRate int64
	Nights      int64
	RoomCost    int64
	Taxes       int64
	ServiceFee  int64
	Discount    int64
	Total       int64
}

// Price computes the itemized total with the default tax and service
// fee schedule. Pure; rounding is half-away-from-zero per component.
func Price(nightlyRate, nights int64) (Pricing, error) {
	return PriceWith(nightlyRate, nights, DefaultTaxRatePct, DefaultServiceFeePct, 0)
}

func PriceWith(nightlyRate, nights int64, taxRatePct, serviceFeePct float64, discount int64) (Pricing, error) {
	if nights <= 0 {
		return Pricing{}, fmt.Errorf("%w: nights must be positive, got %d", ErrInvalidInput, nights)
	}
	if nightlyRate < MinNightlyRate {
		return Pricing{}, fmt.Errorf("%w: nightly rate %d below minimum %d", ErrInvalidInput, nightlyRate, MinNightlyRate)
	}
	roomCost := nightlyRate * nights
	taxes := roundPct(roomCost, taxRatePct)
	fee := roundPct(roomCost, serviceFeePct)
	return Pricing{
		NightlyRate: nightlyRate,
		Nights:      nights,
		RoomCost:    roomCost,
		Taxes:       taxes,
		ServiceFee:  fee,
		Discount:    discount,
		Total:       roomCost + taxes + fee - discount,
	}, nil
}

func roundPct(amount int64, pct float64) int64 {
	return int64(math.Round(float64(amount) * pct / 100))
}
