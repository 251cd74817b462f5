package domain

import (
	"math"
	"time"
)

// Refund returns the amount owed back when a confirmed booking is
// cancelled at `now`, tiered by lead time before check-in:
//
//	> 24h          90%
//	> 6h, <= 24h   50%
//	<= 6h          nothing
//
// Exactly 24h falls in the 50% tier and exactly 6h in the no-refund
// tier. Pure function.
func Refund(now, checkIn time.Time, totalPaid int64) int64 {
	hours := checkIn.Sub(now).Hours()
	switch {
	case hours > 24:
		return int64(math.Round(0.90 * float64(totalPaid)))
	case hours > 6:
		return int64(math.Round(0.50 * float64(totalPaid)))
	default:
		return 0
	}
}
