// Package pricing computes storage-pass quotes. It is a pure mirror of the
// pricing table the booking backend uses; quotes are cheap to recompute and
// are never cached.
package pricing

import "fmt"

// Tier is a storage pass sized by bag capacity. Day1 is the first-day price
// in whole dollars.
type Tier struct {
	ID      string
	Name    string
	MaxBags int
	Day1    int
}

// Tiers in ascending capacity order. The first tier whose capacity covers
// the bag count applies; bags beyond the largest tier bill as extra bags.
var tiers = []Tier{
	{ID: "solo", Name: "Solo Traveler", MaxBags: 2, Day1: 49},
	{ID: "couples", Name: "Couples Traveler", MaxBags: 4, Day1: 99},
	{ID: "family", Name: "Family Traveler", MaxBags: 6, Day1: 129},
	{ID: "large", Name: "Large Group Traveler", MaxBags: 8, Day1: 159},
}

// ExtraBagDay1 is the first-day rate per bag beyond the largest tier.
const ExtraBagDay1 = 15

// Quote is the deterministic price for a bag/day combination. Total is in
// whole dollars.
type Quote struct {
	Tier      Tier
	ExtraBags int
	Total     int
}

// TierFor selects the tier for a bag count and the number of bags billed on
// top of it.
func TierFor(bags int) (Tier, int) {
	bags = clamp(bags)
	for _, t := range tiers {
		if bags <= t.MaxBags {
			return t, 0
		}
	}
	largest := tiers[len(tiers)-1]
	return largest, bags - largest.MaxBags
}

// PassName is the display name for a bag count, e.g. "Solo Traveler" or
// "Large Group Traveler + 2 extra".
func PassName(bags int) string {
	tier, extra := TierFor(bags)
	if extra > 0 {
		return fmt.Sprintf("%s + %d extra", tier.Name, extra)
	}
	return tier.Name
}

// PriceFor quotes bags for days. Subsequent days cost half the first-day
// rate, rounded up per rate (not per aggregate) so the rounding favors the
// seller. Non-positive inputs clamp to 1.
func PriceFor(bags, days int) Quote {
	bags = clamp(bags)
	days = clamp(days)

	tier, extra := TierFor(bags)
	firstDay := tier.Day1 + extra*ExtraBagDay1
	perExtraDay := ceilHalf(tier.Day1) + extra*ceilHalf(ExtraBagDay1)

	return Quote{
		Tier:      tier,
		ExtraBags: extra,
		Total:     firstDay + (days-1)*perExtraDay,
	}
}

// ceilHalf halves a non-negative rate, rounding up.
func ceilHalf(n int) int {
	return (n + 1) / 2
}

func clamp(n int) int {
	if n < 1 {
		return 1
	}
	return n
}
