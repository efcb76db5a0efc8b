package domain

import (
	"fmt"
	"strings"
	"time"
)

// Entity is a rateable catalog record (a game, a restaurant, ...). The two
// near-identical record kinds of the product share this single shape. Document
// field names live with the catalog service, which does all the encoding.
type Entity struct {
	ID         string
	Name       string
	Category   string
	Platform   string
	PriceTier  int
	AvgRating  float64
	NumRatings int64
	SumRating  float64
	PhotoURL   string
	CreatedAt  time.Time
}

// PriceTierMin and PriceTierMax bound the valid price tiers.
const (
	PriceTierMin = 1
	PriceTierMax = 4
)

// ValidPriceTier reports whether tier is inside the 1..4 range.
func ValidPriceTier(tier int) bool {
	return tier >= PriceTierMin && tier <= PriceTierMax
}

// PriceSymbols renders a tier as a repeated-dollar string for display.
// Storage and filtering always use the integer tier.
func PriceSymbols(tier int) string {
	if !ValidPriceTier(tier) {
		return ""
	}
	return strings.Repeat("$", tier)
}

// ParsePriceSymbols accepts either an integer tier ("3") or the legacy
// repeated-symbol form ("$$$") and returns the tier.
func ParsePriceSymbols(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("empty price value")
	}
	if strings.Trim(raw, "$") == "" {
		tier := len(raw)
		if !ValidPriceTier(tier) {
			return 0, fmt.Errorf("price symbols out of range: %q", raw)
		}
		return tier, nil
	}
	var tier int
	if _, err := fmt.Sscanf(raw, "%d", &tier); err != nil {
		return 0, fmt.Errorf("invalid price value: %q", raw)
	}
	if !ValidPriceTier(tier) {
		return 0, fmt.Errorf("price tier out of range: %d", tier)
	}
	return tier, nil
}
