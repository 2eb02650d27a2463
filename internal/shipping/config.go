package shipping

import (
	"github.com/shiny-beauty/api/internal/platform/textutil"
)

// Config carries the tunable amounts of the shipping fee chain. All amounts
// are minor units of the store currency.
type Config struct {
	// BaseFee is the flat fallback rate when no other rule decides the fee.
	BaseFee int64
	// CODSurcharge is added on top of any paid fee for cash-on-delivery.
	CODSurcharge int64
	// SubtotalThreshold grants free shipping at or above this cart subtotal.
	SubtotalThreshold int64
	// QuantityThreshold grants free shipping at or above this item count.
	QuantityThreshold int
	// RegionRates maps folded city names to their delivery fee. Lookups fold
	// the incoming city the same way, so diacritics and casing never matter.
	RegionRates map[string]int64
	// DefaultRegionFee applies when region rates are enabled but the city is
	// not listed. Zero falls back to BaseFee.
	DefaultRegionFee int64
}

// DefaultConfig returns the stock fee schedule.
func DefaultConfig() Config {
	return Config{
		BaseFee:           500,
		CODSurcharge:      150,
		SubtotalThreshold: 5000,
		QuantityThreshold: 5,
	}
}

// normalized fills zero fields with defaults and folds region rate keys.
func (c Config) normalized() Config {
	defaults := DefaultConfig()
	if c.BaseFee <= 0 {
		c.BaseFee = defaults.BaseFee
	}
	if c.CODSurcharge <= 0 {
		c.CODSurcharge = defaults.CODSurcharge
	}
	if c.SubtotalThreshold <= 0 {
		c.SubtotalThreshold = defaults.SubtotalThreshold
	}
	if c.QuantityThreshold <= 0 {
		c.QuantityThreshold = defaults.QuantityThreshold
	}
	if c.DefaultRegionFee <= 0 {
		c.DefaultRegionFee = c.BaseFee
	}
	if len(c.RegionRates) > 0 {
		folded := make(map[string]int64, len(c.RegionRates))
		for city, fee := range c.RegionRates {
			if key := textutil.Fold(city); key != "" && fee >= 0 {
				folded[key] = fee
			}
		}
		c.RegionRates = folded
	}
	return c
}
