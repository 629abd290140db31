package domain

// UserParameters holds the per-user autotrading knobs. The autobuy flags are
// toggles only; nothing in the bot places orders from them.
type UserParameters struct {
	UserID           int64
	PurchaseAmount   float64
	ProfitPercentage float64
	PurchaseDelay    int
	GrowthPercentage float64
	FallPercentage   float64
	AutobuyOnGrowth  bool
	AutobuyOnFall    bool
}

// DefaultUserParameters returns the knob values a user starts with.
func DefaultUserParameters(userID int64) *UserParameters {
	return &UserParameters{
		UserID:           userID,
		PurchaseAmount:   1000.0,
		ProfitPercentage: 5.0,
		PurchaseDelay:    10,
		GrowthPercentage: 2.0,
		FallPercentage:   3.0,
		AutobuyOnGrowth:  false,
		AutobuyOnFall:    false,
	}
}

// AutobuyEnabled reports whether either autobuy flag is set.
func (p *UserParameters) AutobuyEnabled() bool {
	return p != nil && (p.AutobuyOnGrowth || p.AutobuyOnFall)
}
