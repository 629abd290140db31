package domain

import "time"

// User represents an application user stored in the database.
// Subscription fields are mutated only by the subscription service and the
// expiry sweep; user rows are never deleted.
type User struct {
	TelegramID          int64
	Name                string
	Language            string
	Subscription        bool
	SubscriptionExpires *time.Time
	APIKey              string
	CreatedAt           time.Time
}

// HasActiveSubscription reports whether the user holds a subscription that
// has not lapsed at the given instant.
func (u *User) HasActiveSubscription(now time.Time) bool {
	if u == nil || !u.Subscription || u.SubscriptionExpires == nil {
		return false
	}
	return u.SubscriptionExpires.After(now)
}
