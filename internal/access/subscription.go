package access

import "time"

// SubscriptionStatus is the stored status of a subscription plus the two
// derived values ("expired", "no_active_subscription") reported by the
// status endpoint.
type SubscriptionStatus string

const (
	SubscriptionPending  SubscriptionStatus = "pending"
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionInactive SubscriptionStatus = "inactive"
	SubscriptionExpired  SubscriptionStatus = "expired"
	SubscriptionNone     SubscriptionStatus = "no_active_subscription"
)

// ClassifyStatus reduces a subscription's stored status and optional expiry
// to the status reported to clients. Expiry takes precedence over the
// stored flag: a row still marked active whose end_date has passed is
// reported expired, not active. endDate is nil for open-ended
// subscriptions. The function is pure; calling it twice with the same
// inputs yields the same result.
func ClassifyStatus(stored SubscriptionStatus, endDate *time.Time, now time.Time) SubscriptionStatus {
	switch {
	case stored == SubscriptionPending:
		return SubscriptionPending
	case endDate != nil && endDate.Before(now):
		return SubscriptionExpired
	case stored == SubscriptionActive:
		return SubscriptionActive
	default:
		return SubscriptionInactive
	}
}
