package access

import "time"

// Quota is a manager's registration target for a period, together with the
// total remuneration paid out when the target is fully met.
type Quota struct {
	Target       int       // number of owner registrations expected
	PeriodStart  time.Time // first day counted, inclusive
	PeriodEnd    time.Time // last day counted, inclusive
	Remuneration float64   // payout for exactly Target registrations
}

// QuotaReport is the result of ComputeQuotaReport. Remaining may be
// negative when the manager registered more owners than the target, and
// RemunerationDue is deliberately uncapped in that case.
type QuotaReport struct {
	CountWashRecords int     `json:"count_wash_record"`
	Remaining        int     `json:"quotas_restant"`
	RemunerationDue  float64 `json:"remuneration_due"`
}

// ComputeQuotaReport counts the wash-record dates falling inside the quota
// period (inclusive on both ends) and derives the remaining quota and the
// pro-rata remuneration due. A zero target yields zero remuneration
// regardless of the count. Pure function over its two inputs.
func ComputeQuotaReport(q Quota, washDates []time.Time) QuotaReport {
	count := 0
	for _, d := range washDates {
		if d.Before(q.PeriodStart) || d.After(q.PeriodEnd) {
			continue
		}
		count++
	}
	due := 0.0
	if q.Target != 0 {
		due = float64(count) * q.Remuneration / float64(q.Target)
	}
	return QuotaReport{
		CountWashRecords: count,
		Remaining:        q.Target - count,
		RemunerationDue:  due,
	}
}
