package access

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func day(d int) time.Time {
	return time.Date(2025, 3, d, 0, 0, 0, 0, time.UTC)
}

func testQuota(target int, remuneration float64) Quota {
	return Quota{
		Target:       target,
		PeriodStart:  day(1),
		PeriodEnd:    day(31),
		Remuneration: remuneration,
	}
}

func dates(days ...int) []time.Time {
	out := make([]time.Time, 0, len(days))
	for _, d := range days {
		out = append(out, day(d))
	}
	return out
}

func TestComputeQuotaReportProRata(t *testing.T) {
	got := ComputeQuotaReport(testQuota(10, 100), dates(2, 5, 9, 20))
	assert.Equal(t, 4, got.CountWashRecords)
	assert.Equal(t, 6, got.Remaining)
	assert.InDelta(t, 40.0, got.RemunerationDue, 1e-9)
}

func TestComputeQuotaReportZeroTarget(t *testing.T) {
	// No division by zero: a zero target pays nothing regardless of count.
	got := ComputeQuotaReport(testQuota(0, 500), dates(2, 3, 4))
	assert.Equal(t, 3, got.CountWashRecords)
	assert.Equal(t, -3, got.Remaining)
	assert.Zero(t, got.RemunerationDue)
}

func TestComputeQuotaReportOverQuotaUncapped(t *testing.T) {
	ds := make([]int, 12)
	for i := range ds {
		ds[i] = i + 1
	}
	got := ComputeQuotaReport(testQuota(10, 100), dates(ds...))
	assert.Equal(t, 12, got.CountWashRecords)
	assert.Equal(t, -2, got.Remaining, "remaining goes negative, not clamped")
	assert.InDelta(t, 120.0, got.RemunerationDue, 1e-9, "payout exceeds the base remuneration")
}

func TestComputeQuotaReportWindowInclusive(t *testing.T) {
	q := Quota{Target: 5, PeriodStart: day(10), PeriodEnd: day(20), Remuneration: 50}
	// Both boundary days count; the days just outside do not.
	got := ComputeQuotaReport(q, dates(9, 10, 15, 20, 21))
	assert.Equal(t, 3, got.CountWashRecords)
	assert.Equal(t, 2, got.Remaining)
}

func TestComputeQuotaReportEmptyRecords(t *testing.T) {
	got := ComputeQuotaReport(testQuota(8, 80), nil)
	assert.Zero(t, got.CountWashRecords)
	assert.Equal(t, 8, got.Remaining)
	assert.Zero(t, got.RemunerationDue)
}
