package stats

import "sort"

// percentile returns the nearest-rank percentile of sorted values: the
// smallest value with at least p percent of the set at or below it.
// Callers guarantee a sorted, non-empty slice.
func percentile(sorted []int64, p int) int64 {
	idx := (len(sorted)*p+99)/100 - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// durationPercentiles computes p50/p95/p99 over the given durations.
// Empty input yields zeros, never an error.
func durationPercentiles(durations []int64) (p50, p95, p99 int64) {
	if len(durations) == 0 {
		return 0, 0, 0
	}

	sorted := make([]int64, len(durations))
	copy(sorted, durations)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i] < sorted[j]
	})

	return percentile(sorted, 50), percentile(sorted, 95), percentile(sorted, 99)
}
