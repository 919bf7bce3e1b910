package perf

import (
	"fmt"
	"sort"
)

// RecordSummary is the slice of a test surfaced in aggregated statistics.
type RecordSummary struct {
	TimeSeconds float64 `json:"time_seconds"`
	Split500    float64 `json:"split_500"`
	Watts       float64 `json:"watts"`
	Date        string  `json:"date"`
}

// DistanceStats summarizes one exact-distance bucket.
type DistanceStats struct {
	Best   RecordSummary `json:"best"`
	Latest RecordSummary `json:"latest"`
	Count  int           `json:"count"`
}

// SubjectStats reduces a subject's full test history.
type SubjectStats struct {
	SubjectID  string                   `json:"subject_id"`
	TestsCount int                      `json:"tests_count"`
	Stats      map[string]DistanceStats `json:"stats"`
	Tests      []*Test                  `json:"all_tests"`
}

// Aggregate groups tests by exact distance value and reports, per bucket,
// the best time, the latest date (lexicographic, as received) and the bucket
// size. Ties on best time or latest date resolve to the earliest-created
// record, so the result is independent of storage order.
func Aggregate(subjectID string, tests []*Test) *SubjectStats {
	ordered := make([]*Test, len(tests))
	copy(ordered, tests)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].CreatedAt.Equal(ordered[j].CreatedAt) {
			return ordered[i].ID < ordered[j].ID
		}
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})

	type bucket struct {
		best   *Test
		latest *Test
		count  int
	}
	buckets := make(map[float64]*bucket)
	for _, t := range ordered {
		b, ok := buckets[t.Distance]
		if !ok {
			b = &bucket{best: t, latest: t}
			buckets[t.Distance] = b
		} else {
			if t.TimeSeconds < b.best.TimeSeconds {
				b.best = t
			}
			if t.Date > b.latest.Date {
				b.latest = t
			}
		}
		b.count++
	}

	stats := make(map[string]DistanceStats, len(buckets))
	for distance, b := range buckets {
		stats[fmt.Sprintf("%dm", int(distance))] = DistanceStats{
			Best:   summarize(b.best),
			Latest: summarize(b.latest),
			Count:  b.count,
		}
	}
	return &SubjectStats{
		SubjectID:  subjectID,
		TestsCount: len(tests),
		Stats:      stats,
		Tests:      tests,
	}
}

func summarize(t *Test) RecordSummary {
	return RecordSummary{
		TimeSeconds: t.TimeSeconds,
		Split500:    t.Split500,
		Watts:       t.Watts,
		Date:        t.Date,
	}
}
