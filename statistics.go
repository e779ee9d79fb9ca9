package idiommatcher

import (
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary holds descriptive statistics of a score sequence.
// For an empty sequence every field is zero and Empty is true.
type Summary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"std"` // population standard deviation
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Empty  bool    `json:"empty"`
}

// Bucket is the number and share of scores at or above one cutoff
type Bucket struct {
	Threshold float64 `json:"threshold"`
	Count     int     `json:"count"`
	Percent   float64 `json:"percent"` // 0..100
}

// Summarize computes count, mean, median, standard deviation, min and max of scores.
// It never divides by zero: an empty input returns a zero Summary with Empty set.
func Summarize(scores []float64) Summary {
	if len(scores) == 0 {
		return Summary{Empty: true}
	}

	mean, std := stat.PopMeanStdDev(scores, nil)

	return Summary{
		Count:  len(scores),
		Mean:   mean,
		Median: median(scores),
		StdDev: std,
		Min:    floats.Min(scores),
		Max:    floats.Max(scores),
	}
}

// Distribution counts, for each cutoff, the scores greater than or equal to it.
// Percentages are 0 for an empty input.
func Distribution(scores []float64, cutoffs []float64) []Bucket {
	buckets := make([]Bucket, len(cutoffs))
	for i, cutoff := range cutoffs {
		count := 0
		for _, s := range scores {
			if s >= cutoff {
				count++
			}
		}

		percent := 0.0
		if len(scores) > 0 {
			percent = float64(count) / float64(len(scores)) * 100
		}
		buckets[i] = Bucket{Threshold: cutoff, Count: count, Percent: percent}
	}

	return buckets
}

// median returns the middle value of scores, averaging the two middle values for an
// even count. scores must be non-empty; it is not modified.
func median(scores []float64) float64 {
	sorted := slices.Clone(scores)
	slices.Sort(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
