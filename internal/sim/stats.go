package sim

import "math"

// Aggregate computes mean and population standard deviation of the per-run
// legit and attack rates. A run whose denominator is zero contributes no
// sample; with no samples the mean and deviation are both 0 and the sample
// count says so.
func Aggregate(mode Mode, results []RunResult) AggregateStats {
	legit := make([]float64, 0, len(results))
	attack := make([]float64, 0, len(results))
	for _, r := range results {
		if rate, ok := r.LegitRate(); ok {
			legit = append(legit, rate)
		}
		if rate, ok := r.AttackRate(); ok {
			attack = append(attack, rate)
		}
	}

	stats := AggregateStats{
		Mode:          mode,
		Runs:          len(results),
		LegitSamples:  len(legit),
		AttackSamples: len(attack),
	}
	stats.AvgLegitRate, stats.StdLegitRate = meanStd(legit)
	stats.AvgAttackRate, stats.StdAttackRate = meanStd(attack)
	return stats
}

// meanStd returns the mean and population standard deviation of xs.
func meanStd(xs []float64) (mean, std float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean = sum / float64(len(xs))

	var sq float64
	for _, x := range xs {
		d := x - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / float64(len(xs)))
}
