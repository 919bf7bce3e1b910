package perf

import "math"

// powerCoefficient is the fixed empirical constant of the cubic law relating
// 500-unit pace to mechanical power output. Not tunable.
const powerCoefficient = 2.8

// Split500 normalizes elapsed time to a pace per 500 units. Zero when the
// distance is not positive.
func Split500(distance, timeSeconds float64) float64 {
	if distance <= 0 {
		return 0
	}
	return timeSeconds / distance * 500
}

// Watts derives mechanical power from a 500-unit split, rounded to two
// decimal places. Zero when the split is not positive.
func Watts(split500 float64) float64 {
	if split500 <= 0 {
		return 0
	}
	return round2(powerCoefficient / math.Pow(split500/500, 3))
}

// WattsPerKg relates power to body weight, rounded to two decimal places.
// Nil when no positive weight is available: the field is absent, not zero.
func WattsPerKg(watts, weight float64) *float64 {
	if weight <= 0 {
		return nil
	}
	v := round2(watts / weight)
	return &v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
