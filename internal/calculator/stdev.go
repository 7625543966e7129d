package calculator

import (
	"errors"
	"math"
)

// CalculateMean returns the arithmetic mean of values.
func CalculateMean(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, errors.New("no values for mean calculation")
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values)), nil
}

// CalculateSampleStdDev returns the Bessel-corrected (N-1) standard deviation of values.
// Requires at least two values.
func CalculateSampleStdDev(values []float64) (float64, error) {
	if len(values) < 2 {
		return 0, errors.New("not enough data for sample standard deviation")
	}
	mean, err := CalculateMean(values)
	if err != nil {
		return 0, err
	}
	var ss float64
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(values)-1)), nil
}
