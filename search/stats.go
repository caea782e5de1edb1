package search

import (
	"math"

	"golang.org/x/exp/constraints"
	"gonum.org/v1/gonum/stat"
)

type number interface {
	constraints.Integer | constraints.Float
}

func floats[T number](values []T) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = float64(v)
	}
	return out
}

// meanAbs is the mean magnitude of values, 0 for an empty slice.
func meanAbs[T number](values []T) float64 {
	if len(values) == 0 {
		return 0
	}
	abs := floats(values)
	for i, v := range abs {
		abs[i] = math.Abs(v)
	}
	return stat.Mean(abs, nil)
}

// popStdDev is the population standard deviation of values, 0 for fewer than two values.
func popStdDev[T number](values []T) float64 {
	if len(values) < 2 {
		return 0
	}
	_, std := stat.PopMeanStdDev(floats(values), nil)
	return std
}
