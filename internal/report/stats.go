// Package report aggregates analysis results: rolling session history,
// multi-photo comparison and before/after profile change.
package report

import (
	"errors"
	"math"
)

var ErrNoMeasurements = errors.New("no measurements recorded")

// Stat is the mean and population standard deviation of a series.
type Stat struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
}

// RangeStat adds the extremes to Stat.
type RangeStat struct {
	Mean float64 `json:"mean"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Std  float64 `json:"std"`
}

func describe(values []float64) Stat {
	if len(values) == 0 {
		return Stat{}
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	var sq float64
	for _, v := range values {
		sq += (v - mean) * (v - mean)
	}
	return Stat{Mean: mean, Std: math.Sqrt(sq / float64(len(values)))}
}

// describeRange also returns the indices of the minimum and maximum.
func describeRange(values []float64) (RangeStat, int, int) {
	if len(values) == 0 {
		return RangeStat{}, -1, -1
	}
	s := describe(values)
	lo, hi := 0, 0
	for i, v := range values {
		if v < values[lo] {
			lo = i
		}
		if v > values[hi] {
			hi = i
		}
	}
	return RangeStat{Mean: s.Mean, Min: values[lo], Max: values[hi], Std: s.Std}, lo, hi
}
