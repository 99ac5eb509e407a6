// Package symmetry scores how frontal a face is. Two formulas are in use by
// different callers, so both are exposed as named estimators.
package symmetry

import (
	"fmt"
	"math"
	"sort"

	"github.com/andresmejia3/willis/internal/geometry"
	"github.com/andresmejia3/willis/internal/landmarks"
)

const (
	EyeWidthName      = "eye-width"
	NoseDeviationName = "nose-deviation"
)

// Estimator computes a frontal-ness score in [0,1]; 1 is perfectly frontal.
// Only structural landmark errors are returned. Degenerate geometry scores 0.
type Estimator interface {
	Name() string
	Score(set landmarks.Set, width, height int) (float64, error)
}

// EyeWidthRatio compares the horizontal span of the two eye contours.
type EyeWidthRatio struct{}

func (EyeWidthRatio) Name() string { return EyeWidthName }

func (EyeWidthRatio) Score(set landmarks.Set, width, height int) (float64, error) {
	left, right, err := landmarks.EyePoints(set, width, height)
	if err != nil {
		return 0, err
	}
	return WidthRatio(geometry.SpanX(left), geometry.SpanX(right)), nil
}

// WidthRatio returns min/max of the two widths, or 0 when both are 0.
func WidthRatio(a, b float64) float64 {
	hi := math.Max(a, b)
	if hi <= 0 {
		return 0
	}
	return math.Min(a, b) / hi
}

// NoseDeviation measures how far the nose sits from the midpoint of the
// two face edges, relative to half the face width.
type NoseDeviation struct{}

func (NoseDeviation) Name() string { return NoseDeviationName }

func (NoseDeviation) Score(set landmarks.Set, width, height int) (float64, error) {
	ref, err := landmarks.Extract(set, width, height)
	if err != nil {
		return 0, err
	}
	return Deviation(ref.NoseBase, ref.LeftFaceEdge, ref.RightFaceEdge), nil
}

// Deviation is the nose-deviation formula on pixel points.
func Deviation(nose, leftEdge, rightEdge geometry.Point) float64 {
	faceWidth := geometry.Distance(leftEdge, rightEdge)
	if faceWidth == 0 {
		return 0
	}
	centerX := (leftEdge.X + rightEdge.X) / 2
	return math.Max(0, 1-math.Abs(nose.X-centerX)/(faceWidth/2))
}

var registry = map[string]Estimator{
	EyeWidthName:      EyeWidthRatio{},
	NoseDeviationName: NoseDeviation{},
}

// ByName returns the estimator registered under name.
func ByName(name string) (Estimator, error) {
	if e, ok := registry[name]; ok {
		return e, nil
	}
	return nil, fmt.Errorf("unknown symmetry estimator %q (valid: %v)", name, Names())
}

// Names lists the registered estimator names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
