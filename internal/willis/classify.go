// Package willis computes the Willis ratio, classifies it against normative
// bands and assembles the analysis result for a single face.
package willis

import (
	"fmt"
	"sort"
)

// Thresholds is the full configuration surface of the classifier.
type Thresholds struct {
	FrontalSymmetry  float64 `json:"frontal_symmetry"`
	NormalRatioMin   float64 `json:"normal_ratio_min"`
	NormalRatioMax   float64 `json:"normal_ratio_max"`
	JawProminenceMin float64 `json:"jaw_prominence_min"`
	JawProminenceMax float64 `json:"jaw_prominence_max"`
	ChinAngleMin     float64 `json:"chin_angle_min"`
	ChinAngleMax     float64 `json:"chin_angle_max"`

	// Bands for the low-confidence cascade estimator.
	LateralRatioMin float64 `json:"lateral_ratio_min"`
	LateralRatioMax float64 `json:"lateral_ratio_max"`
	LateralMargin   float64 `json:"lateral_margin"`
}

const (
	PresetStandardName = "standard"
	PresetStrictName   = "strict"
)

// PresetStandard is the canonical default set: normal ratio 0.90-1.10.
var PresetStandard = Thresholds{
	FrontalSymmetry:  0.85,
	NormalRatioMin:   0.90,
	NormalRatioMax:   1.10,
	JawProminenceMin: 15,
	JawProminenceMax: 25,
	ChinAngleMin:     70,
	ChinAngleMax:     110,
	LateralRatioMin:  0.40,
	LateralRatioMax:  0.60,
	LateralMargin:    0.05,
}

// PresetStrict narrows the normal ratio band to 0.95-1.05, the convention
// used by the live measurement tool.
var PresetStrict = func() Thresholds {
	t := PresetStandard
	t.NormalRatioMin = 0.95
	t.NormalRatioMax = 1.05
	return t
}()

var presets = map[string]Thresholds{
	PresetStandardName: PresetStandard,
	PresetStrictName:   PresetStrict,
}

// Preset returns the named threshold set.
func Preset(name string) (Thresholds, error) {
	t, ok := presets[name]
	if !ok {
		return Thresholds{}, fmt.Errorf("unknown preset %q (valid: %v)", name, PresetNames())
	}
	return t, nil
}

// PresetNames lists preset names in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for n := range presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Validate rejects inverted bands and out-of-range symmetry thresholds.
func (t Thresholds) Validate() error {
	switch {
	case t.FrontalSymmetry < 0 || t.FrontalSymmetry > 1:
		return fmt.Errorf("frontal symmetry threshold must be in [0,1], got %v", t.FrontalSymmetry)
	case t.NormalRatioMin > t.NormalRatioMax:
		return fmt.Errorf("normal ratio range is inverted: %v > %v", t.NormalRatioMin, t.NormalRatioMax)
	case t.JawProminenceMin > t.JawProminenceMax:
		return fmt.Errorf("jaw prominence range is inverted: %v > %v", t.JawProminenceMin, t.JawProminenceMax)
	case t.ChinAngleMin > t.ChinAngleMax:
		return fmt.Errorf("chin angle range is inverted: %v > %v", t.ChinAngleMin, t.ChinAngleMax)
	case t.LateralRatioMin > t.LateralRatioMax:
		return fmt.Errorf("lateral ratio range is inverted: %v > %v", t.LateralRatioMin, t.LateralRatioMax)
	}
	return nil
}

// FrontalClass is the Willis ratio band.
type FrontalClass string

const (
	BelowAverage FrontalClass = "below_average"
	Normal       FrontalClass = "normal"
	AboveAverage FrontalClass = "above_average"
)

// Label is the human-readable description of the band.
func (c FrontalClass) Label() string {
	switch c {
	case BelowAverage:
		return "Below average (reduced vertical dimension)"
	case Normal:
		return "Normal"
	case AboveAverage:
		return "Above average (increased vertical dimension)"
	}
	return string(c)
}

// ProfileClass is the profile-contour verdict.
type ProfileClass string

const (
	NaturalContour ProfileClass = "natural_contour"
	Caution        ProfileClass = "caution"
)

// Reason qualifies a Caution verdict.
type Reason string

const (
	TooLongAngular Reason = "too_long_angular"
	TooShort       Reason = "too_short"
	Borderline     Reason = "borderline"
)

// Label is the human-readable profile verdict.
func (c ProfileClass) Label(r Reason) string {
	if c == NaturalContour {
		return "Natural profile contour"
	}
	switch r {
	case TooLongAngular:
		return "Caution: chin somewhat long or angular"
	case TooShort:
		return "Caution: chin somewhat short"
	case Borderline:
		return "Caution: borderline proportion"
	}
	return "Caution"
}

// Ratio is noseToChin / pupilToMouth, defined as 0 for a zero denominator.
func Ratio(noseToChin, pupilToMouth float64) float64 {
	if pupilToMouth <= 0 {
		return 0
	}
	return noseToChin / pupilToMouth
}

// ClassifyFrontal bands ratio against the closed normal range of t.
func ClassifyFrontal(ratio float64, t Thresholds) FrontalClass {
	switch {
	case ratio < t.NormalRatioMin:
		return BelowAverage
	case ratio > t.NormalRatioMax:
		return AboveAverage
	default:
		return Normal
	}
}

// ClassifyProfile judges a profile from jaw prominence (percent of image
// height) and chin angle (degrees). Natural requires both values strictly
// inside their bands.
func ClassifyProfile(jawProminence, chinAngle float64, t Thresholds) (ProfileClass, Reason) {
	switch {
	case t.JawProminenceMin < jawProminence && jawProminence < t.JawProminenceMax &&
		t.ChinAngleMin < chinAngle && chinAngle < t.ChinAngleMax:
		return NaturalContour, ""
	case jawProminence >= t.JawProminenceMax || chinAngle >= t.ChinAngleMax:
		return Caution, TooLongAngular
	default:
		return Caution, TooShort
	}
}

// ClassifyLateral bands the cascade estimator's lateral ratio.
func ClassifyLateral(ratio float64, t Thresholds) (ProfileClass, Reason) {
	switch {
	case t.LateralRatioMin <= ratio && ratio <= t.LateralRatioMax:
		return NaturalContour, ""
	case t.LateralRatioMin-t.LateralMargin <= ratio && ratio <= t.LateralRatioMax+t.LateralMargin:
		return Caution, Borderline
	case ratio > t.LateralRatioMax:
		return Caution, TooLongAngular
	default:
		return Caution, TooShort
	}
}
