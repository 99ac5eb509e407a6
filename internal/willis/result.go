package willis

import (
	"image"

	"github.com/andresmejia3/willis/internal/geometry"
	"github.com/andresmejia3/willis/internal/landmarks"
)

// Mode is the analysis branch chosen from the symmetry score.
type Mode string

const (
	Frontal Mode = "frontal"
	Profile Mode = "profile"
)

// Method names the estimator family that produced a result.
type Method string

const (
	MethodLandmarks Method = "landmarks"
	MethodCascade   Method = "cascade"
)

// Confidence is coarse: dense landmarks are high, box heuristics are low.
type Confidence string

const (
	ConfidenceHigh Confidence = "high"
	ConfidenceLow  Confidence = "low"
)

// ProfilePoints is the minimal point set kept for a profile result.
type ProfilePoints struct {
	NoseTip geometry.Point  `json:"nose_tip"`
	Chin    geometry.Point  `json:"chin"`
	Eye     *geometry.Point `json:"eye,omitempty"`
}

// Result is the outcome of one analysis call. It is a plain value; callers
// must not mutate the Mesh slice they receive.
type Result struct {
	Mode       Mode       `json:"mode"`
	Method     Method     `json:"method"`
	Confidence Confidence `json:"confidence"`
	Estimator  string     `json:"estimator,omitempty"`
	Symmetry   float64    `json:"symmetry"`
	Width      int        `json:"width"`
	Height     int        `json:"height"`

	PupilToMouth  float64 `json:"pupil_to_mouth,omitempty"`
	NoseToChin    float64 `json:"nose_to_chin"`
	Ratio         float64 `json:"ratio"`
	JawProminence float64 `json:"jaw_prominence,omitempty"`
	ChinAngle     float64 `json:"chin_angle,omitempty"`
	EyeToChin     float64 `json:"eye_to_chin,omitempty"`
	LateralRatio  float64 `json:"lateral_ratio,omitempty"`

	Frontal FrontalClass `json:"frontal_class,omitempty"`
	Profile ProfileClass `json:"profile_class,omitempty"`
	Reason  Reason       `json:"reason,omitempty"`

	Points        *landmarks.ReferencePoints `json:"points,omitempty"`
	ProfilePoints *ProfilePoints             `json:"profile_points,omitempty"`
	Mesh          []image.Point              `json:"mesh,omitempty"`

	Thresholds Thresholds `json:"thresholds"`
}

// Classification returns the stable token of whichever verdict applies.
func (r Result) Classification() string {
	if r.Mode == Frontal {
		return string(r.Frontal)
	}
	return string(r.Profile)
}

// Label returns the human-readable verdict.
func (r Result) Label() string {
	if r.Mode == Frontal {
		return r.Frontal.Label()
	}
	return r.Profile.Label(r.Reason)
}

// IsNormal reports whether the verdict is the healthy band of its mode.
func (r Result) IsNormal() bool {
	if r.Mode == Frontal {
		return r.Frontal == Normal
	}
	return r.Profile == NaturalContour
}
