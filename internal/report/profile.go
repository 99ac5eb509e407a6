package report

import (
	"math"

	"github.com/andresmejia3/willis/internal/geometry"
	"github.com/andresmejia3/willis/internal/landmarks"
)

// DefaultMaxMovement is the acceptable chin displacement in pixels.
const DefaultMaxMovement = 30.0

// ProfileFrame is one side photo reduced to what the change analysis uses.
type ProfileFrame struct {
	Width  int            `json:"width"`
	Height int            `json:"height"`
	Nose   geometry.Point `json:"nose"`
	Chin   geometry.Point `json:"chin"`
	// Angle is the signed angle of nose->chin in degrees.
	Angle float64 `json:"facial_angle"`
}

// NewProfileFrame extracts the nose and chin of a landmark set.
func NewProfileFrame(set landmarks.Set, width, height int) (ProfileFrame, error) {
	ref, err := landmarks.Extract(set, width, height)
	if err != nil {
		return ProfileFrame{}, err
	}
	return ProfileFrame{
		Width:  width,
		Height: height,
		Nose:   ref.NoseBase,
		Chin:   ref.Chin,
		Angle:  geometry.SignedAngle(ref.NoseBase, ref.Chin),
	}, nil
}

// ProfileChange compares a profile before and after a prosthesis.
type ProfileChange struct {
	Before      ProfileFrame `json:"before"`
	After       ProfileFrame `json:"after"`
	Movement    float64      `json:"chin_movement"`
	AngleChange float64      `json:"chin_angle_change"`
	Naturalness float64      `json:"naturalness_score"`
	Acceptable  bool         `json:"is_acceptable"`
	MaxMovement float64      `json:"max_movement"`
}

// Status is the human-readable verdict.
func (p ProfileChange) Status() string {
	if p.Acceptable {
		return "Appropriate jaw position"
	}
	return "Excessive change in jaw position"
}

// Naturalness scores 0..100: half from chin movement, half from angle change.
func Naturalness(movement, angleChange, maxMovement float64) float64 {
	moveScore := 0.0
	if maxMovement > 0 {
		moveScore = math.Max(0, 50-movement/maxMovement*50)
	}
	return moveScore + math.Max(0, 50-math.Abs(angleChange))
}

// CompareProfiles scales the after chin into the before image's width and
// measures how far it moved. maxMovement <= 0 uses DefaultMaxMovement.
func CompareProfiles(before, after ProfileFrame, maxMovement float64) ProfileChange {
	if maxMovement <= 0 {
		maxMovement = DefaultMaxMovement
	}
	scale := 1.0
	if after.Width > 0 {
		scale = float64(before.Width) / float64(after.Width)
	}
	scaled := geometry.Point{X: after.Chin.X * scale, Y: after.Chin.Y * scale}
	movement := geometry.Distance(before.Chin, scaled)
	angleChange := after.Angle - before.Angle

	return ProfileChange{
		Before:      before,
		After:       after,
		Movement:    movement,
		AngleChange: angleChange,
		Naturalness: Naturalness(movement, angleChange, maxMovement),
		Acceptable:  movement < maxMovement,
		MaxMovement: maxMovement,
	}
}
