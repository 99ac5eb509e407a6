// Package landmarks turns a normalized 468-point face mesh into the named
// reference points used by the Willis measurement.
package landmarks

import (
	"errors"
	"fmt"
	"image"

	"github.com/andresmejia3/willis/internal/geometry"
)

// Face mesh indices (MediaPipe FaceMesh convention).
const (
	MeshSize = 468

	MouthLeft  = 61
	MouthRight = 291
	UpperLip   = 13
	LowerLip   = 14
	NoseTip    = 1
	NoseBase   = 2
	Chin       = 152
	LeftFace   = 234
	RightFace  = 454
	MaxIndex   = RightFace
)

var (
	// LeftEye is the 7-point contour averaged into the left pupil estimate.
	LeftEye = [7]int{33, 133, 160, 159, 158, 157, 173}
	// RightEye is the 7-point contour averaged into the right pupil estimate.
	RightEye = [7]int{362, 263, 387, 386, 385, 384, 398}
)

var (
	ErrInsufficientLandmarks = errors.New("insufficient landmarks")
	ErrInvalidDimensions     = errors.New("invalid image dimensions")
)

// InsufficientLandmarksError reports a mesh too short for the index tables.
type InsufficientLandmarksError struct {
	Got  int
	Need int
}

func (e *InsufficientLandmarksError) Error() string {
	return fmt.Sprintf("insufficient landmarks: got %d, need at least %d", e.Got, e.Need)
}

func (e *InsufficientLandmarksError) Is(target error) bool { return target == ErrInsufficientLandmarks }

// InvalidDimensionsError reports a non-positive image width or height.
type InvalidDimensionsError struct {
	Width, Height int
}

func (e *InvalidDimensionsError) Error() string {
	return fmt.Sprintf("invalid image dimensions %dx%d", e.Width, e.Height)
}

func (e *InvalidDimensionsError) Is(target error) bool { return target == ErrInvalidDimensions }

// Landmark is a point normalized to [0,1] against image width and height.
type Landmark struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Set is an ordered landmark sequence as produced by the detector.
type Set []Landmark

// ReferencePoints is the named subset of the mesh used for measurement.
type ReferencePoints struct {
	PupilCenter   geometry.Point `json:"pupil_center"`
	LeftPupil     geometry.Point `json:"left_pupil"`
	RightPupil    geometry.Point `json:"right_pupil"`
	MouthCenter   geometry.Point `json:"mouth_center"`
	NoseTip       geometry.Point `json:"nose_tip"`
	NoseBase      geometry.Point `json:"nose_base"`
	Chin          geometry.Point `json:"chin"`
	LeftFaceEdge  geometry.Point `json:"left_face_edge"`
	RightFaceEdge geometry.Point `json:"right_face_edge"`
}

// Validate checks the structural preconditions shared by every extraction.
func Validate(set Set, width, height int) error {
	if width <= 0 || height <= 0 {
		return &InvalidDimensionsError{Width: width, Height: height}
	}
	if len(set) <= MaxIndex {
		return &InsufficientLandmarksError{Got: len(set), Need: MaxIndex + 1}
	}
	return nil
}

// Pixel scales landmark i of set into pixel space. Callers validate first.
func (s Set) Pixel(i, width, height int) geometry.Point {
	return geometry.Point{X: s[i].X * float64(width), Y: s[i].Y * float64(height)}
}

// EyePoints returns both eye contours in pixel space.
func EyePoints(set Set, width, height int) (left, right []geometry.Point, err error) {
	if err := Validate(set, width, height); err != nil {
		return nil, nil, err
	}
	left = make([]geometry.Point, 0, len(LeftEye))
	right = make([]geometry.Point, 0, len(RightEye))
	for _, i := range LeftEye {
		left = append(left, set.Pixel(i, width, height))
	}
	for _, i := range RightEye {
		right = append(right, set.Pixel(i, width, height))
	}
	return left, right, nil
}

// Extract maps set onto the named reference points.
func Extract(set Set, width, height int) (ReferencePoints, error) {
	left, right, err := EyePoints(set, width, height)
	if err != nil {
		return ReferencePoints{}, err
	}

	leftPupil, err := geometry.Mean(left)
	if err != nil {
		return ReferencePoints{}, fmt.Errorf("left eye: %w", err)
	}
	rightPupil, err := geometry.Mean(right)
	if err != nil {
		return ReferencePoints{}, fmt.Errorf("right eye: %w", err)
	}

	// x from the mouth corners, y from the lip centers
	mouth := geometry.Point{
		X: (set[MouthLeft].X + set[MouthRight].X) / 2 * float64(width),
		Y: (set[UpperLip].Y + set[LowerLip].Y) / 2 * float64(height),
	}

	return ReferencePoints{
		PupilCenter:   geometry.Midpoint(leftPupil, rightPupil),
		LeftPupil:     leftPupil,
		RightPupil:    rightPupil,
		MouthCenter:   mouth,
		NoseTip:       set.Pixel(NoseTip, width, height),
		NoseBase:      set.Pixel(NoseBase, width, height),
		Chin:          set.Pixel(Chin, width, height),
		LeftFaceEdge:  set.Pixel(LeftFace, width, height),
		RightFaceEdge: set.Pixel(RightFace, width, height),
	}, nil
}

// ToPixels converts the whole mesh to integer pixel coordinates.
func ToPixels(set Set, width, height int) []image.Point {
	out := make([]image.Point, len(set))
	for i, lm := range set {
		out[i] = image.Pt(int(lm.X*float64(width)), int(lm.Y*float64(height)))
	}
	return out
}
