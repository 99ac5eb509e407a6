package willis

import (
	"errors"
	"image"

	"github.com/andresmejia3/willis/internal/geometry"
	"github.com/andresmejia3/willis/internal/landmarks"
)

// ErrEmptyFace is returned when the cascade face box has no area.
var ErrEmptyFace = errors.New("empty face box")

// AnalyzeCascade estimates a profile from coarse detector boxes when no
// landmark mesh is available. eye may be nil. Box coordinates are in image
// pixels. The result is always profile mode with low confidence.
func AnalyzeCascade(face image.Rectangle, eye *image.Rectangle, width, height int, t Thresholds) (Result, error) {
	if width <= 0 || height <= 0 {
		return Result{}, &landmarks.InvalidDimensionsError{Width: width, Height: height}
	}
	if face.Empty() {
		return Result{}, ErrEmptyFace
	}

	x, y := face.Min.X, face.Min.Y
	fw, fh := face.Dx(), face.Dy()

	nose := geometry.Point{X: float64(x + fw*3/4), Y: float64(y + fh/2)}
	chin := geometry.Point{X: float64(x + fw/2), Y: float64(y + fh)}

	var eyeCenter geometry.Point
	if eye != nil && !eye.Empty() {
		eyeCenter = geometry.Point{
			X: float64(eye.Min.X + eye.Dx()/2),
			Y: float64(eye.Min.Y + eye.Dy()/2),
		}
	} else {
		eyeCenter = geometry.Point{X: float64(x + fw/2), Y: float64(y + fh/3)}
	}

	noseToChin := geometry.Distance(nose, chin)
	eyeToChin := geometry.Distance(eyeCenter, chin)
	lateral := Ratio(noseToChin, eyeToChin)

	res := Result{
		Mode:          Profile,
		Method:        MethodCascade,
		Confidence:    ConfidenceLow,
		Width:         width,
		Height:        height,
		NoseToChin:    noseToChin,
		EyeToChin:     eyeToChin,
		LateralRatio:  lateral,
		ChinAngle:     geometry.Angle(nose, chin),
		JawProminence: noseToChin / float64(height) * 100,
		ProfilePoints: &ProfilePoints{NoseTip: nose, Chin: chin, Eye: &eyeCenter},
		Thresholds:    t,
	}
	res.Profile, res.Reason = ClassifyLateral(lateral, t)
	return res, nil
}
