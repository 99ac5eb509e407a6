package willis

import (
	"math"

	"github.com/andresmejia3/willis/internal/geometry"
	"github.com/andresmejia3/willis/internal/landmarks"
	"github.com/andresmejia3/willis/internal/symmetry"
)

// Analyzer runs the landmark pipeline with a fixed configuration. It holds
// no mutable state and is safe for concurrent use.
type Analyzer struct {
	thresholds Thresholds
	estimator  symmetry.Estimator
	keepMesh   bool
}

type Option func(*Analyzer)

// WithThresholds replaces the default standard preset.
func WithThresholds(t Thresholds) Option {
	return func(a *Analyzer) { a.thresholds = t }
}

// WithEstimator selects the symmetry formula used for mode selection.
func WithEstimator(e symmetry.Estimator) Option {
	return func(a *Analyzer) {
		if e != nil {
			a.estimator = e
		}
	}
}

// WithMesh keeps the full pixel mesh on frontal results for rendering.
func WithMesh(keep bool) Option {
	return func(a *Analyzer) { a.keepMesh = keep }
}

func NewAnalyzer(opts ...Option) *Analyzer {
	a := &Analyzer{
		thresholds: PresetStandard,
		estimator:  symmetry.EyeWidthRatio{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Analyzer) Thresholds() Thresholds { return a.thresholds }

func (a *Analyzer) Estimator() symmetry.Estimator { return a.estimator }

// Analyze measures one landmark set. Either a complete result or an error
// is returned, never a partial result.
func (a *Analyzer) Analyze(set landmarks.Set, width, height int) (Result, error) {
	ref, err := landmarks.Extract(set, width, height)
	if err != nil {
		return Result{}, err
	}
	score, err := a.estimator.Score(set, width, height)
	if err != nil {
		return Result{}, err
	}
	score = math.Min(1, math.Max(0, score))

	res := Result{
		Method:     MethodLandmarks,
		Confidence: ConfidenceHigh,
		Estimator:  a.estimator.Name(),
		Symmetry:   score,
		Width:      width,
		Height:     height,
		Thresholds: a.thresholds,
	}

	if score >= a.thresholds.FrontalSymmetry {
		res.Mode = Frontal
		res.PupilToMouth = geometry.Distance(ref.PupilCenter, ref.MouthCenter)
		res.NoseToChin = geometry.Distance(ref.NoseBase, ref.Chin)
		res.Ratio = Ratio(res.NoseToChin, res.PupilToMouth)
		res.Frontal = ClassifyFrontal(res.Ratio, a.thresholds)
		res.Points = &ref
		if a.keepMesh {
			res.Mesh = landmarks.ToPixels(set, width, height)
		}
		return res, nil
	}

	res.Mode = Profile
	res.NoseToChin = geometry.Distance(ref.NoseTip, ref.Chin)
	res.ChinAngle = geometry.Angle(ref.NoseTip, ref.Chin)
	res.JawProminence = res.NoseToChin / float64(height) * 100
	res.Profile, res.Reason = ClassifyProfile(res.JawProminence, res.ChinAngle, a.thresholds)
	res.ProfilePoints = &ProfilePoints{NoseTip: ref.NoseTip, Chin: ref.Chin}
	return res, nil
}
