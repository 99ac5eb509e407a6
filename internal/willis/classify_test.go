package willis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRatio(t *testing.T) {
	tests := []struct {
		name         string
		noseToChin   float64
		pupilToMouth float64
		want         float64
	}{
		{"willis scenario", 75, 50, 1.5},
		{"equal", 60, 60, 1},
		{"zero denominator", 75, 0, 0},
		{"both zero", 0, 0, 0},
		{"degenerate numerator", 0, 50, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Ratio(tt.noseToChin, tt.pupilToMouth), 1e-12)
		})
	}
}

func TestClassifyFrontalBoundaries(t *testing.T) {
	tests := []struct {
		ratio float64
		t     Thresholds
		want  FrontalClass
	}{
		{0.90, PresetStandard, Normal},
		{1.10, PresetStandard, Normal},
		{0.8999, PresetStandard, BelowAverage},
		{1.1001, PresetStandard, AboveAverage},
		{1.5, PresetStandard, AboveAverage},
		{0, PresetStandard, BelowAverage},
		{0.95, PresetStrict, Normal},
		{1.05, PresetStrict, Normal},
		{0.93, PresetStrict, BelowAverage},
		{1.07, PresetStrict, AboveAverage},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyFrontal(tt.ratio, tt.t), "ratio %v range [%v,%v]", tt.ratio, tt.t.NormalRatioMin, tt.t.NormalRatioMax)
	}
}

func TestClassifyProfile(t *testing.T) {
	tests := []struct {
		name   string
		jaw    float64
		angle  float64
		class  ProfileClass
		reason Reason
	}{
		{"natural", 20, 90, NaturalContour, ""},
		{"jaw at min is not inside", 15, 90, Caution, TooShort},
		{"jaw at max", 25, 90, Caution, TooLongAngular},
		{"angle at max", 20, 110, Caution, TooLongAngular},
		{"angle at min", 20, 70, Caution, TooShort},
		{"short chin", 10, 90, Caution, TooShort},
		{"long and shallow", 30, 60, Caution, TooLongAngular},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			class, reason := ClassifyProfile(tt.jaw, tt.angle, PresetStandard)
			assert.Equal(t, tt.class, class)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

func TestClassifyLateral(t *testing.T) {
	tests := []struct {
		ratio  float64
		class  ProfileClass
		reason Reason
	}{
		{0.50, NaturalContour, ""},
		{0.40, NaturalContour, ""},
		{0.60, NaturalContour, ""},
		{0.37, Caution, Borderline},
		{0.63, Caution, Borderline},
		{0.70, Caution, TooLongAngular},
		{0.20, Caution, TooShort},
	}
	for _, tt := range tests {
		class, reason := ClassifyLateral(tt.ratio, PresetStandard)
		assert.Equal(t, tt.class, class, "ratio %v", tt.ratio)
		assert.Equal(t, tt.reason, reason, "ratio %v", tt.ratio)
	}
}

func TestPreset(t *testing.T) {
	std, err := Preset(PresetStandardName)
	require.NoError(t, err)
	assert.Equal(t, PresetStandard, std)

	strict, err := Preset(PresetStrictName)
	require.NoError(t, err)
	assert.Equal(t, 0.95, strict.NormalRatioMin)
	assert.Equal(t, 1.05, strict.NormalRatioMax)
	assert.Equal(t, std.FrontalSymmetry, strict.FrontalSymmetry)

	_, err = Preset("lenient")
	assert.Error(t, err)
	assert.Equal(t, []string{"standard", "strict"}, PresetNames())
}

func TestThresholdsValidate(t *testing.T) {
	require.NoError(t, PresetStandard.Validate())
	require.NoError(t, PresetStrict.Validate())

	bad := PresetStandard
	bad.NormalRatioMin, bad.NormalRatioMax = 1.2, 0.8
	assert.Error(t, bad.Validate())

	bad = PresetStandard
	bad.FrontalSymmetry = 1.5
	assert.Error(t, bad.Validate())

	bad = PresetStandard
	bad.ChinAngleMin = 120
	assert.Error(t, bad.Validate())
}

func TestLabels(t *testing.T) {
	assert.Equal(t, "Normal", Normal.Label())
	assert.Contains(t, BelowAverage.Label(), "reduced")
	assert.Contains(t, AboveAverage.Label(), "increased")
	assert.Equal(t, "Natural profile contour", NaturalContour.Label(""))
	assert.Contains(t, Caution.Label(TooShort), "short")
	assert.Contains(t, Caution.Label(TooLongAngular), "angular")
}
