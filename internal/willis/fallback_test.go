package willis

import (
	"errors"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresmejia3/willis/internal/landmarks"
)

func TestAnalyzeCascade(t *testing.T) {
	face := image.Rect(100, 50, 300, 350)

	tests := []struct {
		name   string
		eye    *image.Rectangle
		ratio  float64
		class  ProfileClass
		reason Reason
	}{
		// nose (250,200), chin (200,350), eye defaults to (200,150)
		{"no eye box", nil, 158.1139 / 200, Caution, TooLongAngular},
		{"eye near top", &image.Rectangle{Min: image.Pt(180, 0), Max: image.Pt(220, 40)}, 158.1139 / 330, NaturalContour, ""},
		{"eye far above", &image.Rectangle{Min: image.Pt(180, -120), Max: image.Pt(220, -80)}, 158.1139 / 450, Caution, Borderline},
		{"eye very far above", &image.Rectangle{Min: image.Pt(180, -170), Max: image.Pt(220, -130)}, 158.1139 / 500, Caution, TooShort},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := AnalyzeCascade(face, tt.eye, 640, 480, PresetStandard)
			require.NoError(t, err)

			assert.Equal(t, Profile, res.Mode)
			assert.Equal(t, MethodCascade, res.Method)
			assert.Equal(t, ConfidenceLow, res.Confidence)
			assert.InDelta(t, tt.ratio, res.LateralRatio, 1e-4)
			assert.Zero(t, res.Ratio, "the lateral ratio is not a Willis ratio")
			assert.Equal(t, tt.class, res.Profile)
			assert.Equal(t, tt.reason, res.Reason)
			assert.InDelta(t, 108.4349, res.ChinAngle, 1e-3)
			require.NotNil(t, res.ProfilePoints)
			require.NotNil(t, res.ProfilePoints.Eye)
		})
	}
}

func TestAnalyzeCascadeErrors(t *testing.T) {
	_, err := AnalyzeCascade(image.Rectangle{}, nil, 640, 480, PresetStandard)
	assert.True(t, errors.Is(err, ErrEmptyFace))

	_, err = AnalyzeCascade(image.Rect(0, 0, 10, 10), nil, 0, 480, PresetStandard)
	assert.True(t, errors.Is(err, landmarks.ErrInvalidDimensions))
}
