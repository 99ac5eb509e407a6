package overlay

import (
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresmejia3/willis/internal/geometry"
	"github.com/andresmejia3/willis/internal/landmarks/landmarkstest"
	"github.com/andresmejia3/willis/internal/willis"
)

func whiteCanvas(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	return img
}

func at(img *image.RGBA, x, y int) color.RGBA {
	return img.RGBAAt(x, y)
}

func TestRenderFrontal(t *testing.T) {
	m := landmarkstest.Frontal()
	res, err := willis.NewAnalyzer(willis.WithMesh(true)).Analyze(m.Set, m.W, m.H)
	require.NoError(t, err)

	img := whiteCanvas(m.W, m.H)
	NewRenderer(NewTextRenderer()).Render(img, res)

	assert.Equal(t, colorNoseChin, at(img, 100, 195), "chin dot")
	assert.Equal(t, colorNoseChin, at(img, 100, 180), "nose-chin line")
	assert.Equal(t, ColorAbove, at(img, 8, 8), "panel border uses verdict color")
	assert.Less(t, at(img, 12, 12).R, uint8(128), "panel background is darkened")
}

func TestRenderProfileGuide(t *testing.T) {
	res := willis.Result{
		Mode:       willis.Profile,
		Profile:    willis.NaturalContour,
		NoseToChin: 60,
		ProfilePoints: &willis.ProfilePoints{
			NoseTip: geometry.Point{X: 400, Y: 300},
			Chin:    geometry.Point{X: 400, Y: 360},
		},
		Thresholds: willis.PresetStandard,
	}
	img := whiteCanvas(640, 480)
	NewRenderer(nil).Render(img, res)

	assert.Equal(t, colorGuide, at(img, 450, 300), "horizontal angle guide")
	assert.Equal(t, colorNoseChin, at(img, 400, 330), "nose-chin line")
	assert.Equal(t, ColorNormal, at(img, 8, 8))
}

func TestRenderClipsOutOfBoundsPoints(t *testing.T) {
	res := willis.Result{
		Mode: willis.Profile,
		ProfilePoints: &willis.ProfilePoints{
			NoseTip: geometry.Point{X: -50, Y: -50},
			Chin:    geometry.Point{X: 5000, Y: 5000},
		},
	}
	img := whiteCanvas(64, 48)
	assert.NotPanics(t, func() { NewRenderer(nil).Render(img, res) })
}

func TestStatusColor(t *testing.T) {
	assert.Equal(t, ColorNormal, StatusColor(willis.Result{Mode: willis.Frontal, Frontal: willis.Normal}))
	assert.Equal(t, ColorBelow, StatusColor(willis.Result{Mode: willis.Frontal, Frontal: willis.BelowAverage}))
	assert.Equal(t, ColorAbove, StatusColor(willis.Result{Mode: willis.Frontal, Frontal: willis.AboveAverage}))
	assert.Equal(t, ColorCaution, StatusColor(willis.Result{Mode: willis.Profile, Profile: willis.Caution}))
}

func TestPanelLines(t *testing.T) {
	res := willis.Result{Mode: willis.Frontal, Frontal: willis.Normal, Ratio: 1.0, Thresholds: willis.PresetStrict}
	lines := PanelLines(res)
	assert.Equal(t, "Normal", lines[1])
	assert.Contains(t, lines, "Ratio: 1.000")
	assert.Contains(t, lines, "Normal range: 0.95 - 1.05")

	res = willis.Result{Mode: willis.Profile, Method: willis.MethodCascade, Profile: willis.Caution, Reason: willis.TooShort, LateralRatio: 0.3, Thresholds: willis.PresetStandard}
	lines = PanelLines(res)
	assert.Contains(t, lines[0], "low confidence")
	assert.Contains(t, lines, "Lateral ratio: 0.300")
}

func TestBlendRect(t *testing.T) {
	img := whiteCanvas(4, 4)
	blendRect(img, image.Rect(0, 0, 2, 2), color.RGBA{0, 0, 0, 255}, 0.5)
	assert.Equal(t, uint8(127), at(img, 0, 0).R)
	assert.Equal(t, uint8(255), at(img, 3, 3).R)

	blendRect(img, image.Rect(-10, -10, 100, 100), color.RGBA{0, 0, 0, 255}, 1)
	assert.Equal(t, uint8(0), at(img, 3, 3).R)
}

func TestDrawLineThickness(t *testing.T) {
	img := whiteCanvas(20, 20)
	drawLine(img, image.Pt(2, 10), image.Pt(17, 10), 3, colorGuide)
	for _, y := range []int{9, 10, 11} {
		assert.Equal(t, colorGuide, at(img, 10, y))
	}
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, at(img, 10, 12))
}

func TestDrawLineFarOutside(t *testing.T) {
	img := whiteCanvas(20, 20)
	white := color.RGBA{255, 255, 255, 255}

	// Stepping this span pixel by pixel would take billions of iterations.
	drawLine(img, image.Pt(-1_000_000_000, 10), image.Pt(1_000_000_000, 10), 1, colorGuide)
	for x := range 20 {
		assert.Equal(t, colorGuide, at(img, x, 10))
	}
	assert.Equal(t, white, at(img, 5, 9))

	img = whiteCanvas(20, 20)
	drawLine(img, image.Pt(-500, -400), image.Pt(-100, 900), 3, colorGuide)
	for y := range 20 {
		for x := range 20 {
			require.Equal(t, white, at(img, x, y))
		}
	}
}

func TestClipSegment(t *testing.T) {
	r := image.Rect(0, 0, 10, 10)
	tests := []struct {
		name   string
		a, b   image.Point
		wa, wb image.Point
		ok     bool
	}{
		{"inside", image.Pt(1, 1), image.Pt(8, 5), image.Pt(1, 1), image.Pt(8, 5), true},
		{"horizontal through", image.Pt(-50, 3), image.Pt(50, 3), image.Pt(0, 3), image.Pt(9, 3), true},
		{"diagonal through", image.Pt(-5, -5), image.Pt(20, 20), image.Pt(0, 0), image.Pt(9, 9), true},
		{"reversed", image.Pt(50, 3), image.Pt(-50, 3), image.Pt(9, 3), image.Pt(0, 3), true},
		{"miss above", image.Pt(-5, -1), image.Pt(20, -1), image.Point{}, image.Point{}, false},
		{"miss corner", image.Pt(12, 0), image.Pt(20, 8), image.Point{}, image.Point{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, b, ok := clipSegment(tt.a, tt.b, r)
			require.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.wa, a)
				assert.Equal(t, tt.wb, b)
			}
		})
	}
}

func TestToRGBA(t *testing.T) {
	rgba := image.NewRGBA(image.Rect(0, 0, 2, 2))
	assert.Same(t, rgba, ToRGBA(rgba))

	gray := image.NewGray(image.Rect(0, 0, 2, 2))
	gray.SetGray(1, 1, color.Gray{Y: 200})
	out := ToRGBA(gray)
	assert.Equal(t, color.RGBA{200, 200, 200, 255}, out.RGBAAt(1, 1))
}

func TestTextRendererFallback(t *testing.T) {
	r := NewTextRenderer("/nonexistent/font.ttf", "")
	_, isBasic := r.(basicText)
	assert.True(t, isBasic)

	w, h := r.MeasureText("Ratio", 40)
	assert.Equal(t, 35, w)
	assert.Equal(t, 13, h)

	img := whiteCanvas(60, 20)
	r.DrawText(img, "Ratio", image.Pt(2, 2), 13, color.Black)
	dark := 0
	for y := 0; y < 20; y++ {
		for x := 0; x < 60; x++ {
			if at(img, x, y).R < 128 {
				dark++
			}
		}
	}
	assert.Greater(t, dark, 10)
}
