package report

import (
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresmejia3/willis/internal/geometry"
	"github.com/andresmejia3/willis/internal/landmarks"
	"github.com/andresmejia3/willis/internal/landmarks/landmarkstest"
	"github.com/andresmejia3/willis/internal/willis"
)

func frontal(ptm, ntc float64) willis.Result {
	ratio := willis.Ratio(ntc, ptm)
	return willis.Result{
		Mode:         willis.Frontal,
		PupilToMouth: ptm,
		NoseToChin:   ntc,
		Ratio:        ratio,
		Frontal:      willis.ClassifyFrontal(ratio, willis.PresetStrict),
		Thresholds:   willis.PresetStrict,
	}
}

func TestRecommendation(t *testing.T) {
	tests := []struct {
		name  string
		ratio float64
		t     willis.Thresholds
		want  string
	}{
		{"strict severe", 0.85, willis.PresetStrict, "Severe"},
		{"strict possible", 0.92, willis.PresetStrict, "Possible"},
		{"strict lower bound", 0.95, willis.PresetStrict, "normal range"},
		{"strict upper bound", 1.05, willis.PresetStrict, "normal range"},
		{"strict above", 1.08, willis.PresetStrict, "Above average"},
		{"standard accepts 1.08", 1.08, willis.PresetStandard, "normal range"},
		{"standard severe below band", 0.89, willis.PresetStandard, "Severe"},
		{"standard lower bound", 0.90, willis.PresetStandard, "normal range"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, Recommendation(tt.ratio, tt.t), tt.want)
		})
	}

	// A custom band starting above the severe cut leaves room for "possible".
	custom := willis.PresetStandard
	custom.NormalRatioMin, custom.NormalRatioMax = 1.00, 1.20
	assert.Contains(t, Recommendation(0.95, custom), "Possible")
	assert.Contains(t, Recommendation(1.15, custom), "normal range")
	assert.Contains(t, Recommendation(0.88, custom), "Severe")
}

func TestHistoryWindow(t *testing.T) {
	h := NewHistory(3)
	for i := 1; i <= 5; i++ {
		assert.True(t, h.Add(frontal(100, float64(90+i))))
	}
	assert.False(t, h.Add(willis.Result{Mode: willis.Profile}))

	assert.Equal(t, 3, h.Len())
	ratios := h.Ratios()
	require.Len(t, ratios, 3)
	assert.InDelta(t, 0.93, ratios[0], 1e-9)
	assert.InDelta(t, 0.95, ratios[2], 1e-9)

	h.Reset()
	_, err := h.Summary()
	assert.ErrorIs(t, err, ErrNoMeasurements)
}

func TestHistorySummary(t *testing.T) {
	h := NewHistory(0)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	h.now = func() time.Time { return fixed }

	h.Add(frontal(100, 90))  // 0.90 below
	h.Add(frontal(100, 100)) // 1.00 normal
	h.Add(frontal(100, 100)) // 1.00 normal
	h.Add(frontal(100, 110)) // 1.10 above

	s, err := h.Summary()
	require.NoError(t, err)
	assert.Equal(t, fixed, s.GeneratedAt)
	assert.Equal(t, 4, s.Frames)
	assert.Equal(t, "0.95 <= ratio <= 1.05", s.NormalCriteria)
	assert.InDelta(t, 1.0, s.Ratio.Mean, 1e-9)
	assert.InDelta(t, 0.9, s.Ratio.Min, 1e-9)
	assert.InDelta(t, 1.1, s.Ratio.Max, 1e-9)
	assert.InDelta(t, 0.0707107, s.Ratio.Std, 1e-6)
	assert.InDelta(t, 100, s.PupilToMouth.Mean, 1e-9)
	assert.Zero(t, s.PupilToMouth.Std)
	assert.Equal(t, ClassCount{Count: 2, Percentage: 50}, s.Classes[willis.Normal])
	assert.Equal(t, ClassCount{Count: 1, Percentage: 25}, s.Classes[willis.BelowAverage])
	assert.Equal(t, ClassCount{Count: 1, Percentage: 25}, s.Classes[willis.AboveAverage])
	assert.Equal(t, Recommendation(1.0, willis.PresetStrict), s.Recommendation)
	assert.Equal(t, willis.PresetStrict, s.Thresholds)
	assert.True(t, s.IsNormal())

	h.Add(frontal(100, 140))
	s, err = h.Summary()
	require.NoError(t, err)
	assert.InDelta(t, 1.08, s.Ratio.Mean, 1e-9)
	assert.False(t, s.IsNormal(), "1.08 is outside the strict band")
}

func TestCompare(t *testing.T) {
	items := []Item{
		{Name: "before", Result: frontal(100, 80)},
		{Name: "week1", Result: frontal(100, 100)},
		{Name: "week2", Result: frontal(100, 90)},
	}
	c, err := Compare(items, []Failure{{Name: "blurry", Error: "no face"}})
	require.NoError(t, err)

	require.Len(t, c.Items, 3)
	assert.Zero(t, c.Items[0].ChangePercent)
	assert.InDelta(t, 25, c.Items[1].ChangePercent, 1e-9)
	assert.InDelta(t, 12.5, c.Items[2].ChangePercent, 1e-9)
	assert.Equal(t, "normal", c.Items[1].Classification)
	assert.InDelta(t, 0.9, c.Ratio.Mean, 1e-9)
	assert.Equal(t, "before", c.MinName)
	assert.Equal(t, "week1", c.MaxName)
	assert.Len(t, c.Failed, 1)

	_, err = Compare(nil, nil)
	assert.ErrorIs(t, err, ErrNoMeasurements)
}

func TestCompareSkipsProfileResults(t *testing.T) {
	m := landmarkstest.Profile()
	side, err := willis.NewAnalyzer().Analyze(m.Set, m.W, m.H)
	require.NoError(t, err)
	require.Equal(t, willis.Profile, side.Mode)

	box, err := willis.AnalyzeCascade(image.Rect(50, 50, 250, 250), nil, 400, 400, willis.PresetStandard)
	require.NoError(t, err)

	items := []Item{
		{Name: "side", Result: side},
		{Name: "front", Result: frontal(50, 75)},
		{Name: "box", Result: box},
	}
	c, err := Compare(items, nil)
	require.NoError(t, err)

	require.Len(t, c.Items, 1)
	assert.Equal(t, "front", c.Items[0].Name)
	assert.Zero(t, c.Items[0].ChangePercent)
	assert.InDelta(t, 1.5, c.Ratio.Mean, 1e-9)
	assert.InDelta(t, 1.5, c.Ratio.Min, 1e-9)
	assert.Equal(t, "front", c.MinName)
	assert.Equal(t, "front", c.MaxName)

	require.Len(t, c.Failed, 2)
	assert.Equal(t, "side", c.Failed[0].Name)
	assert.Contains(t, c.Failed[0].Error, "landmarks")
	assert.Equal(t, "box", c.Failed[1].Name)
	assert.Contains(t, c.Failed[1].Error, "cascade")

	// Only profile results: nothing to compare.
	c, err = Compare(items[2:], nil)
	assert.ErrorIs(t, err, ErrNoMeasurements)
	assert.Len(t, c.Failed, 1)
}

func TestChangePercentZeroBase(t *testing.T) {
	assert.Zero(t, ChangePercent(1.2, 0))
	assert.InDelta(t, -10, ChangePercent(0.9, 1), 1e-9)
}

func TestNaturalness(t *testing.T) {
	assert.InDelta(t, 100, Naturalness(0, 0, 30), 1e-9)
	assert.InDelta(t, 75, Naturalness(15, 0, 30), 1e-9)
	assert.InDelta(t, 40, Naturalness(60, 10, 30), 1e-9)
	assert.InDelta(t, 0, Naturalness(90, -80, 30), 1e-9)
}

func TestCompareProfiles(t *testing.T) {
	before := ProfileFrame{Width: 400, Height: 600, Chin: geometry.Point{X: 200, Y: 500}, Angle: 80}
	// twice the resolution, chin 20px lower once scaled back
	after := ProfileFrame{Width: 800, Height: 1200, Chin: geometry.Point{X: 400, Y: 1040}, Angle: 84}

	pc := CompareProfiles(before, after, 0)
	assert.InDelta(t, 20, pc.Movement, 1e-9)
	assert.InDelta(t, 4, pc.AngleChange, 1e-9)
	assert.InDelta(t, 50-20.0/30*50+46, pc.Naturalness, 1e-9)
	assert.True(t, pc.Acceptable)
	assert.Equal(t, DefaultMaxMovement, pc.MaxMovement)
	assert.Equal(t, "Appropriate jaw position", pc.Status())

	pc = CompareProfiles(before, after, 10)
	assert.False(t, pc.Acceptable)
	assert.Equal(t, "Excessive change in jaw position", pc.Status())
}

func TestNewProfileFrame(t *testing.T) {
	m := landmarkstest.Profile()
	f, err := NewProfileFrame(m.Set, m.W, m.H)
	require.NoError(t, err)
	assert.InDelta(t, 120, f.Nose.Y, 1e-6)
	assert.InDelta(t, 170, f.Chin.Y, 1e-6)
	assert.InDelta(t, 90, f.Angle, 1e-6)

	_, err = NewProfileFrame(m.Set[:10], m.W, m.H)
	assert.ErrorIs(t, err, landmarks.ErrInsufficientLandmarks)
}
