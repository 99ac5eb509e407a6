package report

import (
	"fmt"
	"sync"
	"time"

	"github.com/andresmejia3/willis/internal/willis"
)

const DefaultWindow = 30

// SevereRatio is the mean ratio below which a reduced vertical dimension
// is flagged as severe, unless the normal band already starts lower.
const SevereRatio = 0.90

// Recommendation maps a mean Willis ratio to advice text using the normal
// band of t.
func Recommendation(meanRatio float64, t willis.Thresholds) string {
	switch {
	case meanRatio < min(SevereRatio, t.NormalRatioMin):
		return "Severe reduction of vertical dimension suspected. Specialist consultation recommended."
	case meanRatio < t.NormalRatioMin:
		return "Possible reduction of vertical dimension. Consider further examination."
	case meanRatio <= t.NormalRatioMax:
		return "Within normal range. Facial proportion is good."
	default:
		return "Above average. Consider further evaluation."
	}
}

// ClassCount is how often one frontal class occurred in the window.
type ClassCount struct {
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// Summary is the session report over the current window.
type Summary struct {
	GeneratedAt    time.Time                          `json:"generated_at"`
	Frames         int                                `json:"total_frames"`
	NormalCriteria string                             `json:"normal_criteria"`
	PupilToMouth   Stat                               `json:"pupil_to_mouth"`
	NoseToChin     Stat                               `json:"nose_to_chin"`
	Ratio          RangeStat                          `json:"ratio"`
	Classes        map[willis.FrontalClass]ClassCount `json:"classification_summary"`
	Recommendation string                             `json:"recommendation"`
	Thresholds     willis.Thresholds                  `json:"thresholds"`
}

// IsNormal reports whether the mean ratio lies in the normal band.
func (s Summary) IsNormal() bool {
	return s.Thresholds.NormalRatioMin <= s.Ratio.Mean && s.Ratio.Mean <= s.Thresholds.NormalRatioMax
}

// History keeps the most recent frontal measurements of a session. It is
// safe for concurrent use.
type History struct {
	mu     sync.Mutex
	window int
	items  []willis.Result
	now    func() time.Time
}

func NewHistory(window int) *History {
	if window <= 0 {
		window = DefaultWindow
	}
	return &History{window: window, now: time.Now}
}

// Add records res and reports whether it was kept. Profile results are
// ignored since they carry no Willis ratio.
func (h *History) Add(res willis.Result) bool {
	if res.Mode != willis.Frontal {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.items = append(h.items, res)
	if over := len(h.items) - h.window; over > 0 {
		h.items = append(h.items[:0], h.items[over:]...)
	}
	return true
}

func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.items)
}

// Ratios returns the ratios in the window, oldest first.
func (h *History) Ratios() []float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]float64, len(h.items))
	for i, r := range h.items {
		out[i] = r.Ratio
	}
	return out
}

func (h *History) Reset() {
	h.mu.Lock()
	h.items = nil
	h.mu.Unlock()
}

// Summary computes the session report. The normal criteria string uses
// the thresholds of the most recent measurement.
func (h *History) Summary() (Summary, error) {
	h.mu.Lock()
	items := append([]willis.Result(nil), h.items...)
	h.mu.Unlock()

	if len(items) == 0 {
		return Summary{}, ErrNoMeasurements
	}

	ptm := make([]float64, len(items))
	ntc := make([]float64, len(items))
	ratios := make([]float64, len(items))
	classes := map[willis.FrontalClass]ClassCount{
		willis.Normal:       {},
		willis.BelowAverage: {},
		willis.AboveAverage: {},
	}
	for i, r := range items {
		ptm[i], ntc[i], ratios[i] = r.PupilToMouth, r.NoseToChin, r.Ratio
		c := classes[r.Frontal]
		c.Count++
		classes[r.Frontal] = c
	}
	total := float64(len(items))
	for k, c := range classes {
		c.Percentage = float64(c.Count) / total * 100
		classes[k] = c
	}

	ratio, _, _ := describeRange(ratios)
	t := items[len(items)-1].Thresholds
	return Summary{
		GeneratedAt:    h.now(),
		Frames:         len(items),
		NormalCriteria: fmt.Sprintf("%.2f <= ratio <= %.2f", t.NormalRatioMin, t.NormalRatioMax),
		PupilToMouth:   describe(ptm),
		NoseToChin:     describe(ntc),
		Ratio:          ratio,
		Classes:        classes,
		Recommendation: Recommendation(ratio.Mean, t),
		Thresholds:     t,
	}, nil
}
