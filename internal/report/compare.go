package report

import (
	"fmt"

	"github.com/andresmejia3/willis/internal/willis"
)

// Item is one named photo in a comparison.
type Item struct {
	Name   string        `json:"name"`
	Result willis.Result `json:"result"`
}

// ComparedItem is an Item with its change against the baseline.
type ComparedItem struct {
	Name           string              `json:"name"`
	Mode           willis.Mode         `json:"mode"`
	Ratio          float64             `json:"ratio"`
	PupilToMouth   float64             `json:"pupil_to_mouth"`
	NoseToChin     float64             `json:"nose_to_chin"`
	Classification string              `json:"classification"`
	Class          willis.FrontalClass `json:"-"`
	ChangePercent  float64             `json:"change_percent"`
}

// Comparison summarizes several frontal photos against the first one.
type Comparison struct {
	Items   []ComparedItem `json:"items"`
	Ratio   RangeStat      `json:"ratio"`
	MinName string         `json:"min_name"`
	MaxName string         `json:"max_name"`
	Failed  []Failure      `json:"failed,omitempty"`
}

// Failure records a photo that could not be analyzed.
type Failure struct {
	Name  string `json:"name"`
	Error string `json:"error"`
}

// ChangePercent is (r - base) / base * 100, or 0 for a zero base.
func ChangePercent(r, base float64) float64 {
	if base == 0 {
		return 0
	}
	return (r - base) / base * 100
}

// Compare builds the comparison report over the frontal items. The first
// frontal item is the baseline. Profile and cascade results carry no Willis
// ratio, so they are reported in Failed instead of entering the statistics.
func Compare(items []Item, failed []Failure) (Comparison, error) {
	var frontal []Item
	for _, it := range items {
		if it.Result.Mode != willis.Frontal {
			failed = append(failed, Failure{
				Name:  it.Name,
				Error: fmt.Sprintf("profile view (%s), no Willis ratio", it.Result.Method),
			})
			continue
		}
		frontal = append(frontal, it)
	}
	if len(frontal) == 0 {
		return Comparison{Failed: failed}, ErrNoMeasurements
	}

	base := frontal[0].Result.Ratio
	out := Comparison{Items: make([]ComparedItem, len(frontal)), Failed: failed}
	ratios := make([]float64, len(frontal))
	for i, it := range frontal {
		r := it.Result
		ratios[i] = r.Ratio
		out.Items[i] = ComparedItem{
			Name:           it.Name,
			Mode:           r.Mode,
			Ratio:          r.Ratio,
			PupilToMouth:   r.PupilToMouth,
			NoseToChin:     r.NoseToChin,
			Classification: r.Classification(),
			Class:          r.Frontal,
			ChangePercent:  ChangePercent(r.Ratio, base),
		}
	}
	stat, lo, hi := describeRange(ratios)
	out.Ratio = stat
	out.MinName = frontal[lo].Name
	out.MaxName = frontal[hi].Name
	return out, nil
}
