// Package overlay draws measurement annotations onto an image in place.
package overlay

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/andresmejia3/willis/internal/geometry"
	"github.com/andresmejia3/willis/internal/willis"
)

var (
	ColorNormal  = color.RGBA{0, 200, 0, 255}
	ColorBelow   = color.RGBA{230, 30, 30, 255}
	ColorAbove   = color.RGBA{255, 165, 0, 255}
	ColorCaution = color.RGBA{255, 165, 0, 255}

	colorMesh      = color.RGBA{180, 180, 180, 255}
	colorKeyPoint  = color.RGBA{0, 255, 255, 255}
	colorNoseChin  = color.RGBA{230, 30, 30, 255}
	colorPupilLine = color.RGBA{30, 80, 255, 255}
	colorEyeLine   = color.RGBA{255, 255, 255, 255}
	colorGuide     = color.RGBA{255, 255, 0, 255}
	colorPanel     = color.RGBA{0, 0, 0, 255}
	colorText      = color.RGBA{255, 255, 255, 255}
)

const panelOpacity = 0.6

// StatusColor is the panel border and headline color for res.
func StatusColor(res willis.Result) color.RGBA {
	if res.Mode == willis.Frontal {
		switch res.Frontal {
		case willis.Normal:
			return ColorNormal
		case willis.BelowAverage:
			return ColorBelow
		default:
			return ColorAbove
		}
	}
	if res.Profile == willis.NaturalContour {
		return ColorNormal
	}
	return ColorCaution
}

type Renderer struct {
	Text TextRenderer
	// FontSize in pixels; 0 scales with image height.
	FontSize float64
}

func NewRenderer(text TextRenderer) *Renderer {
	if text == nil {
		text = NewTextRenderer()
	}
	return &Renderer{Text: text}
}

// Render annotates img with res. Points outside the image are clipped.
func (r *Renderer) Render(img *image.RGBA, res willis.Result) {
	scale := math.Max(1, float64(img.Bounds().Dy())/480)
	thick := int(math.Round(2 * scale))
	dot := int(math.Round(5 * scale))

	if res.Mode == willis.Frontal {
		for _, p := range res.Mesh {
			fillCircle(img, p, 1, colorMesh)
		}
		if pts := res.Points; pts != nil {
			drawLine(img, pts.LeftPupil.Image(), pts.RightPupil.Image(), 1, colorEyeLine)
			drawLine(img, pts.PupilCenter.Image(), pts.MouthCenter.Image(), thick, colorPupilLine)
			drawLine(img, pts.NoseBase.Image(), pts.Chin.Image(), thick, colorNoseChin)
			for _, p := range []geometry.Point{pts.LeftPupil, pts.RightPupil, pts.PupilCenter, pts.MouthCenter} {
				fillCircle(img, p.Image(), dot, colorKeyPoint)
			}
			for _, p := range []geometry.Point{pts.NoseBase, pts.Chin} {
				fillCircle(img, p.Image(), dot, colorNoseChin)
			}
		}
	} else if pts := res.ProfilePoints; pts != nil {
		// horizontal reference the chin angle is measured against
		reach := int(math.Max(res.NoseToChin, 40*scale))
		nose := pts.NoseTip.Image()
		drawLine(img, image.Pt(nose.X-reach, nose.Y), image.Pt(nose.X+reach, nose.Y), 1, colorGuide)
		drawLine(img, nose, pts.Chin.Image(), thick, colorNoseChin)
		fillCircle(img, nose, dot, colorNoseChin)
		fillCircle(img, pts.Chin.Image(), dot, colorNoseChin)
		if pts.Eye != nil {
			drawLine(img, pts.Eye.Image(), pts.Chin.Image(), 1, colorPupilLine)
			fillCircle(img, pts.Eye.Image(), dot, colorKeyPoint)
		}
	}

	r.drawPanel(img, res, scale)
}

func (r *Renderer) drawPanel(img *image.RGBA, res willis.Result, scale float64) {
	size := r.FontSize
	if size <= 0 {
		size = math.Round(16 * scale)
	}
	lines := PanelLines(res)
	pad := int(math.Round(8 * scale))

	width, lineH := 0, 0
	for _, l := range lines {
		w, h := r.Text.MeasureText(l, size)
		width = max(width, w)
		lineH = max(lineH, h)
	}
	lineH += pad / 2

	origin := image.Pt(pad, pad)
	panel := image.Rect(origin.X, origin.Y, origin.X+width+2*pad, origin.Y+len(lines)*lineH+2*pad)
	blendRect(img, panel, colorPanel, panelOpacity)
	status := StatusColor(res)
	strokeRect(img, panel, max(2, int(scale)), status)

	for i, l := range lines {
		c := colorText
		// verdict line
		if i == 1 {
			c = status
		}
		r.Text.DrawText(img, l, image.Pt(panel.Min.X+pad, panel.Min.Y+pad+i*lineH), size, c)
	}
}

// PanelLines is the text shown in the info panel, headline first.
func PanelLines(res willis.Result) []string {
	t := res.Thresholds
	if res.Mode == willis.Frontal {
		return []string{
			"Frontal analysis (Willis)",
			res.Label(),
			fmt.Sprintf("Pupil-Mouth: %.1f px", res.PupilToMouth),
			fmt.Sprintf("Nose-Chin: %.1f px", res.NoseToChin),
			fmt.Sprintf("Ratio: %.3f", res.Ratio),
			fmt.Sprintf("Normal range: %.2f - %.2f", t.NormalRatioMin, t.NormalRatioMax),
			fmt.Sprintf("Symmetry: %.1f%%", res.Symmetry*100),
		}
	}
	if res.Method == willis.MethodCascade {
		return []string{
			"Profile analysis (cascade, low confidence)",
			res.Label(),
			fmt.Sprintf("Nose-Chin: %.1f px", res.NoseToChin),
			fmt.Sprintf("Eye-Chin: %.1f px", res.EyeToChin),
			fmt.Sprintf("Lateral ratio: %.3f", res.LateralRatio),
			fmt.Sprintf("Normal range: %.2f - %.2f", t.LateralRatioMin, t.LateralRatioMax),
		}
	}
	return []string{
		"Profile analysis",
		res.Label(),
		fmt.Sprintf("Nose-Chin: %.1f px", res.NoseToChin),
		fmt.Sprintf("Jaw prominence: %.1f%%", res.JawProminence),
		fmt.Sprintf("Chin angle: %.1f deg", res.ChinAngle),
		fmt.Sprintf("Natural: jaw %.0f-%.0f%%, angle %.0f-%.0f deg",
			t.JawProminenceMin, t.JawProminenceMax, t.ChinAngleMin, t.ChinAngleMax),
		fmt.Sprintf("Symmetry: %.1f%%", res.Symmetry*100),
	}
}
