package overlay

import (
	"image"
	"image/color"
	"image/draw"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// DefaultFontPaths are tried in order when no font is configured. They
// cover common Hangul-capable system fonts.
var DefaultFontPaths = []string{
	"/usr/share/fonts/truetype/nanum/NanumGothic.ttf",
	"/usr/share/fonts/opentype/noto/NotoSansCJK-Regular.ttc",
	"/System/Library/Fonts/AppleSDGothicNeo.ttc",
	"C:/Windows/Fonts/malgun.ttf",
}

// TextRenderer draws a single line of text with its top-left corner at at.
type TextRenderer interface {
	DrawText(dst draw.Image, text string, at image.Point, size float64, c color.Color)
	// MeasureText returns the advance width and line height in pixels.
	MeasureText(text string, size float64) (width, height int)
}

// NewTextRenderer returns a renderer for the first font in paths that can
// be parsed, or the built-in 7x13 bitmap face when none loads.
func NewTextRenderer(paths ...string) TextRenderer {
	for _, p := range paths {
		if p == "" {
			continue
		}
		f, err := loadFont(p)
		if err != nil {
			logrus.WithError(err).WithField("font", p).Debug("font not usable")
			continue
		}
		logrus.WithField("font", p).Debug("using font")
		return &vectorText{font: f, faces: map[float64]font.Face{}}
	}
	return basicText{}
}

func loadFont(path string) (*opentype.Font, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if strings.HasSuffix(strings.ToLower(path), ".ttc") {
		coll, err := opentype.ParseCollection(data)
		if err != nil {
			return nil, err
		}
		return coll.Font(0)
	}
	return opentype.Parse(data)
}

type vectorText struct {
	font *opentype.Font

	mu    sync.Mutex
	faces map[float64]font.Face
}

// faceLocked returns the cached face for size. Faces keep glyph buffers,
// so callers hold v.mu for as long as they use the result.
func (v *vectorText) faceLocked(size float64) font.Face {
	if size <= 0 {
		size = 16
	}
	if f, ok := v.faces[size]; ok {
		return f
	}
	f, err := opentype.NewFace(v.font, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return basicfont.Face7x13
	}
	v.faces[size] = f
	return f
}

func (v *vectorText) DrawText(dst draw.Image, text string, at image.Point, size float64, c color.Color) {
	v.mu.Lock()
	defer v.mu.Unlock()
	drawString(dst, v.faceLocked(size), text, at, c)
}

func (v *vectorText) MeasureText(text string, size float64) (int, int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return measure(v.faceLocked(size), text)
}

// basicText ignores size; the bitmap face is fixed at 13px.
type basicText struct{}

func (basicText) DrawText(dst draw.Image, text string, at image.Point, _ float64, c color.Color) {
	drawString(dst, basicfont.Face7x13, text, at, c)
}

func (basicText) MeasureText(text string, _ float64) (int, int) {
	return measure(basicfont.Face7x13, text)
}

func drawString(dst draw.Image, face font.Face, text string, at image.Point, c color.Color) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(at.X, at.Y+face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(text)
}

func measure(face font.Face, text string) (int, int) {
	m := face.Metrics()
	return font.MeasureString(face, text).Ceil(), (m.Ascent + m.Descent).Ceil()
}
