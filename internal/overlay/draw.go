package overlay

import (
	"image"
	"image/color"
	"image/draw"
	"math"
)

// ToRGBA returns img as *image.RGBA, copying only when it is another type.
func ToRGBA(img image.Image) *image.RGBA {
	if m, ok := img.(*image.RGBA); ok {
		return m
	}
	b := img.Bounds()
	m := image.NewRGBA(b)
	draw.Draw(m, b, img, b.Min, draw.Src)
	return m
}

// setPixel writes c at (x, y), ignoring points outside the image.
func setPixel(img *image.RGBA, x, y int, c color.RGBA) {
	if !(image.Point{X: x, Y: y}).In(img.Rect) {
		return
	}
	off := img.PixOffset(x, y)
	img.Pix[off] = c.R
	img.Pix[off+1] = c.G
	img.Pix[off+2] = c.B
	img.Pix[off+3] = 255
}

// fillRect paints rect with c, clipped to the image.
func fillRect(img *image.RGBA, rect image.Rectangle, c color.RGBA) {
	rect = rect.Intersect(img.Bounds())
	if rect.Empty() {
		return
	}
	stride := img.Stride
	pix := img.Pix
	imgMinX, imgMinY := img.Rect.Min.X, img.Rect.Min.Y
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		rowStart := (y-imgMinY)*stride + (rect.Min.X-imgMinX)*4
		for x := 0; x < rect.Dx(); x++ {
			off := rowStart + x*4
			pix[off] = c.R
			pix[off+1] = c.G
			pix[off+2] = c.B
			pix[off+3] = 255
		}
	}
}

// blendRect mixes c into rect with the given opacity in [0,1].
func blendRect(img *image.RGBA, rect image.Rectangle, c color.RGBA, alpha float64) {
	rect = rect.Intersect(img.Bounds())
	if rect.Empty() {
		return
	}
	if alpha < 0 {
		alpha = 0
	}
	if alpha > 1 {
		alpha = 1
	}
	// fixed point, 0..256
	a := uint32(alpha*256 + 0.5)
	inv := 256 - a
	cr, cg, cb := uint32(c.R)*a, uint32(c.G)*a, uint32(c.B)*a

	stride := img.Stride
	pix := img.Pix
	imgMinX, imgMinY := img.Rect.Min.X, img.Rect.Min.Y
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		rowStart := (y-imgMinY)*stride + (rect.Min.X-imgMinX)*4
		for x := 0; x < rect.Dx(); x++ {
			off := rowStart + x*4
			pix[off] = uint8((uint32(pix[off])*inv + cr) >> 8)
			pix[off+1] = uint8((uint32(pix[off+1])*inv + cg) >> 8)
			pix[off+2] = uint8((uint32(pix[off+2])*inv + cb) >> 8)
			pix[off+3] = 255
		}
	}
}

// strokeRect draws a border of the given width just inside rect.
func strokeRect(img *image.RGBA, rect image.Rectangle, width int, c color.RGBA) {
	if width < 1 {
		width = 1
	}
	fillRect(img, image.Rect(rect.Min.X, rect.Min.Y, rect.Max.X, rect.Min.Y+width), c)
	fillRect(img, image.Rect(rect.Min.X, rect.Max.Y-width, rect.Max.X, rect.Max.Y), c)
	fillRect(img, image.Rect(rect.Min.X, rect.Min.Y, rect.Min.X+width, rect.Max.Y), c)
	fillRect(img, image.Rect(rect.Max.X-width, rect.Min.Y, rect.Max.X, rect.Max.Y), c)
}

// fillCircle draws a filled disc of radius r around center.
func fillCircle(img *image.RGBA, center image.Point, r int, c color.RGBA) {
	if r <= 0 {
		setPixel(img, center.X, center.Y, c)
		return
	}
	r2 := r * r
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if dx*dx+dy*dy <= r2 {
				setPixel(img, center.X+dx, center.Y+dy, c)
			}
		}
	}
}

// drawLine draws a Bresenham line stamped with a square brush of the given
// thickness.
func drawLine(img *image.RGBA, a, b image.Point, thickness int, c color.RGBA) {
	if thickness < 1 {
		thickness = 1
	}
	lo := -(thickness - 1) / 2
	hi := lo + thickness

	a, b, ok := clipSegment(a, b, img.Bounds().Inset(-thickness))
	if !ok {
		return
	}

	dx := abs(b.X - a.X)
	dy := -abs(b.Y - a.Y)
	sx, sy := 1, 1
	if a.X > b.X {
		sx = -1
	}
	if a.Y > b.Y {
		sy = -1
	}
	e := dx + dy
	x, y := a.X, a.Y
	for {
		for oy := lo; oy < hi; oy++ {
			for ox := lo; ox < hi; ox++ {
				setPixel(img, x+ox, y+oy, c)
			}
		}
		if x == b.X && y == b.Y {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x += sx
		}
		if e2 <= dx {
			e += dx
			y += sy
		}
	}
}

// clipSegment trims a-b to the pixels of r (Liang-Barsky). It reports
// false when the segment misses r entirely.
func clipSegment(a, b image.Point, r image.Rectangle) (image.Point, image.Point, bool) {
	if r.Empty() {
		return a, b, false
	}
	x0, y0 := float64(a.X), float64(a.Y)
	dx, dy := float64(b.X)-x0, float64(b.Y)-y0
	t0, t1 := 0.0, 1.0
	edges := [4][2]float64{
		{-dx, x0 - float64(r.Min.X)},
		{dx, float64(r.Max.X-1) - x0},
		{-dy, y0 - float64(r.Min.Y)},
		{dy, float64(r.Max.Y-1) - y0},
	}
	for _, e := range edges {
		p, q := e[0], e[1]
		if p == 0 {
			if q < 0 {
				return a, b, false
			}
			continue
		}
		t := q / p
		if p < 0 {
			if t > t1 {
				return a, b, false
			}
			t0 = max(t0, t)
		} else {
			if t < t0 {
				return a, b, false
			}
			t1 = min(t1, t)
		}
	}
	at := func(t float64) image.Point {
		return image.Pt(int(math.Round(x0+t*dx)), int(math.Round(y0+t*dy)))
	}
	return at(t0), at(t1), true
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
