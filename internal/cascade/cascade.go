// Package cascade locates a face and an eye with OpenCV Haar cascades when
// no landmark mesh can be produced. The OpenCV binding is only compiled
// with the gocv build tag.
package cascade

import (
	"errors"
	"image"
	"os"
	"path/filepath"
)

var (
	ErrUnavailable = errors.New("cascade detector not compiled in (build with -tags gocv)")
	ErrNoFace      = errors.New("cascade found no face")
)

const (
	ProfileFaceFile = "haarcascade_profileface.xml"
	FrontalFaceFile = "haarcascade_frontalface_default.xml"
	EyeFile         = "haarcascade_eye.xml"
)

// Boxes is the cascade output in image pixel coordinates.
type Boxes struct {
	Width  int
	Height int
	Face   image.Rectangle
	Eye    *image.Rectangle
}

// Detector finds face boxes in an encoded image.
type Detector interface {
	Detect(img []byte) (Boxes, error)
	Close() error
}

// CandidatePaths lists where a cascade file is looked up, in order.
func CandidatePaths(dir, name string) []string {
	var paths []string
	if dir != "" {
		paths = append(paths, filepath.Join(dir, name))
	}
	if env := os.Getenv("OPENCV_CASCADE_PATH"); env != "" {
		paths = append(paths, filepath.Join(env, name))
	}
	return append(paths,
		filepath.Join("models", "haarcascades", name),
		filepath.Join("/usr/local/share/opencv4/haarcascades", name),
		filepath.Join("/usr/share/opencv4/haarcascades", name),
		filepath.Join("/opt/homebrew/share/opencv4/haarcascades", name),
	)
}

// Largest returns the rectangle with the greatest area.
func Largest(rects []image.Rectangle) (image.Rectangle, bool) {
	if len(rects) == 0 {
		return image.Rectangle{}, false
	}
	best := rects[0]
	for _, r := range rects[1:] {
		if r.Dx()*r.Dy() > best.Dx()*best.Dy() {
			best = r
		}
	}
	return best, true
}

// MirrorX maps a rectangle found in a horizontally flipped image of the
// given width back to the original.
func MirrorX(r image.Rectangle, width int) image.Rectangle {
	return image.Rect(width-r.Max.X, r.Min.Y, width-r.Min.X, r.Max.Y)
}
