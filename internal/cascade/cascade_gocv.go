//go:build gocv

package cascade

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

type openCV struct {
	profile gocv.CascadeClassifier
	frontal gocv.CascadeClassifier
	eye     gocv.CascadeClassifier
}

// New loads the profile, frontal and eye cascades from dir or the usual
// OpenCV install locations.
func New(dir string) (Detector, error) {
	d := &openCV{
		profile: gocv.NewCascadeClassifier(),
		frontal: gocv.NewCascadeClassifier(),
		eye:     gocv.NewCascadeClassifier(),
	}
	for _, c := range []struct {
		cls  *gocv.CascadeClassifier
		file string
	}{
		{&d.profile, ProfileFaceFile},
		{&d.frontal, FrontalFaceFile},
		{&d.eye, EyeFile},
	} {
		if !load(c.cls, CandidatePaths(dir, c.file)) {
			d.Close()
			return nil, fmt.Errorf("failed to load %s from %s or alternative paths", c.file, dir)
		}
	}
	return d, nil
}

func load(cls *gocv.CascadeClassifier, paths []string) bool {
	for _, p := range paths {
		if cls.Load(p) {
			return true
		}
	}
	return false
}

func (d *openCV) Detect(img []byte) (Boxes, error) {
	mat, err := gocv.IMDecode(img, gocv.IMReadColor)
	if err != nil {
		return Boxes{}, fmt.Errorf("decode image: %w", err)
	}
	defer mat.Close()
	if mat.Empty() {
		return Boxes{}, fmt.Errorf("decode image: empty result")
	}

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(mat, &gray, gocv.ColorBGRToGray)
	gocv.EqualizeHist(gray, &gray)

	w, h := gray.Cols(), gray.Rows()
	minSize := image.Pt(30, 30)

	faces := d.profile.DetectMultiScaleWithParams(gray, 1.1, 5, 0, minSize, image.Point{})
	if len(faces) == 0 {
		// the profile cascade only knows one facing direction
		flipped := gocv.NewMat()
		defer flipped.Close()
		gocv.Flip(gray, &flipped, 1)
		for _, r := range d.profile.DetectMultiScaleWithParams(flipped, 1.1, 5, 0, minSize, image.Point{}) {
			faces = append(faces, MirrorX(r, w))
		}
	}
	if len(faces) == 0 {
		faces = d.frontal.DetectMultiScaleWithParams(gray, 1.1, 5, 0, minSize, image.Point{})
	}
	face, ok := Largest(faces)
	if !ok {
		return Boxes{}, ErrNoFace
	}

	out := Boxes{Width: w, Height: h, Face: face}
	roi := gray.Region(face)
	defer roi.Close()
	if eye, ok := Largest(d.eye.DetectMultiScale(roi)); ok {
		abs := eye.Add(face.Min)
		out.Eye = &abs
	}
	return out, nil
}

func (d *openCV) Close() error {
	d.profile.Close()
	d.frontal.Close()
	d.eye.Close()
	return nil
}
