//go:build !gocv

package cascade

// New reports ErrUnavailable in builds without OpenCV.
func New(dir string) (Detector, error) {
	return nil, ErrUnavailable
}
