// Package landmarkstest builds synthetic face meshes for tests.
package landmarkstest

import "github.com/andresmejia3/willis/internal/landmarks"

// Mesh is a synthetic landmark set addressed in pixel coordinates.
type Mesh struct {
	W, H int
	Set  landmarks.Set
}

// New returns a full-size mesh with every point at the image center.
func New(w, h int) *Mesh {
	set := make(landmarks.Set, landmarks.MeshSize)
	for i := range set {
		set[i] = landmarks.Landmark{X: 0.5, Y: 0.5}
	}
	return &Mesh{W: w, H: h, Set: set}
}

// Put places landmark i at pixel (x, y).
func (m *Mesh) Put(i int, x, y float64) *Mesh {
	m.Set[i] = landmarks.Landmark{X: x / float64(m.W), Y: y / float64(m.H)}
	return m
}

// Eye lays out a 7-point contour whose mean is (cx, cy) and whose
// horizontal span is width.
func (m *Mesh) Eye(indices [7]int, cx, cy, width float64) *Mesh {
	half := width / 2
	offsets := [7][2]float64{
		{-half, 0}, {half, 0}, {0, -3}, {0, 3}, {-half / 2, -2}, {half / 2, 2}, {0, 0},
	}
	for k, i := range indices {
		m.Put(i, cx+offsets[k][0], cy+offsets[k][1])
	}
	return m
}

// Frontal returns a 200x300 mesh with symmetric 20px eyes, pupil center
// (100,100), mouth center (100,150), nose base (100,120) and chin (100,195).
func Frontal() *Mesh {
	m := New(200, 300)
	m.Eye(landmarks.LeftEye, 80, 100, 20)
	m.Eye(landmarks.RightEye, 120, 100, 20)
	m.Put(landmarks.MouthLeft, 85, 150).Put(landmarks.MouthRight, 115, 150)
	m.Put(landmarks.UpperLip, 100, 145).Put(landmarks.LowerLip, 100, 155)
	m.Put(landmarks.NoseTip, 100, 110).Put(landmarks.NoseBase, 100, 120)
	m.Put(landmarks.Chin, 100, 195)
	m.Put(landmarks.LeftFace, 50, 120).Put(landmarks.RightFace, 150, 120)
	return m
}

// Profile returns Frontal with the right eye foreshortened to 5px, so the
// eye-width symmetry is 0.25, and nose tip / chin placed for a 20% jaw
// prominence at 90 degrees.
func Profile() *Mesh {
	m := Frontal()
	m.Eye(landmarks.RightEye, 120, 100, 5)
	m.Put(landmarks.NoseTip, 100, 110).Put(landmarks.Chin, 100, 170)
	return m
}
