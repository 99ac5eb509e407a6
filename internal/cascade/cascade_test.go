package cascade

import (
	"image"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLargest(t *testing.T) {
	_, ok := Largest(nil)
	assert.False(t, ok)

	r, ok := Largest([]image.Rectangle{
		image.Rect(0, 0, 10, 10),
		image.Rect(5, 5, 40, 30),
		image.Rect(0, 0, 20, 20),
	})
	assert.True(t, ok)
	assert.Equal(t, image.Rect(5, 5, 40, 30), r)
}

func TestMirrorX(t *testing.T) {
	assert.Equal(t, image.Rect(70, 10, 90, 30), MirrorX(image.Rect(10, 10, 30, 30), 100))
}

func TestCandidatePaths(t *testing.T) {
	t.Setenv("OPENCV_CASCADE_PATH", "/env/cascades")
	paths := CandidatePaths("/custom", EyeFile)
	assert.Equal(t, filepath.Join("/custom", EyeFile), paths[0])
	assert.Equal(t, filepath.Join("/env/cascades", EyeFile), paths[1])
	assert.Greater(t, len(paths), 3)

	t.Setenv("OPENCV_CASCADE_PATH", "")
	assert.Equal(t, filepath.Join("models", "haarcascades", EyeFile), CandidatePaths("", EyeFile)[0])
}
