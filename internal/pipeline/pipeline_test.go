package pipeline

import (
	"context"
	"errors"
	"image"
	"sort"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresmejia3/willis/internal/cascade"
	"github.com/andresmejia3/willis/internal/landmarks/landmarkstest"
	"github.com/andresmejia3/willis/internal/types"
	"github.com/andresmejia3/willis/internal/willis"
	"github.com/andresmejia3/willis/internal/worker"
)

type fakeDetector struct {
	calls atomic.Int32
	fn    func(img []byte) (worker.Detection, error)
}

func (f *fakeDetector) Detect(_ context.Context, img []byte) (worker.Detection, error) {
	f.calls.Add(1)
	return f.fn(img)
}

func frontalDetection() (worker.Detection, error) {
	m := landmarkstest.Frontal()
	return worker.Detection{Width: m.W, Height: m.H, Landmarks: m.Set}, nil
}

type memCache struct {
	mu   sync.Mutex
	data map[string]willis.Result
}

func (c *memCache) Get(_ context.Context, key string) (willis.Result, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.data[key]
	return r, ok, nil
}

func (c *memCache) Set(_ context.Context, key string, res willis.Result) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = res
	return nil
}

func (c *memCache) Clear(context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.data)
	c.data = map[string]willis.Result{}
	return n, nil
}

func (c *memCache) Close() error { return nil }

type fakeCascade struct {
	boxes cascade.Boxes
	err   error
}

func (f fakeCascade) Detect([]byte) (cascade.Boxes, error) { return f.boxes, f.err }
func (f fakeCascade) Close() error { return nil }

func TestProcessLandmarks(t *testing.T) {
	det := &fakeDetector{fn: func([]byte) (worker.Detection, error) { return frontalDetection() }}
	p := New(det, willis.NewAnalyzer(), false)

	o, err := p.Process(context.Background(), []byte("img"))
	require.NoError(t, err)
	assert.Equal(t, willis.Frontal, o.Result.Mode)
	assert.Equal(t, willis.AboveAverage, o.Result.Frontal)
	assert.True(t, o.Detection.HasLandmarks())
	assert.False(t, o.Cached)
}

func TestProcessWorkerCascadeBoxes(t *testing.T) {
	eye := image.Rect(150, 120, 190, 150)
	det := &fakeDetector{fn: func([]byte) (worker.Detection, error) {
		return worker.Detection{Width: 640, Height: 480, Face: image.Rect(100, 50, 300, 350), Eye: &eye}, nil
	}}
	p := New(det, willis.NewAnalyzer(), false)

	o, err := p.Process(context.Background(), []byte("img"))
	require.NoError(t, err)
	assert.Equal(t, willis.MethodCascade, o.Result.Method)
	assert.Equal(t, willis.ConfidenceLow, o.Result.Confidence)
	assert.Equal(t, willis.Profile, o.Result.Mode)
}

func TestProcessLocalCascadeFallback(t *testing.T) {
	noFace := &fakeDetector{fn: func([]byte) (worker.Detection, error) { return worker.Detection{}, worker.ErrNoFace }}

	p := New(noFace, willis.NewAnalyzer(), false)
	_, err := p.Process(context.Background(), []byte("img"))
	assert.ErrorIs(t, err, worker.ErrNoFace)

	p.Cascade = fakeCascade{boxes: cascade.Boxes{Width: 640, Height: 480, Face: image.Rect(100, 50, 300, 350)}}
	o, err := p.Process(context.Background(), []byte("img"))
	require.NoError(t, err)
	assert.Equal(t, willis.MethodCascade, o.Result.Method)

	p.Cascade = fakeCascade{err: cascade.ErrNoFace}
	_, err = p.Process(context.Background(), []byte("img"))
	assert.ErrorIs(t, err, worker.ErrNoFace)

	p.Cascade = fakeCascade{err: errors.New("decode failed")}
	_, err = p.Process(context.Background(), []byte("img"))
	assert.ErrorContains(t, err, "cascade fallback")
}

func TestProcessUsesCache(t *testing.T) {
	det := &fakeDetector{fn: func([]byte) (worker.Detection, error) { return frontalDetection() }}
	p := New(det, willis.NewAnalyzer(), false)
	p.Cache = &memCache{data: map[string]willis.Result{}}
	ctx := context.Background()

	first, err := p.Process(ctx, []byte("img"))
	require.NoError(t, err)
	second, err := p.Process(ctx, []byte("img"))
	require.NoError(t, err)
	_, err = p.Process(ctx, []byte("other"))
	require.NoError(t, err)

	assert.False(t, first.Cached)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Result.Ratio, second.Result.Ratio)
	assert.Equal(t, int32(2), det.calls.Load())
}

func TestProcessPropagatesStructuralErrors(t *testing.T) {
	det := &fakeDetector{fn: func([]byte) (worker.Detection, error) {
		m := landmarkstest.Frontal()
		return worker.Detection{Width: m.W, Height: m.H, Landmarks: m.Set[:100]}, nil
	}}
	p := New(det, willis.NewAnalyzer(), false)
	p.Cache = &memCache{data: map[string]willis.Result{}}

	_, err := p.Process(context.Background(), []byte("img"))
	require.Error(t, err)
	_, ok, _ := p.Cache.Get(context.Background(), "anything")
	assert.False(t, ok)
}

func TestRun(t *testing.T) {
	det := &fakeDetector{fn: func(img []byte) (worker.Detection, error) {
		if string(img) == "bad" {
			return worker.Detection{}, worker.ErrNoFace
		}
		return frontalDetection()
	}}
	p := New(det, willis.NewAnalyzer(), false)

	tasks := make(chan types.FrameTask)
	go func() {
		defer close(tasks)
		for i, d := range []string{"a", "bad", "c", "d"} {
			tasks <- types.FrameTask{Index: i, Data: []byte(d)}
		}
	}()

	var got []types.FrameResult
	for r := range p.Run(context.Background(), tasks, 3) {
		got = append(got, r)
	}
	require.Len(t, got, 4)
	sort.Slice(got, func(i, j int) bool { return got[i].Index < got[j].Index })
	assert.ErrorIs(t, got[1].Err, worker.ErrNoFace)
	for _, i := range []int{0, 2, 3} {
		assert.NoError(t, got[i].Err)
		assert.Equal(t, willis.AboveAverage, got[i].Result.Frontal)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	det := &fakeDetector{fn: func([]byte) (worker.Detection, error) { return frontalDetection() }}
	p := New(det, willis.NewAnalyzer(), false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tasks := make(chan types.FrameTask, 3)
	for i := 0; i < 3; i++ {
		tasks <- types.FrameTask{Index: i}
	}
	close(tasks)

	n := 0
	for range p.Run(ctx, tasks, 2) {
		n++
	}
	assert.Equal(t, 0, n)
	assert.Equal(t, int32(0), det.calls.Load())
}
