// Package pipeline turns encoded images into analysis results: landmark
// detection, the cascade fallback, caching and frame fan-out.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/andresmejia3/willis/internal/cache"
	"github.com/andresmejia3/willis/internal/cascade"
	"github.com/andresmejia3/willis/internal/types"
	"github.com/andresmejia3/willis/internal/willis"
	"github.com/andresmejia3/willis/internal/worker"
)

// Outcome is one processed image.
type Outcome struct {
	Result    willis.Result
	Detection worker.Detection
	Cached    bool
}

// Pipeline is safe for concurrent use when its parts are.
type Pipeline struct {
	Detector worker.Detector
	Analyzer *willis.Analyzer

	// Cascade, when set, is tried locally if the landmark worker finds no face.
	Cascade cascade.Detector
	Cache   cache.Cache

	fpOnce sync.Once
	fp     string
	mesh   bool
}

// New builds a pipeline. keepMesh must match the analyzer's WithMesh option
// so cached entries stay distinct.
func New(det worker.Detector, a *willis.Analyzer, keepMesh bool) *Pipeline {
	return &Pipeline{Detector: det, Analyzer: a, Cache: cache.Nop{}, mesh: keepMesh}
}

func (p *Pipeline) fingerprint() string {
	p.fpOnce.Do(func() {
		p.fp = cache.Fingerprint(p.Analyzer.Thresholds(), p.Analyzer.Estimator().Name(), p.mesh)
	})
	return p.fp
}

// Process analyzes one encoded image.
func (p *Pipeline) Process(ctx context.Context, img []byte) (Outcome, error) {
	key := cache.Key(img, p.fingerprint())
	if p.Cache != nil {
		if res, ok, err := p.Cache.Get(ctx, key); err != nil {
			logrus.WithError(err).Warn("cache lookup failed")
		} else if ok {
			return Outcome{Result: res, Cached: true}, nil
		}
	}

	det, err := p.Detector.Detect(ctx, img)
	if errors.Is(err, worker.ErrNoFace) && p.Cascade != nil {
		det, err = p.detectCascade(img)
	}
	if err != nil {
		return Outcome{}, err
	}

	res, err := p.analyze(det)
	if err != nil {
		return Outcome{Detection: det}, err
	}

	if p.Cache != nil {
		if err := p.Cache.Set(ctx, key, res); err != nil {
			logrus.WithError(err).Warn("cache store failed")
		}
	}
	return Outcome{Result: res, Detection: det}, nil
}

func (p *Pipeline) detectCascade(img []byte) (worker.Detection, error) {
	boxes, err := p.Cascade.Detect(img)
	if errors.Is(err, cascade.ErrNoFace) {
		return worker.Detection{}, worker.ErrNoFace
	}
	if err != nil {
		return worker.Detection{}, fmt.Errorf("cascade fallback: %w", err)
	}
	logrus.Debug("landmarks unavailable, using local cascade boxes")
	return worker.Detection{Width: boxes.Width, Height: boxes.Height, Face: boxes.Face, Eye: boxes.Eye}, nil
}

func (p *Pipeline) analyze(det worker.Detection) (willis.Result, error) {
	if det.HasLandmarks() {
		return p.Analyzer.Analyze(det.Landmarks, det.Width, det.Height)
	}
	return willis.AnalyzeCascade(det.Face, det.Eye, det.Width, det.Height, p.Analyzer.Thresholds())
}

// Run fans tasks out over n goroutines and returns results in completion
// order. The output channel closes once tasks is drained or ctx ends.
func (p *Pipeline) Run(ctx context.Context, tasks <-chan types.FrameTask, n int) <-chan types.FrameResult {
	if n < 1 {
		n = 1
	}
	out := make(chan types.FrameResult, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range tasks {
				if ctx.Err() != nil {
					continue
				}
				o, err := p.Process(ctx, task.Data)
				r := types.FrameResult{Index: task.Index, Result: o.Result, Cached: o.Cached, Err: err}
				select {
				case out <- r:
				case <-ctx.Done():
				}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}
