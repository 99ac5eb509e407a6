package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Detector finds face landmarks in an encoded image.
type Detector interface {
	Detect(ctx context.Context, img []byte) (Detection, error)
}

var ErrPoolExhausted = errors.New("no landmark workers left")

// CrashError carries the stderr captured from a worker that died.
type CrashError struct {
	ID   int
	Err  error
	Logs string
}

func (e *CrashError) Error() string { return fmt.Sprintf("worker %d crashed: %v", e.ID, e.Err) }

func (e *CrashError) Unwrap() error { return e.Err }

// Pool hands requests to a fixed set of worker processes, replacing any
// worker that breaks. It is safe for concurrent use.
type Pool struct {
	spawn func(id int) (*PythonWorker, error)
	idle  chan *PythonWorker

	mu     sync.Mutex
	all    map[int]*PythonWorker
	nextID int
	dead   chan struct{}
	closed bool
}

// NewPool starts size workers running command.
func NewPool(size int, command string, timeout time.Duration) (*Pool, error) {
	return newPool(size, func(id int) (*PythonWorker, error) {
		w, err := NewPythonWorker(id, command)
		if err != nil {
			return nil, err
		}
		w.Timeout = timeout
		return w, nil
	})
}

func newPool(size int, spawn func(id int) (*PythonWorker, error)) (*Pool, error) {
	if size < 1 {
		size = 1
	}
	p := &Pool{
		spawn: spawn,
		idle:  make(chan *PythonWorker, size),
		all:   make(map[int]*PythonWorker, size),
		dead:  make(chan struct{}),
	}
	for i := 0; i < size; i++ {
		w, err := p.start()
		if err != nil {
			p.Close()
			return nil, err
		}
		p.idle <- w
	}
	return p, nil
}

func (p *Pool) start() (*PythonWorker, error) {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.mu.Unlock()

	w, err := p.spawn(id)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	p.all[id] = w
	p.mu.Unlock()
	return w, nil
}

func (p *Pool) Detect(ctx context.Context, img []byte) (Detection, error) {
	var w *PythonWorker
	select {
	case w = <-p.idle:
	case <-p.dead:
		return Detection{}, ErrPoolExhausted
	case <-ctx.Done():
		return Detection{}, ctx.Err()
	}

	det, err := w.ProcessFrame(ctx, img)
	if cerr := ctx.Err(); cerr != nil && errors.Is(err, cerr) {
		// The request is still in flight on the pipe, so the worker is out
		// of sync. It is retired without a replacement.
		w.Kill()
		p.mu.Lock()
		delete(p.all, w.ID)
		p.markDeadLocked()
		p.mu.Unlock()
		logrus.WithField("worker", w.ID).Debug("landmark worker retired after cancellation")
		return Detection{}, cerr
	}
	if !Broken(err) {
		p.idle <- w
		return det, err
	}

	crash := &CrashError{ID: w.ID, Err: err}
	if w.Cmd != nil {
		crash.Logs = w.Cmd.Stderr.String()
	}
	w.Kill()
	logrus.WithError(err).WithField("worker", w.ID).Warn("landmark worker broke, restarting")

	p.mu.Lock()
	delete(p.all, w.ID)
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return Detection{}, crash
	}

	nw, serr := p.start()
	if serr != nil {
		logrus.WithError(serr).Error("landmark worker restart failed")
		p.mu.Lock()
		p.markDeadLocked()
		p.mu.Unlock()
		return Detection{}, crash
	}
	p.idle <- nw
	return Detection{}, crash
}

// markDeadLocked closes dead once no worker is left. p.mu must be held.
func (p *Pool) markDeadLocked() {
	if len(p.all) > 0 {
		return
	}
	select {
	case <-p.dead:
	default:
		close(p.dead)
	}
}

// Close stops every worker.
func (p *Pool) Close() {
	p.mu.Lock()
	p.closed = true
	workers := make([]*PythonWorker, 0, len(p.all))
	for _, w := range p.all {
		workers = append(workers, w)
	}
	p.all = map[int]*PythonWorker{}
	p.mu.Unlock()

	for _, w := range workers {
		if err := w.Close(); err != nil {
			logrus.WithError(err).WithField("worker", w.ID).Debug("worker exit")
		}
	}
}
