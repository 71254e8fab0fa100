package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/kozaktomas/facewatch/internal/faceapi"
	"github.com/kozaktomas/facewatch/internal/logger"
)

// ErrPoolClosed is returned by Submit after Close.
var ErrPoolClosed = errors.New("inference pool closed")

// Detector runs the face model on an encoded image
type Detector interface {
	Detect(ctx context.Context, imageData []byte) ([]faceapi.Detection, error)
}

// InferenceResult is the outcome of one Detect call.
type InferenceResult struct {
	Faces []faceapi.Detection
	Err   error
	Took  time.Duration
}

type inferenceJob struct {
	ctx    context.Context
	image  []byte
	result chan<- InferenceResult
}

// Pool runs inference on a fixed set of workers so the loop never calls the
// model directly.
type Pool struct {
	detector Detector
	jobs     chan inferenceJob
	stop     chan struct{}
	wg       sync.WaitGroup
	once     sync.Once
}

// NewPool starts workers goroutines. A non-positive count starts one.
func NewPool(d Detector, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	p := &Pool{
		detector: d,
		jobs:     make(chan inferenceJob),
		stop:     make(chan struct{}),
	}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker(i)
	}
	logger.Debug("inference pool started", "workers", workers)
	return p
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	for {
		select {
		case job := <-p.jobs:
			start := time.Now()
			faces, err := p.detector.Detect(job.ctx, job.image)
			job.result <- InferenceResult{Faces: faces, Err: err, Took: time.Since(start)}
		case <-p.stop:
			logger.Debug("inference worker stopping", "worker", id)
			return
		}
	}
}

// Submit hands an image to a free worker and returns a channel that receives
// exactly one result.
func (p *Pool) Submit(ctx context.Context, image []byte) (<-chan InferenceResult, error) {
	result := make(chan InferenceResult, 1)
	select {
	case p.jobs <- inferenceJob{ctx: ctx, image: image, result: result}:
		return result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.stop:
		return nil, ErrPoolClosed
	}
}

// Infer submits and waits for the result.
func (p *Pool) Infer(ctx context.Context, image []byte) InferenceResult {
	future, err := p.Submit(ctx, image)
	if err != nil {
		return InferenceResult{Err: err}
	}
	select {
	case res := <-future:
		return res
	case <-ctx.Done():
		return InferenceResult{Err: ctx.Err()}
	}
}

// Close stops the workers and waits for in-flight calls to return.
func (p *Pool) Close() {
	p.once.Do(func() { close(p.stop) })
	p.wg.Wait()
}
