package workers

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/1F47E/go-monoreel/internal/encoder"
	"github.com/1F47E/go-monoreel/internal/job"
	"github.com/1F47E/go-monoreel/internal/logger"
)

var log = logger.Log

type Worker struct {
	ctx     context.Context
	encoder *encoder.FrameEncoder
	count   int
	// called after every finished job, may be nil
	onDone func()
}

func NewWorker(ctx context.Context, enc *encoder.FrameEncoder, count int) *Worker {
	if count < 1 {
		count = 1
	}
	return &Worker{
		ctx:     ctx,
		encoder: enc,
		count:   count,
	}
}

// OnDone registers a progress callback, it is called from worker goroutines
func (w *Worker) OnDone(fn func()) {
	w.onDone = fn
}

// EncodeAll renders every chunk into a frame. Frame i always holds chunk i.
func (w *Worker) EncodeAll(chunks [][]bool) ([]image.Image, error) {
	res := job.NewResults[image.Image](len(chunks))
	jobs := make(chan job.JobEnc, w.count)

	wg := sync.WaitGroup{}
	for i := 0; i < w.count; i++ {
		wg.Add(1)
		i := i
		go func() {
			defer wg.Done()
			w.WorkerEncode(i+1, jobs, res)
		}()
	}

	err := w.feed(len(chunks), func(i int) bool {
		select {
		case <-w.ctx.Done():
			return false
		case jobs <- job.JobEnc{Chunk: chunks[i], Idx: i}:
			return true
		}
	})
	close(jobs)
	wg.Wait()
	if err != nil {
		return nil, err
	}
	if err := w.ctx.Err(); err != nil {
		return nil, err
	}
	if err := res.Err(); err != nil {
		return nil, err
	}
	return res.Out, nil
}

// DecodeAll reads bits back from every frame. Chunk i always comes from frame i.
func (w *Worker) DecodeAll(frames []image.Image) ([][]bool, error) {
	res := job.NewResults[[]bool](len(frames))
	jobs := make(chan job.JobDec, w.count)

	wg := sync.WaitGroup{}
	for i := 0; i < w.count; i++ {
		wg.Add(1)
		i := i
		go func() {
			defer wg.Done()
			w.WorkerDecode(i+1, jobs, res)
		}()
	}

	err := w.feed(len(frames), func(i int) bool {
		select {
		case <-w.ctx.Done():
			return false
		case jobs <- job.JobDec{Frame: frames[i], Idx: i}:
			return true
		}
	})
	close(jobs)
	wg.Wait()
	if err != nil {
		return nil, err
	}
	if err := w.ctx.Err(); err != nil {
		return nil, err
	}
	if err := res.Err(); err != nil {
		return nil, err
	}
	return res.Out, nil
}

// feed sends n jobs in index order, stops when send returns false
func (w *Worker) feed(n int, send func(i int) bool) error {
	for i := 0; i < n; i++ {
		if !send(i) {
			return fmt.Errorf("stopped at job %d/%d: %w", i, n, w.ctx.Err())
		}
	}
	return nil
}

func (w *Worker) WorkerEncode(id int, jobs <-chan job.JobEnc, res *job.Results[image.Image]) {
	name := fmt.Sprintf("WorkerEncode #%d", id)
	log.Debugf("%s started", name)
	defer log.Debugf("%s finished", name)

	for {
		select {
		case <-w.ctx.Done():
			return
		case j, ok := <-jobs:
			if !ok {
				return
			}
			now := time.Now()
			img, err := w.encoder.EncodeFrame(j.Idx, j.Chunk)
			res.Set(j.Idx, img, err)
			log.Debugf("%s %s done. Took time: %s", name, j.Print(), time.Since(now))
			w.done()
		}
	}
}

func (w *Worker) WorkerDecode(id int, jobs <-chan job.JobDec, res *job.Results[[]bool]) {
	name := fmt.Sprintf("WorkerDecode #%d", id)
	log.Debugf("%s started", name)
	defer log.Debugf("%s finished", name)

	for {
		select {
		case <-w.ctx.Done():
			return
		case j, ok := <-jobs:
			if !ok {
				return
			}
			now := time.Now()
			chunk, err := w.encoder.DecodeFrame(j.Idx, j.Frame)
			res.Set(j.Idx, chunk, err)
			log.Debugf("%s frame %d done. Took time: %s", name, j.Idx, time.Since(now))
			w.done()
		}
	}
}

func (w *Worker) done() {
	if w.onDone != nil {
		w.onDone()
	}
}
