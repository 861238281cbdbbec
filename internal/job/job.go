package job

import (
	"fmt"
	"image"
)

// job for the encoding worker
type JobEnc struct {
	Chunk []bool
	Idx   int
}

// job for the decoding worker
type JobDec struct {
	Frame image.Image
	Idx   int
}

func (j JobEnc) Print() string {
	return fmt.Sprintf("JobEnc: Idx: %d, Chunk len: %d", j.Idx, len(j.Chunk))
}

func (j JobDec) Print() string {
	b := j.Frame.Bounds()
	return fmt.Sprintf("JobDec: Idx: %d, Frame: %dx%d", j.Idx, b.Dx(), b.Dy())
}

// Results collects per index outputs. Every slot is written by exactly one worker,
// so no locking is needed.
type Results[T any] struct {
	Out  []T
	Errs []error
}

func NewResults[T any](n int) *Results[T] {
	return &Results[T]{
		Out:  make([]T, n),
		Errs: make([]error, n),
	}
}

func (r *Results[T]) Set(idx int, v T, err error) {
	r.Out[idx] = v
	r.Errs[idx] = err
}

// Err returns the error of the lowest failed index
func (r *Results[T]) Err() error {
	for _, err := range r.Errs {
		if err != nil {
			return err
		}
	}
	return nil
}
