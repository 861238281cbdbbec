package workers

import (
	"context"
	"errors"
	"image"
	"math/rand"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/1F47E/go-monoreel/internal/encoder"
)

func newWorker(t *testing.T, ctx context.Context, count int) *Worker {
	t.Helper()
	enc, err := encoder.NewFrameEncoder(8, 4)
	if err != nil {
		t.Fatalf("NewFrameEncoder: %v", err)
	}
	return NewWorker(ctx, enc, count)
}

func randomChunks(n, size int) [][]bool {
	rnd := rand.New(rand.NewSource(int64(n)))
	chunks := make([][]bool, n)
	for i := range chunks {
		chunks[i] = make([]bool, size)
		for j := range chunks[i] {
			chunks[i][j] = rnd.Intn(2) == 1
		}
	}
	return chunks
}

func TestEncodeDecodeAllKeepsOrder(t *testing.T) {
	for _, count := range []int{1, 3, 16} {
		w := newWorker(t, context.Background(), count)
		var calls int64
		w.OnDone(func() { atomic.AddInt64(&calls, 1) })

		chunks := randomChunks(50, 32)
		frames, err := w.EncodeAll(chunks)
		if err != nil {
			t.Fatalf("EncodeAll: %v", err)
		}
		if len(frames) != len(chunks) {
			t.Fatalf("got %d frames", len(frames))
		}
		got, err := w.DecodeAll(frames)
		if err != nil {
			t.Fatalf("DecodeAll: %v", err)
		}
		if !reflect.DeepEqual(got, chunks) {
			t.Errorf("workers %d: order or content changed", count)
		}
		if atomic.LoadInt64(&calls) != 100 {
			t.Errorf("progress callback called %d times, want 100", calls)
		}
	}
}

func TestEncodeAllEmpty(t *testing.T) {
	w := newWorker(t, context.Background(), 4)
	frames, err := w.EncodeAll(nil)
	if err != nil {
		t.Fatalf("EncodeAll: %v", err)
	}
	if len(frames) != 0 {
		t.Errorf("got %d frames", len(frames))
	}
}

func TestDecodeAllLowestIndexError(t *testing.T) {
	w := newWorker(t, context.Background(), 4)
	frames := make([]image.Image, 10)
	for i := range frames {
		frames[i] = image.NewGray(image.Rect(0, 0, 8, 4))
	}
	frames[7] = image.NewGray(image.Rect(0, 0, 8, 5))
	frames[3] = image.NewGray(image.Rect(0, 0, 7, 4))

	_, err := w.DecodeAll(frames)
	if !errors.Is(err, encoder.ErrFrameShapeMismatch) {
		t.Fatalf("got %v, want ErrFrameShapeMismatch", err)
	}
	if !strings.HasPrefix(err.Error(), "frame 3:") {
		t.Errorf("error does not name frame 3: %v", err)
	}
}

func TestEncodeAllCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w := newWorker(t, ctx, 2)

	_, err := w.EncodeAll(randomChunks(10, 32))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}
