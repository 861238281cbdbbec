package core

import (
	"bytes"
	"context"
	"errors"
	"image"
	"math/rand"
	"testing"

	"github.com/1F47E/go-monoreel/internal/bits"
	cfg "github.com/1F47E/go-monoreel/internal/config"
	"github.com/1F47E/go-monoreel/internal/encoder"
	"github.com/1F47E/go-monoreel/internal/framer"
	"github.com/1F47E/go-monoreel/internal/stream"
)

func newPipeline(t *testing.T, w, h int) *Pipeline {
	t.Helper()
	c := cfg.Default()
	c.Width, c.Height = w, h
	c.Workers = 4
	p, err := NewPipeline(context.Background(), c)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	return p
}

func randomPayload(n int) []byte {
	b := make([]byte, n)
	rand.New(rand.NewSource(int64(n) + 11)).Read(b)
	return b
}

func TestPipelineRoundTrip(t *testing.T) {
	const w, h = 16, 8 // 128 bits, 16 bytes per frame
	capacityBytes := w * h / 8

	testCases := []struct {
		name       string
		size       int
		wantFrames int
	}{
		{name: "empty", size: 0, wantFrames: 0},
		{name: "single byte", size: 1, wantFrames: 1},
		{name: "one byte short of a chunk", size: capacityBytes - 1, wantFrames: 1},
		{name: "exactly one chunk", size: capacityBytes, wantFrames: 1},
		{name: "exact multiple", size: capacityBytes * 5, wantFrames: 5},
		{name: "random length", size: 1234, wantFrames: 78},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := newPipeline(t, w, h)
			payload := randomPayload(tc.size)

			st, err := p.Encode(payload, "payload.bin")
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			if st.Len() != tc.wantFrames {
				t.Fatalf("got %d frames, want %d", st.Len(), tc.wantFrames)
			}
			if st.Header.OriginalLength != uint64(tc.size) {
				t.Errorf("header length %d", st.Header.OriginalLength)
			}

			got, err := p.Decode(st)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if !bytes.Equal(got, payload) {
				t.Errorf("round trip mismatch")
			}
		})
	}
}

func TestPipelinePaddingReferenceGeometry(t *testing.T) {
	p := newPipeline(t, cfg.FrameWidth, cfg.FrameHeight)
	capacity := cfg.FrameWidth * cfg.FrameHeight
	payload := bytes.Repeat([]byte{0xff}, capacity/8+1)

	st, err := p.Encode(payload, "")
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if st.Len() != 2 {
		t.Fatalf("got %d frames, want 2", st.Len())
	}

	// second frame: one white byte then black padding
	last := st.Frames[1].(*image.Gray)
	for i, px := range last.Pix {
		want := uint8(0)
		if i < 8 {
			want = 255
		}
		if px != want {
			t.Fatalf("pixel %d is %d, want %d", i, px, want)
		}
	}

	got, err := p.Decode(st)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(got) != capacity/8+1 {
		t.Errorf("got %d bytes, want %d", len(got), capacity/8+1)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("payload mismatch")
	}
}

func TestPipelineAB(t *testing.T) {
	p := newPipeline(t, 4, 4)
	st, err := p.Encode([]byte("AB"), "")
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if st.Len() != 1 {
		t.Fatalf("got %d frames, want 1", st.Len())
	}

	chunk, err := p.Encoder().DecodeFrame(0, st.Frames[0])
	if err != nil {
		t.Fatalf("DecodeFrame: %v", err)
	}
	if got := bits.String(chunk); got != "0100000101000010" {
		t.Errorf("pixels %s", got)
	}
	if st.Header.OriginalLength != 2 {
		t.Errorf("header length %d", st.Header.OriginalLength)
	}

	got, err := p.Decode(st)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if string(got) != "AB" {
		t.Errorf("got %q", got)
	}
}

func TestPipelineNoisyFrames(t *testing.T) {
	p := newPipeline(t, 16, 8)
	payload := randomPayload(100)
	st, err := p.Encode(payload, "")
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	rnd := rand.New(rand.NewSource(5))
	for i, f := range st.Frames {
		src := f.(*image.Gray)
		noisy := image.NewGray(src.Bounds())
		for j, px := range src.Pix {
			d := rnd.Intn(81) - 40
			v := int(px) + d
			if v < 0 {
				v = -v
			}
			if v > 255 {
				v = 510 - v
			}
			noisy.Pix[j] = uint8(v)
		}
		st.Frames[i] = noisy
	}

	got, err := p.Decode(st)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("noise changed the payload")
	}
}

func TestPipelineTruncated(t *testing.T) {
	p := newPipeline(t, 16, 8)
	st, err := p.Encode(randomPayload(100), "")
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	st.Frames = st.Frames[:st.Len()-1]

	got, err := p.Decode(st)
	if !errors.Is(err, framer.ErrTruncatedStream) {
		t.Fatalf("got %v, want ErrTruncatedStream", err)
	}
	if got != nil {
		t.Errorf("partial payload returned")
	}
}

func TestPipelineShapeMismatch(t *testing.T) {
	p := newPipeline(t, 16, 8)
	st, err := p.Encode(randomPayload(40), "")
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	st.Frames[1] = image.NewGray(image.Rect(0, 0, 8, 16))

	_, err = p.Decode(st)
	if !errors.Is(err, encoder.ErrFrameShapeMismatch) {
		t.Fatalf("got %v, want ErrFrameShapeMismatch", err)
	}

	other := newPipeline(t, 8, 16)
	st2, err := p.Encode(randomPayload(40), "")
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if _, err := other.Decode(st2); !errors.Is(err, encoder.ErrFrameShapeMismatch) {
		t.Errorf("got %v, want ErrFrameShapeMismatch", err)
	}
}

func TestPipelineEmpty(t *testing.T) {
	p := newPipeline(t, 16, 8)

	if _, err := p.Decode(nil); !errors.Is(err, ErrEmptyFrameSequence) {
		t.Errorf("nil stream: got %v, want ErrEmptyFrameSequence", err)
	}
	if _, err := p.Decode(&stream.Stream{}); !errors.Is(err, ErrEmptyFrameSequence) {
		t.Errorf("no header: got %v, want ErrEmptyFrameSequence", err)
	}

	st, err := p.Encode(randomPayload(10), "")
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	st.Frames = nil
	if _, err := p.Decode(st); !errors.Is(err, ErrEmptyFrameSequence) {
		t.Errorf("no frames: got %v, want ErrEmptyFrameSequence", err)
	}
}

func TestPipelineChecksum(t *testing.T) {
	p := newPipeline(t, 16, 8)
	st, err := p.Encode(randomPayload(50), "")
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	// flip one payload pixel well past the threshold
	first := st.Frames[0].(*image.Gray)
	first.Pix[3] = 255 - first.Pix[3]

	if _, err := p.Decode(st); !errors.Is(err, ErrChecksumMismatch) {
		t.Errorf("got %v, want ErrChecksumMismatch", err)
	}
}

func TestPipelineExtraFramesIgnored(t *testing.T) {
	p := newPipeline(t, 16, 8)
	payload := randomPayload(20)
	st, err := p.Encode(payload, "")
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	// trailing frames are never decoded, even with the wrong shape
	st.Frames = append(st.Frames,
		image.NewGray(image.Rect(0, 0, 16, 8)),
		image.NewGray(image.Rect(0, 0, 3, 3)),
		nil,
	)

	got, err := p.Decode(st)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("payload mismatch")
	}
}

func TestNewPipelineInvalidConfig(t *testing.T) {
	c := cfg.Default()
	c.Width = 0
	if _, err := NewPipeline(context.Background(), c); !errors.Is(err, cfg.ErrInvalidConfig) {
		t.Errorf("got %v, want ErrInvalidConfig", err)
	}
}
