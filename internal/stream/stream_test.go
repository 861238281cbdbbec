package stream

import (
	"errors"
	"image"
	"reflect"
	"testing"

	"github.com/1F47E/go-monoreel/internal/encoder"
	"github.com/1F47E/go-monoreel/internal/meta"
)

func TestEmbedExtractHeader(t *testing.T) {
	enc, err := encoder.NewFrameEncoder(64, 32)
	if err != nil {
		t.Fatalf("NewFrameEncoder: %v", err)
	}
	h := meta.New([]byte("payload"), enc.Capacity())
	h.SetGeometry(64, 32)
	h.SetFilename("payload.txt")
	payloadFrame := image.NewGray(image.Rect(0, 0, 64, 32))
	s := &Stream{Header: h, Frames: []image.Image{payloadFrame}}

	frames, err := EmbedHeader(enc, s)
	if err != nil {
		t.Fatalf("EmbedHeader: %v", err)
	}
	if len(frames) != 2 {
		t.Fatalf("got %d frames, want 2", len(frames))
	}

	got, err := ExtractHeader(enc, frames)
	if err != nil {
		t.Fatalf("ExtractHeader: %v", err)
	}
	if !reflect.DeepEqual(got.Header, h) {
		t.Errorf("got %+v, want %+v", got.Header, h)
	}
	if got.Len() != 1 || got.Frames[0] != payloadFrame {
		t.Errorf("payload frames changed")
	}
}

func TestEmbedHeaderTooSmall(t *testing.T) {
	enc, err := encoder.NewFrameEncoder(4, 4)
	if err != nil {
		t.Fatalf("NewFrameEncoder: %v", err)
	}
	h := meta.New([]byte("AB"), enc.Capacity())
	h.SetGeometry(4, 4)

	_, err = EmbedHeader(enc, &Stream{Header: h})
	if !errors.Is(err, meta.ErrHeaderTooLarge) {
		t.Errorf("got %v, want ErrHeaderTooLarge", err)
	}
}

func TestExtractHeaderErrors(t *testing.T) {
	enc, err := encoder.NewFrameEncoder(64, 32)
	if err != nil {
		t.Fatalf("NewFrameEncoder: %v", err)
	}

	if _, err := ExtractHeader(enc, nil); !errors.Is(err, ErrEmptyFrameSequence) {
		t.Errorf("got %v, want ErrEmptyFrameSequence", err)
	}

	blank := []image.Image{image.NewGray(image.Rect(0, 0, 64, 32))}
	if _, err := ExtractHeader(enc, blank); !errors.Is(err, meta.ErrCorruptHeader) {
		t.Errorf("got %v, want ErrCorruptHeader", err)
	}

	wrong := []image.Image{image.NewGray(image.Rect(0, 0, 32, 64))}
	if _, err := ExtractHeader(enc, wrong); !errors.Is(err, encoder.ErrFrameShapeMismatch) {
		t.Errorf("got %v, want ErrFrameShapeMismatch", err)
	}

	if _, err := EmbedHeader(enc, nil); !errors.Is(err, ErrEmptyFrameSequence) {
		t.Errorf("got %v, want ErrEmptyFrameSequence", err)
	}
}
