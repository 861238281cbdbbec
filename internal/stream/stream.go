// Package stream holds the encoded form of a payload: a header and ordered frames.
package stream

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/1F47E/go-monoreel/internal/encoder"
	"github.com/1F47E/go-monoreel/internal/meta"
)

// ErrEmptyFrameSequence is returned when a stream has no header or frames where some are required.
var ErrEmptyFrameSequence = errors.New("empty frame sequence")

// Stream is an encoded payload. Frames[i] holds chunk i of the payload bits.
type Stream struct {
	Header meta.Header
	Frames []image.Image
}

func (s *Stream) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Frames)
}

// Store persists a stream. Implementations must keep frame order.
type Store interface {
	Write(ctx context.Context, s *Stream) error
	Read(ctx context.Context) (*Stream, error)
}

// EmbedHeader returns the frames with the header rendered as a leading frame,
// for containers that can not carry a sidecar.
func EmbedHeader(enc *encoder.FrameEncoder, s *Stream) ([]image.Image, error) {
	if s == nil || s.Header.IsZero() {
		return nil, fmt.Errorf("%w: no header to embed", ErrEmptyFrameSequence)
	}
	headerBits, err := s.Header.Bits(enc.Capacity())
	if err != nil {
		return nil, err
	}
	img, err := enc.EncodeFrame(0, headerBits)
	if err != nil {
		return nil, fmt.Errorf("header frame: %w", err)
	}
	frames := make([]image.Image, 0, len(s.Frames)+1)
	frames = append(frames, img)
	frames = append(frames, s.Frames...)
	return frames, nil
}

// ExtractHeader is the reverse of EmbedHeader
func ExtractHeader(enc *encoder.FrameEncoder, frames []image.Image) (*Stream, error) {
	if len(frames) == 0 {
		return nil, fmt.Errorf("%w: no header frame", ErrEmptyFrameSequence)
	}
	headerBits, err := enc.DecodeFrame(0, frames[0])
	if err != nil {
		return nil, fmt.Errorf("header frame: %w", err)
	}
	h, err := meta.ParseBits(headerBits)
	if err != nil {
		return nil, fmt.Errorf("header frame: %w", err)
	}
	return &Stream{Header: h, Frames: frames[1:]}, nil
}
