package core

import (
	"context"
	"errors"
	"fmt"

	cfg "github.com/1F47E/go-monoreel/internal/config"
	"github.com/1F47E/go-monoreel/internal/encoder"
	"github.com/1F47E/go-monoreel/internal/framer"
	"github.com/1F47E/go-monoreel/internal/logger"
	"github.com/1F47E/go-monoreel/internal/stream"
	"github.com/1F47E/go-monoreel/internal/workers"
)

var (
	// ErrEmptyFrameSequence is returned when there is no header or frames to decode.
	ErrEmptyFrameSequence = stream.ErrEmptyFrameSequence

	// ErrChecksumMismatch is returned when the decoded payload does not match the header checksum.
	ErrChecksumMismatch = errors.New("payload checksum mismatch")
)

// Pipeline turns payloads into frame streams and back. It holds no per payload state.
type Pipeline struct {
	encoder *encoder.FrameEncoder
	framer  *framer.Framer
	worker  *workers.Worker
}

func NewPipeline(ctx context.Context, c cfg.Config) (*Pipeline, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	enc, err := encoder.NewFrameEncoder(c.Width, c.Height, encoder.WithThreshold(uint8(c.Threshold)))
	if err != nil {
		return nil, err
	}
	fr, err := framer.New(enc.Capacity())
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		encoder: enc,
		framer:  fr,
		worker:  workers.NewWorker(ctx, enc, c.Workers),
	}, nil
}

func (p *Pipeline) Encoder() *encoder.FrameEncoder {
	return p.encoder
}

// OnFrame is called after every encoded or decoded frame
func (p *Pipeline) OnFrame(fn func()) {
	p.worker.OnDone(fn)
}

// Encode splits the payload and renders every chunk as a frame.
// name is recorded in the header when not empty.
func (p *Pipeline) Encode(payload []byte, name string) (*stream.Stream, error) {
	log := logger.Log.WithField("scope", "pipeline encode")

	h, chunks := p.framer.Split(payload)
	h.SetGeometry(p.encoder.Width(), p.encoder.Height())
	if name != "" {
		h.SetFilename(name)
	}
	log.Debugf("Encoding %s", h.Print())

	frames, err := p.worker.EncodeAll(chunks)
	if err != nil {
		return nil, err
	}
	return &stream.Stream{Header: h, Frames: frames}, nil
}

// Decode returns the payload only when every frame decoded and the checksum matches.
func (p *Pipeline) Decode(s *stream.Stream) ([]byte, error) {
	log := logger.Log.WithField("scope", "pipeline decode")

	if s == nil || s.Header.IsZero() {
		return nil, fmt.Errorf("%w: stream has no header", ErrEmptyFrameSequence)
	}
	h := s.Header
	if h.Width != 0 && (int(h.Width) != p.encoder.Width() || int(h.Height) != p.encoder.Height()) {
		return nil, fmt.Errorf("%w: stream was encoded as %dx%d, decoder is %dx%d",
			encoder.ErrFrameShapeMismatch, h.Width, h.Height, p.encoder.Width(), p.encoder.Height())
	}
	if h.OriginalLength > 0 && s.Len() == 0 {
		return nil, fmt.Errorf("%w: header promises %d bytes", ErrEmptyFrameSequence, h.OriginalLength)
	}
	frames := s.Frames
	if uint64(len(frames)) > h.FrameCount {
		log.Warnf("Stream has %d frames, header expects %d, extra frames ignored", len(frames), h.FrameCount)
		frames = frames[:h.FrameCount]
	}

	chunks, err := p.worker.DecodeAll(frames)
	if err != nil {
		return nil, err
	}
	payload, err := p.framer.Join(h, chunks)
	if err != nil {
		return nil, err
	}
	if !h.Validate(payload) {
		return nil, fmt.Errorf("%w: %d bytes in %d frames", ErrChecksumMismatch, len(payload), len(frames))
	}
	log.Debugf("Decoded %s", h.Print())
	return payload, nil
}
