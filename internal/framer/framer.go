// Package framer splits a payload into fixed size frame chunks and joins them back.
//
// The last chunk is padded with zero bits. Padding is never detected by looking
// at trailing bits: the header records the exact payload length and Join cuts
// the bit stream at that boundary, so payloads ending in zero bits survive.
package framer

import (
	"errors"
	"fmt"

	"github.com/1F47E/go-monoreel/internal/bits"
	"github.com/1F47E/go-monoreel/internal/logger"
	"github.com/1F47E/go-monoreel/internal/meta"
)

var (
	// ErrInvalidCapacity is returned for a non positive frame capacity.
	ErrInvalidCapacity = errors.New("invalid frame capacity")

	// ErrCapacityMismatch is returned when the header was written for another frame capacity.
	ErrCapacityMismatch = errors.New("frame capacity mismatch")

	// ErrChunkSize is returned when a chunk does not hold exactly capacity bits.
	ErrChunkSize = errors.New("chunk size does not match frame capacity")

	// ErrTruncatedStream is returned when the chunks hold fewer bits than the header promises.
	ErrTruncatedStream = errors.New("truncated stream")
)

type Framer struct {
	capacity int
}

func New(capacity int) (*Framer, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCapacity, capacity)
	}
	return &Framer{capacity: capacity}, nil
}

func (f *Framer) Capacity() int {
	return f.capacity
}

// Split never fails. An empty payload gives a header with zero chunks.
func (f *Framer) Split(payload []byte) (meta.Header, [][]bool) {
	log := logger.Log.WithField("scope", "framer split")

	h := meta.New(payload, f.capacity)
	stream := bits.Pad(bits.BytesToBits(payload), f.capacity)

	chunks := make([][]bool, 0, h.FrameCount)
	for s := 0; s < len(stream); s += f.capacity {
		// full slice expression so a chunk can not grow into its neighbour
		chunks = append(chunks, stream[s:s+f.capacity:s+f.capacity])
	}
	log.Debugf("Split %d bytes into %d chunks, padding %d bits",
		len(payload), len(chunks), len(stream)-len(payload)*8)
	return h, chunks
}

func (f *Framer) Join(h meta.Header, chunks [][]bool) ([]byte, error) {
	log := logger.Log.WithField("scope", "framer join")

	if h.FrameCapacity != uint64(f.capacity) {
		return nil, fmt.Errorf("%w: header has %d bits per frame, framer %d", ErrCapacityMismatch, h.FrameCapacity, f.capacity)
	}

	need := h.OriginalLength * 8
	have := uint64(len(chunks)) * uint64(f.capacity)
	if have < need {
		return nil, fmt.Errorf("%w: got %d frames, header needs %d (%d of %d bits)",
			ErrTruncatedStream, len(chunks), meta.FramesFor(h.OriginalLength, h.FrameCapacity), have, need)
	}

	stream := make([]bool, 0, need)
	for i, chunk := range chunks {
		if len(chunk) != f.capacity {
			return nil, fmt.Errorf("chunk %d: %w: got %d bits, want %d", i, ErrChunkSize, len(chunk), f.capacity)
		}
		left := need - uint64(len(stream))
		if left == 0 {
			// frames past the header length carry padding only
			log.Debugf("Ignoring chunk %d past the payload end", i)
			continue
		}
		if left < uint64(len(chunk)) {
			chunk = chunk[:left]
		}
		stream = append(stream, chunk...)
	}

	payload, err := bits.BitsToBytes(stream)
	if err != nil {
		return nil, err
	}
	if uint64(len(payload)) != h.OriginalLength {
		return nil, fmt.Errorf("%w: joined %d bytes, header says %d", ErrTruncatedStream, len(payload), h.OriginalLength)
	}
	log.Debugf("Joined %d chunks into %d bytes", len(chunks), len(payload))
	return payload, nil
}
