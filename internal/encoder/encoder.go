package encoder

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	cfg "github.com/1F47E/go-monoreel/internal/config"
	"github.com/1F47E/go-monoreel/internal/logger"
)

var (
	// ErrInvalidGeometry is returned for a non positive frame width or height.
	ErrInvalidGeometry = errors.New("invalid frame geometry")

	// ErrFrameShapeMismatch is returned when a frame size differs from the configured geometry.
	ErrFrameShapeMismatch = errors.New("frame shape mismatch")

	// ErrChunkSize is returned when a chunk does not hold exactly one frame of bits.
	ErrChunkSize = errors.New("chunk size does not match frame capacity")
)

const (
	black = 0
	white = 255
)

type FrameEncoder struct {
	width     int
	height    int
	sizeBits  int
	threshold uint8
	margin    uint8
}

type Option func(*FrameEncoder)

// WithThreshold sets the luma cutoff, pixels at or above it decode as 1
func WithThreshold(t uint8) Option {
	return func(f *FrameEncoder) {
		f.threshold = t
	}
}

// WithMargin sets the luma distance from the threshold reported as marginal
func WithMargin(m uint8) Option {
	return func(f *FrameEncoder) {
		f.margin = m
	}
}

func NewFrameEncoder(width, height int, opts ...Option) (*FrameEncoder, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidGeometry, width, height)
	}
	f := &FrameEncoder{
		width:     width,
		height:    height,
		sizeBits:  width * height,
		threshold: cfg.Threshold,
		margin:    cfg.ThresholdMargin,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

func (f *FrameEncoder) Width() int    { return f.width }
func (f *FrameEncoder) Height() int   { return f.height }
func (f *FrameEncoder) Capacity() int { return f.sizeBits }

// EncodeFrame renders one chunk as a black and white frame, bit 1 is white.
// idx is only used to name the chunk in errors.
func (f *FrameEncoder) EncodeFrame(idx int, chunk []bool) (*image.Gray, error) {
	if len(chunk) != f.sizeBits {
		return nil, fmt.Errorf("chunk %d: %w: got %d bits, want %d", idx, ErrChunkSize, len(chunk), f.sizeBits)
	}

	img := image.NewGray(image.Rect(0, 0, f.width, f.height))
	// image.Gray stores pixels row-major with Stride == width for a fresh image,
	// so the chunk index maps straight to Pix
	for i, bit := range chunk {
		if bit {
			img.Pix[i] = white
		} else {
			img.Pix[i] = black
		}
	}
	return img, nil
}

// DecodeFrame reads one bit per pixel back from a possibly degraded frame
func (f *FrameEncoder) DecodeFrame(idx int, img image.Image) ([]bool, error) {
	log := logger.Log.WithField("scope", "frame decoder")

	if img == nil {
		return nil, fmt.Errorf("frame %d: %w: missing frame", idx, ErrFrameShapeMismatch)
	}
	b := img.Bounds()
	if b.Dx() != f.width || b.Dy() != f.height {
		return nil, fmt.Errorf("frame %d: %w: got %dx%d, want %dx%d",
			idx, ErrFrameShapeMismatch, b.Dx(), b.Dy(), f.width, f.height)
	}

	fileBits := make([]bool, f.sizeBits)
	var marginal int
	writeIdx := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			luma := f.luma(img, x, y)
			fileBits[writeIdx] = luma >= f.threshold
			if f.isMarginal(luma) {
				marginal++
			}
			writeIdx++
		}
	}

	if marginal > 0 {
		log.Warnf("Marginal pixels (%d) decoded in frame %d", marginal, idx)
	}
	return fileBits, nil
}

func (f *FrameEncoder) luma(img image.Image, x, y int) uint8 {
	// fast path for frames we produced ourselves or read back as grayscale
	if g, ok := img.(*image.Gray); ok {
		return g.GrayAt(x, y).Y
	}
	return color.GrayModel.Convert(img.At(x, y)).(color.Gray).Y
}

func (f *FrameEncoder) isMarginal(luma uint8) bool {
	d := int(luma) - int(f.threshold)
	if d < 0 {
		d = -d
	}
	// pure black and white sit at least 127 away from a mid threshold
	return d < int(f.margin)
}
