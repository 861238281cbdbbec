package storage

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"io"
	"io/fs"
	"os"
	"runtime"

	"github.com/klauspost/compress/zstd"

	"github.com/1F47E/go-monoreel/internal/bits"
	cfg "github.com/1F47E/go-monoreel/internal/config"
	"github.com/1F47E/go-monoreel/internal/encoder"
	"github.com/1F47E/go-monoreel/internal/framer"
	"github.com/1F47E/go-monoreel/internal/logger"
	"github.com/1F47E/go-monoreel/internal/meta"
	"github.com/1F47E/go-monoreel/internal/stream"
)

// bundle layout inside a zstd frame
//
//	magic   4
//	header  SizeMetadata
//	frames  8, big endian
//	frame   ceil(width*height/8) bytes each, one bit per pixel, row-major
const bundleMagic = "MRB1"

// ErrCorruptBundle is returned when a bundle file can not be parsed.
var ErrCorruptBundle = errors.New("corrupt bundle")

// BundleStore keeps a stream in a single zstd compressed file.
// Pixels are stored as bits, frames read back as pure black and white.
// The encoder sets the frame geometry and threshold of the bundle.
type BundleStore struct {
	Path    string
	encoder *encoder.FrameEncoder
}

func NewBundleStore(path string, enc *encoder.FrameEncoder) *BundleStore {
	return &BundleStore{Path: path, encoder: enc}
}

func (b *BundleStore) Write(ctx context.Context, s *stream.Stream) error {
	log := logger.Log.WithField("scope", "bundle store")

	if s == nil || s.Header.IsZero() {
		return fmt.Errorf("%w: nothing to write", stream.ErrEmptyFrameSequence)
	}
	file, err := os.Create(b.Path)
	if err != nil {
		return fmt.Errorf("cannot create bundle %s: %w", b.Path, err)
	}
	defer file.Close()

	enc, err := zstd.NewWriter(file, zstd.WithEncoderConcurrency(runtime.NumCPU()))
	if err != nil {
		return err
	}
	if err := b.writeTo(ctx, enc, s); err != nil {
		enc.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	log.Debugf("Wrote %d frames to %s", s.Len(), b.Path)
	return file.Close()
}

func (b *BundleStore) writeTo(ctx context.Context, w io.Writer, s *stream.Stream) error {
	if _, err := io.WriteString(w, bundleMagic); err != nil {
		return err
	}
	if _, err := w.Write(s.Header.Marshal()); err != nil {
		return err
	}
	count := make([]byte, 8)
	binary.BigEndian.PutUint64(count, uint64(s.Len()))
	if _, err := w.Write(count); err != nil {
		return err
	}
	for i, img := range s.Frames {
		if err := ctx.Err(); err != nil {
			return err
		}
		packed, err := b.packFrame(i, img)
		if err != nil {
			return err
		}
		if _, err := w.Write(packed); err != nil {
			return err
		}
	}
	return nil
}

func (b *BundleStore) Read(ctx context.Context) (*stream.Stream, error) {
	file, err := os.Open(b.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: bundle %s", ErrNotFound, b.Path)
		}
		return nil, err
	}
	defer file.Close()

	dec, err := zstd.NewReader(bufio.NewReader(file))
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	return b.readFrom(ctx, dec)
}

func (b *BundleStore) readFrom(ctx context.Context, r io.Reader) (*stream.Stream, error) {
	head := make([]byte, len(bundleMagic)+cfg.SizeMetadata+8)
	if _, err := io.ReadFull(r, head); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty bundle %s", stream.ErrEmptyFrameSequence, b.Path)
		}
		return nil, fmt.Errorf("%w: %v", ErrCorruptBundle, err)
	}
	if string(head[:len(bundleMagic)]) != bundleMagic {
		return nil, fmt.Errorf("%w: bad magic", ErrCorruptBundle)
	}
	h, err := meta.Parse(head[len(bundleMagic) : len(bundleMagic)+cfg.SizeMetadata])
	if err != nil {
		return nil, err
	}
	// header geometry is checked before any frame buffer is sized from it
	width, height := b.encoder.Width(), b.encoder.Height()
	if int64(h.Width) != int64(width) || int64(h.Height) != int64(height) {
		return nil, fmt.Errorf("%w: bundle frames are %dx%d, decoder is %dx%d",
			encoder.ErrFrameShapeMismatch, h.Width, h.Height, width, height)
	}

	count := binary.BigEndian.Uint64(head[len(bundleMagic)+cfg.SizeMetadata:])
	if count > h.FrameCount {
		logger.Log.WithField("scope", "bundle store").
			Warnf("Bundle has %d frames, header expects %d, extra frames ignored", count, h.FrameCount)
		count = h.FrameCount
	}

	// count comes from the file, frames grow as they are actually read
	var frames []image.Image
	var packed []byte
	for i := uint64(0); i < count; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if packed == nil {
			packed = make([]byte, packedSize(width, height))
		}
		if _, err := io.ReadFull(r, packed); err != nil {
			return nil, fmt.Errorf("frame %d: %w: %v", i, framer.ErrTruncatedStream, err)
		}
		frames = append(frames, unpackFrame(packed, width, height))
	}
	return &stream.Stream{Header: h, Frames: frames}, nil
}

func packedSize(width, height int) int {
	return (width*height + 7) / 8
}

// packFrame reads the frame with the configured threshold, one bit per pixel
func (b *BundleStore) packFrame(idx int, img image.Image) ([]byte, error) {
	frameBits, err := b.encoder.DecodeFrame(idx, img)
	if err != nil {
		return nil, err
	}
	return bits.BitsToBytes(bits.Pad(frameBits, 8))
}

func unpackFrame(packed []byte, width, height int) *image.Gray {
	frameBits := bits.BytesToBits(packed)
	img := image.NewGray(image.Rect(0, 0, width, height))
	for i := range img.Pix {
		if frameBits[i] {
			img.Pix[i] = 255
		}
	}
	return img
}
