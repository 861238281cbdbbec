package config

import (
	"errors"
	"fmt"
	"runtime"
)

// NOTE: frame pixels are written from left to right, top to bottom, one bit per pixel
const (
	// reference geometry, 1280*720 = 921600 bits = 115200 bytes per frame
	FrameWidth  = 1280
	FrameHeight = 720

	// grayscale cutoff, bit is 1 when luma >= threshold
	Threshold = 128
	// luma distance from the threshold that is still decoded but reported as marginal
	ThresholdMargin = 40

	// all sizes are in bytes
	SizeMetadata = 256

	// meta
	MetadataMagic                = "MRL1"
	MetadataVersion              = 1
	MetadataMaxFilenameLen       = 192 // size left in the meta header
	MetadataFilenameCutDelimeter = "--"

	// video
	VideoFramerate = 30
	VideoCodec     = "ffv1"
	VideoPixFmt    = "gray"
	VideoExt       = ".mkv"

	// Path
	PathHistoryDir = "history"
	PathDecodedDir = "decoded"
	FileHeader     = "header.bin"
	FileBundleExt  = ".mrb"
	FramePattern   = "frame_%08d"
)

// Store kinds
const (
	StoreDir    = "dir"
	StoreBundle = "bundle"
	StoreVideo  = "video"
)

// Frame image formats for the dir store
const (
	FormatPNG = "png"
	FormatQOI = "qoi"
)

var ErrInvalidConfig = errors.New("invalid config")

// Config is filled by the cli layer, every path is explicit.
type Config struct {
	Width     int
	Height    int
	Threshold int
	Workers   int
	Store     string
	Format    string
	Plain     bool
	Debug     bool
}

func Default() Config {
	return Config{
		Width:     FrameWidth,
		Height:    FrameHeight,
		Threshold: Threshold,
		Workers:   runtime.NumCPU(),
		Store:     StoreVideo,
		Format:    FormatPNG,
	}
}

func (c Config) Capacity() int {
	return c.Width * c.Height
}

func (c Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("%w: frame geometry %dx%d must be positive", ErrInvalidConfig, c.Width, c.Height)
	}
	if c.Threshold < 1 || c.Threshold > 255 {
		return fmt.Errorf("%w: threshold %d out of range 1..255", ErrInvalidConfig, c.Threshold)
	}
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers count %d", ErrInvalidConfig, c.Workers)
	}
	switch c.Store {
	case StoreDir, StoreBundle, StoreVideo:
	default:
		return fmt.Errorf("%w: unknown store %q", ErrInvalidConfig, c.Store)
	}
	switch c.Format {
	case FormatPNG, FormatQOI:
	default:
		return fmt.Errorf("%w: unknown frame format %q", ErrInvalidConfig, c.Format)
	}
	return nil
}
