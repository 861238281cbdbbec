package video

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	cfg "github.com/1F47E/go-monoreel/internal/config"
	"github.com/1F47E/go-monoreel/internal/encoder"
	"github.com/1F47E/go-monoreel/internal/logger"
	"github.com/1F47E/go-monoreel/internal/storage"
	"github.com/1F47E/go-monoreel/internal/stream"
)

// ErrNoFFmpeg is returned when the ffmpeg binary is not in PATH.
var ErrNoFFmpeg = errors.New("ffmpeg not found in PATH")

// Store keeps a stream in a video container. The header travels as the first frame,
// containers have no place for a sidecar.
type Store struct {
	Path      string
	Framerate int
	Codec     string
	PixFmt    string

	encoder *encoder.FrameEncoder
	bin     string
}

func NewStore(path string, enc *encoder.FrameEncoder) *Store {
	return &Store{
		Path:      path,
		Framerate: cfg.VideoFramerate,
		Codec:     cfg.VideoCodec,
		PixFmt:    cfg.VideoPixFmt,
		encoder:   enc,
		bin:       "ffmpeg",
	}
}

func (s *Store) Write(ctx context.Context, st *stream.Stream) error {
	log := logger.Log.WithField("scope", "video store")

	frames, err := stream.EmbedHeader(s.encoder, st)
	if err != nil {
		return err
	}
	tmpDir, err := os.MkdirTemp("", "monoreel-frames-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmpDir)

	if err = storage.WriteFrames(ctx, tmpDir, frames, cfg.FormatPNG); err != nil {
		return err
	}
	log.Debugf("Wrote %d frames to %s", len(frames), tmpDir)

	if err = s.EncodeFrames(ctx, tmpDir); err != nil {
		return fmt.Errorf("error encoding frames into video: %w", err)
	}
	return nil
}

func (s *Store) Read(ctx context.Context) (*stream.Stream, error) {
	if _, err := os.Stat(s.Path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: video %s", storage.ErrNotFound, s.Path)
		}
		return nil, err
	}
	tmpDir, err := os.MkdirTemp("", "monoreel-extract-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(tmpDir)

	if err = s.ExtractFrames(ctx, tmpDir); err != nil {
		return nil, fmt.Errorf("error extracting frames: %w", err)
	}
	frames, err := storage.ReadFrames(ctx, tmpDir)
	if err != nil {
		return nil, err
	}
	return stream.ExtractHeader(s.encoder, frames)
}

// call ffmpeg to encode frames into video
func (s *Store) EncodeFrames(ctx context.Context, dir string) error {
	args := []string{
		"-y",
		"-framerate", strconv.Itoa(s.Framerate),
		"-start_number", "0",
		"-i", filepath.Join(dir, cfg.FramePattern+"."+cfg.FormatPNG),
		"-c:v", s.Codec,
		"-pix_fmt", s.PixFmt,
		s.Path,
	}
	return s.run(ctx, args)
}

// call ffmpeg to decode the video into frames
func (s *Store) ExtractFrames(ctx context.Context, dir string) error {
	args := []string{
		"-y",
		"-i", s.Path,
		"-pix_fmt", cfg.VideoPixFmt,
		"-start_number", "0",
		filepath.Join(dir, cfg.FramePattern+"."+cfg.FormatPNG),
	}
	return s.run(ctx, args)
}

func (s *Store) run(ctx context.Context, args []string) error {
	bin, err := exec.LookPath(s.bin)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNoFFmpeg, err)
	}
	logger.Log.Debugf("Running ffmpeg command: %s %s", bin, strings.Join(args, " "))
	cmd := exec.CommandContext(ctx, bin, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, lastLine(out))
	}
	return nil
}

func lastLine(out []byte) string {
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	return lines[len(lines)-1]
}
