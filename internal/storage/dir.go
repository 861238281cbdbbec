package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	cfg "github.com/1F47E/go-monoreel/internal/config"
	"github.com/1F47E/go-monoreel/internal/logger"
	"github.com/1F47E/go-monoreel/internal/meta"
	"github.com/1F47E/go-monoreel/internal/stream"
)

// DirStore keeps a stream as a directory of frame images plus a header sidecar
type DirStore struct {
	Dir    string
	Format string
}

func NewDirStore(dir, format string) *DirStore {
	if format == "" {
		format = cfg.FormatPNG
	}
	return &DirStore{Dir: dir, Format: format}
}

func (d *DirStore) Write(ctx context.Context, s *stream.Stream) error {
	log := logger.Log.WithField("scope", "dir store")

	if s == nil || s.Header.IsZero() {
		return fmt.Errorf("%w: nothing to write", stream.ErrEmptyFrameSequence)
	}
	if err := os.MkdirAll(d.Dir, os.ModePerm); err != nil {
		return fmt.Errorf("cannot create frames dir %s: %w", d.Dir, err)
	}
	// frames of a previous stream would be read back as extra frames
	if err := d.clean(); err != nil {
		return err
	}
	if err := WriteFrames(ctx, d.Dir, s.Frames, d.Format); err != nil {
		return err
	}
	headerPath := filepath.Join(d.Dir, cfg.FileHeader)
	if err := os.WriteFile(headerPath, s.Header.Marshal(), 0o644); err != nil {
		return fmt.Errorf("cannot write header %s: %w", headerPath, err)
	}
	log.Debugf("Wrote %d frames to %s", s.Len(), d.Dir)
	return nil
}

func (d *DirStore) Read(ctx context.Context) (*stream.Stream, error) {
	info, err := os.Stat(d.Dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: frames dir %s", ErrNotFound, d.Dir)
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", d.Dir)
	}

	raw, err := os.ReadFile(filepath.Join(d.Dir, cfg.FileHeader))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: no %s in %s", stream.ErrEmptyFrameSequence, cfg.FileHeader, d.Dir)
		}
		return nil, err
	}
	h, err := meta.Parse(raw)
	if err != nil {
		return nil, err
	}
	frames, err := ReadFrames(ctx, d.Dir)
	if err != nil {
		return nil, err
	}
	return &stream.Stream{Header: h, Frames: frames}, nil
}

func (d *DirStore) clean() error {
	paths, err := filepath.Glob(filepath.Join(d.Dir, "frame_*"))
	if err != nil {
		return err
	}
	for _, p := range paths {
		if err := os.Remove(p); err != nil {
			return fmt.Errorf("cannot remove old frame %s: %w", p, err)
		}
	}
	return nil
}
