package storage

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/xfmoulet/qoi"

	cfg "github.com/1F47E/go-monoreel/internal/config"
	"github.com/1F47E/go-monoreel/internal/framer"
	"github.com/1F47E/go-monoreel/internal/logger"
)

// SaveFrame writes one frame image named by its index into dir
func SaveFrame(dir string, idx int, img image.Image, format string) error {
	filePath := filepath.Join(dir, fmt.Sprintf(cfg.FramePattern, idx)+"."+format)
	imgFile, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("cannot create frame file %s: %w", filePath, err)
	}
	defer imgFile.Close()

	switch format {
	case cfg.FormatQOI:
		err = qoi.Encode(imgFile, img)
	default:
		err = png.Encode(imgFile, img)
	}
	if err != nil {
		return fmt.Errorf("cannot encode frame %d to %s: %w", idx, filePath, err)
	}
	return imgFile.Close()
}

func FrameRead(filename string) (image.Image, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	if strings.HasSuffix(filename, "."+cfg.FormatQOI) {
		return qoi.Decode(file)
	}
	return png.Decode(file)
}

// ScanFrames lists frame files in dir ordered by their numeric index.
// Indexes must start at 0 and have no gaps.
func ScanFrames(dir string) ([]string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: frames dir %s", ErrNotFound, dir)
		}
		return nil, err
	}

	type frameFile struct {
		idx  int
		path string
	}
	prefix := strings.SplitN(cfg.FramePattern, "%", 2)[0]
	list := make([]frameFile, 0, len(files))
	for _, file := range files {
		name := file.Name()
		if file.IsDir() || !strings.HasPrefix(name, prefix) {
			continue
		}
		ext := filepath.Ext(name)
		if ext != "."+cfg.FormatPNG && ext != "."+cfg.FormatQOI {
			continue
		}
		idx, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, prefix), ext))
		if err != nil {
			continue
		}
		list = append(list, frameFile{idx: idx, path: filepath.Join(dir, name)})
	}

	// numeric order, frame_10 after frame_9 even without zero padding
	sort.Slice(list, func(i, j int) bool { return list[i].idx < list[j].idx })
	paths := make([]string, len(list))
	for i, f := range list {
		if f.idx != i {
			return nil, fmt.Errorf("frame %d: %w: missing frame file in %s", i, framer.ErrTruncatedStream, dir)
		}
		paths[i] = f.path
	}
	return paths, nil
}

// ReadFrames loads every frame of dir in index order
func ReadFrames(ctx context.Context, dir string) ([]image.Image, error) {
	log := logger.Log.WithField("scope", "storage")

	paths, err := ScanFrames(dir)
	if err != nil {
		return nil, err
	}
	frames := make([]image.Image, len(paths))
	for i, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img, err := FrameRead(p)
		if err != nil {
			return nil, fmt.Errorf("frame %d: cannot read %s: %w", i, p, err)
		}
		frames[i] = img
	}
	log.Debugf("Read %d frames from %s", len(frames), dir)
	return frames, nil
}

// WriteFrames saves frames into dir, creating it when needed
func WriteFrames(ctx context.Context, dir string, frames []image.Image, format string) error {
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return fmt.Errorf("cannot create frames dir %s: %w", dir, err)
	}
	for i, img := range frames {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := SaveFrame(dir, i, img, format); err != nil {
			return err
		}
	}
	return nil
}
