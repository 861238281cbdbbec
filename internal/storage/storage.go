// All files related functions
package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/1F47E/go-monoreel/internal/logger"
)

// ErrNotFound is returned when a payload file, frames dir or container does not exist.
var ErrNotFound = errors.New("not found")

const defaultDecodedName = "out_decoded.bin"

func ReadPayload(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory, not a file", path)
	}
	return os.ReadFile(path)
}

// SaveDecoded writes the payload to a temp file in dir and renames it to name.
// An existing file is never overwritten, a numeric suffix is added instead.
func SaveDecoded(dir, name string, payload []byte) (string, error) {
	log := logger.Log.WithField("scope", "storage")

	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return "", fmt.Errorf("cannot create output dir %s: %w", dir, err)
	}
	// header names are untrusted, keep only the base name
	name = filepath.Base(name)
	if name == "." || name == ".." || name == string(filepath.Separator) || name == "" {
		name = defaultDecodedName
	}

	tmpFile, err := os.CreateTemp(dir, "decoded-")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmpFile.Name())

	if _, err = tmpFile.Write(payload); err != nil {
		tmpFile.Close()
		return "", err
	}
	if err = tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return "", err
	}
	if err = tmpFile.Close(); err != nil {
		return "", err
	}

	out := freePath(filepath.Join(dir, name))
	if err = os.Rename(tmpFile.Name(), out); err != nil {
		return "", err
	}
	log.Debugf("Saved %d bytes to %s", len(payload), out)
	return out, nil
}

func freePath(path string) string {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return path
	}
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s_%d%s", base, i, ext)
		if _, err := os.Stat(candidate); errors.Is(err, fs.ErrNotExist) {
			return candidate
		}
	}
}
