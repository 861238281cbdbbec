package core

import (
	"bytes"
	"fmt"
	"os"

	"github.com/1F47E/go-monoreel/internal/stream"
)

// encode + decode + compare
func (c *Core) Compare(filename string, store stream.Store, outDir string) (bool, error) {
	err := c.Encode(filename, store)
	if err != nil {
		return false, err
	}
	out, err := c.Decode(store, outDir)
	if err != nil {
		return false, err
	}
	defer os.Remove(out)

	same, err := compareFiles(filename, out)
	if err != nil {
		return false, err
	}
	return same, nil
}

// Compare files before and after decoding for test command
func compareFiles(file1, file2 string) (bool, error) {
	b1, err := os.ReadFile(file1)
	if err != nil {
		return false, err
	}
	b2, err := os.ReadFile(file2)
	if err != nil {
		return false, err
	}
	if len(b1) != len(b2) {
		return false, fmt.Errorf("files are not the same size: %d and %d bytes", len(b1), len(b2))
	}
	if !bytes.Equal(b1, b2) {
		for i := range b1 {
			if b1[i] != b2[i] {
				return false, fmt.Errorf("files are not the same at position %d", i)
			}
		}
	}
	return true, nil
}
