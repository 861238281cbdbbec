package core

import (
	"fmt"

	"github.com/1F47E/go-monoreel/internal/logger"
	"github.com/1F47E/go-monoreel/internal/storage"
	"github.com/1F47E/go-monoreel/internal/stream"
	"github.com/1F47E/go-monoreel/internal/tui"
)

// 1. read header and frames from the store
// 2. decode frames into bits by workers, joined in frame order
// 3. write the payload under the recorded filename into outDir
func (c *Core) Decode(store stream.Store, outDir string) (string, error) {
	log := logger.Log.WithField("scope", "core decode")

	c.emit(tui.NewEventSpin("Reading frames..."))
	st, err := store.Read(c.ctx)
	if err != nil {
		return "", err
	}
	log.Debugf("total frames: %d", st.Len())

	c.resetProgress(fmt.Sprintf("Decoding %d frames...", st.Len()), st.Len())
	payload, err := c.pipeline.Decode(st)
	if err != nil {
		return "", err
	}

	c.emit(tui.NewEventSpin("Writing results..."))
	out, err := storage.SaveDecoded(outDir, st.Header.Filename, payload)
	if err != nil {
		return "", fmt.Errorf("cannot save decoded file: %w", err)
	}

	c.emit(tui.NewEventText(fmt.Sprintf("Decoded %s -> %s", st.Header.Print(), out)))
	log.Infof("Decoded file saved: %s", out)
	return out, nil
}
