package core

import (
	"fmt"

	"github.com/1F47E/go-monoreel/internal/logger"
	"github.com/1F47E/go-monoreel/internal/meta"
	"github.com/1F47E/go-monoreel/internal/storage"
	"github.com/1F47E/go-monoreel/internal/stream"
	"github.com/1F47E/go-monoreel/internal/tui"
)

// 1. read the whole file
// 2. split into chunks and render frames by workers, in order
// 3. hand the stream to the store
func (c *Core) Encode(path string, store stream.Store) error {
	log := logger.Log.WithField("scope", "core encode")

	c.emit(tui.NewEventSpin("Reading file..."))
	payload, err := storage.ReadPayload(path)
	if err != nil {
		return err
	}

	capacity := c.pipeline.Encoder().Capacity()
	frames := meta.FramesFor(uint64(len(payload)), uint64(capacity))
	log.Debugf("Payload %d bytes, %d frames of %d bits", len(payload), frames, capacity)

	c.resetProgress(fmt.Sprintf("Encoding %d frames...", frames), int(frames))
	st, err := c.pipeline.Encode(payload, path)
	if err != nil {
		return fmt.Errorf("cannot encode %s: %w", path, err)
	}

	c.emit(tui.NewEventSpin("Saving frames..."))
	err = store.Write(c.ctx, st)
	if err != nil {
		return fmt.Errorf("cannot save frames: %w", err)
	}

	c.emit(tui.NewEventText(fmt.Sprintf("Encoded %s", st.Header.Print())))
	log.Infof("Encoded %d bytes into %d frames", len(payload), st.Len())
	return nil
}
