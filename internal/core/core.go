package core

import (
	"context"
	"sync/atomic"

	cfg "github.com/1F47E/go-monoreel/internal/config"
	"github.com/1F47E/go-monoreel/internal/tui"
)

type Core struct {
	ctx      context.Context
	eventsCh chan tui.Event
	pipeline *Pipeline

	// frames progress
	total int64
	done  int64
	title string
}

// NewCore wires the pipeline to a progress events channel, eventsCh may be nil
func NewCore(ctx context.Context, c cfg.Config, eventsCh chan tui.Event) (*Core, error) {
	p, err := NewPipeline(ctx, c)
	if err != nil {
		return nil, err
	}
	core := &Core{
		ctx:      ctx,
		eventsCh: eventsCh,
		pipeline: p,
	}
	p.OnFrame(core.frameDone)
	return core, nil
}

func (c *Core) Pipeline() *Pipeline {
	return c.pipeline
}

func (c *Core) emit(e tui.Event) {
	if c.eventsCh == nil {
		return
	}
	select {
	case <-c.ctx.Done():
	case c.eventsCh <- e:
	}
}

func (c *Core) resetProgress(title string, total int) {
	c.title = title
	atomic.StoreInt64(&c.total, int64(total))
	atomic.StoreInt64(&c.done, 0)
	if total > 0 {
		c.emit(tui.NewEventBar(title, 0))
	}
}

// called from worker goroutines
func (c *Core) frameDone() {
	done := atomic.AddInt64(&c.done, 1)
	total := atomic.LoadInt64(&c.total)
	if total <= 0 {
		return
	}
	// one event per percent is enough for the widget
	step := total / 100
	if step == 0 || done%step == 0 || done == total {
		c.emit(tui.NewEventBar(c.title, float64(done)/float64(total)))
	}
}
