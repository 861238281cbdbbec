package tui

import (
	"context"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/1F47E/go-monoreel/internal/logger"
)

type TUI struct {
	ctx      context.Context
	eventsCh chan Event
	cancel   context.CancelFunc
	plain    bool
}

// New creates a renderer for eventsCh. cancel is called when the user quits the widget.
func New(ctx context.Context, cancel context.CancelFunc, eventsCh chan Event, plain bool) *TUI {
	return &TUI{ctx: ctx, eventsCh: eventsCh, cancel: cancel, plain: plain}
}

// Run blocks until ctx is done or eventsCh is closed
func (t *TUI) Run() {
	if t.plain {
		t.runPlain(os.Stderr)
		return
	}
	t.runWidget()
}

func (t *TUI) runPlain(out io.Writer) {
	p := NewPlain(out)
	defer p.Finish()
	for {
		select {
		case <-t.ctx.Done():
			return
		case event, ok := <-t.eventsCh:
			if !ok {
				return
			}
			p.Apply(event)
		}
	}
}

func (t *TUI) runWidget() {
	log := logger.Log.WithField("scope", "tui")

	program := tea.NewProgram(NewWidget(t.cancel))
	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := program.Run(); err != nil {
			log.Errorf("tui stopped: %v", err)
		}
	}()

	// read events from channel and pass them to the widget
	defer func() {
		program.Quit()
		<-done
	}()
	for {
		select {
		case <-t.ctx.Done():
			return
		case <-done:
			// widget quit on its own, keep draining so the core never blocks
			t.drain()
			return
		case event, ok := <-t.eventsCh:
			if !ok {
				return
			}
			program.Send(event)
		}
	}
}

func (t *TUI) drain() {
	for {
		select {
		case <-t.ctx.Done():
			return
		case _, ok := <-t.eventsCh:
			if !ok {
				return
			}
		}
	}
}
