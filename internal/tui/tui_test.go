package tui

import (
	"bytes"
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestWidgetApplyEvents(t *testing.T) {
	w := NewWidget(nil)

	w.Update(NewEventSpin("Reading file..."))
	if w.mode != spin || !strings.Contains(w.View(), "Reading file...") {
		t.Errorf("spin event not applied: %q", w.View())
	}

	w.Update(NewEventBar("Encoding 10 frames...", 0.5))
	if w.mode != bar || w.percent != 0.5 {
		t.Errorf("bar event not applied: mode %d, percent %f", w.mode, w.percent)
	}
	if !strings.Contains(w.View(), "Encoding 10 frames...") {
		t.Errorf("bar title missing: %q", w.View())
	}

	w.Update(NewEventText("Done"))
	if w.mode != text || strings.TrimSpace(w.View()) != "Done" {
		t.Errorf("text event not applied: %q", w.View())
	}
}

func TestWidgetQuit(t *testing.T) {
	quit := false
	w := NewWidget(func() { quit = true })

	_, cmd := w.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	if quit || cmd != nil {
		t.Errorf("unrelated key quits the widget")
	}
	_, cmd = w.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if !quit || cmd == nil {
		t.Errorf("q does not quit the widget")
	}
}

func TestPlainRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	eventsCh := make(chan Event)
	ui := New(ctx, cancel, eventsCh, true)

	var out bytes.Buffer
	done := make(chan struct{})
	go func() {
		ui.runPlain(&out)
		close(done)
	}()

	eventsCh <- NewEventSpin("Reading file...")
	eventsCh <- NewEventBar("Encoding 4 frames...", 0.25)
	eventsCh <- NewEventBar("Encoding 4 frames...", 1)
	eventsCh <- NewEventText("Encoded payload.bin")
	close(eventsCh)
	<-done

	if !strings.Contains(out.String(), "Encoded payload.bin") {
		t.Errorf("final text missing: %q", out.String())
	}
}
