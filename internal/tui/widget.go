package tui

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	indent       = "  "
	barMaxWidth  = 80
	refreshEvery = 100 * time.Millisecond
	cancelHint   = "q to cancel"
)

var (
	hintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
)

type refreshMsg time.Time

type mode int

const (
	spin mode = iota
	bar
	text
)

// Widget draws the latest core event. Events reach it as tea messages,
// so all state changes happen inside Update.
type Widget struct {
	mode     mode
	title    string
	percent  float64
	spinner  spinner.Model
	progress progress.Model
	onQuit   func()
}

func NewWidget(onQuit func()) *Widget {
	s := spinner.New(spinner.WithSpinner(spinner.Line), spinner.WithStyle(spinnerStyle))
	return &Widget{
		spinner:  s,
		progress: progress.New(progress.WithDefaultGradient()),
		onQuit:   onQuit,
	}
}

func (w *Widget) Init() tea.Cmd {
	return tea.Batch(refresh(), w.spinner.Tick)
}

func (w *Widget) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case Event:
		w.apply(msg)
		return w, nil
	case tea.KeyMsg:
		return w, w.key(msg)
	case tea.WindowSizeMsg:
		w.progress.Width = min(msg.Width-2*len(indent)-4, barMaxWidth)
		return w, nil
	case refreshMsg:
		return w, tea.Batch(refresh(), w.progress.SetPercent(w.percent))
	case progress.FrameMsg:
		m, cmd := w.progress.Update(msg)
		w.progress = m.(progress.Model)
		return w, cmd
	}
	var cmd tea.Cmd
	w.spinner, cmd = w.spinner.Update(msg)
	return w, cmd
}

func (w *Widget) key(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "ctrl+c", "esc", "q":
		if w.onQuit != nil {
			w.onQuit()
		}
		return tea.Quit
	}
	return nil
}

func (w *Widget) apply(e Event) {
	w.title = e.text
	switch e.eventType {
	case eventTypeSpin:
		w.mode = spin
	case eventTypeBar:
		w.mode = bar
		w.percent = e.percent
	case eventTypeText:
		w.mode = text
	}
}

func (w *Widget) View() string {
	var b strings.Builder
	b.WriteString("\n" + indent)
	switch w.mode {
	case spin:
		b.WriteString(w.spinner.View() + " " + w.title + "\n")
	case bar:
		b.WriteString(w.title + "\n\n" + indent + w.progress.View() + "\n")
	case text:
		b.WriteString(w.title + "\n\n")
		return b.String()
	}
	b.WriteString("\n" + indent + hintStyle.Render(cancelHint) + "\n")
	return b.String()
}

func refresh() tea.Cmd {
	return tea.Tick(refreshEvery, func(t time.Time) tea.Msg {
		return refreshMsg(t)
	})
}
