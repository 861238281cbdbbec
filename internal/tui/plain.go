package tui

import (
	"fmt"
	"io"

	"github.com/schollz/progressbar/v3"
)

// Plain renders events with a single line progress bar, for pipes and CI logs
type Plain struct {
	out      io.Writer
	progress *progressbar.ProgressBar
	spinning bool
}

func NewPlain(out io.Writer) *Plain {
	return &Plain{out: out}
}

func (p *Plain) Apply(e Event) {
	switch e.eventType {
	case eventTypeSpin:
		p.reset(-1, e.text)
		p.spinning = true
		_ = p.progress.RenderBlank()
	case eventTypeBar:
		if p.progress == nil || p.spinning {
			p.reset(100, e.text)
			p.spinning = false
		}
		p.progress.Describe(e.text)
		_ = p.progress.Set(int(e.percent * 100))
	case eventTypeText:
		p.Finish()
		fmt.Fprintln(p.out, e.text)
	}
}

func (p *Plain) Finish() {
	if p.progress == nil {
		return
	}
	_ = p.progress.Finish()
	fmt.Fprintln(p.out)
	p.progress = nil
}

func (p *Plain) reset(max int, desc string) {
	if p.progress != nil {
		_ = p.progress.Clear()
	}
	p.progress = progressbar.NewOptions(max,
		progressbar.OptionSetWriter(p.out),
		progressbar.OptionSetDescription(desc),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]/[reset]",
			SaucerHead:    "[green]/[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
}
