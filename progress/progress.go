// Package progress draws a small full-screen status board for a
// long-running demux or merge pass: frames read, the current track,
// and any error counters supplied by the caller.
package progress

import (
	"fmt"

	"github.com/nsf/termbox-go"
)

// Board is a live, single-screen status display. Zero value is not
// usable; construct with New.
type Board struct {
	started bool
}

// New allocates a Board. Call Start before the first Render.
func New() *Board {
	return &Board{}
}

// Start initializes the terminal for full-screen drawing. Callers
// must call Stop before the process exits or writes anything else to
// the terminal.
func (b *Board) Start() error {
	if err := termbox.Init(); err != nil {
		return fmt.Errorf("progress: init terminal: %w", err)
	}
	termbox.SetInputMode(termbox.InputEsc)
	b.started = true
	return nil
}

// Stop tears down the terminal, restoring normal scrollback output.
func (b *Board) Stop() {
	if b.started {
		termbox.Close()
		b.started = false
	}
}

// Status is one frame's worth of state to render.
type Status struct {
	RunID             string
	FramesRead        int
	TrackNumber       int
	TrackSeconds      float64
	CorrectedErrors   [3]int
	UncorrectedErrors int
}

// Render redraws the board with the given status. Safe to call once
// per second or so; termbox itself only actually repaints changed
// cells.
func (b *Board) Render(s Status) {
	if !b.started {
		return
	}
	termbox.Clear(termbox.ColorDefault, termbox.ColorDefault)
	drawLine(0, fmt.Sprintf("run %s", s.RunID))
	drawLine(1, fmt.Sprintf("frames read: %d", s.FramesRead))
	drawLine(2, fmt.Sprintf("track %d: %.1fs", s.TrackNumber, s.TrackSeconds))
	drawLine(3, fmt.Sprintf("corrected: file0=%d file1=%d file2=%d",
		s.CorrectedErrors[0], s.CorrectedErrors[1], s.CorrectedErrors[2]))
	drawLine(4, fmt.Sprintf("uncorrected: %d", s.UncorrectedErrors))
	termbox.Flush()
}

func drawLine(row int, text string) {
	for col, r := range text {
		termbox.SetCell(col, row, r, termbox.ColorDefault, termbox.ColorDefault)
	}
}
