package renderer

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/pthm-cable/bracetopia/game"
)

// clearScreen homes the cursor and clears the display.
const clearScreen = "\033[H\033[2J"

// Terminal writes text frames to a stream. When the stream is a terminal,
// frames of a continuous run redraw in place.
type Terminal struct {
	w       io.Writer
	refresh bool
}

// NewTerminal returns a Terminal writing to f, refreshing in place if f is
// a terminal.
func NewTerminal(f *os.File) *Terminal {
	fd := f.Fd()
	return &Terminal{
		w:       f,
		refresh: isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd),
	}
}

// NewWriterTerminal returns a Terminal writing to w. refresh selects in-place
// redraw for continuous runs.
func NewWriterTerminal(w io.Writer, refresh bool) *Terminal {
	return &Terminal{w: w, refresh: refresh}
}

// Render implements game.FrameSink.
func (t *Terminal) Render(f game.RenderFrame) error {
	if f.Continuous && t.refresh {
		if _, err := io.WriteString(t.w, clearScreen); err != nil {
			return fmt.Errorf("clearing screen: %w", err)
		}
	}
	if err := WriteFrame(t.w, f); err != nil {
		return fmt.Errorf("writing frame: %w", err)
	}
	return nil
}
