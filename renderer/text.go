// Package renderer presents simulation frames as text or in a raylib window.
package renderer

import (
	"fmt"
	"io"
	"strings"

	"github.com/pthm-cable/bracetopia/game"
)

// QuitHint is appended to frames of a continuous run.
const QuitHint = "Use Control-C to quit."

// StatusLines returns the text lines printed under the grid.
func StatusLines(f game.RenderFrame) []string {
	c := f.Config
	return []string{
		fmt.Sprintf("cycle: %d", f.Stats.Cycle),
		fmt.Sprintf("moves this cycle: %d", f.Stats.Moves),
		fmt.Sprintf("teams' \"happiness\": %.4f", f.Stats.AverageHappiness),
		fmt.Sprintf("dim: %d, %%strength of preference:  %d%%, %%vacancy:  %d%%, %%end:  %d%%",
			c.Dimension, c.StrengthPercent, c.VacancyPercent, c.EndlinePercent),
	}
}

// FormatFrame renders a frame as text: one line per grid row followed by
// the status lines, and the quit hint for continuous runs.
func FormatFrame(f game.RenderFrame) string {
	var sb strings.Builder
	if f.Grid != nil {
		for _, row := range f.Grid.Rows() {
			sb.WriteString(row)
			sb.WriteByte('\n')
		}
	}
	for _, line := range StatusLines(f) {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	if f.Continuous {
		sb.WriteString(QuitHint)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// WriteFrame writes the text form of a frame to w.
func WriteFrame(w io.Writer, f game.RenderFrame) error {
	_, err := io.WriteString(w, FormatFrame(f))
	return err
}
