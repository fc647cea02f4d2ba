package renderer

import (
	"context"
	"fmt"
	"image/color"
	"time"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/bracetopia/config"
	"github.com/pthm-cable/bracetopia/game"
	"github.com/pthm-cable/bracetopia/systems"
)

const (
	hudHeight   = 150
	panelWidth  = 220
	fontSize    = 16
	lineSpacing = 20
	margin      = 10

	minDelayMs = 10
	maxDelayMs = 2000
)

var (
	colorEndline = color.RGBA{R: 66, G: 135, B: 245, A: 255}
	colorNewline = color.RGBA{R: 245, G: 155, B: 66, A: 255}
	colorVacant  = color.RGBA{R: 230, G: 230, B: 230, A: 255}
)

// Window draws frames in a raylib window with a pause button and a delay
// slider. It is both the frame sink and the pacer of a continuous run.
// All methods must be called from the goroutine that created it.
type Window struct {
	cellSize int32
	dim      int32

	frame    game.RenderFrame
	hasFrame bool

	paused  bool
	delayMs float32
}

// NewWindow opens a window sized for a dim×dim grid.
func NewWindow(dim int, delay time.Duration, cfg config.DisplayConfig) *Window {
	cellSize := int32(cfg.CellSize)
	if cellSize < 2 {
		cellSize = 2
	}
	w := &Window{
		cellSize: cellSize,
		dim:      int32(dim),
		delayMs:  clampDelay(float32(delay.Milliseconds())),
	}

	gridPx := w.dim * w.cellSize
	rl.InitWindow(gridPx+2*margin+panelWidth, max(gridPx, 120)+2*margin+hudHeight, "bracetopia")
	if cfg.TargetFPS > 0 {
		rl.SetTargetFPS(int32(cfg.TargetFPS))
	}
	return w
}

// Close closes the window.
func (w *Window) Close() {
	rl.CloseWindow()
}

// Render implements game.FrameSink.
func (w *Window) Render(f game.RenderFrame) error {
	w.frame = f
	w.hasFrame = true
	if rl.WindowShouldClose() {
		return game.ErrStopped
	}
	w.draw()
	return nil
}

// Wait implements game.Pacer. It keeps drawing the current frame until the
// slider delay has elapsed and the run is not paused. The requested delay
// is only the initial slider value.
func (w *Window) Wait(ctx context.Context, _ time.Duration) error {
	start := time.Now()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if rl.WindowShouldClose() {
			return game.ErrStopped
		}
		if !w.paused && time.Since(start) >= w.delay() {
			return nil
		}
		w.draw()
	}
}

func (w *Window) delay() time.Duration {
	return time.Duration(w.delayMs) * time.Millisecond
}

func (w *Window) draw() {
	rl.BeginDrawing()
	rl.ClearBackground(rl.RayWhite)

	if w.hasFrame {
		w.drawGrid()
		w.drawHUD()
	}
	w.drawControls()

	rl.EndDrawing()
}

func (w *Window) drawGrid() {
	g := w.frame.Grid
	if g == nil {
		return
	}
	for row := 0; row < g.Dim(); row++ {
		for col := 0; col < g.Dim(); col++ {
			s, _ := g.At(row, col)
			x := margin + int32(col)*w.cellSize
			y := margin + int32(row)*w.cellSize
			rl.DrawRectangle(x, y, w.cellSize-1, w.cellSize-1, cellColor(s))
		}
	}
	rl.DrawRectangleLines(margin-1, margin-1, w.dim*w.cellSize+1, w.dim*w.cellSize+1, rl.DarkGray)
}

func (w *Window) drawHUD() {
	y := int32(margin) + max(w.dim*w.cellSize, 120) + margin
	for _, line := range StatusLines(w.frame) {
		rl.DrawText(line, margin, y, fontSize, rl.DarkGray)
		y += lineSpacing
	}
	s := w.frame.Stats
	rl.DrawText(fmt.Sprintf("unsatisfied: %d / %d", s.Unsatisfied, s.Occupied), margin, y, fontSize, rl.Gray)
}

func (w *Window) drawControls() {
	x := float32(margin + w.dim*w.cellSize + margin)
	y := float32(margin)

	label := "Pause"
	if w.paused {
		label = "Resume"
	}
	if gui.Button(rl.Rectangle{X: x, Y: y, Width: panelWidth - margin, Height: 30}, label) {
		w.paused = !w.paused
	}
	y += 45

	rl.DrawText("Cycle delay", int32(x), int32(y), 14, rl.Gray)
	y += 18
	w.delayMs = clampDelay(gui.SliderBar(
		rl.Rectangle{X: x + 30, Y: y, Width: panelWidth - margin - 70, Height: 20},
		"fast", "slow",
		w.delayMs, minDelayMs, maxDelayMs,
	))
	y += 26
	rl.DrawText(fmt.Sprintf("%d ms", int(w.delayMs)), int32(x), int32(y), fontSize, rl.DarkGray)

	if w.paused {
		rl.DrawText("PAUSED", int32(x), int32(y)+lineSpacing+6, fontSize, rl.Maroon)
	}
}

func cellColor(s systems.CellState) color.RGBA {
	switch s {
	case systems.Endline:
		return colorEndline
	case systems.Newline:
		return colorNewline
	default:
		return colorVacant
	}
}

func clampDelay(ms float32) float32 {
	return min(max(ms, minDelayMs), maxDelayMs)
}
