package game

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pthm-cable/bracetopia/telemetry"
)

// ErrStopped is returned by a FrameSink or Pacer to end a run cleanly, for
// example when its window is closed.
var ErrStopped = errors.New("simulation stopped")

// FrameSink presents frames.
type FrameSink interface {
	Render(frame RenderFrame) error
}

// Pacer waits between frames in continuous mode.
type Pacer interface {
	Wait(ctx context.Context, d time.Duration) error
}

// SleepPacer waits on a timer, returning early if ctx is cancelled.
type SleepPacer struct{}

// Wait implements Pacer.
func (SleepPacer) Wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// NoPacer never waits.
type NoPacer struct{}

// Wait implements Pacer.
func (NoPacer) Wait(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

// Run drives the simulation: each cycle is evaluated, rendered, paced (in
// continuous mode) and relocated. A finite run returns after CycleLimit
// cycles. A continuous run returns when ctx is cancelled or the sink or
// pacer returns ErrStopped. Cancellation is only observed between rendering
// and relocation, so the grid is never left mid-pass.
func (g *Game) Run(ctx context.Context, sink FrameSink, pacer Pacer) error {
	if pacer == nil {
		pacer = NoPacer{}
	}

	for {
		if limit, ok := g.cfg.Limit(); ok && g.cycle >= limit {
			return nil
		}

		g.perf.StartCycle()
		g.perf.StartPhase(telemetry.PhaseEvaluate)
		frame := g.Evaluate()

		g.perf.StartPhase(telemetry.PhaseRender)
		if err := sink.Render(frame); err != nil {
			if errors.Is(err, ErrStopped) {
				return nil
			}
			return fmt.Errorf("rendering cycle %d: %w", frame.Stats.Cycle, err)
		}
		g.perf.Pause()

		if g.cfg.Continuous() {
			if err := pacer.Wait(ctx, g.cfg.FrameDelay); err != nil {
				if stopped(err) {
					return nil
				}
				return fmt.Errorf("pacing cycle %d: %w", frame.Stats.Cycle, err)
			}
		}
		if ctx.Err() != nil {
			return nil
		}

		g.perf.StartPhase(telemetry.PhaseRelocate)
		g.Relocate()
		g.perf.EndCycle()
		g.logPerf()
	}
}

func stopped(err error) bool {
	return errors.Is(err, ErrStopped) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
