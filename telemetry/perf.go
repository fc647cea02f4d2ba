package telemetry

import (
	"log/slog"
	"time"
)

// Phase names for one cycle.
const (
	PhaseEvaluate  = "evaluate"
	PhaseRender    = "render"
	PhaseRelocate  = "relocate"
	PhaseTelemetry = "telemetry"
)

var phases = []string{PhaseEvaluate, PhaseRender, PhaseRelocate, PhaseTelemetry}

// PerfSample holds timing data for a single cycle. Pacing delays are not
// part of any phase.
type PerfSample struct {
	CycleDuration time.Duration
	Phases        map[string]time.Duration
}

// PerfCollector tracks phase timings over a rolling window of cycles.
type PerfCollector struct {
	windowSize  int
	samples     []PerfSample
	writeIndex  int
	sampleCount int

	currentPhases map[string]time.Duration
	phaseStart    time.Time
	lastPhase     string

	now func() time.Time
}

// NewPerfCollector creates a collector averaging over windowSize cycles.
func NewPerfCollector(windowSize int) *PerfCollector {
	if windowSize < 1 {
		windowSize = 50
	}
	return &PerfCollector{
		windowSize:    windowSize,
		samples:       make([]PerfSample, windowSize),
		currentPhases: make(map[string]time.Duration),
		now:           time.Now,
	}
}

// WindowSize returns the number of cycles per window.
func (p *PerfCollector) WindowSize() int {
	return p.windowSize
}

// StartCycle begins timing a new cycle.
func (p *PerfCollector) StartCycle() {
	p.currentPhases = make(map[string]time.Duration)
	p.lastPhase = ""
}

// StartPhase begins timing a phase, ending the previous one.
func (p *PerfCollector) StartPhase(phase string) {
	now := p.now()
	p.endPhase(now)
	p.phaseStart = now
	p.lastPhase = phase
}

// Pause ends the current phase without starting another.
func (p *PerfCollector) Pause() {
	p.endPhase(p.now())
	p.lastPhase = ""
}

func (p *PerfCollector) endPhase(now time.Time) {
	if p.lastPhase != "" {
		p.currentPhases[p.lastPhase] += now.Sub(p.phaseStart)
	}
}

// EndCycle finishes timing the current cycle and records the sample.
func (p *PerfCollector) EndCycle() {
	p.Pause()

	var total time.Duration
	for _, d := range p.currentPhases {
		total += d
	}

	p.samples[p.writeIndex] = PerfSample{
		CycleDuration: total,
		Phases:        p.currentPhases,
	}
	p.writeIndex = (p.writeIndex + 1) % p.windowSize
	if p.sampleCount < p.windowSize {
		p.sampleCount++
	}
}

// PerfStats holds aggregated performance statistics.
type PerfStats struct {
	AvgCycleDuration time.Duration
	MinCycleDuration time.Duration
	MaxCycleDuration time.Duration

	// Phase breakdown (average durations)
	PhaseAvg map[string]time.Duration
	// Phase percentages of total cycle time
	PhasePct map[string]float64

	CyclesPerSecond float64
}

// Stats computes aggregated statistics over the current window.
func (p *PerfCollector) Stats() PerfStats {
	stats := PerfStats{
		PhaseAvg: make(map[string]time.Duration),
		PhasePct: make(map[string]float64),
	}
	if p.sampleCount == 0 {
		return stats
	}

	var total time.Duration
	phaseSum := make(map[string]time.Duration)
	for i := 0; i < p.sampleCount; i++ {
		s := p.samples[i]
		total += s.CycleDuration
		if i == 0 || s.CycleDuration < stats.MinCycleDuration {
			stats.MinCycleDuration = s.CycleDuration
		}
		if s.CycleDuration > stats.MaxCycleDuration {
			stats.MaxCycleDuration = s.CycleDuration
		}
		for phase, d := range s.Phases {
			phaseSum[phase] += d
		}
	}

	stats.AvgCycleDuration = total / time.Duration(p.sampleCount)
	for phase, sum := range phaseSum {
		stats.PhaseAvg[phase] = sum / time.Duration(p.sampleCount)
		if stats.AvgCycleDuration > 0 {
			stats.PhasePct[phase] = float64(stats.PhaseAvg[phase]) / float64(stats.AvgCycleDuration) * 100
		}
	}
	if stats.AvgCycleDuration > 0 {
		stats.CyclesPerSecond = float64(time.Second) / float64(stats.AvgCycleDuration)
	}
	return stats
}

// LogValue implements slog.LogValuer for structured logging.
func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int64("avg_cycle_us", s.AvgCycleDuration.Microseconds()),
		slog.Int64("min_cycle_us", s.MinCycleDuration.Microseconds()),
		slog.Int64("max_cycle_us", s.MaxCycleDuration.Microseconds()),
		slog.Float64("cycles_per_sec", s.CyclesPerSecond),
	}
	for _, phase := range phases {
		if pct, ok := s.PhasePct[phase]; ok {
			attrs = append(attrs, slog.Float64(phase+"_pct", pct))
		}
	}
	return slog.GroupValue(attrs...)
}

// LogStats logs performance statistics.
func (s PerfStats) LogStats() {
	slog.Info("perf", "stats", s)
}
