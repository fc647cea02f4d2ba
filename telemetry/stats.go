// Package telemetry provides per-cycle statistics, bookmarks, phase timing and
// run output for the simulation.
package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// CycleStats holds the statistics of one completed cycle: the happiness
// distribution of the grid as it was evaluated and the moves its relocation
// pass made.
type CycleStats struct {
	Cycle int `csv:"cycle"`
	Moves int `csv:"moves"`

	Occupied    int `csv:"occupied"`
	Vacancies   int `csv:"vacancies"`
	Unsatisfied int `csv:"unsatisfied"`
	Endline     int `csv:"endline"`
	Newline     int `csv:"newline"`

	// Happiness distribution over occupied cells
	HappinessMean float64 `csv:"happiness_mean"`
	HappinessStd  float64 `csv:"happiness_std"`
	HappinessP10  float64 `csv:"happiness_p10"`
	HappinessP50  float64 `csv:"happiness_p50"`
	HappinessP90  float64 `csv:"happiness_p90"`

	// Share of like-type links among occupied neighbour links
	Segregation float64 `csv:"segregation"`
}

// SetHappiness fills the happiness distribution fields from per-agent scores.
// An empty slice leaves them at zero.
func (s *CycleStats) SetHappiness(scores []float64) {
	s.HappinessMean, s.HappinessStd, s.HappinessP10, s.HappinessP50, s.HappinessP90 = Distribution(scores)
}

// Distribution returns the mean, population standard deviation and the
// 10th/50th/90th percentiles of values. All are 0 for an empty slice.
func Distribution(values []float64) (mean, std, p10, p50, p90 float64) {
	if len(values) == 0 {
		return 0, 0, 0, 0, 0
	}

	mean, std = stat.PopMeanStdDev(values, nil)

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	p10 = stat.Quantile(0.10, stat.Empirical, sorted, nil)
	p50 = stat.Quantile(0.50, stat.Empirical, sorted, nil)
	p90 = stat.Quantile(0.90, stat.Empirical, sorted, nil)
	return mean, std, p10, p50, p90
}

// LogValue implements slog.LogValuer for structured logging.
func (s CycleStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("cycle", s.Cycle),
		slog.Int("moves", s.Moves),
		slog.Int("occupied", s.Occupied),
		slog.Int("vacancies", s.Vacancies),
		slog.Int("unsatisfied", s.Unsatisfied),
		slog.Float64("happiness_mean", s.HappinessMean),
		slog.Float64("happiness_std", s.HappinessStd),
		slog.Float64("happiness_p50", s.HappinessP50),
		slog.Float64("segregation", s.Segregation),
	)
}

// LogStats logs the cycle stats using slog.
func (s CycleStats) LogStats() {
	slog.Info("cycle", "stats", s)
}
