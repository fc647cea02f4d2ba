package game

import (
	"github.com/pthm-cable/bracetopia/config"
	"github.com/pthm-cable/bracetopia/systems"
)

// CycleStatistics summarizes one evaluated cycle.
type CycleStatistics struct {
	Cycle int
	// Moves is the number of agents that relocated to produce this cycle's
	// grid; 0 for the first cycle.
	Moves            int
	AverageHappiness float64
	Vacancies        int
	Occupied         int
	Unsatisfied      int
}

// RenderFrame is everything a display needs to present one cycle.
type RenderFrame struct {
	// Grid is a snapshot; later cycles do not modify it.
	Grid       *systems.Grid
	Stats      CycleStatistics
	Config     config.SimulationConfig
	Continuous bool
}
