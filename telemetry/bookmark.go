package telemetry

import (
	"fmt"
	"log/slog"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	// BookmarkAllSatisfied marks the first cycle in which no agent wants to move.
	BookmarkAllSatisfied BookmarkType = "all_satisfied"
	// BookmarkPlateau marks average happiness settling while agents keep moving.
	BookmarkPlateau BookmarkType = "plateau"
)

// Bookmark represents an automatically triggered bookmark.
type Bookmark struct {
	Type        BookmarkType `csv:"type" json:"type"`
	Cycle       int          `csv:"cycle" json:"cycle"`
	Description string       `csv:"description" json:"description"`
}

// LogBookmark logs the bookmark using slog.
func (b Bookmark) LogBookmark() {
	slog.Info("bookmark",
		"type", string(b.Type),
		"cycle", b.Cycle,
		"description", b.Description,
	)
}

// BookmarkDetector detects interesting moments in a run.
type BookmarkDetector struct {
	// Rolling history of average happiness (circular buffer)
	history     []float64
	historySize int
	historyIdx  int
	historyFull bool

	tolerance float64

	satisfiedSeen bool
	onPlateau     bool
}

// NewBookmarkDetector creates a detector that looks for plateaus over
// historySize cycles, treating a happiness range below tolerance as flat.
func NewBookmarkDetector(historySize int, tolerance float64) *BookmarkDetector {
	if historySize < 3 {
		historySize = 3
	}
	return &BookmarkDetector{
		history:     make([]float64, historySize),
		historySize: historySize,
		tolerance:   tolerance,
	}
}

// Check analyzes the latest cycle and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(stats CycleStats) []Bookmark {
	var bookmarks []Bookmark

	bd.addToHistory(stats.HappinessMean)

	if b := bd.checkAllSatisfied(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}
	if b := bd.checkPlateau(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}

	return bookmarks
}

func (bd *BookmarkDetector) addToHistory(v float64) {
	bd.history[bd.historyIdx] = v
	bd.historyIdx = (bd.historyIdx + 1) % bd.historySize
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
}

func (bd *BookmarkDetector) checkAllSatisfied(stats CycleStats) *Bookmark {
	if bd.satisfiedSeen || stats.Unsatisfied > 0 || stats.Occupied == 0 {
		return nil
	}
	bd.satisfiedSeen = true
	return &Bookmark{
		Type:        BookmarkAllSatisfied,
		Cycle:       stats.Cycle,
		Description: fmt.Sprintf("All %d agents satisfied, average happiness %.4f", stats.Occupied, stats.HappinessMean),
	}
}

func (bd *BookmarkDetector) checkPlateau(stats CycleStats) *Bookmark {
	if !bd.historyFull || stats.Unsatisfied == 0 {
		bd.onPlateau = false
		return nil
	}

	lo, hi := bd.history[0], bd.history[0]
	for _, v := range bd.history[1:] {
		lo = min(lo, v)
		hi = max(hi, v)
	}

	if hi-lo >= bd.tolerance {
		bd.onPlateau = false
		return nil
	}
	if bd.onPlateau {
		return nil
	}
	bd.onPlateau = true
	return &Bookmark{
		Type:  BookmarkPlateau,
		Cycle: stats.Cycle,
		Description: fmt.Sprintf("Average happiness held within %.4f over %d cycles with %d agents unsatisfied",
			hi-lo, bd.historySize, stats.Unsatisfied),
	}
}
