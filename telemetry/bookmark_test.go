package telemetry

import "testing"

func findBookmark(bookmarks []Bookmark, typ BookmarkType) *Bookmark {
	for i := range bookmarks {
		if bookmarks[i].Type == typ {
			return &bookmarks[i]
		}
	}
	return nil
}

func TestBookmarkDetector_AllSatisfied(t *testing.T) {
	bd := NewBookmarkDetector(5, 0.001)

	for i := 0; i < 3; i++ {
		bookmarks := bd.Check(CycleStats{Cycle: i, Occupied: 20, Unsatisfied: 5 - i, HappinessMean: 0.4 + float64(i)*0.1})
		if findBookmark(bookmarks, BookmarkAllSatisfied) != nil {
			t.Fatalf("cycle %d: unexpected all_satisfied bookmark", i)
		}
	}

	bookmarks := bd.Check(CycleStats{Cycle: 3, Occupied: 20, Unsatisfied: 0, HappinessMean: 0.8})
	b := findBookmark(bookmarks, BookmarkAllSatisfied)
	if b == nil {
		t.Fatal("expected all_satisfied bookmark")
	}
	if b.Cycle != 3 {
		t.Errorf("bookmark cycle = %d, want 3", b.Cycle)
	}

	// Fires once per run.
	bookmarks = bd.Check(CycleStats{Cycle: 4, Occupied: 20, Unsatisfied: 0, HappinessMean: 0.8})
	if findBookmark(bookmarks, BookmarkAllSatisfied) != nil {
		t.Error("all_satisfied fired twice")
	}
}

func TestBookmarkDetector_IgnoresEmptyGrid(t *testing.T) {
	bd := NewBookmarkDetector(5, 0.001)
	if bookmarks := bd.Check(CycleStats{Cycle: 0}); len(bookmarks) != 0 {
		t.Errorf("got %v for a grid with no agents", bookmarks)
	}
}

func TestBookmarkDetector_Plateau(t *testing.T) {
	bd := NewBookmarkDetector(4, 0.01)

	// Rising happiness: no plateau.
	for i := 0; i < 4; i++ {
		bookmarks := bd.Check(CycleStats{Cycle: i, Occupied: 30, Unsatisfied: 6, HappinessMean: 0.5 + float64(i)*0.05})
		if findBookmark(bookmarks, BookmarkPlateau) != nil {
			t.Fatalf("cycle %d: unexpected plateau while rising", i)
		}
	}

	// Flat happiness with agents still moving.
	var fired []int
	for i := 4; i < 12; i++ {
		bookmarks := bd.Check(CycleStats{Cycle: i, Occupied: 30, Unsatisfied: 3, HappinessMean: 0.7})
		if findBookmark(bookmarks, BookmarkPlateau) != nil {
			fired = append(fired, i)
		}
	}
	if len(fired) != 1 || fired[0] != 7 {
		t.Errorf("plateau fired at cycles %v, want [7]", fired)
	}
}

func TestBookmarkDetector_PlateauRearms(t *testing.T) {
	bd := NewBookmarkDetector(3, 0.01)
	feed := func(cycle int, mean float64) []Bookmark {
		return bd.Check(CycleStats{Cycle: cycle, Occupied: 10, Unsatisfied: 2, HappinessMean: mean})
	}

	var count int
	means := []float64{0.6, 0.6, 0.6, 0.8, 0.8, 0.8}
	for i, m := range means {
		if findBookmark(feed(i, m), BookmarkPlateau) != nil {
			count++
		}
	}
	if count != 2 {
		t.Errorf("plateau fired %d times, want 2", count)
	}
}
