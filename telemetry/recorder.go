package telemetry

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const recorderSchema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	started_at TEXT NOT NULL,
	finished_at TEXT,
	seed INTEGER NOT NULL,
	dimension INTEGER NOT NULL,
	vacancy_percent INTEGER NOT NULL,
	endline_percent INTEGER NOT NULL,
	strength_percent INTEGER NOT NULL,
	cycle_limit INTEGER,
	config_yaml TEXT NOT NULL,
	cycles_run INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS cycles (
	run_id TEXT NOT NULL REFERENCES runs(id),
	cycle INTEGER NOT NULL,
	moves INTEGER NOT NULL,
	occupied INTEGER NOT NULL,
	vacancies INTEGER NOT NULL,
	unsatisfied INTEGER NOT NULL,
	happiness_mean REAL NOT NULL,
	happiness_std REAL NOT NULL,
	segregation REAL NOT NULL,
	PRIMARY KEY (run_id, cycle)
);

CREATE TABLE IF NOT EXISTS bookmarks (
	run_id TEXT NOT NULL REFERENCES runs(id),
	cycle INTEGER NOT NULL,
	type TEXT NOT NULL,
	description TEXT NOT NULL
);
`

// RunInfo describes a run when it is registered with a Recorder.
type RunInfo struct {
	Seed            int64  `db:"seed"`
	Dimension       int    `db:"dimension"`
	VacancyPercent  int    `db:"vacancy_percent"`
	EndlinePercent  int    `db:"endline_percent"`
	StrengthPercent int    `db:"strength_percent"`
	CycleLimit      *int   `db:"cycle_limit"` // nil for continuous runs
	ConfigYAML      string `db:"config_yaml"`
}

// RunRecord is a row of the runs table.
type RunRecord struct {
	ID         string  `db:"id"`
	StartedAt  string  `db:"started_at"`
	FinishedAt *string `db:"finished_at"`
	CyclesRun  int     `db:"cycles_run"`
	RunInfo
}

// Recorder keeps a SQLite history of runs and their cycle statistics.
// Each process registers one run; earlier runs are never read back into a
// simulation.
type Recorder struct {
	conn  *sqlx.DB
	runID string
	now   func() time.Time
}

// OpenRecorder opens or creates the history database at path.
// Returns nil if path is empty (recording disabled).
func OpenRecorder(path string) (*Recorder, error) {
	if path == "" {
		return nil, nil
	}

	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open recorder: %w", err)
	}
	if _, err := conn.Exec(recorderSchema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate recorder: %w", err)
	}

	return &Recorder{conn: conn, now: time.Now}, nil
}

// BeginRun registers a new run and returns its id.
func (r *Recorder) BeginRun(info RunInfo) (string, error) {
	if r == nil {
		return "", nil
	}

	id := uuid.NewString()
	_, err := r.conn.NamedExec(`
		INSERT INTO runs (id, started_at, seed, dimension, vacancy_percent, endline_percent,
			strength_percent, cycle_limit, config_yaml)
		VALUES (:id, :started_at, :seed, :dimension, :vacancy_percent, :endline_percent,
			:strength_percent, :cycle_limit, :config_yaml)`,
		RunRecord{ID: id, StartedAt: r.timestamp(), RunInfo: info},
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	r.runID = id
	return id, nil
}

// RunID returns the id of the current run.
func (r *Recorder) RunID() string {
	if r == nil {
		return ""
	}
	return r.runID
}

// RecordCycle stores one cycle and any bookmarks it triggered.
func (r *Recorder) RecordCycle(stats CycleStats, bookmarks []Bookmark) error {
	if r == nil || r.runID == "" {
		return nil
	}

	tx, err := r.conn.Beginx()
	if err != nil {
		return fmt.Errorf("begin cycle tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO cycles (run_id, cycle, moves, occupied, vacancies, unsatisfied,
			happiness_mean, happiness_std, segregation)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.runID, stats.Cycle, stats.Moves, stats.Occupied, stats.Vacancies, stats.Unsatisfied,
		stats.HappinessMean, stats.HappinessStd, stats.Segregation,
	)
	if err != nil {
		return fmt.Errorf("insert cycle %d: %w", stats.Cycle, err)
	}

	for _, b := range bookmarks {
		_, err := tx.Exec(
			"INSERT INTO bookmarks (run_id, cycle, type, description) VALUES (?, ?, ?, ?)",
			r.runID, b.Cycle, string(b.Type), b.Description,
		)
		if err != nil {
			return fmt.Errorf("insert bookmark: %w", err)
		}
	}

	if _, err := tx.Exec("UPDATE runs SET cycles_run = ? WHERE id = ?", stats.Cycle+1, r.runID); err != nil {
		return fmt.Errorf("update run: %w", err)
	}

	return tx.Commit()
}

// Runs returns recorded runs, newest first.
func (r *Recorder) Runs(limit int) ([]RunRecord, error) {
	var runs []RunRecord
	err := r.conn.Select(&runs, `
		SELECT id, started_at, finished_at, cycles_run, seed, dimension, vacancy_percent,
			endline_percent, strength_percent, cycle_limit, config_yaml
		FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	return runs, err
}

// CycleHistory returns the stored statistics of a run in cycle order.
func (r *Recorder) CycleHistory(runID string) ([]CycleStats, error) {
	var rows []struct {
		Cycle         int     `db:"cycle"`
		Moves         int     `db:"moves"`
		Occupied      int     `db:"occupied"`
		Vacancies     int     `db:"vacancies"`
		Unsatisfied   int     `db:"unsatisfied"`
		HappinessMean float64 `db:"happiness_mean"`
		HappinessStd  float64 `db:"happiness_std"`
		Segregation   float64 `db:"segregation"`
	}
	err := r.conn.Select(&rows, `
		SELECT cycle, moves, occupied, vacancies, unsatisfied, happiness_mean, happiness_std, segregation
		FROM cycles WHERE run_id = ? ORDER BY cycle`, runID)
	if err != nil {
		return nil, err
	}

	history := make([]CycleStats, len(rows))
	for i, row := range rows {
		history[i] = CycleStats{
			Cycle:         row.Cycle,
			Moves:         row.Moves,
			Occupied:      row.Occupied,
			Vacancies:     row.Vacancies,
			Unsatisfied:   row.Unsatisfied,
			HappinessMean: row.HappinessMean,
			HappinessStd:  row.HappinessStd,
			Segregation:   row.Segregation,
		}
	}
	return history, nil
}

// Close marks the current run finished and closes the database.
func (r *Recorder) Close() error {
	if r == nil {
		return nil
	}
	if r.runID != "" {
		if _, err := r.conn.Exec("UPDATE runs SET finished_at = ? WHERE id = ?", r.timestamp(), r.runID); err != nil {
			r.conn.Close()
			return fmt.Errorf("finish run: %w", err)
		}
	}
	return r.conn.Close()
}

func (r *Recorder) timestamp() string {
	return r.now().UTC().Format(time.RFC3339Nano)
}
