// Package persistence provides SQLite-based storage of runs and their
// trajectories.
package persistence

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/mini-culture/internal/batch"
)

// ErrNotFound is returned when a run ID is not stored.
var ErrNotFound = errors.New("run not found")

// DB wraps a SQLite connection for run history.
type DB struct {
	conn *sqlx.DB
}

// RunRow is one stored run.
type RunRow struct {
	ID             string  `db:"id" json:"id"`
	CreatedAt      string  `db:"created_at" json:"created_at"`
	Row            int     `db:"param_row" json:"row"`
	Strategy       string  `db:"strategy" json:"strategy"`
	Seed           int64   `db:"seed" json:"seed"`
	PopulationSize int     `db:"population_size" json:"population_size"`
	Generations    int     `db:"generations" json:"generations"`
	TraitPrior     float64 `db:"trait_prob" json:"trait_prob"`
	Trait2Prior    float64 `db:"trait_2_prob" json:"trait_2_prob"`
	TraitLink      float64 `db:"trait_link" json:"trait_link"`
	PayoffBonus    float64 `db:"payoff_bonus" json:"payoff_bonus"`
	FinalTraitA    float64 `db:"final_trait_a" json:"final_trait_a"`
	FinalTraitX    float64 `db:"final_trait_x" json:"final_trait_x"`
	Filename       string  `db:"filename" json:"filename,omitempty"`
	Error          string  `db:"error" json:"error,omitempty"`
}

// TrajectoryPoint is one generation of a stored trajectory.
type TrajectoryPoint struct {
	Generation int     `db:"generation" json:"generation"`
	TraitA     float64 `db:"trait_a" json:"trait_a"`
	TraitX     float64 `db:"trait_x" json:"trait_x"`
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		created_at TEXT NOT NULL,
		param_row INTEGER NOT NULL,
		strategy TEXT NOT NULL,
		seed INTEGER NOT NULL,
		population_size INTEGER NOT NULL,
		generations INTEGER NOT NULL,
		trait_prob REAL NOT NULL,
		trait_2_prob REAL NOT NULL,
		trait_link REAL NOT NULL,
		payoff_bonus REAL NOT NULL,
		final_trait_a REAL NOT NULL,
		final_trait_x REAL NOT NULL,
		filename TEXT NOT NULL,
		error TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS trajectories (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		generation INTEGER NOT NULL,
		trait_a REAL NOT NULL,
		trait_x REAL NOT NULL,
		PRIMARY KEY (run_id, generation)
	);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
	CREATE INDEX IF NOT EXISTS idx_runs_strategy ON runs(strategy);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// SaveResults stores a batch of results in one transaction. Failed rows are
// stored with their error and no trajectory.
func (db *DB) SaveResults(results []batch.Result, strategy string, generations int) error {
	if len(results) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	runStmt, err := tx.Preparex(`INSERT OR REPLACE INTO runs
		(id, created_at, param_row, strategy, seed, population_size, generations,
		 trait_prob, trait_2_prob, trait_link, payoff_bonus,
		 final_trait_a, final_trait_x, filename, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer runStmt.Close()

	pointStmt, err := tx.Preparex(`INSERT OR REPLACE INTO trajectories
		(run_id, generation, trait_a, trait_x) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer pointStmt.Close()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, r := range results {
		row := runRowFor(r, strategy, generations)
		_, err := runStmt.Exec(
			r.RunID, now, row.Row, row.Strategy, row.Seed, row.PopulationSize, row.Generations,
			row.TraitPrior, row.Trait2Prior, row.TraitLink, row.PayoffBonus,
			row.FinalTraitA, row.FinalTraitX, row.Filename, row.Error,
		)
		if err != nil {
			return fmt.Errorf("insert run %s: %w", r.RunID, err)
		}

		if r.Trajectory == nil {
			continue
		}
		for i := range r.Trajectory.TraitA {
			if _, err := pointStmt.Exec(r.RunID, i+1, r.Trajectory.TraitA[i], r.Trajectory.TraitX[i]); err != nil {
				return fmt.Errorf("insert trajectory %s/%d: %w", r.RunID, i+1, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	slog.Info("results saved", "runs", len(results))
	return nil
}

func runRowFor(r batch.Result, strategy string, generations int) RunRow {
	row := RunRow{
		ID:             r.RunID,
		Row:            r.Record.Row,
		Strategy:       strategy,
		Seed:           r.Seed,
		PopulationSize: r.Record.PopulationSize,
		Generations:    generations,
		TraitPrior:     r.Record.TraitPrior,
		Trait2Prior:    r.Record.Trait2Prior,
		TraitLink:      r.Record.Link,
		PayoffBonus:    float64(r.Record.PayoffBonus),
		Filename:       r.Filename,
	}
	if r.Trajectory != nil {
		row.Strategy = r.Trajectory.Strategy
		row.Seed = r.Trajectory.Seed
		row.Generations = r.Trajectory.Generations
		row.FinalTraitA, row.FinalTraitX = r.Trajectory.Final()
	}
	if r.Err != nil {
		row.Error = r.Err.Error()
	}
	return row
}

// LoadRuns returns the most recent runs, newest first.
func (db *DB) LoadRuns(limit int) ([]RunRow, error) {
	var runs []RunRow
	err := db.conn.Select(&runs,
		"SELECT * FROM runs ORDER BY created_at DESC, param_row ASC LIMIT ?",
		limit,
	)
	return runs, err
}

// LoadRun returns one run by ID.
func (db *DB) LoadRun(id string) (*RunRow, error) {
	var run RunRow
	err := db.conn.Get(&run, "SELECT * FROM runs WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// LoadTrajectory returns the stored trajectory of a run in generation order.
func (db *DB) LoadTrajectory(id string) ([]TrajectoryPoint, error) {
	var points []TrajectoryPoint
	err := db.conn.Select(&points,
		"SELECT generation, trait_a, trait_x FROM trajectories WHERE run_id = ? ORDER BY generation",
		id,
	)
	return points, err
}

// SaveMeta stores a key-value pair.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM meta WHERE key = ?", key)
	return value, err
}

// CountRuns returns the number of stored runs.
func (db *DB) CountRuns() (int, error) {
	var n int
	err := db.conn.Get(&n, "SELECT COUNT(*) FROM runs")
	return n, err
}
