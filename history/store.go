// Package history records solver runs and their step reports in sqlite.
package history

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/notargets/gocitcom/model_problems/Energy"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	title       TEXT NOT NULL,
	started_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS steps (
	run_id       TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	step         INTEGER NOT NULL,
	total_steps  INTEGER NOT NULL,
	rollbacks    INTEGER NOT NULL,
	elapsed      REAL NOT NULL,
	timestep     REAL NOT NULL,
	tmax         REAL NOT NULL,
	visc_heating REAL NOT NULL,
	adi_heating  REAL NOT NULL,
	stop         INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (run_id, step)
);
`

type Store struct {
	db *sql.DB
}

// Run is a Sink writing into one row of runs.
type Run struct {
	ID    string
	Title string
	store *Store
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	if _, err = db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create history schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) BeginRun(title string) (*Run, error) {
	r := &Run{ID: uuid.NewString(), Title: title, store: s}
	_, err := s.db.Exec(`INSERT INTO runs (id, title, started_at) VALUES (?, ?, ?)`,
		r.ID, title, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("begin run: %w", err)
	}
	return r, nil
}

func (r *Run) Publish(rep Energy.Report) error {
	stop := 0
	if rep.Stop {
		stop = 1
	}
	_, err := r.store.db.Exec(`INSERT INTO steps
		(run_id, step, total_steps, rollbacks, elapsed, timestep, tmax, visc_heating, adi_heating, stop)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, rep.Step, rep.TotalSteps, rep.Rollbacks, rep.Elapsed, rep.Timestep,
		rep.Tmax, rep.ViscHeating, rep.AdiHeating, stop)
	if err != nil {
		return fmt.Errorf("record step %d: %w", rep.Step, err)
	}
	return nil
}

// Runs lists run ids, oldest first.
func (s *Store) Runs() (ids []string, err error) {
	rows, err := s.db.Query(`SELECT id FROM runs ORDER BY started_at, rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if err = rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) Steps(runID string) (reps []Energy.Report, err error) {
	rows, err := s.db.Query(`SELECT step, total_steps, rollbacks, elapsed, timestep,
		tmax, visc_heating, adi_heating, stop FROM steps WHERE run_id = ? ORDER BY step`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			rep  Energy.Report
			stop int
		)
		if err = rows.Scan(&rep.Step, &rep.TotalSteps, &rep.Rollbacks, &rep.Elapsed,
			&rep.Timestep, &rep.Tmax, &rep.ViscHeating, &rep.AdiHeating, &stop); err != nil {
			return nil, err
		}
		rep.Stop = stop != 0
		reps = append(reps, rep)
	}
	return reps, rows.Err()
}
