package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/adperf/internal/analysis"
	"github.com/sells-group/adperf/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn in WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	campaign    TEXT NOT NULL,
	period      TEXT NOT NULL,
	window_days INTEGER NOT NULL DEFAULT 0,
	status      TEXT NOT NULL,
	bottleneck  TEXT NOT NULL DEFAULT '',
	confidence  TEXT NOT NULL,
	result      TEXT NOT NULL,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS run_metrics (
	run_id    TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	metric    TEXT NOT NULL,
	current   REAL NOT NULL,
	lower     REAL NOT NULL,
	upper     REAL NOT NULL,
	state     TEXT NOT NULL,
	deviation REAL NOT NULL,
	PRIMARY KEY (run_id, metric)
);

CREATE INDEX IF NOT EXISTS idx_runs_campaign ON runs(campaign);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
CREATE INDEX IF NOT EXISTS idx_run_metrics_metric ON run_metrics(metric);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveRun(ctx context.Context, res analysis.Result, windowDays int) (*Run, error) {
	run := newRun(uuid.New().String(), res, windowDays, time.Now().UTC())

	resultJSON, err := json.Marshal(run.Result)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal result")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, campaign, period, window_days, status, bottleneck, confidence, result, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Campaign, run.Period, run.WindowDays, string(run.Status),
		string(run.Bottleneck), string(run.Confidence), string(resultJSON), run.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	for _, j := range res.Judgments {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO run_metrics (run_id, metric, current, lower, upper, state, deviation)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			run.ID, string(j.Metric), j.Current, j.Band.Lower, j.Band.Upper, j.State.String(), j.Deviation,
		)
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: insert metric %s", j.Metric)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit")
	}
	return run, nil
}

const runColumns = `id, campaign, period, window_days, status, bottleneck, confidence, result, created_at`

func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	return scanRun(row)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE 1=1`
	var args []any

	if filter.Campaign != "" {
		query += ` AND campaign = ?`
		args = append(args, filter.Campaign)
	}
	if filter.Bottleneck != "" {
		query += ` AND bottleneck = ?`
		args = append(args, string(filter.Bottleneck))
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC, id LIMIT ?`
	args = append(args, filter.limit())

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) DeleteRun(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete run %s", id)
	}
	return checkRowsAffected(res, id)
}

func (s *SQLiteStore) MetricHistory(ctx context.Context, campaign string, metric model.Metric, limit int) ([]MetricPoint, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT m.run_id, m.metric, m.current, m.lower, m.upper, m.state, m.deviation, r.created_at
		 FROM run_metrics m JOIN runs r ON r.id = m.run_id
		 WHERE r.campaign = ? AND m.metric = ?
		 ORDER BY r.created_at DESC LIMIT ?`,
		campaign, string(metric), limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: metric history")
	}
	defer rows.Close() //nolint:errcheck

	var points []MetricPoint
	for rows.Next() {
		var p MetricPoint
		var state string
		if err := rows.Scan(&p.RunID, &p.Metric, &p.Current, &p.Lower, &p.Upper, &state, &p.Deviation, &p.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan metric")
		}
		if err := p.State.UnmarshalText([]byte(state)); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, eris.Wrap(rows.Err(), "sqlite: metric history iterate")
}

// helpers

func checkRowsAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "id %s", id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*Run, error) {
	var r Run
	var resultJSON string

	err := row.Scan(&r.ID, &r.Campaign, &r.Period, &r.WindowDays, &r.Status,
		&r.Bottleneck, &r.Confidence, &resultJSON, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}

	r.Result = &analysis.Result{}
	if err := json.Unmarshal([]byte(resultJSON), r.Result); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal result")
	}
	return &r, nil
}
