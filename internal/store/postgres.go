package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/adperf/internal/analysis"
	"github.com/sells-group/adperf/internal/db"
	"github.com/sells-group/adperf/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool sizing.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

const (
	sqlInsertRun = `INSERT INTO runs (id, campaign, period, window_days, status, bottleneck, confidence, result, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	sqlGetRun    = `SELECT ` + runColumns + ` FROM runs WHERE id = $1`
	sqlDeleteRun = `DELETE FROM runs WHERE id = $1`
)

// preparedStatements are prepared on each new connection.
var preparedStatements = map[string]string{
	"insert_run": sqlInsertRun,
	"get_run":    sqlGetRun,
	"delete_run": sqlDeleteRun,
}

var runMetricColumns = []string{"run_id", "metric", "current", "lower", "upper", "state", "deviation"}

// NewPostgres connects a pool and pings it.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	pgxCfg.MaxConns = 4
	pgxCfg.MinConns = 1
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			pgxCfg.MaxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			pgxCfg.MinConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	campaign    TEXT NOT NULL,
	period      TEXT NOT NULL,
	window_days INTEGER NOT NULL DEFAULT 0,
	status      TEXT NOT NULL,
	bottleneck  TEXT NOT NULL DEFAULT '',
	confidence  TEXT NOT NULL,
	result      JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS run_metrics (
	run_id    TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	metric    TEXT NOT NULL,
	current   DOUBLE PRECISION NOT NULL,
	lower     DOUBLE PRECISION NOT NULL,
	upper     DOUBLE PRECISION NOT NULL,
	state     TEXT NOT NULL,
	deviation DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (run_id, metric)
);

CREATE INDEX IF NOT EXISTS idx_runs_campaign ON runs(campaign);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_run_metrics_metric ON run_metrics(metric);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) SaveRun(ctx context.Context, res analysis.Result, windowDays int) (*Run, error) {
	run := newRun(uuid.New().String(), res, windowDays, time.Now().UTC())

	resultJSON, err := json.Marshal(run.Result)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal result")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: begin")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx, sqlInsertRun,
		run.ID, run.Campaign, run.Period, run.WindowDays, string(run.Status),
		string(run.Bottleneck), string(run.Confidence), resultJSON, run.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	rows := make([][]any, 0, len(res.Judgments))
	for _, j := range res.Judgments {
		rows = append(rows, []any{run.ID, string(j.Metric), j.Current, j.Band.Lower, j.Band.Upper, j.State.String(), j.Deviation})
	}
	if _, err := db.CopyFrom(ctx, tx, "run_metrics", runMetricColumns, rows); err != nil {
		return nil, eris.Wrap(err, "postgres: copy run metrics")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, eris.Wrap(err, "postgres: commit")
	}
	return run, nil
}

func (s *PostgresStore) GetRun(ctx context.Context, id string) (*Run, error) {
	r, err := scanPgRun(s.pool.QueryRow(ctx, sqlGetRun, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", id)
	}
	return r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Campaign != "" {
		query += fmt.Sprintf(` AND campaign = $%d`, argIdx)
		args = append(args, filter.Campaign)
		argIdx++
	}
	if filter.Bottleneck != "" {
		query += fmt.Sprintf(` AND bottleneck = $%d`, argIdx)
		args = append(args, string(filter.Bottleneck))
		argIdx++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}

	query += fmt.Sprintf(` ORDER BY created_at DESC, id LIMIT $%d`, argIdx)
	args = append(args, filter.limit())
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanPgRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) DeleteRun(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, sqlDeleteRun, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete run %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "id %s", id)
	}
	return nil
}

func (s *PostgresStore) MetricHistory(ctx context.Context, campaign string, metric model.Metric, limit int) ([]MetricPoint, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.pool.Query(ctx,
		`SELECT m.run_id, m.metric, m.current, m.lower, m.upper, m.state, m.deviation, r.created_at
		 FROM run_metrics m JOIN runs r ON r.id = m.run_id
		 WHERE r.campaign = $1 AND m.metric = $2
		 ORDER BY r.created_at DESC LIMIT $3`,
		campaign, string(metric), limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: metric history")
	}
	defer rows.Close()

	var points []MetricPoint
	for rows.Next() {
		var p MetricPoint
		var metricName, state string
		if err := rows.Scan(&p.RunID, &metricName, &p.Current, &p.Lower, &p.Upper, &state, &p.Deviation, &p.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan metric")
		}
		p.Metric = model.Metric(metricName)
		if err := p.State.UnmarshalText([]byte(state)); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, eris.Wrap(rows.Err(), "postgres: metric history iterate")
}

func scanPgRun(row pgx.Row) (*Run, error) {
	var r Run
	var status, bottleneck, confidence string
	var resultJSON []byte

	if err := row.Scan(&r.ID, &r.Campaign, &r.Period, &r.WindowDays, &status,
		&bottleneck, &confidence, &resultJSON, &r.CreatedAt); err != nil {
		return nil, err
	}
	r.Status = analysis.Status(status)
	r.Bottleneck = model.Metric(bottleneck)
	r.Confidence = analysis.Confidence(confidence)

	r.Result = &analysis.Result{}
	if err := json.Unmarshal(resultJSON, r.Result); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal result")
	}
	return &r, nil
}
