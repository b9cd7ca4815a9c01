package recorder

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists run history to a SQLite database.
type SQLiteRecorder struct {
	db     *sql.DB
	sq     squirrel.StatementBuilderType
	mu     sync.Mutex
	logger zerolog.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, logger zerolog.Logger) (*SQLiteRecorder, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so `history` can read while `watch` writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{
		db:     db,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
		logger: logger,
	}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS analysis_runs (
			id            TEXT PRIMARY KEY,
			started_at    INTEGER NOT NULL,
			finished_at   INTEGER NOT NULL,
			tickers       INTEGER,
			fetched       INTEGER,
			groups_count  INTEGER,
			matches       INTEGER,
			notify_status TEXT,
			notify_error  TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON analysis_runs(started_at)`,

		`CREATE TABLE IF NOT EXISTS alert_matches (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id      TEXT NOT NULL REFERENCES analysis_runs(id),
			timestamp   INTEGER NOT NULL,
			group_name  TEXT NOT NULL,
			ticker      TEXT NOT NULL,
			price       REAL,
			description TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_matches_ts ON alert_matches(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_matches_ticker ON alert_matches(ticker)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordRun stores a run and its matches in one transaction.
func (r *SQLiteRecorder) RecordRun(run *RunRecord, matches []MatchRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}

	_, err = r.sq.
		Insert("analysis_runs").
		Columns("id", "started_at", "finished_at", "tickers", "fetched", "groups_count", "matches", "notify_status", "notify_error").
		Values(run.ID, run.StartedAt.UnixMilli(), run.FinishedAt.UnixMilli(),
			run.Tickers, run.Fetched, run.Groups, run.Matches, run.NotifyStatus, run.NotifyError).
		RunWith(tx).
		Exec()
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("insert run: %w", err)
	}

	if len(matches) > 0 {
		insert := r.sq.
			Insert("alert_matches").
			Columns("run_id", "timestamp", "group_name", "ticker", "price", "description")
		for _, m := range matches {
			at := m.At
			if at.IsZero() {
				at = run.FinishedAt
			}
			insert = insert.Values(run.ID, at.UnixMilli(), m.Group, m.Ticker, m.Price, m.Description)
		}
		if _, err := insert.RunWith(tx).Exec(); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert matches: %w", err)
		}
	}
	return tx.Commit()
}

// RecentRuns returns up to limit runs, newest first.
func (r *SQLiteRecorder) RecentRuns(limit int) ([]RunRecord, error) {
	rows, err := r.sq.
		Select("id", "started_at", "finished_at", "tickers", "fetched", "groups_count", "matches", "notify_status", "notify_error").
		From("analysis_runs").
		OrderBy("started_at DESC", "rowid DESC").
		Limit(uint64(max(limit, 1))).
		RunWith(r.db).
		Query()
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var run RunRecord
		var started, finished int64
		if err := rows.Scan(&run.ID, &started, &finished, &run.Tickers, &run.Fetched, &run.Groups,
			&run.Matches, &run.NotifyStatus, &run.NotifyError); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.StartedAt = time.UnixMilli(started)
		run.FinishedAt = time.UnixMilli(finished)
		out = append(out, run)
	}
	return out, rows.Err()
}

// RecentMatches returns matches selected by q, newest first.
func (r *SQLiteRecorder) RecentMatches(q MatchQuery) ([]MatchRecord, error) {
	query := r.sq.
		Select("run_id", "timestamp", "group_name", "ticker", "price", "description").
		From("alert_matches").
		OrderBy("timestamp DESC", "id DESC").
		Limit(uint64(max(q.Limit, 1)))
	if q.Ticker != "" {
		query = query.Where(squirrel.Eq{"ticker": q.Ticker})
	}
	if q.Group != "" {
		query = query.Where(squirrel.Eq{"group_name": q.Group})
	}

	rows, err := query.RunWith(r.db).Query()
	if err != nil {
		return nil, fmt.Errorf("query matches: %w", err)
	}
	defer rows.Close()

	var out []MatchRecord
	for rows.Next() {
		var m MatchRecord
		var ts int64
		if err := rows.Scan(&m.RunID, &ts, &m.Group, &m.Ticker, &m.Price, &m.Description); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		m.At = time.UnixMilli(ts)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	r.logger.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
