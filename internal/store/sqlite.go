package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"spx-backtester/internal/errors"
	"spx-backtester/internal/models"
)

// SQLiteStore implements RunStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) a run database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Runs table: one row per completed backtest
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		created_at DATETIME NOT NULL,
		start_date DATE NOT NULL,
		end_date DATE NOT NULL,
		data_source TEXT NOT NULL,
		initial_capital REAL NOT NULL,
		final_equity REAL NOT NULL,
		total_trades INTEGER NOT NULL,
		total_pnl REAL NOT NULL,
		params_json TEXT NOT NULL,
		stats_json TEXT NOT NULL
	);

	-- Trades belonging to a run
	CREATE TABLE IF NOT EXISTS run_trades (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL,
		trade_id TEXT NOT NULL,
		trade_type TEXT NOT NULL,
		entry_time DATETIME NOT NULL,
		exit_time DATETIME,
		size INTEGER NOT NULL,
		pnl REAL NOT NULL,
		pnl_gross REAL NOT NULL,
		status TEXT NOT NULL,
		detail_json TEXT NOT NULL,
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
	CREATE INDEX IF NOT EXISTS idx_run_trades_run ON run_trades(run_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveRun persists a run and its trades in a single transaction and
// returns the new run ID.
func (s *SQLiteStore) SaveRun(ctx context.Context, run *Run, trades []*models.Trade) (int64, error) {
	paramsJSON, err := json.Marshal(run.Params)
	if err != nil {
		return 0, fmt.Errorf("marshaling params: %w", err)
	}
	statsJSON, err := json.Marshal(sanitizeStats(run.Statistics))
	if err != nil {
		return 0, fmt.Errorf("marshaling statistics: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.Database("begin transaction", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO runs (created_at, start_date, end_date, data_source,
			initial_capital, final_equity, total_trades, total_pnl,
			params_json, stats_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.CreatedAt, run.StartDate, run.EndDate, run.DataSource,
		run.InitialCap, run.FinalEquity, run.TotalTrades, run.TotalPnL,
		string(paramsJSON), string(statsJSON))
	if err != nil {
		return 0, errors.Database("insert run", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, errors.Database("run id", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO run_trades (run_id, trade_id, trade_type, entry_time,
			exit_time, size, pnl, pnl_gross, status, detail_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, errors.Database("prepare trade insert", err)
	}
	defer stmt.Close()

	for _, t := range trades {
		detail, err := json.Marshal(t)
		if err != nil {
			return 0, fmt.Errorf("marshaling trade %s: %w", t.ID, err)
		}
		var exitTime interface{}
		if !t.ExitTime.IsZero() {
			exitTime = t.ExitTime
		}
		if _, err := stmt.ExecContext(ctx, runID, t.ID, string(t.Type),
			t.EntryTime, exitTime, t.Size, t.PnL, t.PnLGross,
			string(t.Status), string(detail)); err != nil {
			return 0, errors.Database("insert trade", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.Database("commit run", err)
	}
	return runID, nil
}

// GetRun fetches a stored run by ID.
func (s *SQLiteStore) GetRun(ctx context.Context, id int64) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, start_date, end_date, data_source,
			initial_capital, final_equity, total_trades, total_pnl,
			params_json, stats_json
		FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: run %d", errors.ErrRunNotFound, id)
	}
	return run, err
}

// GetRunTrades restores a run's trades from their JSON detail.
func (s *SQLiteStore) GetRunTrades(ctx context.Context, id int64) ([]*models.Trade, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT detail_json FROM run_trades WHERE run_id = ? ORDER BY entry_time, id`, id)
	if err != nil {
		return nil, errors.Database("query trades", err)
	}
	defer rows.Close()

	var trades []*models.Trade
	for rows.Next() {
		var detail string
		if err := rows.Scan(&detail); err != nil {
			return nil, errors.Database("scan trade", err)
		}
		var t models.Trade
		if err := json.Unmarshal([]byte(detail), &t); err != nil {
			return nil, fmt.Errorf("unmarshaling trade: %w", err)
		}
		trades = append(trades, &t)
	}
	return trades, rows.Err()
}

// ListRuns returns stored runs, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]Run, error) {
	query := `
		SELECT id, created_at, start_date, end_date, data_source,
			initial_capital, final_equity, total_trades, total_pnl,
			params_json, stats_json
		FROM runs WHERE 1=1`
	var args []interface{}
	if !filter.From.IsZero() {
		query += " AND created_at >= ?"
		args = append(args, filter.From)
	}
	if !filter.To.IsZero() {
		query += " AND created_at <= ?"
		args = append(args, filter.To)
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Database("query runs", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// DeleteRun removes a run and its trades.
func (s *SQLiteStore) DeleteRun(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Database("begin transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM run_trades WHERE run_id = ?", id); err != nil {
		return errors.Database("delete trades", err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM runs WHERE id = ?", id)
	if err != nil {
		return errors.Database("delete run", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: run %d", errors.ErrRunNotFound, id)
	}
	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var paramsJSON, statsJSON string
	err := row.Scan(&run.ID, &run.CreatedAt, &run.StartDate, &run.EndDate,
		&run.DataSource, &run.InitialCap, &run.FinalEquity,
		&run.TotalTrades, &run.TotalPnL, &paramsJSON, &statsJSON)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(paramsJSON), &run.Params); err != nil {
		return nil, fmt.Errorf("unmarshaling params: %w", err)
	}
	if err := json.Unmarshal([]byte(statsJSON), &run.Statistics); err != nil {
		return nil, fmt.Errorf("unmarshaling statistics: %w", err)
	}
	return &run, nil
}

// sanitizeStats replaces non-finite values, which JSON cannot carry, with
// large sentinels.
func sanitizeStats(stats models.Statistics) models.Statistics {
	if stats.ProfitFactor > 1e18 {
		stats.ProfitFactor = 1e18
	}
	return stats
}
