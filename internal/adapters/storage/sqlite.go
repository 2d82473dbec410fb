package storage

// sqlite.go — persistencia de runs y trades.
//
// Estrategia:
//   - `runs`: una fila por ejecución con el resumen de métricas.
//   - `trades`: el ledger completo del run, inmutable una vez escrito.
//   - Prune automático al arrancar: runs (y sus trades) de más de 90 días.

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alejandrodnm/velabot/internal/domain"
	"github.com/alejandrodnm/velabot/internal/ports"
	_ "modernc.org/sqlite"
)

const schema = `
-- Resumen por ejecución del backtest
CREATE TABLE IF NOT EXISTS runs (
    id             TEXT PRIMARY KEY,
    ran_at         DATETIME NOT NULL,
    source         TEXT     NOT NULL,
    bars           INTEGER  NOT NULL DEFAULT 0,
    initial_equity REAL     NOT NULL DEFAULT 0,
    final_equity   REAL     NOT NULL DEFAULT 0,
    total_trades   INTEGER  NOT NULL DEFAULT 0,
    win_rate       REAL,
    profit_factor  REAL,
    max_drawdown   REAL     NOT NULL DEFAULT 0,
    sharpe_ratio   REAL,
    net_pnl        REAL     NOT NULL DEFAULT 0
);

-- Ledger de trades cerrados, una fila por trade
CREATE TABLE IF NOT EXISTS trades (
    id          TEXT PRIMARY KEY,
    run_id      TEXT    NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    direction   TEXT    NOT NULL,
    entry_index INTEGER NOT NULL,
    entry_time  DATETIME NOT NULL,
    entry_price REAL    NOT NULL,
    exit_index  INTEGER NOT NULL,
    exit_time   DATETIME NOT NULL,
    exit_price  REAL    NOT NULL,
    size        REAL    NOT NULL,
    pnl         REAL    NOT NULL,
    commission  REAL    NOT NULL DEFAULT 0,
    exit_reason TEXT    NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_at      ON runs(ran_at DESC);
CREATE INDEX IF NOT EXISTS idx_trades_run   ON trades(run_id);
CREATE INDEX IF NOT EXISTS idx_trades_entry ON trades(entry_time);
`

// retentionRuns: los runs de más de 90 días se podan al abrir.
const retentionRuns = 90 * 24 * time.Hour

// SQLiteStore implementa ports.LedgerStore usando SQLite (pure Go, sin CGo).
type SQLiteStore struct {
	db *sql.DB
}

var _ ports.LedgerStore = (*SQLiteStore)(nil)

// NewSQLiteStore abre (o crea) la base de datos en la ruta dada, aplica el
// schema y limpia runs antiguos.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStore: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStore: apply schema: %w", err)
	}
	if _, err := db.Exec(`DELETE FROM runs WHERE ran_at < ?`, time.Now().Add(-retentionRuns)); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStore: prune: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// SaveRun persiste el resumen y el ledger en una única transacción.
func (s *SQLiteStore) SaveRun(ctx context.Context, run ports.RunSummary, trades []domain.Trade) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveRun: begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, ran_at, source, bars, initial_equity, final_equity,
		                  total_trades, win_rate, profit_factor, max_drawdown, sharpe_ratio, net_pnl)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, time.Now().UTC(), run.Source, run.Bars, run.InitialEquity, run.FinalEquity,
		run.Report.TotalTrades, nullable(run.Report.WinRate), nullable(run.Report.ProfitFactor),
		run.Report.MaxDrawdown, nullable(run.Report.SharpeRatio), run.Report.NetPnL,
	)
	if err != nil {
		return fmt.Errorf("storage.SaveRun: insert run %s: %w", run.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO trades (id, run_id, direction, entry_index, entry_time, entry_price,
		                    exit_index, exit_time, exit_price, size, pnl, commission, exit_reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("storage.SaveRun: prepare trades: %w", err)
	}
	defer stmt.Close()

	for _, t := range trades {
		_, err := stmt.ExecContext(ctx,
			t.ID, run.ID, string(t.Direction), t.EntryIndex, t.EntryTime.UTC(), t.EntryPrice,
			t.ExitIndex, t.ExitTime.UTC(), t.ExitPrice, t.Size, t.PnL, t.Commission, string(t.ExitReason),
		)
		if err != nil {
			return fmt.Errorf("storage.SaveRun: insert trade %s: %w", t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.SaveRun: commit: %w", err)
	}
	return nil
}

// LoadTrades recupera el ledger de un run, en orden de entrada.
func (s *SQLiteStore) LoadTrades(ctx context.Context, runID string) ([]domain.Trade, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, direction, entry_index, entry_time, entry_price,
		       exit_index, exit_time, exit_price, size, pnl, commission, exit_reason
		FROM trades WHERE run_id = ? ORDER BY entry_index`, runID)
	if err != nil {
		return nil, fmt.Errorf("storage.LoadTrades: query run %s: %w", runID, err)
	}
	defer rows.Close()

	var trades []domain.Trade
	for rows.Next() {
		var t domain.Trade
		var dir, reason string
		if err := rows.Scan(&t.ID, &dir, &t.EntryIndex, &t.EntryTime, &t.EntryPrice,
			&t.ExitIndex, &t.ExitTime, &t.ExitPrice, &t.Size, &t.PnL, &t.Commission, &reason); err != nil {
			return nil, fmt.Errorf("storage.LoadTrades: scan: %w", err)
		}
		t.Direction = domain.Direction(dir)
		t.ExitReason = domain.ExitReason(reason)
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// Close cierra la conexión.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// nullable mapea los sentinelas NaN a NULL para que SQLite no rechace el
// valor; los lectores interpretan NULL como "N/A".
func nullable(v float64) any {
	if domain.IsNA(v) {
		return nil
	}
	// SQLite tampoco acepta +Inf como REAL en todos los drivers; también va
	// a NULL y el reporte lo regenera desde el ledger.
	if v > 1e308 {
		return nil
	}
	return v
}
