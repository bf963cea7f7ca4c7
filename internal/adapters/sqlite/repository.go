// Package sqlite persists positions and closed trades. It implements
// ports.PositionRepository and ports.TradeRepository over a single SQLite
// database file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"mtPilotBot/internal/domain"
	"mtPilotBot/internal/ports"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Repository implements the position and trade repositories using SQLite.
type Repository struct {
	db     *sql.DB
	logger ports.Logger
}

// Config holds configuration for the SQLite repository.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewRepository opens (creating if needed) the database and initializes the schema.
func NewRepository(cfg Config) (*Repository, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite repository")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/pilot_bot.db"
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
	}

	// WAL mode for better concurrency between the scan loop and readers.
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database at '%s': %w", dbPath, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: failed to ping database at '%s': %v", ports.ErrDBConnection, dbPath, err)
	}

	// The Go driver benefits from a single connection; SQLite serializes anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	repo := &Repository{db: db, logger: cfg.Logger}
	if err := repo.initializeSchema(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	cfg.Logger.Info(context.Background(), "SQLite repository initialized", map[string]interface{}{"path": dbPath})
	return repo, nil
}

func (r *Repository) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS positions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ticket INTEGER NOT NULL DEFAULT 0,
		symbol TEXT NOT NULL,
		action TEXT NOT NULL,
		entry_price REAL NOT NULL,
		exit_price REAL DEFAULT NULL,
		volume REAL NOT NULL,
		stop_loss REAL NOT NULL,
		take_profit REAL NOT NULL,
		confidence REAL NOT NULL DEFAULT 0,
		entry_time TIMESTAMP NOT NULL,
		exit_time TIMESTAMP DEFAULT NULL,
		status TEXT NOT NULL,
		pnl REAL DEFAULT NULL,
		close_reason TEXT NULL
	);

	CREATE TABLE IF NOT EXISTS trade_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		position_id INTEGER NULL,
		symbol TEXT NOT NULL,
		action TEXT NOT NULL,
		entry_price REAL NOT NULL,
		exit_price REAL NOT NULL,
		volume REAL NOT NULL,
		take_profit REAL NOT NULL DEFAULT 0,
		stop_loss REAL NOT NULL DEFAULT 0,
		confidence REAL NOT NULL DEFAULT 0,
		pnl REAL NOT NULL,
		entry_time TIMESTAMP NOT NULL,
		exit_time TIMESTAMP NOT NULL,
		close_reason TEXT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_positions_symbol_status ON positions (symbol, status);
	CREATE INDEX IF NOT EXISTS idx_trade_history_symbol_entry_time ON trade_history (symbol, entry_time);
	`
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("%w: %v", ports.ErrQueryFailed, err)
	}
	return nil
}

// Close closes the underlying database handle.
func (r *Repository) Close() error {
	return r.db.Close()
}

// --- ports.PositionRepository ---

// Create saves a new position and returns its assigned ID.
func (r *Repository) Create(ctx context.Context, pos *domain.Position) (int64, error) {
	const q = `INSERT INTO positions
		(ticket, symbol, action, entry_price, volume, stop_loss, take_profit, confidence, entry_time, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q,
		pos.Ticket, pos.Symbol, string(pos.Action), pos.EntryPrice, pos.Volume,
		pos.StopLoss, pos.TakeProfit, pos.Confidence, pos.EntryTime, string(pos.Status))
	if err != nil {
		return 0, fmt.Errorf("%w: failed to insert position: %v", ports.ErrQueryFailed, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: failed to get position ID: %v", ports.ErrQueryFailed, err)
	}
	pos.ID = id
	return id, nil
}

// Update modifies an existing position.
func (r *Repository) Update(ctx context.Context, pos *domain.Position) error {
	const q = `UPDATE positions
		SET exit_price = ?, exit_time = ?, status = ?, pnl = ?, close_reason = ?
		WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q,
		nullFloat(pos.ExitPrice), nullTime(pos.ExitTime), string(pos.Status),
		nullFloat(pos.PNL), string(pos.CloseReason), pos.ID)
	if err != nil {
		return fmt.Errorf("%w: failed to update position %d: %v", ports.ErrUpdateFailed, pos.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %v", ports.ErrUpdateFailed, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: position %d", ports.ErrNotFound, pos.ID)
	}
	return nil
}

// FindOpenBySymbol retrieves the currently open positions for a given symbol.
func (r *Repository) FindOpenBySymbol(ctx context.Context, symbol string) ([]*domain.Position, error) {
	const q = `SELECT id, ticket, symbol, action, entry_price, COALESCE(exit_price, 0),
		volume, stop_loss, take_profit, confidence, entry_time, exit_time, status,
		COALESCE(pnl, 0), COALESCE(close_reason, '')
		FROM positions WHERE symbol = ? AND status = ? ORDER BY entry_time`
	rows, err := r.db.QueryContext(ctx, q, symbol, string(domain.StatusOpen))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query open positions: %v", ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	var positions []*domain.Position
	for rows.Next() {
		pos, err := scanPosition(rows)
		if err != nil {
			return nil, err
		}
		positions = append(positions, pos)
	}
	return positions, rows.Err()
}

// FindByID retrieves a position by its unique ID. Returns nil, nil if not found.
func (r *Repository) FindByID(ctx context.Context, id int64) (*domain.Position, error) {
	const q = `SELECT id, ticket, symbol, action, entry_price, COALESCE(exit_price, 0),
		volume, stop_loss, take_profit, confidence, entry_time, exit_time, status,
		COALESCE(pnl, 0), COALESCE(close_reason, '')
		FROM positions WHERE id = ?`
	row := r.db.QueryRowContext(ctx, q, id)
	pos, err := scanPosition(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return pos, err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPosition(row rowScanner) (*domain.Position, error) {
	var pos domain.Position
	var action, status, closeReason string
	var exitTime sql.NullTime
	err := row.Scan(&pos.ID, &pos.Ticket, &pos.Symbol, &action, &pos.EntryPrice, &pos.ExitPrice,
		&pos.Volume, &pos.StopLoss, &pos.TakeProfit, &pos.Confidence, &pos.EntryTime,
		&exitTime, &status, &pos.PNL, &closeReason)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: failed to scan position: %v", ports.ErrQueryFailed, err)
	}
	pos.Action = domain.Action(action)
	pos.Status = domain.PositionStatus(status)
	pos.CloseReason = domain.CloseReason(closeReason)
	if exitTime.Valid {
		pos.ExitTime = exitTime.Time
	}
	return &pos, nil
}

// --- ports.TradeRepository ---

// CreateTrade saves a new trade record and returns its assigned ID.
func (r *Repository) CreateTrade(ctx context.Context, trade *domain.Trade) (int64, error) {
	const q = `INSERT INTO trade_history
		(position_id, symbol, action, entry_price, exit_price, volume, take_profit, stop_loss,
		 confidence, pnl, entry_time, exit_time, close_reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q,
		trade.PositionID, trade.Symbol, string(trade.Action), trade.EntryPrice, trade.ExitPrice,
		trade.Volume, trade.TakeProfit, trade.StopLoss, trade.Confidence, trade.PNL,
		trade.EntryTime, trade.ExitTime, string(trade.CloseReason))
	if err != nil {
		return 0, fmt.Errorf("%w: failed to insert trade: %v", ports.ErrQueryFailed, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: failed to get trade ID: %v", ports.ErrQueryFailed, err)
	}
	trade.ID = id
	return id, nil
}

// FindBySymbol retrieves the most recent trades for a given symbol, up to a limit.
func (r *Repository) FindBySymbol(ctx context.Context, symbol string, limit int) ([]*domain.Trade, error) {
	const q = `SELECT id, COALESCE(position_id, 0), symbol, action, entry_price, exit_price,
		volume, take_profit, stop_loss, confidence, pnl, entry_time, exit_time, COALESCE(close_reason, '')
		FROM trade_history WHERE symbol = ? ORDER BY exit_time DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query trades: %v", ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	var trades []*domain.Trade
	for rows.Next() {
		var t domain.Trade
		var action, closeReason string
		if err := rows.Scan(&t.ID, &t.PositionID, &t.Symbol, &action, &t.EntryPrice, &t.ExitPrice,
			&t.Volume, &t.TakeProfit, &t.StopLoss, &t.Confidence, &t.PNL,
			&t.EntryTime, &t.ExitTime, &closeReason); err != nil {
			return nil, fmt.Errorf("%w: failed to scan trade: %v", ports.ErrQueryFailed, err)
		}
		t.Action = domain.Action(action)
		t.CloseReason = domain.CloseReason(closeReason)
		trades = append(trades, &t)
	}
	return trades, rows.Err()
}

// CountTodayBySymbol counts the number of trades closed today for a given symbol.
func (r *Repository) CountTodayBySymbol(ctx context.Context, symbol string) (int, error) {
	now := time.Now()
	y, m, d := now.Date()
	dayStart := time.Date(y, m, d, 0, 0, 0, 0, now.Location())

	const q = `SELECT COUNT(*) FROM trade_history WHERE symbol = ? AND exit_time >= ?`
	var count int
	if err := r.db.QueryRowContext(ctx, q, symbol, dayStart).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: failed to count today's trades: %v", ports.ErrQueryFailed, err)
	}
	return count, nil
}

// GetTotalProfit calculates the sum of PNL for all recorded trades.
func (r *Repository) GetTotalProfit(ctx context.Context) (float64, error) {
	const q = `SELECT COALESCE(SUM(pnl), 0) FROM trade_history`
	var total float64
	if err := r.db.QueryRowContext(ctx, q).Scan(&total); err != nil {
		return 0, fmt.Errorf("%w: failed to sum profit: %v", ports.ErrQueryFailed, err)
	}
	return total, nil
}

func nullFloat(v float64) sql.NullFloat64 {
	if v == 0 {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}
