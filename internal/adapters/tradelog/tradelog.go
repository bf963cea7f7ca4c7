// Package tradelog appends trade activity to CSV files and performance
// snapshots to JSON files, keeping the field order and formats used by the
// bot's earlier log tooling so existing analysis scripts keep working.
package tradelog

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"mtPilotBot/internal/domain"
)

const timeLayout = "2006-01-02 15:04:05"

var csvHeader = []string{
	"timestamp", "signal", "symbol", "price", "volume", "tp", "sl",
	"confidence", "entry_time", "exit_time", "exit_price", "profit", "status",
}

// Logger appends trade rows to a CSV file and performance snapshots to a
// sibling JSON-lines file. Safe for concurrent use.
type Logger struct {
	mu       sync.Mutex
	csvPath  string
	jsonPath string
}

// New creates the log directory if needed and returns a trade logger writing
// trades.csv and performance.json under dir.
func New(dir string) (*Logger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating trade log directory %s: %w", dir, err)
	}
	l := &Logger{
		csvPath:  filepath.Join(dir, "trades.csv"),
		jsonPath: filepath.Join(dir, "performance.json"),
	}
	if err := l.ensureHeader(); err != nil {
		return nil, err
	}
	return l, nil
}

// CSVPath returns the path of the trade CSV file.
func (l *Logger) CSVPath() string { return l.csvPath }

func (l *Logger) ensureHeader() error {
	info, err := os.Stat(l.csvPath)
	if err == nil && info.Size() > 0 {
		return nil
	}
	file, err := os.OpenFile(l.csvPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening trade log %s: %w", l.csvPath, err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("writing trade log header: %w", err)
	}
	writer.Flush()
	return writer.Error()
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', 5, 64)
}

func (l *Logger) appendRow(row []string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	file, err := os.OpenFile(l.csvPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening trade log %s: %w", l.csvPath, err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(row); err != nil {
		return fmt.Errorf("appending trade log row: %w", err)
	}
	writer.Flush()
	return writer.Error()
}

// LogOpen records a newly opened position.
func (l *Logger) LogOpen(pos *domain.Position) error {
	return l.appendRow([]string{
		pos.EntryTime.Format(timeLayout),
		string(pos.Action),
		pos.Symbol,
		formatPrice(pos.EntryPrice),
		strconv.FormatFloat(pos.Volume, 'f', 2, 64),
		formatPrice(pos.TakeProfit),
		formatPrice(pos.StopLoss),
		strconv.FormatFloat(pos.Confidence, 'f', 4, 64),
		pos.EntryTime.Format(timeLayout),
		"", // exit_time
		"", // exit_price
		"", // profit
		string(domain.StatusOpen),
	})
}

// LogClose records a completed trade.
func (l *Logger) LogClose(trade *domain.Trade) error {
	return l.appendRow([]string{
		trade.ExitTime.Format(timeLayout),
		string(trade.Action),
		trade.Symbol,
		formatPrice(trade.ExitPrice),
		strconv.FormatFloat(trade.Volume, 'f', 2, 64),
		formatPrice(trade.TakeProfit),
		formatPrice(trade.StopLoss),
		strconv.FormatFloat(trade.Confidence, 'f', 4, 64),
		trade.EntryTime.Format(timeLayout),
		trade.ExitTime.Format(timeLayout),
		formatPrice(trade.ExitPrice),
		strconv.FormatFloat(trade.PNL, 'f', 2, 64),
		string(domain.StatusClosed),
	})
}

// Snapshot is a point-in-time performance summary appended to the JSON log.
type Snapshot struct {
	Timestamp    string  `json:"timestamp"`
	Symbol       string  `json:"symbol"`
	Balance      float64 `json:"balance"`
	TotalTrades  int     `json:"total_trades"`
	Wins         int     `json:"wins"`
	Losses       int     `json:"losses"`
	WinRate      float64 `json:"win_rate"`
	TotalProfit  float64 `json:"total_profit"`
	ProfitFactor float64 `json:"profit_factor"`
	MaxDrawdown  float64 `json:"max_drawdown"`
	SessionPnL   float64 `json:"session_pnl"`
}

// LogSnapshot appends a performance snapshot as one JSON object per line.
func (l *Logger) LogSnapshot(snap Snapshot) error {
	if snap.Timestamp == "" {
		snap.Timestamp = time.Now().Format(timeLayout)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	file, err := os.OpenFile(l.jsonPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening performance log %s: %w", l.jsonPath, err)
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("appending performance snapshot: %w", err)
	}
	return nil
}
