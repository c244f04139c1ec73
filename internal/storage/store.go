package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Account rows are keyed case-insensitively.
func lower(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Store persists the trading floor state: one row of JSON per account,
// an append-only audit log, and a per-date cache of market price maps.
type Store struct {
	db *sql.DB
}

// LogEntry is one row of a trader's audit trail.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
}

func NewStore(dbPath string) (*Store, error) {
	db, err := open(dbPath)
	if err != nil {
		return nil, err
	}
	s := &Store{db: db}
	if err := s.initTables(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			name TEXT PRIMARY KEY,
			account TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			datetime DATETIME DEFAULT CURRENT_TIMESTAMP,
			type TEXT NOT NULL,
			message TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS market (
			date TEXT PRIMARY KEY,
			data TEXT NOT NULL
		);`,
	}
	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("init table: %w", err)
		}
	}
	return nil
}

// WriteAccount upserts the JSON snapshot of an account, keyed by the
// lowercased trader name.
func (s *Store) WriteAccount(ctx context.Context, name string, accountJSON []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (name, account)
		VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET account=excluded.account
	`, lower(name), string(accountJSON))
	if err != nil {
		return fmt.Errorf("write account %s: %w", name, err)
	}
	return nil
}

// ReadAccount returns the stored JSON snapshot, or nil when the account
// does not exist yet.
func (s *Store) ReadAccount(ctx context.Context, name string) ([]byte, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT account FROM accounts WHERE name = ?`, lower(name)).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read account %s: %w", name, err)
	}
	return []byte(data), nil
}

// WriteLog appends an audit entry for a trader.
func (s *Store) WriteLog(ctx context.Context, name, logType, message string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO logs (name, datetime, type, message)
		VALUES (?, datetime('now'), ?, ?)
	`, lower(name), logType, message)
	if err != nil {
		return fmt.Errorf("write log for %s: %w", name, err)
	}
	return nil
}

// ReadLog returns the newest lastN entries for a trader, oldest first.
func (s *Store) ReadLog(ctx context.Context, name string, lastN int) ([]LogEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT datetime, type, message FROM logs
		WHERE name = ?
		ORDER BY datetime DESC, id DESC
		LIMIT ?
	`, lower(name), lastN)
	if err != nil {
		return nil, fmt.Errorf("read log for %s: %w", name, err)
	}
	defer rows.Close()

	var entries []LogEntry
	for rows.Next() {
		var e LogEntry
		if err := rows.Scan(&e.Timestamp, &e.Type, &e.Message); err != nil {
			return nil, fmt.Errorf("scan log row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate logs: %w", err)
	}

	// Reverse so callers see chronological order.
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

// WriteMarket upserts a day's price map as JSON, keyed by YYYY-MM-DD.
func (s *Store) WriteMarket(ctx context.Context, date string, dataJSON []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO market (date, data)
		VALUES (?, ?)
		ON CONFLICT(date) DO UPDATE SET data=excluded.data
	`, date, string(dataJSON))
	if err != nil {
		return fmt.Errorf("write market for %s: %w", date, err)
	}
	return nil
}

// ReadMarket returns the cached price map for a date, or nil when absent.
func (s *Store) ReadMarket(ctx context.Context, date string) ([]byte, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM market WHERE date = ?`, date).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read market for %s: %w", date, err)
	}
	return []byte(data), nil
}
