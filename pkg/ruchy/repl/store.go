package repl

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	// SQLite driver (pure Go, no CGO required)
	_ "modernc.org/sqlite"
)

// HistoryStore persists REPL inputs across sessions in a SQLite database.
// Each process gets its own session id so entries can be told apart.
type HistoryStore struct {
	mu          sync.Mutex
	db          *sql.DB
	path        string
	sessionID   string
	maxEntries  int
	truncatePct int
}

// StoredEntry is one persisted input.
type StoredEntry struct {
	ID        int64
	SessionID string
	Input     string
	Output    string
	Failed    bool
	Timestamp time.Time
}

// StoreConfig holds configuration for the history store.
type StoreConfig struct {
	MaxEntries  int // entries kept before the oldest are dropped (default 10000)
	TruncatePct int // percentage dropped when over the limit (default 25)
}

// OpenHistoryStore opens or creates the database at path.
func OpenHistoryStore(path string, cfg StoreConfig) (*HistoryStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to history database: %w", err)
	}
	db.SetMaxOpenConns(1)

	hs := &HistoryStore{
		db:          db,
		path:        path,
		sessionID:   uuid.NewString(),
		maxEntries:  cfg.MaxEntries,
		truncatePct: cfg.TruncatePct,
	}
	if hs.maxEntries <= 0 {
		hs.maxEntries = 10000
	}
	if hs.truncatePct <= 0 {
		hs.truncatePct = 25
	}

	if err := hs.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating history schema: %w", err)
	}
	return hs, nil
}

func (hs *HistoryStore) createSchema() error {
	_, err := hs.db.Exec(`
		CREATE TABLE IF NOT EXISTS history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			input TEXT NOT NULL,
			output TEXT NOT NULL DEFAULT '',
			failed INTEGER NOT NULL DEFAULT 0,
			timestamp TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_history_session ON history(session_id);
	`)
	return err
}

// SessionID returns the id entries from this store are written under.
func (hs *HistoryStore) SessionID() string { return hs.sessionID }

// Path returns the database file path.
func (hs *HistoryStore) Path() string { return hs.path }

// Append records an input for the current session.
func (hs *HistoryStore) Append(input, output string, failed bool) error {
	hs.mu.Lock()
	defer hs.mu.Unlock()

	if err := hs.maybeTruncate(); err != nil {
		return err
	}
	_, err := hs.db.Exec(`
		INSERT INTO history (session_id, input, output, failed, timestamp)
		VALUES (?, ?, ?, ?, ?)
	`, hs.sessionID, input, output, failed, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("appending history: %w", err)
	}
	return nil
}

// Recent returns up to limit entries from every session, oldest first.
func (hs *HistoryStore) Recent(limit int) ([]StoredEntry, error) {
	hs.mu.Lock()
	defer hs.mu.Unlock()

	if limit <= 0 {
		limit = 1000
	}
	rows, err := hs.db.Query(`
		SELECT id, session_id, input, output, failed, timestamp FROM (
			SELECT * FROM history ORDER BY id DESC LIMIT ?
		) ORDER BY id ASC
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// Session returns every entry written under id, oldest first.
func (hs *HistoryStore) Session(id string) ([]StoredEntry, error) {
	hs.mu.Lock()
	defer hs.mu.Unlock()

	rows, err := hs.db.Query(`
		SELECT id, session_id, input, output, failed, timestamp
		FROM history WHERE session_id = ? ORDER BY id ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]StoredEntry, error) {
	var entries []StoredEntry
	for rows.Next() {
		var e StoredEntry
		var ts string
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Input, &e.Output, &e.Failed, &ts); err != nil {
			return nil, fmt.Errorf("scanning history entry: %w", err)
		}
		e.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Count returns the number of stored entries.
func (hs *HistoryStore) Count() (int, error) {
	hs.mu.Lock()
	defer hs.mu.Unlock()
	var n int
	err := hs.db.QueryRow("SELECT COUNT(*) FROM history").Scan(&n)
	return n, err
}

// Clear removes every entry.
func (hs *HistoryStore) Clear() error {
	hs.mu.Lock()
	defer hs.mu.Unlock()
	_, err := hs.db.Exec("DELETE FROM history")
	return err
}

// maybeTruncate drops the oldest entries once the limit is reached.
// Must be called with lock held.
func (hs *HistoryStore) maybeTruncate() error {
	var total int
	if err := hs.db.QueryRow("SELECT COUNT(*) FROM history").Scan(&total); err != nil {
		return err
	}
	if total < hs.maxEntries {
		return nil
	}
	drop := total * hs.truncatePct / 100
	if drop == 0 {
		drop = 1
	}
	_, err := hs.db.Exec(`
		DELETE FROM history WHERE id IN (
			SELECT id FROM history ORDER BY id ASC LIMIT ?
		)
	`, drop)
	if err != nil {
		return fmt.Errorf("truncating history: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (hs *HistoryStore) Close() error {
	hs.mu.Lock()
	defer hs.mu.Unlock()
	return hs.db.Close()
}
