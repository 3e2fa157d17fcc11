package memory

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Engine is the sqlite-backed Store and ActivityStore. The agent_memory
// table holds the singleton record; user_streaks and daily_activity are
// owned by the rest of the application and only read here.
type Engine struct {
	db  *sql.DB
	mu  sync.Mutex
	now func() time.Time
}

func NewEngine(dbPath string) (*Engine, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	e := &Engine{db: db, now: time.Now}
	if err := e.configure(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := e.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return e, nil
}

func (e *Engine) configure() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := e.db.Exec(p); err != nil {
			return fmt.Errorf("sqlite pragma %q: %w", p, err)
		}
	}
	return nil
}

func (e *Engine) Close() error {
	if e.db == nil {
		return nil
	}
	return e.db.Close()
}

func (e *Engine) initSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS agent_memory (
			id TEXT PRIMARY KEY,
			memory TEXT NOT NULL DEFAULT '',
			long_term_memory TEXT NOT NULL DEFAULT '',
			short_term_memory TEXT NOT NULL DEFAULT '',
			notes TEXT NOT NULL DEFAULT '{}',
			last_message TEXT NOT NULL DEFAULT '',
			last_message_id INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS user_streaks (
			user_id TEXT PRIMARY KEY,
			value TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS daily_activity (
			user_id TEXT NOT NULL,
			activity_date TEXT NOT NULL,
			goal TEXT NOT NULL,
			count INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (user_id, activity_date, goal)
		)`,
	}

	for _, stmt := range stmts {
		if _, err := e.db.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

func (e *Engine) Get() (Record, bool, error) {
	row := e.db.QueryRow(`
		SELECT memory, long_term_memory, short_term_memory, notes,
		       last_message, last_message_id, created_at, updated_at
		FROM agent_memory WHERE id = ?
	`, RecordID)

	var rec Record
	var notesJSON, createdAt, updatedAt string
	err := row.Scan(&rec.Memory, &rec.LongTermMemory, &rec.ShortTermMemory,
		&notesJSON, &rec.LastMessage, &rec.LastMessageID, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("get memory record: %w", err)
	}

	if notesJSON != "" {
		if err := json.Unmarshal([]byte(notesJSON), &rec.Notes); err != nil {
			// A corrupt notes blob should not take the whole record down.
			rec.Notes = nil
		}
	}
	rec.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	rec.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return rec, true, nil
}

func (e *Engine) Upsert(u Update) (Record, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	prev, _, err := e.Get()
	if err != nil {
		return Record{}, err
	}

	next := Merge(prev, u, e.now())

	notesJSON := "{}"
	if len(next.Notes) > 0 {
		data, err := json.Marshal(next.Notes)
		if err != nil {
			return Record{}, fmt.Errorf("marshal notes: %w", err)
		}
		notesJSON = string(data)
	}

	_, err = e.db.Exec(`
		INSERT INTO agent_memory
			(id, memory, long_term_memory, short_term_memory, notes,
			 last_message, last_message_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			memory = excluded.memory,
			long_term_memory = excluded.long_term_memory,
			short_term_memory = excluded.short_term_memory,
			notes = excluded.notes,
			last_message = excluded.last_message,
			last_message_id = excluded.last_message_id,
			updated_at = excluded.updated_at
	`, RecordID, next.Memory, next.LongTermMemory, next.ShortTermMemory,
		notesJSON, next.LastMessage, next.LastMessageID,
		next.CreatedAt.Format(time.RFC3339), next.UpdatedAt.Format(time.RFC3339))
	if err != nil {
		return Record{}, fmt.Errorf("upsert memory record: %w", err)
	}
	return next, nil
}

// RawStreak returns the loosely-typed persisted streak value for a user, or
// an empty string when none exists.
func (e *Engine) RawStreak(userID string) (string, error) {
	row := e.db.QueryRow(`SELECT value FROM user_streaks WHERE user_id = ?`, userID)
	var value string
	err := row.Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get streak for %s: %w", userID, err)
	}
	return value, nil
}

// DailyCounts returns the per-goal attempted counts for one user and date.
// Goals with no row simply have no key.
func (e *Engine) DailyCounts(userID, date string) (map[string]int, error) {
	rows, err := e.db.Query(`
		SELECT goal, count FROM daily_activity
		WHERE user_id = ? AND activity_date = ?
	`, userID, date)
	if err != nil {
		return nil, fmt.Errorf("query daily activity for %s: %w", userID, err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var goal string
		var count int
		if err := rows.Scan(&goal, &count); err != nil {
			return nil, fmt.Errorf("scan daily activity: %w", err)
		}
		counts[goal] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily activity: %w", err)
	}
	return counts, nil
}
