// Package localdraft keeps the candidate's in-progress form on the local
// machine so a restarted session resumes where it stopped. Every failure is
// swallowed: the form keeps working from memory.
package localdraft

import (
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"application-workflow/internal/common/logger"
	"application-workflow/internal/models"

	_ "modernc.org/sqlite"
)

// Cache is best-effort key-value storage of FormState per posting.
type Cache interface {
	Save(postingID string, form models.FormState)
	Load(postingID string) (models.FormState, bool)
}

const schema = `CREATE TABLE IF NOT EXISTS drafts (
	posting_id TEXT PRIMARY KEY,
	payload    TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
)`

type SQLiteCache struct {
	db     *sql.DB
	logger logger.Logger
	now    func() time.Time
}

// OpenSQLite opens (creating if needed) the cache file at path.
func OpenSQLite(path string, log logger.Logger) (*SQLiteCache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// single writer; modernc serialises anyway
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	return NewSQLiteCache(db, log), nil
}

// NewSQLiteCache wraps an already opened database. The drafts table must exist.
func NewSQLiteCache(db *sql.DB, log logger.Logger) *SQLiteCache {
	return &SQLiteCache{db: db, logger: log, now: time.Now}
}

func (c *SQLiteCache) Save(postingID string, form models.FormState) {
	payload, err := json.Marshal(form)
	if err != nil {
		c.logger.Debug("local draft not serialisable", map[string]interface{}{
			"postingId": postingID,
			"error":     err.Error(),
		})
		return
	}

	_, err = c.db.Exec(
		`INSERT INTO drafts (posting_id, payload, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (posting_id) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		postingID, string(payload), c.now().UTC(),
	)
	if err != nil {
		c.logger.Debug("local draft save failed", map[string]interface{}{
			"postingId": postingID,
			"error":     err.Error(),
		})
	}
}

func (c *SQLiteCache) Load(postingID string) (models.FormState, bool) {
	var payload string
	err := c.db.QueryRow(`SELECT payload FROM drafts WHERE posting_id = ?`, postingID).Scan(&payload)
	if err != nil {
		if err != sql.ErrNoRows {
			c.logger.Debug("local draft load failed", map[string]interface{}{
				"postingId": postingID,
				"error":     err.Error(),
			})
		}
		return models.FormState{}, false
	}

	var form models.FormState
	if err := json.Unmarshal([]byte(payload), &form); err != nil {
		c.logger.Debug("local draft corrupt, ignoring", map[string]interface{}{
			"postingId": postingID,
			"error":     err.Error(),
		})
		return models.FormState{}, false
	}
	return form, true
}

func (c *SQLiteCache) Close() error {
	return c.db.Close()
}

// MemoryCache is the in-process Cache used by tests and --no-cache runs.
type MemoryCache struct {
	mu    sync.Mutex
	forms map[string]models.FormState
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{forms: make(map[string]models.FormState)}
}

func (c *MemoryCache) Save(postingID string, form models.FormState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.forms[postingID] = form.Clone()
}

func (c *MemoryCache) Load(postingID string) (models.FormState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.forms[postingID]
	if !ok {
		return models.FormState{}, false
	}
	return f.Clone(), true
}
