package vocab

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS vocabulary (
	key         TEXT PRIMARY KEY,
	status      TEXT NOT NULL DEFAULT 'new',
	color_idx   INTEGER NOT NULL DEFAULT 0,
	meaning     TEXT NOT NULL DEFAULT '',
	tags        TEXT NOT NULL DEFAULT '[]',
	linked      TEXT NOT NULL DEFAULT '',
	share_color INTEGER NOT NULL DEFAULT 1,
	image_url   TEXT NOT NULL DEFAULT '',
	created_at  INTEGER NOT NULL DEFAULT 0,
	updated_at  INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_vocabulary_status ON vocabulary(status);
`

// DBExecutor accepts either *sql.DB or *sql.Tx.
type DBExecutor interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// InitDB creates the vocabulary schema.
func InitDB(db *sql.DB) error {
	for _, s := range strings.Split(schemaSQL, ";") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, err := db.Exec(s); err != nil {
			return fmt.Errorf("init vocabulary schema: %w", err)
		}
	}
	return nil
}

// Load reads every stored entry into s, replacing its content.
func Load(db DBExecutor, s *Store) error {
	rows, err := db.Query(`SELECT key, status, color_idx, meaning, tags, linked, share_color, image_url, created_at, updated_at FROM vocabulary`)
	if err != nil {
		return fmt.Errorf("query vocabulary: %w", err)
	}
	defer rows.Close()

	entries := make(map[string]Entry)
	for rows.Next() {
		var (
			key, status, tags string
			e                 Entry
			share             int
		)
		if err := rows.Scan(&key, &status, &e.ColorIdx, &e.Meaning, &tags, &e.Linked, &share, &e.ImageURL, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return fmt.Errorf("scan vocabulary row: %w", err)
		}
		e.Status = Status(status)
		e.ShareColor = share != 0
		if tags != "" && tags != "[]" {
			if err := json.Unmarshal([]byte(tags), &e.Tags); err != nil {
				return fmt.Errorf("decode tags for %q: %w", key, err)
			}
		}
		entries[key] = e
	}
	if err := rows.Err(); err != nil {
		return err
	}
	return s.Replace(entries)
}

// SaveEntry writes a single entry.
func SaveEntry(db DBExecutor, key string, e Entry) error {
	k := Normalize(key)
	if k == "" {
		return fmt.Errorf("%w: empty key", ErrInvalidEntry)
	}
	tags, err := json.Marshal(e.Tags)
	if err != nil {
		return err
	}
	if e.Tags == nil {
		tags = []byte("[]")
	}
	share := 0
	if e.ShareColor {
		share = 1
	}
	_, err = db.Exec(`INSERT INTO vocabulary (key, status, color_idx, meaning, tags, linked, share_color, image_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
		  status = excluded.status,
		  color_idx = excluded.color_idx,
		  meaning = excluded.meaning,
		  tags = excluded.tags,
		  linked = excluded.linked,
		  share_color = excluded.share_color,
		  image_url = excluded.image_url,
		  created_at = excluded.created_at,
		  updated_at = excluded.updated_at`,
		k, string(e.Status), e.ColorIdx, e.Meaning, string(tags), e.Linked, share, e.ImageURL, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert %q: %w", k, err)
	}
	return nil
}

// DeleteEntry removes a single entry.
func DeleteEntry(db DBExecutor, key string) error {
	_, err := db.Exec(`DELETE FROM vocabulary WHERE key = ?`, Normalize(key))
	return err
}

// SaveAll replaces the table content with a snapshot of s in one transaction.
func SaveAll(db *sql.DB, s *Store) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM vocabulary`); err != nil {
		return fmt.Errorf("clear vocabulary: %w", err)
	}
	for k, e := range s.Snapshot() {
		if err := SaveEntry(tx, k, e); err != nil {
			return err
		}
	}
	return tx.Commit()
}
