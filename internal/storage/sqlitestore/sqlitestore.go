// Package sqlitestore is the SQLite-backed record store: the named-value
// persistence for extreme records and rain bookkeeping.  Reads are served
// from an in-memory cache loaded at open; writes are buffered and flushed
// in one transaction.
package sqlitestore

import (
	"database/sql"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const timeLayout = time.RFC3339Nano

// Store implements the aggregator's RecordStore on a single SQLite file.
type Store struct {
	db     *sql.DB
	logger *zap.SugaredLogger

	mu    sync.Mutex
	cache map[string]string
	dirty map[string]struct{}
}

// New opens (creating if needed) the store at path and loads every stored
// value into the cache.
func New(path string, logger *zap.SugaredLogger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening record store %s: %w", path, err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS records (
			section TEXT NOT NULL,
			key     TEXT NOT NULL,
			value   TEXT NOT NULL,
			PRIMARY KEY (section, key)
		);
		CREATE TABLE IF NOT EXISTS archive (
			scope       TEXT NOT NULL,
			suffix      TEXT NOT NULL,
			section     TEXT NOT NULL,
			key         TEXT NOT NULL,
			value       TEXT NOT NULL,
			archived_at TEXT NOT NULL
		);
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating record store schema: %w", err)
	}

	s := &Store{
		db:     db,
		logger: logger,
		cache:  make(map[string]string),
		dirty:  make(map[string]struct{}),
	}
	if err := s.loadAll(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) loadAll() error {
	rows, err := s.db.Query(`SELECT section, key, value FROM records`)
	if err != nil {
		return fmt.Errorf("loading record store: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var section, key, value string
		if err := rows.Scan(&section, &key, &value); err != nil {
			return err
		}
		s.cache[cacheKey(section, key)] = value
	}
	return rows.Err()
}

// Close flushes pending writes and closes the database.
func (s *Store) Close() error {
	if err := s.Flush(); err != nil {
		s.logger.Errorf("record store flush on close: %v", err)
	}
	return s.db.Close()
}

func cacheKey(section, key string) string {
	return section + "\x00" + key
}

func (s *Store) get(section, key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.cache[cacheKey(section, key)]
	return v, ok
}

func (s *Store) set(section, key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ck := cacheKey(section, key)
	if s.cache[ck] == value {
		return
	}
	s.cache[ck] = value
	s.dirty[ck] = struct{}{}
}

func (s *Store) GetFloat(section, key string, def float64) float64 {
	raw, ok := s.get(section, key)
	if !ok {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return v
}

func (s *Store) GetInt(section, key string, def int) int {
	raw, ok := s.get(section, key)
	if !ok {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

func (s *Store) GetTime(section, key string, def time.Time) time.Time {
	raw, ok := s.get(section, key)
	if !ok {
		return def
	}
	v, err := time.Parse(timeLayout, raw)
	if err != nil {
		return def
	}
	return v
}

func (s *Store) SetFloat(section, key string, v float64) {
	s.set(section, key, strconv.FormatFloat(v, 'g', -1, 64))
}

func (s *Store) SetInt(section, key string, v int) {
	s.set(section, key, strconv.Itoa(v))
}

func (s *Store) SetTime(section, key string, v time.Time) {
	s.set(section, key, v.Format(timeLayout))
}

// Flush writes every dirty entry in one transaction.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked()
}

func (s *Store) flushLocked() error {
	if len(s.dirty) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("record store flush: %w", err)
	}
	stmt, err := tx.Prepare(`
		INSERT INTO records (section, key, value) VALUES (?, ?, ?)
		ON CONFLICT (section, key) DO UPDATE SET value = excluded.value`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("record store flush: %w", err)
	}
	defer stmt.Close()

	for ck := range s.dirty {
		section, key := splitCacheKey(ck)
		if _, err := stmt.Exec(section, key, s.cache[ck]); err != nil {
			tx.Rollback()
			return fmt.Errorf("record store flush %s.%s: %w", section, key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("record store flush commit: %w", err)
	}
	s.dirty = make(map[string]struct{})
	return nil
}

func splitCacheKey(ck string) (section, key string) {
	for i := 0; i < len(ck); i++ {
		if ck[i] == 0 {
			return ck[:i], ck[i+1:]
		}
	}
	return ck, ""
}

// Archive copies every section under the scope prefix into the archive
// table under the given suffix.  Pending writes are flushed first so the
// archived values match the cache.
func (s *Store) Archive(scope string, suffix string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.flushLocked(); err != nil {
		return err
	}

	_, err := s.db.Exec(`
		INSERT INTO archive (scope, suffix, section, key, value, archived_at)
		SELECT ?, ?, section, key, value, ? FROM records
		WHERE section = ? OR section LIKE ? || '.%'`,
		scope, suffix, time.Now().Format(timeLayout), scope, scope)
	if err != nil {
		return fmt.Errorf("archiving scope %s as %s: %w", scope, suffix, err)
	}
	return nil
}
