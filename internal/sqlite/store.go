// Package sqlite backs the store contract with an embedded SQLite
// database, one file per data directory. Each key kind lives in its
// own table and every key carries a version counter; Watch detects
// concurrent writers by re-reading counters at commit time inside a
// single database transaction.
//
// A process-wide mutex serializes logical operations. SQLite allows a
// single writer anyway, and serializing in-process keeps version
// bookkeeping trivially consistent.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/shelf/pkg/types"
)

//go:embed schema.sql
var schemaSQL string

const dbFileName = "shelf.db"

// Store is a SQLite-backed key-value store.
type Store struct {
	mu sync.Mutex
	db *sql.DB

	now func() time.Time // test hook
}

var _ types.Store = (*Store)(nil)

// New opens (or creates) the database under cfg.DataDir and applies
// the schema.
func New(cfg types.Config) (*Store, error) {
	dataDir := cfg.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir %s: %w", dataDir, err)
	}

	dsn := filepath.Join(dataDir, dbFileName) +
		"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("applying sqlite schema: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// withTx runs fn inside one database transaction, rolling back on
// error.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning sqlite transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing sqlite transaction: %w", err)
	}
	return nil
}

// bump advances the version counter for each key.
func bump(ctx context.Context, tx *sql.Tx, keys ...string) error {
	for _, key := range keys {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO versions (key, version) VALUES (?, 1)
			 ON CONFLICT (key) DO UPDATE SET version = version + 1`, key)
		if err != nil {
			return fmt.Errorf("bumping version of %q: %w", key, err)
		}
	}
	return nil
}

// String operations. Expiry is tracked for string keys only; that is
// the one kind the layers above ever arm a ttl on.

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(ctx, key)
}

func (s *Store) getLocked(ctx context.Context, key string) (string, bool, error) {
	var value string
	var expiresAt sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT value, expires_at FROM strings WHERE key = ?`, key).
		Scan(&value, &expiresAt)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading %q: %w", key, err)
	}
	if expiresAt.Valid && expiresAt.Int64 <= s.now().UnixNano() {
		if err := s.purgeExpiredLocked(ctx, key); err != nil {
			return "", false, err
		}
		return "", false, nil
	}
	return value, true, nil
}

// purgeExpiredLocked removes an expired string key and bumps its
// version so watchers of the key observe the expiry as a change.
func (s *Store) purgeExpiredLocked(ctx context.Context, key string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM strings WHERE key = ?`, key); err != nil {
			return fmt.Errorf("purging expired %q: %w", key, err)
		}
		return bump(ctx, tx, key)
	})
}

func (s *Store) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return setInTx(ctx, tx, key, value, ttl, s.now)
	})
}

func setInTx(ctx context.Context, tx *sql.Tx, key, value string, ttl time.Duration, now func() time.Time) error {
	var expiresAt sql.NullInt64
	if ttl > 0 {
		expiresAt = sql.NullInt64{Int64: now().Add(ttl).UnixNano(), Valid: true}
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO strings (key, value, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		key, value, expiresAt)
	if err != nil {
		return fmt.Errorf("writing %q: %w", key, err)
	}
	return bump(ctx, tx, key)
}

func (s *Store) Incr(ctx context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok, err := s.getLocked(ctx, key)
	if err != nil {
		return 0, err
	}
	var n int64
	if ok {
		n, err = strconv.ParseInt(cur, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("incrementing %q: value %q is not an integer", key, cur)
		}
	}
	n++
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO strings (key, value, expires_at) VALUES (?, ?, NULL)
			 ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
			key, strconv.FormatInt(n, 10))
		if err != nil {
			return fmt.Errorf("writing %q: %w", key, err)
		}
		return bump(ctx, tx, key)
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (s *Store) Del(ctx context.Context, keys ...string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, key := range keys {
			existed, err := existsInTx(ctx, tx, key, s.now)
			if err != nil {
				return err
			}
			for _, table := range []string{"strings", "hashes", "sets", "zsets"} {
				if _, err := tx.ExecContext(ctx,
					`DELETE FROM `+table+` WHERE key = ?`, key); err != nil {
					return fmt.Errorf("deleting %q: %w", key, err)
				}
			}
			if existed {
				removed++
				if err := bump(ctx, tx, key); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.existsLocked(ctx, key)
}

const existsQuery = `
	SELECT (SELECT COUNT(*) FROM strings WHERE key = ?1 AND (expires_at IS NULL OR expires_at > ?2))
	     + (SELECT COUNT(*) FROM hashes WHERE key = ?1)
	     + (SELECT COUNT(*) FROM sets   WHERE key = ?1)
	     + (SELECT COUNT(*) FROM zsets  WHERE key = ?1)`

func (s *Store) existsLocked(ctx context.Context, key string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, existsQuery, key, s.now().UnixNano()).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking %q: %w", key, err)
	}
	return n > 0, nil
}

func existsInTx(ctx context.Context, tx *sql.Tx, key string, now func() time.Time) (bool, error) {
	var n int
	err := tx.QueryRowContext(ctx, existsQuery, key, now().UnixNano()).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking %q: %w", key, err)
	}
	return n > 0, nil
}

func (s *Store) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok, err := s.getLocked(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	var expiresAt sql.NullInt64
	if ttl > 0 {
		expiresAt = sql.NullInt64{Int64: s.now().Add(ttl).UnixNano(), Valid: true}
	}
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`UPDATE strings SET expires_at = ? WHERE key = ?`,
			expiresAt, key)
		if err != nil {
			return fmt.Errorf("expiring %q: %w", key, err)
		}
		return bump(ctx, tx, key)
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// Hash operations.

func (s *Store) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hgetAllLocked(ctx, key)
}

func (s *Store) hgetAllLocked(ctx context.Context, key string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT field, value FROM hashes WHERE key = ?`, key)
	if err != nil {
		return nil, fmt.Errorf("reading hash %q: %w", key, err)
	}
	defer rows.Close()

	fields := make(map[string]string)
	for rows.Next() {
		var field, value string
		if err := rows.Scan(&field, &value); err != nil {
			return nil, fmt.Errorf("reading hash %q: %w", key, err)
		}
		fields[field] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading hash %q: %w", key, err)
	}
	return fields, nil
}

func (s *Store) HSet(ctx context.Context, key string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return hsetInTx(ctx, tx, key, fields)
	})
}

func hsetInTx(ctx context.Context, tx *sql.Tx, key string, fields map[string]string) error {
	for field, value := range fields {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO hashes (key, field, value) VALUES (?, ?, ?)
			 ON CONFLICT (key, field) DO UPDATE SET value = excluded.value`,
			key, field, value)
		if err != nil {
			return fmt.Errorf("writing hash %q: %w", key, err)
		}
	}
	return bump(ctx, tx, key)
}

// Set operations.

func (s *Store) SAdd(ctx context.Context, key string, members ...string) (int64, error) {
	if len(members) == 0 {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var added int64
	err := s.withTx(ctx, func(tx *sql.Tx) (err error) {
		added, err = saddInTx(ctx, tx, key, members)
		return err
	})
	if err != nil {
		return 0, err
	}
	return added, nil
}

func saddInTx(ctx context.Context, tx *sql.Tx, key string, members []string) (int64, error) {
	var added int64
	for _, member := range members {
		res, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO sets (key, member) VALUES (?, ?)`, key, member)
		if err != nil {
			return 0, fmt.Errorf("adding to set %q: %w", key, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("adding to set %q: %w", key, err)
		}
		added += n
	}
	if added > 0 {
		if err := bump(ctx, tx, key); err != nil {
			return 0, err
		}
	}
	return added, nil
}

func (s *Store) SRem(ctx context.Context, key string, members ...string) (int64, error) {
	if len(members) == 0 {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	err := s.withTx(ctx, func(tx *sql.Tx) (err error) {
		removed, err = sremInTx(ctx, tx, key, members)
		return err
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

func sremInTx(ctx context.Context, tx *sql.Tx, key string, members []string) (int64, error) {
	var removed int64
	for _, member := range members {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM sets WHERE key = ? AND member = ?`, key, member)
		if err != nil {
			return 0, fmt.Errorf("removing from set %q: %w", key, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("removing from set %q: %w", key, err)
		}
		removed += n
	}
	if removed > 0 {
		if err := bump(ctx, tx, key); err != nil {
			return 0, err
		}
	}
	return removed, nil
}

func (s *Store) SIsMember(ctx context.Context, key, member string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sets WHERE key = ? AND member = ?`, key, member).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking set %q: %w", key, err)
	}
	return n > 0, nil
}

func (s *Store) SMembers(ctx context.Context, key string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.smembersLocked(ctx, key)
}

func (s *Store) smembersLocked(ctx context.Context, key string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT member FROM sets WHERE key = ? ORDER BY member`, key)
	if err != nil {
		return nil, fmt.Errorf("reading set %q: %w", key, err)
	}
	defer rows.Close()

	var members []string
	for rows.Next() {
		var member string
		if err := rows.Scan(&member); err != nil {
			return nil, fmt.Errorf("reading set %q: %w", key, err)
		}
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading set %q: %w", key, err)
	}
	return members, nil
}

func (s *Store) SScan(ctx context.Context, key string, cursor uint64, count int64) ([]string, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.smembersLocked(ctx, key)
	if err != nil {
		return nil, 0, err
	}
	page, next := scanPage(all, cursor, count)
	return page, next, nil
}

func (s *Store) SCard(ctx context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sets WHERE key = ?`, key).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sizing set %q: %w", key, err)
	}
	return n, nil
}

// Keyspace operations.

func (s *Store) ScanKeys(ctx context.Context, cursor uint64, match string, count int64) ([]string, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if match == "" {
		match = "*"
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT key FROM strings WHERE key GLOB ?1 AND (expires_at IS NULL OR expires_at > ?2)
		 UNION SELECT key FROM hashes WHERE key GLOB ?1
		 UNION SELECT key FROM sets   WHERE key GLOB ?1
		 UNION SELECT key FROM zsets  WHERE key GLOB ?1
		 ORDER BY key`,
		match, s.now().UnixNano())
	if err != nil {
		return nil, 0, fmt.Errorf("scanning keys %q: %w", match, err)
	}
	defer rows.Close()

	var all []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, 0, fmt.Errorf("scanning keys %q: %w", match, err)
		}
		all = append(all, key)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("scanning keys %q: %w", match, err)
	}
	page, next := scanPage(all, cursor, count)
	return page, next, nil
}

// scanPage cuts one cursor-sized window out of a sorted listing. The
// cursor is a plain offset; entries may repeat or vanish between calls
// when the listing mutates, matching the contract's tolerance.
func scanPage(all []string, cursor uint64, count int64) ([]string, uint64) {
	if count <= 0 {
		count = 10
	}
	if cursor >= uint64(len(all)) {
		return nil, 0
	}
	end := cursor + uint64(count)
	if end >= uint64(len(all)) {
		return all[cursor:], 0
	}
	return all[cursor:end], end
}
