package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/Dhairya-911/vedang-portfolio/internal/partition"
	"github.com/Dhairya-911/vedang-portfolio/internal/partition/sqlite/migrations"
	"github.com/Dhairya-911/vedang-portfolio/pkg/fileutil"
	"github.com/Dhairya-911/vedang-portfolio/pkg/hashutil"
	_ "modernc.org/sqlite"
)

// Store is a durable partition.Store backed by a single SQLite file.
// Entries are keyed by the BLAKE3 digest of the request key; seq is drawn
// from a store-wide counter so insertion order survives restarts.
type Store struct {
	sqlDB *sql.DB
}

// Open opens and migrates the store at path, creating parent directories.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	if err := fileutil.EnsureDir(filepath.Dir(cleanPath)); err != nil {
		return nil, fmt.Errorf("prepare storage dir: %w", err)
	}

	dsn := cleanPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_txlock=immediate"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// one writer at a time; WAL keeps readers of other processes unblocked
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	if err := applyMigrations(context.Background(), sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) Open(ctx context.Context, name string) error {
	if err := s.ready(); err != nil {
		return err
	}
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO partitions (name, created_at) VALUES (?, ?) ON CONFLICT(name) DO NOTHING`,
		name, timeToMillis(time.Now()),
	)
	if err != nil {
		return unavailable(name, "open partition", err)
	}
	return nil
}

func (s *Store) Match(ctx context.Context, name string, key string) (partition.Entry, bool, error) {
	if err := s.ready(); err != nil {
		return partition.Entry{}, false, err
	}

	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT request_key, status, header_json, body, stored_at, seq
		 FROM entries
		 WHERE partition_name = ? AND key_hash = ?`,
		name, hashutil.KeyDigest(key),
	)

	var entry partition.Entry
	var headerJSON []byte
	var storedAt int64
	if err := row.Scan(
		&entry.Key,
		&entry.Response.Status,
		&headerJSON,
		&entry.Response.Body,
		&storedAt,
		&entry.Seq,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return partition.Entry{}, false, nil
		}
		return partition.Entry{}, false, unavailable(name, "match entry", err)
	}

	header := http.Header{}
	if err := json.Unmarshal(headerJSON, &header); err != nil {
		return partition.Entry{}, false, &partition.StorageError{
			Message:   fmt.Sprintf("decode header for %s: %v", key, err),
			Cause:     partition.ErrCauseCorruptEntry,
			Partition: name,
		}
	}
	entry.Response.Header = header
	if entry.Response.Body == nil {
		entry.Response.Body = []byte{}
	}
	entry.StoredAt = millisToTime(storedAt)
	return entry, true, nil
}

func (s *Store) Put(ctx context.Context, name string, entry partition.Entry) error {
	if err := s.ready(); err != nil {
		return err
	}

	headerJSON, err := json.Marshal(entry.Response.Header)
	if err != nil {
		return &partition.StorageError{
			Message:   fmt.Sprintf("encode header: %v", err),
			Cause:     partition.ErrCauseCorruptEntry,
			Partition: name,
		}
	}
	body := entry.Response.Body
	if body == nil {
		body = []byte{}
	}
	storedAt := entry.StoredAt
	if storedAt.IsZero() {
		storedAt = time.Now()
	}

	result, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO entries (
		    partition_name, key_hash, request_key, status, header_json, body, stored_at, seq
		 )
		 SELECT ?, ?, ?, ?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM entries)
		 WHERE EXISTS (SELECT 1 FROM partitions WHERE name = ?)
		 ON CONFLICT(partition_name, key_hash) DO UPDATE SET
		    request_key = excluded.request_key,
		    status = excluded.status,
		    header_json = excluded.header_json,
		    body = excluded.body,
		    stored_at = excluded.stored_at,
		    seq = excluded.seq`,
		name,
		hashutil.KeyDigest(entry.Key),
		entry.Key,
		entry.Response.Status,
		headerJSON,
		body,
		timeToMillis(storedAt),
		name,
	)
	if err != nil {
		return classifyWriteError(name, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return unavailable(name, "put entry", err)
	}
	if affected == 0 {
		return &partition.StorageError{
			Message:   "partition is not open",
			Cause:     partition.ErrCausePartitionNotFound,
			Partition: name,
		}
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, name string, key string) (bool, error) {
	if err := s.ready(); err != nil {
		return false, err
	}
	result, err := s.sqlDB.ExecContext(ctx,
		`DELETE FROM entries WHERE partition_name = ? AND key_hash = ?`,
		name, hashutil.KeyDigest(key),
	)
	if err != nil {
		return false, unavailable(name, "delete entry", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, unavailable(name, "delete entry", err)
	}
	return affected > 0, nil
}

func (s *Store) Keys(ctx context.Context, name string) ([]string, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT request_key FROM entries WHERE partition_name = ? ORDER BY seq ASC`,
		name,
	)
	if err != nil {
		return nil, unavailable(name, "list keys", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, unavailable(name, "scan key", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable(name, "iterate keys", err)
	}
	return keys, nil
}

func (s *Store) Count(ctx context.Context, name string) (int, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	var count int
	if err := s.sqlDB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM entries WHERE partition_name = ?`, name,
	).Scan(&count); err != nil {
		return 0, unavailable(name, "count entries", err)
	}
	return count, nil
}

func (s *Store) Names(ctx context.Context) ([]string, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT name FROM partitions ORDER BY name ASC`)
	if err != nil {
		return nil, unavailable("", "list partitions", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, unavailable("", "scan partition", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("", "iterate partitions", err)
	}
	return names, nil
}

func (s *Store) Drop(ctx context.Context, name string) (bool, error) {
	if err := s.ready(); err != nil {
		return false, err
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return false, unavailable(name, "begin drop", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM entries WHERE partition_name = ?`, name); err != nil {
		_ = tx.Rollback()
		return false, unavailable(name, "drop entries", err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM partitions WHERE name = ?`, name)
	if err != nil {
		_ = tx.Rollback()
		return false, unavailable(name, "drop partition", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		_ = tx.Rollback()
		return false, unavailable(name, "drop partition", err)
	}
	if err := tx.Commit(); err != nil {
		return false, unavailable(name, "commit drop", err)
	}
	return affected > 0, nil
}

func (s *Store) Seal(ctx context.Context, name string) error {
	if err := s.ready(); err != nil {
		return err
	}
	result, err := s.sqlDB.ExecContext(ctx,
		`UPDATE partitions SET sealed_at = ? WHERE name = ?`,
		timeToMillis(time.Now()), name,
	)
	if err != nil {
		return unavailable(name, "seal partition", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return unavailable(name, "seal partition", err)
	}
	if affected == 0 {
		return &partition.StorageError{
			Message:   "partition is not open",
			Cause:     partition.ErrCausePartitionNotFound,
			Partition: name,
		}
	}
	return nil
}

func (s *Store) Sealed(ctx context.Context, name string) (bool, error) {
	if err := s.ready(); err != nil {
		return false, err
	}
	var sealedAt int64
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT sealed_at FROM partitions WHERE name = ?`, name,
	).Scan(&sealedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, unavailable(name, "read seal", err)
	}
	return sealedAt > 0, nil
}

func (s *Store) ready() error {
	if s == nil || s.sqlDB == nil {
		return &partition.StorageError{Message: "storage is not configured", Cause: partition.ErrCauseUnavailable}
	}
	return nil
}

func unavailable(name, action string, err error) *partition.StorageError {
	return &partition.StorageError{
		Message:   fmt.Sprintf("%s: %v", action, err),
		Retryable: true,
		Cause:     partition.ErrCauseUnavailable,
		Partition: name,
	}
}

func classifyWriteError(name string, err error) *partition.StorageError {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "database or disk is full") || strings.Contains(msg, "sqlite_full") {
		return &partition.StorageError{
			Message:   fmt.Sprintf("put entry: %v", err),
			Retryable: true,
			Cause:     partition.ErrCauseQuotaExceeded,
			Partition: name,
		}
	}
	return unavailable(name, "put entry", err)
}

func timeToMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func millisToTime(value int64) time.Time {
	if value == 0 {
		return time.Time{}
	}
	return time.UnixMilli(value).UTC()
}

var _ partition.Store = (*Store)(nil)
