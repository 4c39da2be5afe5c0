package storage

import (
	"bytes"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"tilestream/internal/world"
)

var _ world.Persistence = (*SQLiteStore)(nil)

// SQLiteStore keeps chunks as rows of one SQLite table, using the same
// payload encoding as FileStore.
type SQLiteStore struct {
	db  *sql.DB
	log *slog.Logger
}

// OpenSQLite opens or creates the database at path.
func OpenSQLite(path string, log *slog.Logger) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if log == nil {
		log = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// workers save concurrently; one connection serializes them
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, stmt := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		`CREATE TABLE IF NOT EXISTS chunks (
			world_id TEXT NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			z INTEGER NOT NULL,
			payload BLOB NOT NULL,
			saved_at TEXT NOT NULL,
			PRIMARY KEY (world_id, x, y, z)
		);`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init sqlite: %w", err)
		}
	}
	return &SQLiteStore{db: db, log: log}, nil
}

// ChunkExists reports whether a row for the chunk at pos exists. Query
// errors are logged and reported as absent.
func (s *SQLiteStore) ChunkExists(pos world.Vec3i, worldID string) bool {
	var one int
	err := s.db.QueryRow(
		`SELECT 1 FROM chunks WHERE world_id = ? AND x = ? AND y = ? AND z = ?`,
		worldID, pos.X, pos.Y, pos.Z,
	).Scan(&one)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		s.log.Error("chunk lookup failed", "chunk", pos, "err", err)
	}
	return err == nil
}

// LoadChunk fills c from its row. A missing row wraps world.ErrChunkNotFound.
func (s *SQLiteStore) LoadChunk(c *world.Chunk, worldID string) error {
	var payload []byte
	err := s.db.QueryRow(
		`SELECT payload FROM chunks WHERE world_id = ? AND x = ? AND y = ? AND z = ?`,
		worldID, c.Position.X, c.Position.Y, c.Position.Z,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %v", world.ErrChunkNotFound, c.Position)
	}
	if err != nil {
		return fmt.Errorf("query chunk %v: %w", c.Position, err)
	}
	if err := decodeChunk(bytes.NewReader(payload), c); err != nil {
		return fmt.Errorf("chunk %v: %w", c.Position, err)
	}
	return nil
}

// SaveChunk encodes c and inserts or replaces its row.
func (s *SQLiteStore) SaveChunk(c *world.Chunk, worldID string) error {
	var buf bytes.Buffer
	if err := encodeChunk(&buf, c); err != nil {
		return fmt.Errorf("encode chunk %v: %w", c.Position, err)
	}
	_, err := s.db.Exec(
		`INSERT INTO chunks (world_id, x, y, z, payload, saved_at) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(world_id, x, y, z) DO UPDATE SET payload = excluded.payload, saved_at = excluded.saved_at`,
		worldID, c.Position.X, c.Position.Y, c.Position.Z, buf.Bytes(), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save chunk %v: %w", c.Position, err)
	}
	return nil
}

// Count returns the number of stored chunks of worldID.
func (s *SQLiteStore) Count(worldID string) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM chunks WHERE world_id = ?`, worldID).Scan(&n)
	return n, err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
