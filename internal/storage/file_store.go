package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"tilestream/internal/world"
)

var _ world.Persistence = (*FileStore)(nil)

// FileStore keeps one compressed file per chunk under
// <dir>/<worldID>/chunks and the world metadata in <dir>/<worldID>/world.json.
// Saves of distinct chunks may run concurrently.
type FileStore struct {
	dir string
	log *slog.Logger
}

// NewFileStore creates a FileStore rooted at dir, creating it as needed.
func NewFileStore(dir string, log *slog.Logger) (*FileStore, error) {
	if log == nil {
		log = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create directory %s: %w", dir, err)
	}
	return &FileStore{dir: dir, log: log}, nil
}

// Dir returns the root directory.
func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) chunkPath(pos world.Vec3i, worldID string) string {
	name := fmt.Sprintf("%d_%d_%d.chunk", pos.X, pos.Y, pos.Z)
	return filepath.Join(s.dir, worldID, "chunks", name)
}

// ChunkExists reports whether a file for the chunk at pos exists.
func (s *FileStore) ChunkExists(pos world.Vec3i, worldID string) bool {
	_, err := os.Stat(s.chunkPath(pos, worldID))
	return err == nil
}

// LoadChunk fills c from its file. A missing file wraps
// world.ErrChunkNotFound; c is left untouched on any error.
func (s *FileStore) LoadChunk(c *world.Chunk, worldID string) error {
	path := s.chunkPath(c.Position, worldID)
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %v", world.ErrChunkNotFound, c.Position)
		}
		return fmt.Errorf("open chunk %v: %w", c.Position, err)
	}
	defer f.Close()

	if err := decodeChunk(f, c); err != nil {
		return fmt.Errorf("chunk %s: %w", path, err)
	}
	return nil
}

// SaveChunk writes c to a temp file and renames it into place.
func (s *FileStore) SaveChunk(c *world.Chunk, worldID string) error {
	path := s.chunkPath(c.Position, worldID)
	return s.atomicWrite(path, func(f *os.File) error {
		return encodeChunk(f, c)
	})
}

// SaveMetadata writes m to world.json under its id.
func (s *FileStore) SaveMetadata(m *world.Metadata) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	data = append(data, '\n')
	path := filepath.Join(s.dir, m.ID, "world.json")
	return s.atomicWrite(path, func(f *os.File) error {
		_, err := f.Write(data)
		return err
	})
}

// LoadMetadata reads and validates the metadata of worldID.
func (s *FileStore) LoadMetadata(worldID string) (*world.Metadata, error) {
	path := filepath.Join(s.dir, worldID, "world.json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read world metadata: %w", err)
	}
	var m world.Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse world metadata: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &m, nil
}

// atomicWrite writes through a temp file in the target directory and
// renames it over path.
func (s *FileStore) atomicWrite(path string, write func(*os.File) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}
	f, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmp := f.Name()
	if err := write(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename temp file: %w", err)
	}
	s.log.Debug("wrote file", "path", path)
	return nil
}
