package dal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// ErrCorruptStore is returned when the data file does not hold valid JSON.
var ErrCorruptStore = errors.New("car store is corrupt")

// CarStore reads and writes the whole car collection.
type CarStore interface {
	// Load returns the persisted collection, initializing storage when it does not exist yet.
	Load(ctx context.Context) (*Collection, error)
	// Save overwrites storage with c.
	Save(ctx context.Context, c *Collection) error
	// View runs fn against a freshly loaded collection without persisting it.
	View(ctx context.Context, fn func(c *Collection) error) error
	// Update runs fn against a freshly loaded collection and persists it when fn returns nil.
	Update(ctx context.Context, fn func(c *Collection) error) error
}

// FileStore keeps the collection in a single JSON file.
type FileStore struct {
	mu   sync.Mutex
	path string
	log  *slog.Logger
}

// NewFileStore returns a store backed by the file at path
func NewFileStore(path string, log *slog.Logger) *FileStore {
	if log == nil {
		log = slog.Default()
	}
	return &FileStore{
		path: path,
		log:  log,
	}
}

// Path returns the backing file path
func (s *FileStore) Path() string {
	return s.path
}

// Load implements CarStore
func (s *FileStore) Load(ctx context.Context) (*Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// Save implements CarStore
func (s *FileStore) Save(ctx context.Context, c *Collection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(ctx, c)
}

// View implements CarStore
func (s *FileStore) View(ctx context.Context, fn func(c *Collection) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.load(ctx)
	if err != nil {
		return err
	}
	return fn(c)
}

// Update implements CarStore. The load, fn and save run under one lock so
// concurrent writers in this process never overwrite each other.
func (s *FileStore) Update(ctx context.Context, fn func(c *Collection) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.load(ctx)
	if err != nil {
		return err
	}
	if err := fn(c); err != nil {
		return err
	}
	return s.save(ctx, c)
}

func (s *FileStore) load(ctx context.Context) (*Collection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.log.Info("car store not found, creating an empty one", "path", s.path)
		c := NewCollection()
		if err := s.save(ctx, c); err != nil {
			return nil, err
		}
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read car store %s: %w", s.path, err)
	}

	c := NewCollection()
	if err := json.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptStore, s.path, err)
	}
	for _, car := range c.Cars {
		if car.Seats <= 0 {
			s.log.Warn("car has no readable seat count", "path", s.path, "id", car.ID)
		}
	}
	return c, nil
}

// save writes to a temp file and renames it over the target.
func (s *FileStore) save(ctx context.Context, c *Collection) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.Cars == nil {
		c.Cars = []Car{}
	}

	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode car store: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create car store dir: %w", err)
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write car store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace car store: %w", err)
	}

	s.log.Debug("car store saved", "path", s.path, "cars", len(c.Cars))
	return nil
}
