package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/barease/backend/internal/domain"
)

// FileStore keeps the snapshots as JSON files in a local directory.
// Used for development without AWS access.
type FileStore struct {
	mu           sync.RWMutex
	dir          string
	menuKey      string
	embeddingKey string
}

// NewFileStore creates a file backed snapshot store rooted at dir
func NewFileStore(dir, menuKey, embeddingKey string) *FileStore {
	if menuKey == "" {
		menuKey = "menu.json"
	}
	if embeddingKey == "" {
		embeddingKey = "embeddings.json"
	}
	return &FileStore{dir: dir, menuKey: menuKey, embeddingKey: embeddingKey}
}

// GetMenu implements domain.SnapshotStore
func (f *FileStore) GetMenu(ctx context.Context) (*domain.MenuSnapshot, error) {
	var menu domain.MenuSnapshot
	if err := f.read(f.menuKey, &menu); err != nil {
		return nil, err
	}
	if menu.Items == nil {
		menu.Items = []domain.MenuItem{}
	}
	return &menu, nil
}

// PutMenu implements domain.SnapshotStore
func (f *FileStore) PutMenu(ctx context.Context, menu *domain.MenuSnapshot) error {
	return f.write(f.menuKey, menu)
}

// GetEmbeddings implements domain.SnapshotStore
func (f *FileStore) GetEmbeddings(ctx context.Context) ([]domain.EmbeddingRecord, error) {
	var records []domain.EmbeddingRecord
	if err := f.read(f.embeddingKey, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// PutEmbeddings implements domain.SnapshotStore
func (f *FileStore) PutEmbeddings(ctx context.Context, records []domain.EmbeddingRecord) error {
	return f.write(f.embeddingKey, records)
}

func (f *FileStore) read(name string, out any) error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	data, err := os.ReadFile(filepath.Join(f.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s not found", domain.ErrSnapshotUnavailable, name)
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", name, err)
	}
	return nil
}

// write replaces the file atomically through a temp file in the same directory
func (f *FileStore) write(name string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", f.dir, err)
	}
	tmp, err := os.CreateTemp(f.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return os.Rename(tmp.Name(), filepath.Join(f.dir, name))
}
