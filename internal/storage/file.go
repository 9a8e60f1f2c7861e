package storage

import (
	"context"
	"os"
	"path/filepath"
	"sync"
)

// FileBlob is a backup file on local disk. Writes go to a temp file that is
// renamed over the target, so readers never see a partial document.
type FileBlob struct {
	mu       sync.RWMutex
	filePath string
}

func NewFileBlob(path string) *FileBlob {
	return &FileBlob{filePath: path}
}

func (b *FileBlob) Read(ctx context.Context) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data, err := os.ReadFile(b.filePath)
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	return data, err
}

func (b *FileBlob) Write(ctx context.Context, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if dir := filepath.Dir(b.filePath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	tempFile := b.filePath + ".tmp"
	file, err := os.Create(tempFile)
	if err != nil {
		return err
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(tempFile)
		return err
	}
	if err := file.Close(); err != nil {
		os.Remove(tempFile)
		return err
	}

	// Atomic rename
	return os.Rename(tempFile, b.filePath)
}

// Exists checks if the backup file exists
func (b *FileBlob) Exists() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	_, err := os.Stat(b.filePath)
	return err == nil
}

func (b *FileBlob) Close() error { return nil }

func (b *FileBlob) String() string { return b.filePath }
