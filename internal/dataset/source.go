package dataset

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/couchcryptid/collision-dashboard/internal/domain"
)

// Source is a readable collision table.
type Source interface {
	// Open returns a fresh reader positioned at the header row.
	Open() (io.ReadCloser, error)

	// Fingerprint identifies the current content of the source. Two calls
	// return the same value as long as the content is unchanged.
	Fingerprint() (string, error)

	// Name is used in logs.
	Name() string
}

// FileSource reads a CSV file from disk.
type FileSource struct {
	Path string
}

// NewFileSource creates a Source for the CSV at path.
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

func (f *FileSource) Open() (io.ReadCloser, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrSourceUnavailable, err)
	}
	return file, nil
}

// Fingerprint hashes the path, size and modification time. Content is not
// read, so a rewrite that preserves both size and mtime goes unnoticed.
func (f *FileSource) Fingerprint() (string, error) {
	info, err := os.Stat(f.Path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrSourceUnavailable, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%w: %s is a directory", domain.ErrSourceUnavailable, f.Path)
	}
	input := fmt.Sprintf("%s|%d|%d", f.Path, info.Size(), info.ModTime().UnixNano())
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:8]), nil
}

func (f *FileSource) Name() string {
	return f.Path
}
