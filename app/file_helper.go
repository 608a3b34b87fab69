package app

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/ludo-technologies/fixeval/domain"
)

// FileHelper provides file operation utilities
type FileHelper struct{}

// NewFileHelper creates a new FileHelper
func NewFileHelper() *FileHelper {
	return &FileHelper{}
}

// FileExists checks if a regular file exists
func (h *FileHelper) FileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return !info.IsDir(), nil
}

// ReadOptionalFile reads path, returning nil content for an empty path
func (h *FileHelper) ReadOptionalFile(path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.NewFileNotFoundError(path, err)
	}
	return data, nil
}

// IsArtifactFile checks the extension of an artifact path
func (h *FileHelper) IsArtifactFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".json" || ext == ".yaml" || ext == ".yml"
}

// EnsureDir creates a directory and its parents
func (h *FileHelper) EnsureDir(dir string) error {
	if dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func newRunID() string {
	return uuid.NewString()
}
