package terminal

import (
	"fmt"
	"os"
	"path/filepath"

	"damage-inspector/pkg/models"
)

// LoadFile reads a local file the way a browser hands one to a page: the
// bytes, the base name and a content type guessed from the extension.
func LoadFile(path string) (*models.SelectedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	name := filepath.Base(path)
	return &models.SelectedFile{
		Name:        name,
		ContentType: models.ContentTypeForName(name),
		Data:        data,
	}, nil
}
