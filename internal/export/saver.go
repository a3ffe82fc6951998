package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Saver persists a rendered document to a user-visible location and
// returns a reference handle for it. Implementations must not panic;
// callers treat any error as "export failed" and degrade gracefully.
type Saver interface {
	Save(ctx context.Context, name, mime string, body []byte) (string, error)
}

// DirSaver writes documents into a downloads directory on the local
// filesystem. The returned handle is the absolute file path.
type DirSaver struct {
	Dir string
}

// Save writes the document, creating the directory if needed.
func (s DirSaver) Save(ctx context.Context, name, mime string, body []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	path := filepath.Join(s.Dir, name)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return "", fmt.Errorf("write export file: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return path, nil
	}
	return abs, nil
}
