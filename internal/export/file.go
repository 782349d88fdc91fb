package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// FileExporter writes results below a base directory, each into its own
// uniquely named subdirectory so that the original file name can be kept
type FileExporter struct {
	baseDir string
	logger  *zap.Logger
}

// NewFileExporter creates an exporter writing below baseDir
func NewFileExporter(baseDir string, logger *zap.Logger) *FileExporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileExporter{baseDir: baseDir, logger: logger}
}

// Export writes data to <baseDir>/<uuid>/<name> and returns the file path
func (e *FileExporter) Export(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dir := filepath.Join(e.baseDir, uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	path := filepath.Join(dir, safeName(name))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}
	return path, nil
}

// Cleanup removes export directories older than maxAge and returns how many were removed
func (e *FileExporter) Cleanup(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(e.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to list export directory: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, err := uuid.Parse(entry.Name()); err != nil {
			// not ours
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(e.baseDir, entry.Name())); err != nil {
			e.logger.Warn("Failed to remove export", zap.String("dir", entry.Name()), zap.Error(err))
			continue
		}
		removed++
	}
	return removed, nil
}

// safeName keeps only the final path element of name
func safeName(name string) string {
	base := filepath.Base(filepath.Clean("/" + name))
	if base == "/" || base == "." {
		return "watermarked.png"
	}
	return base
}
