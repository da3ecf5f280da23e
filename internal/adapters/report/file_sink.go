package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FileSink writes reports below a directory
type FileSink struct {
	dir string
}

func NewFileSink(dir string) *FileSink {
	return &FileSink{dir: dir}
}

func (s *FileSink) Put(ctx context.Context, key string, body []byte) error {
	target := filepath.Join(s.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	if err := os.WriteFile(target, body, 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
