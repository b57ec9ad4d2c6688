// Package writer exposes sinks for serialized flists.
package writer

import (
	"fmt"
	"os"
	"path/filepath"
)

// Writer receives one serialized flist.
type Writer interface {
	WriteFList(data []byte) error
}

// FileWriter writes flist bytes to a filesystem path atomically.
type FileWriter struct {
	Path string
	// Perm is the mode of a newly created file. Default: 0o644.
	Perm os.FileMode
}

var _ Writer = (*FileWriter)(nil)

// WriteFList writes data to the configured path via temp file + rename, so
// readers never see a partial flist.
func (w *FileWriter) WriteFList(data []byte) error {
	dir := filepath.Dir(w.Path)
	tmpFile, err := os.CreateTemp(dir, ".flistkit-tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	defer func() {
		if tmpFile != nil {
			_ = tmpFile.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	perm := w.Perm
	if perm == 0 {
		perm = 0o644
	}
	if err := tmpFile.Chmod(perm); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	tmpFile = nil

	if err := os.Rename(tmpPath, w.Path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
