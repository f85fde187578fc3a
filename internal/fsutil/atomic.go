package fsutil

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// WriteFileAtomic writes data to a temp file next to path and renames it
// into place, retrying while another process holds the target open.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmpFile, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()

	w := bufio.NewWriter(tmpFile)
	if _, err := w.Write(data); err != nil {
		tmpFile.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := w.Flush(); err != nil {
		tmpFile.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmpFile.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}

	const maxRetries = 6
	for i := 0; i < maxRetries; i++ {
		if err := os.Rename(tmpPath, path); err != nil {
			if isBusy(err) && i < maxRetries-1 {
				time.Sleep(time.Duration(200*(i+1)) * time.Millisecond)
				continue
			}
			_ = os.Remove(tmpPath)
			return fmt.Errorf("rename failed (%d tries): %w", i+1, err)
		}
		return nil
	}
	_ = os.Remove(tmpPath)
	return fmt.Errorf("rename failed after retries")
}

// Windows reports these while an editor or scanner holds the file.
func isBusy(err error) bool {
	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "used by another process") ||
		strings.Contains(lower, "access is denied") ||
		strings.Contains(lower, "sharing violation")
}
