package platform

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// tempPattern names the staging file next to the destination.
const tempPattern = ".tgbot-tmp-*"

// Replaceable for testing error paths.
var (
	osMkdirAll   = os.MkdirAll
	osCreateTemp = os.CreateTemp
	osChmod      = os.Chmod
	osRename     = os.Rename
	fileSync     = func(f *os.File) error { return f.Sync() }
	fileClose    = func(f *os.File) error { return f.Close() }
)

// AtomicWrite replaces path with data so readers see either the old or the
// new content. Missing parent directories are created with mode 0700.
func AtomicWrite(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := osMkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("atomic write: mkdir: %w", err)
	}

	tmp, err := osCreateTemp(dir, tempPattern)
	if err != nil {
		return fmt.Errorf("atomic write: create temp: %w", err)
	}
	tmpName := tmp.Name()

	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpName)
		}
	}()

	// Close runs even when write or sync fail; the first error wins.
	_, writeErr := tmp.Write(data)
	var syncErr error
	if writeErr == nil {
		syncErr = fileSync(tmp)
	}
	closeErr := fileClose(tmp)
	switch {
	case writeErr != nil:
		return fmt.Errorf("atomic write: write: %w", writeErr)
	case syncErr != nil:
		return fmt.Errorf("atomic write: sync: %w", syncErr)
	case closeErr != nil:
		return fmt.Errorf("atomic write: close: %w", closeErr)
	}

	if err := osChmod(tmpName, perm); err != nil {
		return fmt.Errorf("atomic write: chmod: %w", err)
	}
	if err := osRename(tmpName, path); err != nil {
		return fmt.Errorf("atomic write: rename: %w", err)
	}

	committed = true
	slog.Debug("file written", "component", "platform", "operation", "atomic_write", "path", path, "bytes", len(data))
	return nil
}
