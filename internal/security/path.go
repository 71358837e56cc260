package security

import (
	"fmt"
	"path/filepath"
	"strings"

	"smsview/internal/constants"
)

// ValidateFilePath rejects empty paths, NUL bytes and directory traversal.
func ValidateFilePath(path string) error {
	if path == "" {
		return fmt.Errorf("file path cannot be empty")
	}
	if strings.ContainsRune(path, '\x00') {
		return fmt.Errorf("file path contains NUL byte")
	}

	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == ".." {
			return fmt.Errorf("path contains directory traversal: %s", path)
		}
	}

	return nil
}

// ValidateBackupName checks the name a user gave an uploaded backup. Only the
// base name is considered and it must carry the .xml extension.
func ValidateBackupName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("file name cannot be empty")
	}
	if strings.ContainsRune(name, '\x00') {
		return fmt.Errorf("file name contains NUL byte")
	}

	base := filepath.Base(filepath.ToSlash(name))
	if !strings.EqualFold(filepath.Ext(base), constants.BackupFileExtension) {
		return fmt.Errorf("file %q is not an %s backup", base, constants.BackupFileExtension)
	}
	return nil
}
