package generator

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotGenerated is returned when asked to replace or remove a file relaygen did not write.
var ErrNotGenerated = errors.New("file is not generated by relaygen")

// tempFile abstracts an os.File for testability.
type tempFile interface {
	Name() string
	Write([]byte) (int, error)
	Close() error
}

// File operation hooks, overridden in tests.
var (
	createTempFile = func(dir, pattern string) (tempFile, error) { return os.CreateTemp(dir, pattern) }
	chmodFile      = os.Chmod
	renameFile     = os.Rename
	removeFile     = os.Remove
)

// WriteIfChanged writes data to path unless the file already holds exactly data.
// It reports whether the file was written.
func WriteIfChanged(path string, data []byte) (bool, error) {
	current, err := os.ReadFile(path)
	switch {
	case err == nil:
		if bytes.Equal(current, data) {
			return false, nil
		}
		if !isGenerated(current) {
			return false, fmt.Errorf("%s: %w", path, ErrNotGenerated)
		}
	case !errors.Is(err, fs.ErrNotExist):
		return false, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := writeFileAtomic(path, data, 0o644); err != nil {
		return false, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return true, nil
}

// IsCurrent reports whether path already holds exactly data.
func IsCurrent(path string, data []byte) (bool, error) {
	current, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return bytes.Equal(current, data), nil
}

// RemoveStale deletes a generated file left by an earlier run. Missing files are not an error.
func RemoveStale(path string) (bool, error) {
	current, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if !isGenerated(current) {
		return false, fmt.Errorf("%s: %w", path, ErrNotGenerated)
	}
	if err := removeFile(path); err != nil {
		return false, fmt.Errorf("failed to remove %s: %w", path, err)
	}
	return true, nil
}

func isGenerated(data []byte) bool {
	sc := bufio.NewScanner(bytes.NewReader(data))
	return sc.Scan() && strings.TrimSpace(sc.Text()) == Header
}

// writeFileAtomic writes to a temporary file in the target directory and renames it into place.
func writeFileAtomic(targetPath string, data []byte, perm os.FileMode) (err error) {
	targetDir := filepath.Dir(targetPath)

	tmpFile, err := createTempFile(targetDir, filepath.Base(targetPath)+".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()

	defer func() {
		if err != nil {
			_ = removeFile(tmpPath)
		}
	}()

	if _, err = tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if err = tmpFile.Close(); err != nil {
		return err
	}
	if err = chmodFile(tmpPath, perm); err != nil {
		return err
	}
	return renameFile(tmpPath, targetPath)
}
