package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalSink stores artifacts on the local filesystem under a base
// directory. Keys may contain slashes; they become subdirectories.
type LocalSink struct {
	dir string
}

// NewLocalSink creates a LocalSink rooted at dir.
// Parameters:
//   - dir: base directory; created on first store if missing.
// Returns:
//   - *LocalSink: initialized sink.
func NewLocalSink(dir string) *LocalSink {
	return &LocalSink{dir: dir}
}

// Store writes the artifact to disk. The write goes through a temp
// file and rename so a failed download never leaves a partial artifact
// under the final name.
// Parameters:
//   - ctx: unused; present for interface symmetry.
//   - key: relative artifact path.
//   - reader: artifact bytes.
//   - contentType: ignored for local storage.
// Returns:
//   - string: absolute path the artifact was written to.
//   - error: non-nil if the write fails.
func (s *LocalSink) Store(_ context.Context, key string, reader io.Reader, _ string) (string, error) {
	path, err := s.resolve(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create artifact directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".download-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, reader); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("failed to close artifact: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("failed to finalize artifact: %w", err)
	}
	return path, nil
}

// Exists checks whether the artifact file is present.
func (s *LocalSink) Exists(_ context.Context, key string) (bool, error) {
	path, err := s.resolve(key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// resolve maps a key onto the base directory, rejecting path escapes.
func (s *LocalSink) resolve(key string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(key))
	if cleaned == "." || strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("invalid artifact key %q", key)
	}
	abs, err := filepath.Abs(filepath.Join(s.dir, cleaned))
	if err != nil {
		return "", err
	}
	return abs, nil
}
