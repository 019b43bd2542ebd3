package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/wilfredor/addwikigeolocation/pkg/errors"
)

// Manager owns the download directory where file payloads live while
// they are being edited. With no explicit directory a temp directory
// is created and removed on Close.
type Manager struct {
	dir       string
	ephemeral bool
}

// NewManager creates a storage manager rooted at dir. An empty dir
// means a fresh temp directory.
func NewManager(dir string) (*Manager, error) {
	if dir == "" {
		tmp, err := os.MkdirTemp("", "addwikigeolocation-*")
		if err != nil {
			return nil, errors.Newf(errors.ErrorTypeStorage, 0, "failed to create temp download dir: %v", err)
		}
		return &Manager{dir: tmp, ephemeral: true}, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Newf(errors.ErrorTypeStorage, 0, "failed to create download dir: %v", err)
	}
	return &Manager{dir: dir}, nil
}

// Dir returns the download directory path
func (m *Manager) Dir() string {
	return m.dir
}

// PathFor maps a file title to its local path. Slashes in titles would
// escape the directory, so they are flattened.
func (m *Manager) PathFor(title string) string {
	safe := strings.ReplaceAll(title, "/", "_")
	safe = strings.ReplaceAll(safe, string(os.PathSeparator), "_")
	return filepath.Join(m.dir, safe)
}

// Save streams r into the file for title, replacing any previous copy.
// The write goes through a temp file and rename so a partial download
// never masquerades as a complete one.
func (m *Manager) Save(r io.Reader, title string) (string, error) {
	dest := m.PathFor(title)

	tmp := dest + ".part"
	out, err := os.Create(tmp)
	if err != nil {
		return "", errors.Newf(errors.ErrorTypeStorage, 0, "failed to create %s: %v", tmp, err)
	}

	_, copyErr := io.Copy(out, r)
	closeErr := out.Close()

	if copyErr != nil {
		os.Remove(tmp)
		return "", errors.Newf(errors.ErrorTypeStorage, 0, "failed to write %s: %v", tmp, copyErr)
	}
	if closeErr != nil {
		os.Remove(tmp)
		return "", errors.Newf(errors.ErrorTypeStorage, 0, "failed to close %s: %v", tmp, closeErr)
	}

	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return "", errors.Newf(errors.ErrorTypeStorage, 0, "failed to finalize %s: %v", dest, err)
	}
	return dest, nil
}

// Remove deletes a downloaded file. Missing files are not an error.
func (m *Manager) Remove(path string) {
	if path == "" {
		return
	}
	_ = os.Remove(path)
}

// Close removes the download directory when it was created as a temp dir
func (m *Manager) Close() error {
	if !m.ephemeral {
		return nil
	}
	if err := os.RemoveAll(m.dir); err != nil {
		return fmt.Errorf("failed to remove download dir: %w", err)
	}
	return nil
}
