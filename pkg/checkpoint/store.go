package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/wilfredor/addwikigeolocation/pkg/errors"
	"github.com/wilfredor/addwikigeolocation/pkg/logger"
)

// Store persists ScanState to a single JSON file. Saves are atomic
// with respect to process crash: a reader never observes a partially
// written file.
type Store struct {
	path   string
	logger logger.Logger
}

// NewStore creates a checkpoint store for the given path
func NewStore(path string, log logger.Logger) *Store {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Store{path: path, logger: log}
}

// Path returns the checkpoint file path
func (s *Store) Path() string {
	return s.path
}

// Load reads the checkpoint. A missing file yields an empty state. A
// file that fails to parse is renamed aside with a timestamp and an
// empty state is returned: losing an unreadable checkpoint beats
// refusing to run.
func (s *Store) Load() (*ScanState, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewScanState(), nil
		}
		return nil, errors.Newf(errors.ErrorTypeStorage, 0, "failed to read checkpoint: %v", err)
	}

	var state ScanState
	if err := json.Unmarshal(data, &state); err != nil {
		backup := s.quarantine()
		s.logger.WarnWithFields("corrupted checkpoint moved aside, starting fresh", map[string]interface{}{
			"path":   s.path,
			"backup": backup,
			"error":  err.Error(),
		})
		return NewScanState(), nil
	}

	s.logger.InfoWithFields("checkpoint loaded", map[string]interface{}{
		"path":           s.path,
		"needs_exif":     len(state.NeedsExif),
		"needs_template": len(state.NeedsTemplate),
		"has_continue":   state.Continue != nil,
	})
	return &state, nil
}

// Save writes the checkpoint atomically: temp file in the same
// directory, flush to stable storage, rename over the destination.
// Failures here are fatal to the run; silent loss of queue state is
// unacceptable.
func (s *Store) Save(state *ScanState) error {
	dir := filepath.Dir(s.path)

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return errors.Newf(errors.ErrorTypeStorage, 0, "failed to create temp checkpoint: %v", err)
	}
	tmpPath := tmp.Name()

	encoder := json.NewEncoder(tmp)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(state); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return errors.Newf(errors.ErrorTypeStorage, 0, "failed to encode checkpoint: %v", err)
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return errors.Newf(errors.ErrorTypeStorage, 0, "failed to sync checkpoint: %v", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return errors.Newf(errors.ErrorTypeStorage, 0, "failed to close checkpoint: %v", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return errors.Newf(errors.ErrorTypeStorage, 0, "failed to replace checkpoint: %v", err)
	}

	s.logger.DebugWithFields("checkpoint saved", map[string]interface{}{
		"path":           s.path,
		"needs_exif":     len(state.NeedsExif),
		"needs_template": len(state.NeedsTemplate),
	})
	return nil
}

// Exists checks if a checkpoint file exists
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Delete removes the checkpoint file
func (s *Store) Delete() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return errors.Newf(errors.ErrorTypeStorage, 0, "failed to delete checkpoint: %v", err)
	}
	return nil
}

// quarantine renames an unreadable checkpoint aside and returns the
// backup path
func (s *Store) quarantine() string {
	ts := time.Now().UTC().Format("20060102150405")
	backup := fmt.Sprintf("%s.corrupt.%s", s.path, ts)
	if err := os.Rename(s.path, backup); err != nil {
		s.logger.WithError(err).Warn("failed to move corrupted checkpoint aside")
		return ""
	}
	return backup
}
